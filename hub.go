package main

import "sync"

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// connLimiter caps websocket connections overall and per remote address
type connLimiter struct {
	mu    sync.Mutex
	perIP map[string]int
	total int
}

// Acquire reserves a slot for ip; false when a limit is reached
func (l *connLimiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total >= maxTotalConns || l.perIP[ip] >= maxConnsPerIP {
		return false
	}
	if l.perIP == nil {
		l.perIP = make(map[string]int)
	}
	l.perIP[ip]++
	l.total++
	return true
}

// Release frees a slot taken by Acquire
func (l *connLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip]--
	}
	if l.total > 0 {
		l.total--
	}
}

// Count returns the number of held slots
func (l *connLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Hub tracks connected clients, routes departures to their sessions and
// remembers which accounts are signed in
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager
	conns      connLimiter

	// nil when persistence is disabled
	db        *DB
	auth      *Auth
	analytics *Analytics

	onlineMu sync.RWMutex
	online   map[int64]*Client // account id -> latest connection
}

// NewHub creates a Hub. db and analytics may be nil; accounts are only
// offered with a database.
func NewHub(cfg *ServerConfig, db *DB, analytics *Analytics) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		sessions:   NewSessionManager(cfg, db, analytics),
		db:         db,
		analytics:  analytics,
		online:     make(map[int64]*Client),
	}
	if db != nil {
		h.auth = NewAuth(db)
	}
	return h
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.reportPeers(n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.reportPeers(n)

			if client.authPlayerID != 0 {
				h.SetOffline(client.authPlayerID, client)
			}
			if client.sessionID != "" {
				h.sessions.RemoveClient(client.sessionID, client.memberID)
			}
		}
	}
}

func (h *Hub) reportPeers(n int) {
	if h.analytics != nil {
		h.analytics.SetConcurrentPeers(n)
	}
}

// SetOnline records client as the live connection of an account
func (h *Hub) SetOnline(playerID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.online[playerID] = client
}

// SetOffline forgets an account's connection unless a newer one replaced it
func (h *Hub) SetOffline(playerID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	if h.online[playerID] == client {
		delete(h.online, playerID)
	}
}

// OnlineCount returns how many accounts are signed in
func (h *Hub) OnlineCount() int {
	h.onlineMu.RLock()
	defer h.onlineMu.RUnlock()
	return len(h.online)
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
