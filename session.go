package main

import (
	"sort"
	"sync"
	"time"
)

const maxSessions = 100

// Session represents a game session that players can join
type Session struct {
	ID   string
	Name string
	Game *Game

	lastActive time.Time
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       *ServerConfig
	db        *DB
	analytics *Analytics
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(cfg *ServerConfig, db *DB, analytics *Analytics) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		cfg:       cfg,
		db:        db,
		analytics: analytics,
	}
}

// sessionSeed picks the seed for a new session: the client's request, the
// server-wide flag, or the clock
func (sm *SessionManager) sessionSeed(requested *int64) int64 {
	switch {
	case requested != nil:
		return *requested
	case sm.cfg.Seed != nil:
		return *sm.cfg.Seed
	}
	return time.Now().UnixNano()
}

// CreateSession creates a new game session. Returns nil if limit reached.
func (sm *SessionManager) CreateSession(name string, seed *int64) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	id := GenerateUUID()
	game := NewGame(GameConfig{
		SessionID: id,
		Balance:   sm.cfg.Balance,
		Seed:      sm.sessionSeed(seed),
		TickRate:  sm.cfg.TickRate,
		DB:        sm.db,
		Analytics: sm.analytics,
	})
	sess := &Session{
		ID:         id,
		Name:       name,
		Game:       game,
		lastActive: time.Now(),
	}
	sm.sessions[id] = sess
	go game.Run()
	if sm.analytics != nil {
		sm.analytics.SetActiveSessions(len(sm.sessions))
	}
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// MarkActive refreshes a session's idle timer
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// RemoveClient removes a client from a session
func (sm *SessionManager) RemoveClient(sessionID, memberID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Game.RemoveClient(memberID)

	// Clean up empty sessions
	if sess.Game.ClientCount() == 0 {
		sm.remove(sessionID)
	}
}

func (sm *SessionManager) remove(id string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	delete(sm.sessions, id)
	n := len(sm.sessions)
	sm.mu.Unlock()
	if !ok {
		return
	}
	sess.Game.Stop()
	if sm.analytics != nil {
		sm.analytics.SetActiveSessions(n)
	}
}

// CleanupIdle closes sessions that have had no clients for longer than
// maxIdle. Returns how many were closed.
func (sm *SessionManager) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []string
	sm.mu.RLock()
	for id, sess := range sm.sessions {
		if sess.lastActive.Before(cutoff) && sess.Game.ClientCount() == 0 {
			stale = append(stale, id)
		}
	}
	sm.mu.RUnlock()
	for _, id := range stale {
		sm.remove(id)
	}
	return len(stale)
}

// StopAll closes every session
func (sm *SessionManager) StopAll() {
	sm.mu.RLock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	sm.mu.RUnlock()
	for _, id := range ids {
		sm.remove(id)
	}
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		phase, match, wave := sess.Game.Info()
		list = append(list, SessionInfo{
			ID:         sess.ID,
			Name:       sess.Name,
			Players:    sess.Game.ClientCount(),
			Phase:      phase,
			MatchPhase: match,
			Wave:       wave,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
