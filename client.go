package main

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxSessionNameLen = 30
	defaultBoardLimit = 10
	maxBoardLimit     = 100
)

// binaryInputLen is the size of a compact input frame:
// [0x01, forward int8, right int8, lx_hi, lx_lo, ly_hi, ly_lo, flags]
const binaryInputLen = 8

// frame is one queued outbound websocket message
type frame struct {
	binary bool
	data   []byte
}

// msgBudget caps inbound messages per one-second window
type msgBudget struct {
	used    int
	resetAt time.Time
}

func (b *msgBudget) spend(now time.Time) bool {
	if now.After(b.resetAt) {
		b.used = 0
		b.resetAt = now.Add(time.Second)
	}
	b.used++
	return b.used <= maxMessagesPerSec
}

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan frame
	memberID   string
	sessionID  string
	remoteAddr string
	budget     msgBudget

	authPlayerID int64  // 0 = guest
	authUsername string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan frame, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages until the connection fails or floods
func (c *Client) ReadPump() {
	defer func() {
		c.hub.conns.Release(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws %s: %v", c.remoteAddr, err)
			}
			return
		}
		if !c.budget.spend(time.Now()) {
			log.Printf("ws %s: message flood, disconnecting", c.remoteAddr)
			return
		}

		if msgType == websocket.BinaryMessage {
			if len(message) == binaryInputLen && message[0] == 0x01 {
				c.handleBinaryInput(message)
			}
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON queues a JSON text message
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal %T: %v", msg, err)
		return
	}
	c.enqueue(frame{data: data})
}

// SendBinary queues an already encoded binary message
func (c *Client) SendBinary(data []byte) {
	c.enqueue(frame{binary: true, data: data})
}

// enqueue drops the frame when the client is too slow. The hub closes send
// on unregister, so a late broadcast may hit a closed channel.
func (c *Client) enqueue(f frame) {
	defer func() { recover() }()
	select {
	case c.send <- f:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// messageHandlers routes text messages by envelope type
var messageHandlers = map[string]func(*Client, json.RawMessage){
	MsgList:        func(c *Client, _ json.RawMessage) { c.handleList() },
	MsgCreate:      (*Client).handleCreate,
	MsgJoin:        (*Client).handleJoin,
	MsgInput:       (*Client).handleInput,
	MsgLeave:       func(c *Client, _ json.RawMessage) { c.handleLeave() },
	MsgCheck:       (*Client).handleCheck,
	MsgStart:       actionHandler(ActionStart),
	MsgRestart:     actionHandler(ActionRestart),
	MsgPause:       actionHandler(ActionPause),
	MsgMenu:        actionHandler(ActionMenu),
	MsgPerk:        (*Client).handlePerk,
	MsgRegister:    (*Client).handleRegister,
	MsgLogin:       (*Client).handleLogin,
	MsgAuth:        (*Client).handleAuth,
	MsgProfile:     func(c *Client, _ json.RawMessage) { c.handleProfile() },
	MsgLeaderboard: (*Client).handleLeaderboard,
}

func actionHandler(kind string) func(*Client, json.RawMessage) {
	return func(c *Client, _ json.RawMessage) { c.handleAction(ReplayAction{Kind: kind}) }
}

func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("ws %s: bad envelope: %v", c.remoteAddr, err)
		return
	}
	if h, ok := messageHandlers[env.T]; ok {
		h(c, env.D)
	}
}

// session returns the session this client is in, or nil
func (c *Client) session() *Session {
	if c.sessionID == "" || c.memberID == "" {
		return nil
	}
	return c.hub.sessions.GetSession(c.sessionID)
}

func (c *Client) handleList() {
	sessions := c.hub.sessions.ListSessions()
	c.SendJSON(Envelope{T: MsgSessions, Data: sessions})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := strings.TrimSpace(msg.SessionName)
	if sname == "" {
		sname = "Arena"
	}
	if len(sname) > maxSessionNameLen {
		sname = sname[:maxSessionNameLen]
	}

	sess := c.hub.sessions.CreateSession(sname, msg.Seed)
	if sess == nil {
		c.sendError("too many active sessions")
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.sessionID != "" {
		c.handleLeave()
	}
	name := strings.TrimSpace(msg.Name)
	if c.authUsername != "" {
		name = c.authUsername
	}
	if name == "" {
		name = GenerateGuestName()
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("session not found")
		return
	}

	id, pilot := sess.Game.AddClient(name, c.authPlayerID, c)
	if id == "" {
		c.sendError("session full")
		return
	}
	c.hub.sessions.MarkActive(sess.ID)
	c.memberID = id
	c.sessionID = sess.ID

	weapons := make([]string, 0, len(sess.Game.Balance().Weapons))
	for _, w := range sess.Game.Balance().Weapons {
		weapons = append(weapons, string(w.ID))
	}
	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{Pilot: pilot, Seed: sess.Game.Seed(), Weapons: weapons}})
}

// handleBinaryInput decodes a compact binary input frame
func (c *Client) handleBinaryInput(msg []byte) {
	sess := c.session()
	if sess == nil {
		return
	}
	flags := msg[7]
	input := ClientInput{
		F:     float64(int8(msg[1])) / 127,
		R:     float64(int8(msg[2])) / 127,
		LX:    float64(int16(uint16(msg[3])<<8 | uint16(msg[4]))),
		LY:    float64(int16(uint16(msg[5])<<8 | uint16(msg[6]))),
		Fire:  flags&0x01 != 0,
		Cycle: flags&0x02 != 0,
	}
	sess.Game.HandleInput(c.memberID, input)
}

func (c *Client) handleInput(data json.RawMessage) {
	sess := c.session()
	if sess == nil {
		return
	}
	var input ClientInput
	if err := json.Unmarshal(data, &input); err != nil {
		return
	}
	sess.Game.HandleInput(c.memberID, input)
}

func (c *Client) handleAction(a ReplayAction) {
	sess := c.session()
	if sess == nil {
		c.sendError("not in a session")
		return
	}
	if !sess.Game.IsPilot(c.memberID) {
		c.sendError("spectators cannot control the run")
		return
	}
	if !sess.Game.HandleAction(c.memberID, a) {
		c.sendError(a.Kind + " not allowed now")
		return
	}
	c.hub.sessions.MarkActive(sess.ID)
}

func (c *Client) handlePerk(data json.RawMessage) {
	var msg PerkMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.handleAction(ReplayAction{Kind: ActionPerk, Perk: msg.Perk})
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Players: sess.Game.ClientCount(),
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID != "" {
		c.hub.sessions.RemoveClient(c.sessionID, c.memberID)
		c.sessionID = ""
		c.memberID = ""
	}
}

// authenticated records a successful register/login/auth
func (c *Client) authenticated(acct Account, evt string) {
	c.authPlayerID = acct.ID
	c.authUsername = acct.Username
	c.hub.SetOnline(acct.ID, c)
	if sess := c.session(); sess != nil {
		sess.Game.SetAuth(c.memberID, acct.ID)
	}
	if c.hub.analytics != nil {
		c.hub.analytics.Track(evt, acct.ID, c.sessionID, "")
	}
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    acct.Token,
		Username: acct.Username,
		PlayerID: acct.ID,
	}})
}

// accounts returns the account service, or nil after telling the client
// accounts are off
func (c *Client) accounts() *Auth {
	if c.hub.auth == nil {
		c.sendError("accounts are disabled")
	}
	return c.hub.auth
}

func (c *Client) handleRegister(data json.RawMessage) {
	auth := c.accounts()
	if auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acct, err := auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(acct, EvtRegister)
}

func (c *Client) handleLogin(data json.RawMessage) {
	auth := c.accounts()
	if auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acct, err := auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authenticated(acct, EvtLogin)
}

func (c *Client) handleAuth(data json.RawMessage) {
	auth := c.accounts()
	if auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acct, err := auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError(ErrInvalidToken.Error())
		return
	}
	c.authenticated(acct, EvtLogin)
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.authPlayerID == 0 {
		c.sendError("not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	achievements, err := c.hub.db.GetAchievements(c.authPlayerID)
	if err != nil {
		log.Printf("profile achievements: %v", err)
	}
	recent, err := c.hub.db.GetRunHistory(c.authPlayerID, 10)
	if err != nil {
		log.Printf("profile history: %v", err)
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.authUsername,
		Stats:        *stats,
		Achievements: achievements,
		Recent:       recent,
	}})
}

func (c *Client) handleLeaderboard(data json.RawMessage) {
	if c.hub.db == nil {
		c.sendError("leaderboard unavailable")
		return
	}
	var msg LeaderboardMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	entries, err := c.hub.db.GetLeaderboard(msg.By, boardLimit(msg.Limit))
	if err != nil {
		log.Printf("leaderboard: %v", err)
		c.sendError("leaderboard unavailable")
		return
	}
	c.SendJSON(Envelope{T: MsgBoard, Data: entries})
}

func boardLimit(n int) int {
	if n <= 0 {
		return defaultBoardLimit
	}
	if n > maxBoardLimit {
		return maxBoardLimit
	}
	return n
}
