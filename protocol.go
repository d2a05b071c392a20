package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin        = "join"
	MsgLeave       = "leave"
	MsgInput       = "input"
	MsgCreate      = "create" // create session
	MsgList        = "list"   // list sessions
	MsgCheck       = "check"  // check if session exists
	MsgStart       = "start"
	MsgRestart     = "restart"
	MsgPause       = "pause"
	MsgMenu        = "menu"
	MsgPerk        = "perk" // pick an offered perk
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth" // resume with a stored token
	MsgProfile     = "profile"
	MsgLeaderboard = "leaderboard"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgEvents      = "events" // drained game events for one tick
	MsgSessions    = "sessions"
	MsgJoined      = "joined"
	MsgCreated     = "created" // session created, client should navigate
	MsgError       = "error"
	MsgChecked     = "checked" // session check response
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgBoard       = "board"
	MsgRunRecorded = "run_recorded"
	MsgAchievement = "achievement"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ClientInput is sent by the pilot whenever their controls change
type ClientInput struct {
	F     float64 `json:"f"`               // forward axis, -1..1
	R     float64 `json:"r"`               // strafe axis, -1..1
	LX    float64 `json:"lx"`              // look delta X (pixels)
	LY    float64 `json:"ly"`              // look delta Y (pixels)
	Fire  bool    `json:"fire"`            // trigger held
	Swap  string  `json:"swap,omitempty"`  // weapon id to select
	Cycle bool    `json:"cycle,omitempty"` // select next weapon
}

// JoinMsg is sent when player wants to join a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg is sent when player wants to create a session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
	Seed        *int64 `json:"seed,omitempty"`
}

// PerkMsg picks one of the offered perks
type PerkMsg struct {
	Perk PerkID `json:"perk"`
}

// LeaderboardMsg asks for the best runs
type LeaderboardMsg struct {
	By    string `json:"by"`
	Limit int    `json:"limit"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates an account
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes a session with a token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg carries an account's lifetime stats
type ProfileDataMsg struct {
	Username     string   `json:"username"`
	Stats        StatsRow `json:"stats"`
	Achievements []string `json:"achievements"`
	Recent       []RunRow `json:"recent"`
}

// WelcomeMsg is sent to a client when they join
type WelcomeMsg struct {
	Pilot   bool     `json:"pilot"` // false: spectating
	Seed    int64    `json:"seed"`
	Weapons []string `json:"weapons"`
}

// EventsMsg carries the events drained in one tick
type EventsMsg struct {
	Tick   uint64      `json:"tick"`
	Events []GameEvent `json:"events"`
}

// RunRecordedMsg tells the pilot their finished run was saved
type RunRecordedMsg struct {
	RunID   string     `json:"run_id"`
	Outcome MatchPhase `json:"outcome"`
	Score   int        `json:"score"`
	XP      int        `json:"xp,omitempty"`
	Level   int        `json:"level,omitempty"`
}

// AchievementMsg announces a newly unlocked achievement
type AchievementMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Players    int        `json:"players"`
	Phase      GamePhase  `json:"phase"`
	MatchPhase MatchPhase `json:"match"`
	Wave       int        `json:"wave"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// GameState is the binary (msgpack) state frame broadcast to clients
type GameState struct {
	Tick         uint64      `msgpack:"tick"`
	Version      uint64      `msgpack:"v"`
	Phase        GamePhase   `msgpack:"phase"`
	MatchPhase   MatchPhase  `msgpack:"match"`
	Player       Player      `msgpack:"player"`
	Enemies      []Enemy     `msgpack:"enemies"`
	Lasers       []Laser     `msgpack:"lasers"`
	Targets      []Target    `msgpack:"targets"`
	PowerUps     []PowerUp   `msgpack:"powerUps"`
	Particles    []Particle  `msgpack:"particles"`
	Objective    *Objective  `msgpack:"objective,omitempty"`
	PerkOptions  []PerkID    `msgpack:"perkOptions,omitempty"`
	Camera       CameraState `msgpack:"camera"`
	Aim          AimState    `msgpack:"aim"`
	Shake        float64     `msgpack:"shake"`
	Announcement bool        `msgpack:"announce"`
}

// NewGameState copies the render-facing part of the store
func NewGameState(st *Store) GameState {
	gs := GameState{
		Tick:         st.Tick(),
		Version:      st.Version(),
		Phase:        st.Phase(),
		MatchPhase:   st.MatchPhase(),
		Player:       st.Player(),
		Enemies:      st.Enemies(),
		Lasers:       st.Lasers(),
		Targets:      st.Targets(),
		PowerUps:     st.PowerUps(),
		Particles:    st.Particles(),
		PerkOptions:  st.PerkOptions(),
		Camera:       st.Camera(),
		Aim:          st.Aim(),
		Shake:        st.Shake(),
		Announcement: st.AnnouncementVisible(),
	}
	if o, ok := st.Objective(); ok {
		gs.Objective = &o
	}
	return gs
}
