package main

// GamePhase is the top-level lifecycle of a session
type GamePhase string

const (
	PhaseMenu     GamePhase = "menu"
	PhasePlaying  GamePhase = "playing"
	PhasePaused   GamePhase = "paused"
	PhaseGameOver GamePhase = "gameover"
)

// MatchPhase is the sub-phase of a run while playing
type MatchPhase string

const (
	MatchPrewave    MatchPhase = "prewave"
	MatchCombat     MatchPhase = "combat"
	MatchPerkSelect MatchPhase = "perk_select"
	MatchCompleted  MatchPhase = "completed"
	MatchFailed     MatchPhase = "failed"
)

// RunOver reports whether the match phase is terminal
func (m MatchPhase) RunOver() bool {
	return m == MatchCompleted || m == MatchFailed
}

// updateMatch runs last in a tick. Death has already moved the store to
// gameover synchronously; this step only ages the wave banner.
func (s *Simulation) updateMatch(dt float64) {
	s.store.TickAnnouncement(dt)
}
