package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Non-game event types. Game events are tracked under their own names
// (see trackedEvents).
const (
	EvtSessionStart = "session_start"
	EvtSessionEnd   = "session_end"
	EvtRunEnd       = "run_end"
	EvtAchievement  = "achievement"
	EvtLogin        = "login"
	EvtRegister     = "register"
)

const (
	analyticsQueueSize  = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// trackedEvents are the game events worth persisting; per-shot and per-hit
// events are too frequent
var trackedEvents = map[EventType]bool{
	EventWaveStart:         true,
	EventObjectiveComplete: true,
	EventRunComplete:       true,
	EventPerkGranted:       true,
	EventEnemyKilled:       true,
	EventMinibossPhase:     true,
	EventPlayerDied:        true,
	EventTargetDestroyed:   true,
	EventPowerUpCollected:  true,
}

// AnalyticsEvent is one row of analytics_events
type AnalyticsEvent struct {
	Type      string
	PlayerID  int64 // 0 = guest
	SessionID string
	Data      string // JSON, optional
	Timestamp time.Time
}

// Analytics queues events and writes them to the database in batches from a
// background goroutine. It also holds the live peer and session gauges.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	peers    atomic.Int64
	sessions atomic.Int64
}

// NewAnalytics starts the writer. A nil db keeps the gauges and drops events.
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsQueueSize),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event without blocking; a full queue drops it
func (a *Analytics) Track(evtType string, playerID int64, sessionID string, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// TrackJSON is Track with a payload marshalled to JSON
func (a *Analytics) TrackJSON(evtType string, playerID int64, sessionID string, payload interface{}) {
	var raw string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("analytics: marshal %s: %v", evtType, err)
			return
		}
		raw = string(b)
	}
	a.Track(evtType, playerID, sessionID, raw)
}

// TrackGameEvents records the drained game events worth keeping
func (a *Analytics) TrackGameEvents(playerID int64, sessionID string, events []GameEvent) {
	for _, ev := range events {
		if trackedEvents[ev.Type] {
			a.TrackJSON(string(ev.Type), playerID, sessionID, ev.Data)
		}
	}
}

// SetConcurrentPeers updates the connected-clients gauge
func (a *Analytics) SetConcurrentPeers(n int) { a.peers.Store(int64(n)) }

// SetActiveSessions updates the live-sessions gauge
func (a *Analytics) SetActiveSessions(n int) { a.sessions.Store(int64(n)) }

// GetLiveMetrics returns (peers, sessions)
func (a *Analytics) GetLiveMetrics() (int, int) {
	return int(a.peers.Load()), int(a.sessions.Load())
}

// Stop flushes everything still queued and stops the writer
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			a.flush(batch)
			batch = batch[:0]
		}
	}
	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes one batch in a single transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin tx: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, player_id, session_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PlayerID, Valid: evt.PlayerID > 0}
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, pid, sid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Printf("analytics: insert %s: %v", evt.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("analytics: commit: %v", err)
	}
}

// query runs a read and hands each row to scan
func (a *Analytics) query(scan func(*sql.Rows) error, q string, args ...interface{}) error {
	rows, err := a.db.conn.Query(q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ActivePlayers counts distinct signed-in players seen since the start of
// the day `days` days ago (0 = today)
func (a *Analytics) ActivePlayers(days int) (int, error) {
	if a.db == nil {
		return 0, nil
	}
	var n int
	err := a.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT player_id) FROM analytics_events
		WHERE player_id IS NOT NULL AND created_at >= date('now', '-' || ? || ' days')
	`, days).Scan(&n)
	return n, err
}

// RunAnalytics aggregates finished runs per outcome
type RunAnalytics struct {
	Outcome     string  `json:"outcome"`
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration"`
	AvgWave     float64 `json:"avg_wave"`
}

// RunStats returns run counts by outcome for the last N days
func (a *Analytics) RunStats(days int) ([]RunAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	var out []RunAnalytics
	err := a.query(func(rows *sql.Rows) error {
		var m RunAnalytics
		var avgDur, avgWave sql.NullFloat64
		if err := rows.Scan(&m.Outcome, &m.Count, &avgDur, &avgWave); err != nil {
			return err
		}
		m.AvgDuration, m.AvgWave = avgDur.Float64, avgWave.Float64
		out = append(out, m)
		return nil
	}, `
		SELECT COALESCE(json_extract(data, '$.outcome'), 'unknown') AS outcome, COUNT(*) AS cnt,
			AVG(CAST(json_extract(data, '$.duration') AS REAL)),
			AVG(CAST(json_extract(data, '$.wave') AS REAL))
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data) AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY outcome ORDER BY cnt DESC, outcome
	`, EvtRunEnd, days)
	return out, err
}

// WaveCount is how many runs ended on a wave
type WaveCount struct {
	Wave  int `json:"wave"`
	Count int `json:"count"`
}

// WaveReach returns how many runs ended on each wave in the last N days
func (a *Analytics) WaveReach(days int) ([]WaveCount, error) {
	if a.db == nil {
		return nil, nil
	}
	var out []WaveCount
	err := a.query(func(rows *sql.Rows) error {
		var w WaveCount
		if err := rows.Scan(&w.Wave, &w.Count); err != nil {
			return err
		}
		out = append(out, w)
		return nil
	}, `
		SELECT CAST(json_extract(data, '$.wave') AS INTEGER) AS wave, COUNT(*)
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data) AND json_extract(data, '$.wave') IS NOT NULL
			AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY wave ORDER BY wave
	`, EvtRunEnd, days)
	return out, err
}

// EventCounts returns counts per event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	out := make(map[string]int)
	err := a.query(func(rows *sql.Rows) error {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return err
		}
		out[typ] = n
		return nil
	}, `
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type
	`, days)
	return out, err
}

// PerkAnalytics is how often a perk was picked
type PerkAnalytics struct {
	Perk  string `json:"perk"`
	Count int    `json:"count"`
}

// PopularPerks returns the most picked perks
func (a *Analytics) PopularPerks(limit int) ([]PerkAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	var out []PerkAnalytics
	err := a.query(func(rows *sql.Rows) error {
		var p PerkAnalytics
		if err := rows.Scan(&p.Perk, &p.Count); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, `
		SELECT COALESCE(json_extract(data, '$.perk'), 'unknown') AS perk, COUNT(*) AS cnt
		FROM analytics_events
		WHERE event_type = ? AND json_valid(data)
		GROUP BY perk ORDER BY cnt DESC, perk LIMIT ?
	`, string(EventPerkGranted), limit)
	return out, err
}

// DayCount is a per-day count
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DailyActiveHistory returns distinct signed-in players per day
func (a *Analytics) DailyActiveHistory(days int) ([]DayCount, error) {
	if a.db == nil {
		return nil, nil
	}
	var out []DayCount
	err := a.query(func(rows *sql.Rows) error {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return err
		}
		out = append(out, dc)
		return nil
	}, `
		SELECT date(created_at) AS day, COUNT(DISTINCT player_id)
		FROM analytics_events
		WHERE player_id IS NOT NULL AND created_at >= date('now', '-' || ? || ' days')
		GROUP BY day ORDER BY day
	`, days)
	return out, err
}
