package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow is a player's lifetime totals
type StatsRow struct {
	PlayerID    int64   `json:"-"`
	Runs        int     `json:"runs"`
	Completions int     `json:"completions"`
	Kills       int     `json:"kills"`
	BestScore   int     `json:"best_score"`
	BestWave    int     `json:"best_wave"`
	Playtime    float64 `json:"playtime"` // seconds
	XP          int     `json:"xp"`
	Level       int     `json:"level"`
}

// RunRow is one finished run
type RunRow struct {
	ID        string     `json:"id"`
	PlayerID  int64      `json:"-"`
	Name      string     `json:"name"`
	Score     int        `json:"score"`
	Kills     int        `json:"kills"`
	Wave      int        `json:"wave"`
	Outcome   MatchPhase `json:"outcome"`
	Perks     []PerkID   `json:"perks"`
	Duration  float64    `json:"duration"`
	Seed      int64      `json:"seed"`
	Replay    []byte     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		runs INTEGER NOT NULL DEFAULT 0,
		completions INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		best_score INTEGER NOT NULL DEFAULT 0,
		best_wave INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		player_id INTEGER REFERENCES players(id),
		name TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		wave INTEGER NOT NULL DEFAULT 1,
		outcome TEXT NOT NULL DEFAULT '',
		perks TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		seed INTEGER NOT NULL DEFAULT 0,
		replay BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS achievements (
		player_id INTEGER NOT NULL REFERENCES players(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (player_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		session_id TEXT,
		data TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_player ON runs(player_id);
	CREATE INDEX IF NOT EXISTS idx_runs_score ON runs(score);
	CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type, created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreatePlayer creates a new player account (returns player ID).
// Guests never get a row; their runs are stored without a player.
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO players (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO stats (player_id) VALUES (?)", id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func (db *DB) scanPlayer(row *sql.Row) (*PlayerRow, error) {
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlayerByUsername returns a player by username
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	return db.scanPlayer(db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	))
}

// GetPlayerByID returns a player by ID
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	return db.scanPlayer(db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE id = ?",
		id,
	))
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns player stats
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		`SELECT player_id, runs, completions, kills, best_score, best_wave, playtime, xp, level
		FROM stats WHERE player_id = ?`,
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Runs, &s.Completions, &s.Kills, &s.BestScore, &s.BestWave, &s.Playtime, &s.XP, &s.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// XPForLevel returns the total XP required to reach a given level.
// Formula: sum of 100 * i^1.5 for i in 1..level-1
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	total := 0.0
	for i := 1; i < level; i++ {
		total += 100.0 * math.Pow(float64(i), 1.5)
	}
	return int(total)
}

// CalculateLevel returns the level for a given total XP amount
func CalculateLevel(totalXP int) int {
	level := 1
	for {
		if totalXP < XPForLevel(level+1) {
			return level
		}
		level++
		if level > 100 {
			return 100
		}
	}
}

// RunXP is the experience a run earns
func RunXP(r RunRow) int {
	xp := r.Score/10 + r.Kills*2 + (r.Wave-1)*25
	if r.Outcome == MatchCompleted {
		xp += 250
	}
	return xp
}

// UpdateStatsAfterRun folds a finished run into the player's totals.
// Returns (totalXP, level).
func (db *DB) UpdateStatsAfterRun(playerID int64, r RunRow) (int, int, error) {
	completed := 0
	if r.Outcome == MatchCompleted {
		completed = 1
	}
	_, err := db.conn.Exec(`
		UPDATE stats SET
			runs = runs + 1,
			completions = completions + ?,
			kills = kills + ?,
			best_score = MAX(best_score, ?),
			best_wave = MAX(best_wave, ?),
			playtime = playtime + ?,
			xp = xp + ?
		WHERE player_id = ?`,
		completed, r.Kills, r.Score, r.Wave, r.Duration, RunXP(r), playerID,
	)
	if err != nil {
		return 0, 0, err
	}

	var totalXP int
	if err := db.conn.QueryRow("SELECT xp FROM stats WHERE player_id = ?", playerID).Scan(&totalXP); err != nil {
		return 0, 0, err
	}
	level := CalculateLevel(totalXP)
	_, err = db.conn.Exec("UPDATE stats SET level = ? WHERE player_id = ?", level, playerID)
	return totalXP, level, err
}

func joinPerks(perks []PerkID) string {
	s := make([]string, len(perks))
	for i, p := range perks {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}

func splitPerks(s string) []PerkID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]PerkID, len(parts))
	for i, p := range parts {
		out[i] = PerkID(p)
	}
	return out
}

// RecordRun stores a finished run
func (db *DB) RecordRun(r RunRow) error {
	pid := sql.NullInt64{Int64: r.PlayerID, Valid: r.PlayerID > 0}
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, player_id, name, score, kills, wave, outcome, perks, duration, seed, replay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, pid, r.Name, r.Score, r.Kills, r.Wave, string(r.Outcome), joinPerks(r.Perks), r.Duration, r.Seed, r.Replay,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

const runColumns = "id, COALESCE(player_id, 0), name, score, kills, wave, outcome, perks, duration, seed, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, extra ...any) (RunRow, error) {
	var r RunRow
	var outcome, perks string
	dest := []any{&r.ID, &r.PlayerID, &r.Name, &r.Score, &r.Kills, &r.Wave, &outcome, &perks, &r.Duration, &r.Seed, &r.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return RunRow{}, err
	}
	r.Outcome = MatchPhase(outcome)
	r.Perks = splitPerks(perks)
	return r, nil
}

// GetRun returns a run with its replay, or nil if unknown
func (db *DB) GetRun(id string) (*RunRow, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+", replay FROM runs WHERE id = ?", id)
	var replay []byte
	r, err := scanRun(row, &replay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Replay = replay
	return &r, nil
}

// GetRunHistory returns a player's most recent runs
func (db *DB) GetRunHistory(playerID int64, limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM runs WHERE player_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		playerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank    int        `json:"rank"`
	RunID   string     `json:"run_id"`
	Name    string     `json:"name"`
	Score   int        `json:"score"`
	Kills   int        `json:"kills"`
	Wave    int        `json:"wave"`
	Outcome MatchPhase `json:"outcome"`
}

// GetLeaderboard returns the best runs sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"score": "score DESC, wave DESC",
		"wave":  "wave DESC, score DESC",
		"kills": "kills DESC, score DESC",
	}
	order, ok := validCols[orderBy]
	if !ok {
		order = validCols["score"]
	}

	rows, err := db.conn.Query(
		"SELECT id, name, score, kills, wave, outcome FROM runs ORDER BY "+order+", created_at ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		var outcome string
		if err := rows.Scan(&e.RunID, &e.Name, &e.Score, &e.Kills, &e.Wave, &outcome); err != nil {
			return nil, err
		}
		e.Outcome = MatchPhase(outcome)
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// GetAchievements returns the achievement ids a player has unlocked
func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at, achievement_id",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockAchievement records an achievement; it reports false if already held
func (db *DB) UnlockAchievement(playerID int64, achievementID string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)",
		playerID, achievementID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
