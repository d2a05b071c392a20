package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// RunVerification compares a stored run with a fresh replay of its log
type RunVerification struct {
	RunID    string     `json:"run_id"`
	Verified bool       `json:"verified"`
	Score    int        `json:"score"`
	Wave     int        `json:"wave"`
	Kills    int        `json:"kills"`
	Outcome  MatchPhase `json:"outcome"`
}

// VerifyRun replays a stored run and checks it reproduces the recorded result
func VerifyRun(run *RunRow) (RunVerification, error) {
	v := RunVerification{RunID: run.ID}
	l, err := DecodeRunLog(run.Replay)
	if err != nil {
		return v, err
	}
	sim := Replay(l, nil)
	defer sim.Close()
	st := sim.Store()
	p := st.Player()
	v.Score, v.Wave, v.Kills, v.Outcome = p.Score, p.Wave, p.Kills, st.MatchPhase()
	v.Verified = v.Score == run.Score && v.Wave == run.Wave && v.Kills == run.Kills && v.Outcome == run.Outcome
	return v, nil
}

// shareURL is the public link encoded in a run's QR code
func shareURL(cfg *ServerConfig, r *http.Request, runID string) string {
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/api/runs/" + url.PathEscape(runID)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, cfg *ServerConfig) *http.ServeMux {
	mux := http.NewServeMux()

	if cfg.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(cfg.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: serve index.html for root and UUID paths
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(cfg.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.conns.Acquire(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.conns.Release(ip)
			log.Printf("upgrade error: %v", err)
			return
		}

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"sessions":    hub.sessions.Count(),
			"clients":     hub.ClientCount(),
			"connections": hub.conns.Count(),
			"online":      hub.OnlineCount(),
			"persistence": hub.db != nil,
		})
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.sessions.ListSessions())
	})

	mux.HandleFunc("GET /api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			writeError(w, http.StatusServiceUnavailable, "persistence disabled")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("by"), boardLimit(limit))
		if err != nil {
			log.Printf("leaderboard: %v", err)
			writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
			return
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	// runHandler loads the {id} run and passes it on, or answers 404
	runHandler := func(next func(http.ResponseWriter, *http.Request, *RunRow)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if hub.db == nil {
				writeError(w, http.StatusServiceUnavailable, "persistence disabled")
				return
			}
			run, err := hub.db.GetRun(r.PathValue("id"))
			if err != nil {
				log.Printf("get run: %v", err)
				writeError(w, http.StatusInternalServerError, "run unavailable")
				return
			}
			if run == nil {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			next(w, r, run)
		}
	}

	mux.HandleFunc("GET /api/runs/{id}", runHandler(func(w http.ResponseWriter, r *http.Request, run *RunRow) {
		writeJSON(w, http.StatusOK, run)
	}))

	mux.HandleFunc("GET /api/runs/{id}/replay", runHandler(func(w http.ResponseWriter, r *http.Request, run *RunRow) {
		w.Header().Set("Content-Type", "application/msgpack")
		w.Write(run.Replay)
	}))

	mux.HandleFunc("GET /api/runs/{id}/verify", runHandler(func(w http.ResponseWriter, r *http.Request, run *RunRow) {
		v, err := VerifyRun(run)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	}))

	mux.HandleFunc("GET /api/runs/{id}/qr", runHandler(func(w http.ResponseWriter, r *http.Request, run *RunRow) {
		png, err := qrcode.Encode(shareURL(cfg, r, run.ID), qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("qr: %v", err)
			writeError(w, http.StatusInternalServerError, "qr unavailable")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))

	mux.HandleFunc("GET /api/analytics", func(w http.ResponseWriter, r *http.Request) {
		if hub.analytics == nil {
			writeError(w, http.StatusServiceUnavailable, "analytics disabled")
			return
		}
		writeJSON(w, http.StatusOK, analyticsSummary(hub.analytics))
	})

	return mux
}

// AnalyticsSummary is the /api/analytics payload
type AnalyticsSummary struct {
	Peers    int             `json:"peers"`
	Sessions int             `json:"sessions"`
	DAU      int             `json:"dau"`
	WAU      int             `json:"wau"`
	MAU      int             `json:"mau"`
	Runs     []RunAnalytics  `json:"runs"`
	Perks    []PerkAnalytics `json:"perks"`
	Waves    []WaveCount     `json:"waves"`
	Events   map[string]int  `json:"events"`
	Daily    []DayCount      `json:"daily"`
}

func analyticsSummary(a *Analytics) AnalyticsSummary {
	var s AnalyticsSummary
	var err error
	s.Peers, s.Sessions = a.GetLiveMetrics()
	logErr := func(what string, err error) {
		if err != nil {
			log.Printf("analytics %s: %v", what, err)
		}
	}
	s.DAU, err = a.ActivePlayers(0)
	logErr("dau", err)
	s.WAU, err = a.ActivePlayers(7)
	logErr("wau", err)
	s.MAU, err = a.ActivePlayers(30)
	logErr("mau", err)
	s.Runs, err = a.RunStats(30)
	logErr("runs", err)
	s.Waves, err = a.WaveReach(30)
	logErr("waves", err)
	s.Perks, err = a.PopularPerks(10)
	logErr("perks", err)
	s.Events, err = a.EventCounts(7)
	logErr("events", err)
	s.Daily, err = a.DailyActiveHistory(30)
	logErr("daily", err)
	return s
}
