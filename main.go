package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db *DB
	var analytics *Analytics
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("open db %s: %v", cfg.DBPath, err)
		}
		defer db.Close()
		analytics = NewAnalytics(db)
	} else {
		log.Println("Persistence disabled: runs, accounts and analytics are not stored")
	}

	hub := NewHub(cfg, db, analytics)
	go hub.Run()

	// Close sessions that were created but never joined
	reaper := time.NewTicker(cfg.SessionIdle / 2)
	defer reaper.Stop()
	go func() {
		for range reaper.C {
			if n := hub.sessions.CleanupIdle(cfg.SessionIdle); n > 0 {
				log.Printf("closed %d idle sessions", n)
			}
		}
	}()

	mux := SetupRoutes(hub, cfg)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s (%d ticks/s)", cfg.Addr, cfg.TickRate)
		if cfg.ClientDir != "" {
			log.Printf("Serving client files from %s", cfg.ClientDir)
		}
		if cfg.BalancePath != "" {
			log.Printf("Balance overrides loaded from %s", cfg.BalancePath)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	hub.sessions.StopAll()
	if analytics != nil {
		analytics.Stop()
	}
}
