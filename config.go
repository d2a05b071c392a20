package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	minTickRate = 10
	maxTickRate = 240
)

// ServerConfig holds the parsed command line
type ServerConfig struct {
	Addr        string
	ClientDir   string // "" disables static files
	DBPath      string // "" disables persistence
	BalancePath string
	TickRate    int
	Seed        *int64 // nil: every session draws its own seed
	SessionIdle time.Duration
	PublicURL   string // base for run share links; defaults to the request host

	Balance *Balance
}

// ParseFlags parses args (without the program name) and loads the balance
// tables they name
func ParseFlags(args []string) (*ServerConfig, error) {
	fs := flag.NewFlagSet("arena-server", flag.ContinueOnError)
	cfg := &ServerConfig{}
	fs.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&cfg.ClientDir, "client", "", "Path to client directory (default: ../client if present)")
	fs.StringVar(&cfg.DBPath, "db", "arena.db", "SQLite database path (empty disables persistence)")
	fs.StringVar(&cfg.BalancePath, "balance", "", "YAML balance override file")
	fs.IntVar(&cfg.TickRate, "tick", TickRate, "Simulation ticks per second")
	seed := fs.Int64("seed", 0, "Fixed random seed for every session")
	fs.DurationVar(&cfg.SessionIdle, "idle", 2*time.Minute, "Close sessions nobody has joined for this long")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "Public base URL used in share links")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed = seed
		}
	})

	if cfg.SessionIdle <= 0 {
		return nil, fmt.Errorf("idle must be positive, got %s", cfg.SessionIdle)
	}
	if cfg.TickRate < minTickRate || cfg.TickRate > maxTickRate {
		return nil, fmt.Errorf("tick rate must be %d-%d, got %d", minTickRate, maxTickRate, cfg.TickRate)
	}

	if cfg.ClientDir == "" {
		exe, _ := os.Executable()
		dir := filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			dir = "../client"
		}
		if _, err := os.Stat(dir); err == nil {
			cfg.ClientDir = dir
		}
	}

	b, err := LoadBalance(cfg.BalancePath)
	if err != nil {
		return nil, err
	}
	cfg.Balance = b
	return cfg, nil
}
