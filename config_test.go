package main

import (
	"testing"
	"time"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DBPath != "arena.db" || cfg.TickRate != TickRate {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Seed != nil {
		t.Errorf("expected no fixed seed, got %d", *cfg.Seed)
	}
	if cfg.SessionIdle != 2*time.Minute {
		t.Errorf("expected 2m idle timeout, got %s", cfg.SessionIdle)
	}
	if cfg.Balance == nil || cfg.Balance.FinalWave() != 6 {
		t.Error("expected default balance tables")
	}
}

func TestParseFlagsValues(t *testing.T) {
	path := writeBalanceFile(t, "player_max_health: 120\n")
	cfg, err := ParseFlags([]string{
		"-addr", ":9000",
		"-db", "",
		"-seed", "0",
		"-tick", "30",
		"-idle", "45s",
		"-balance", path,
		"-public-url", "https://arena.example",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Seed == nil || *cfg.Seed != 0 {
		t.Error("an explicit zero seed should be kept")
	}
	if cfg.DBPath != "" || cfg.TickRate != 30 || cfg.SessionIdle != 45*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Balance.PlayerMaxHealth != 120 {
		t.Errorf("expected balance override, got %v", cfg.Balance.PlayerMaxHealth)
	}
	if cfg.PublicURL != "https://arena.example" {
		t.Errorf("unexpected public url %q", cfg.PublicURL)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-tick", "5"},
		{"-tick", "1000"},
		{"-idle", "0s"},
		{"-balance", "/nonexistent/balance.yaml"},
		{"-unknown"},
	} {
		if _, err := ParseFlags(args); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}
