package main

import (
	"strconv"
	"testing"
)

func TestConnLimiterPerIP(t *testing.T) {
	var l connLimiter
	for i := 0; i < maxConnsPerIP; i++ {
		if !l.Acquire("10.1.1.1") {
			t.Fatalf("slot %d refused", i+1)
		}
	}
	if l.Acquire("10.1.1.1") {
		t.Error("expected per-address limit")
	}
	if !l.Acquire("10.1.1.2") {
		t.Error("another address should still get a slot")
	}
	if l.Count() != maxConnsPerIP+1 {
		t.Errorf("expected %d held slots, got %d", maxConnsPerIP+1, l.Count())
	}

	l.Release("10.1.1.1")
	if !l.Acquire("10.1.1.1") {
		t.Error("expected a released slot to be reusable")
	}
}

func TestConnLimiterTotal(t *testing.T) {
	var l connLimiter
	for i := 0; i < maxTotalConns; i++ {
		if !l.Acquire("10.2." + strconv.Itoa(i)) {
			t.Fatalf("slot %d refused", i+1)
		}
	}
	if l.Acquire("fresh") {
		t.Error("expected the global limit")
	}

	// Releasing an unknown address never underflows
	var empty connLimiter
	empty.Release("nobody")
	if empty.Count() != 0 {
		t.Errorf("expected 0, got %d", empty.Count())
	}
}

func TestHubOnlineTracking(t *testing.T) {
	h := NewHub(&ServerConfig{TickRate: TickRate, Balance: DefaultBalance()}, nil, nil)
	first, second := &Client{}, &Client{}

	h.SetOnline(7, first)
	h.SetOnline(7, second)
	if h.OnlineCount() != 1 {
		t.Fatalf("expected 1 account online, got %d", h.OnlineCount())
	}

	// The replaced connection going away keeps the account online
	h.SetOffline(7, first)
	if h.OnlineCount() != 1 {
		t.Errorf("stale disconnect dropped the account")
	}
	h.SetOffline(7, second)
	if h.OnlineCount() != 0 {
		t.Errorf("expected no accounts online, got %d", h.OnlineCount())
	}
	if h.auth != nil {
		t.Error("accounts need a database")
	}
}
