package main

import "testing"

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	a.Track(EvtSessionStart, 0, "s1", "")
	a.Track(EvtLogin, 7, "s1", "")
	a.Track(EvtLogin, 8, "", "")
	a.Track(string(EventPerkGranted), 7, "s1", `{"perk":"overcharge"}`)
	a.Track(string(EventPerkGranted), 7, "s1", `{"perk":"overcharge"}`)
	a.Track(string(EventPerkGranted), 8, "s1", `{"perk":"shockwave"}`)
	a.Stop()

	counts, err := a.EventCounts(1)
	if err != nil {
		t.Fatalf("event counts: %v", err)
	}
	if counts[EvtLogin] != 2 || counts[EvtSessionStart] != 1 || counts[string(EventPerkGranted)] != 3 {
		t.Errorf("unexpected counts %v", counts)
	}

	perks, err := a.PopularPerks(5)
	if err != nil {
		t.Fatalf("popular perks: %v", err)
	}
	if len(perks) != 2 || perks[0].Perk != string(PerkOvercharge) || perks[0].Count != 2 {
		t.Errorf("unexpected perks %+v", perks)
	}

	dau, err := a.ActivePlayers(0)
	if err != nil || dau != 2 {
		t.Errorf("expected 2 players today, got %d (%v)", dau, err)
	}
}

func TestAnalyticsRunStats(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)
	a.Track(EvtRunEnd, 1, "s", `{"outcome":"failed","wave":2,"duration":60}`)
	a.Track(EvtRunEnd, 1, "s", `{"outcome":"failed","wave":4,"duration":120}`)
	a.Track(EvtRunEnd, 2, "s", `{"outcome":"completed","wave":6,"duration":400}`)
	a.Stop()

	stats, err := a.RunStats(1)
	if err != nil {
		t.Fatalf("run stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", stats)
	}
	if stats[0].Outcome != "failed" || stats[0].Count != 2 || stats[0].AvgWave != 3 || stats[0].AvgDuration != 90 {
		t.Errorf("unexpected failed stats %+v", stats[0])
	}

	waves, err := a.WaveReach(1)
	if err != nil {
		t.Fatalf("wave reach: %v", err)
	}
	if len(waves) != 3 || waves[0].Wave != 2 || waves[2].Wave != 6 || waves[2].Count != 1 {
		t.Errorf("unexpected wave reach %+v", waves)
	}
}

func TestAnalyticsTrackGameEvents(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)
	a.TrackGameEvents(3, "s", []GameEvent{
		{Type: EventPerkGranted, Data: EventPayload{Perk: PerkOvercharge}},
		{Type: EventWaveStart, Data: EventPayload{Wave: 1}},
		{Type: EventShot},
	})
	a.Stop()

	counts, err := a.EventCounts(1)
	if err != nil {
		t.Fatalf("event counts: %v", err)
	}
	if counts[string(EventPerkGranted)] != 1 || counts[string(EventWaveStart)] != 1 {
		t.Errorf("expected tracked events to be stored, got %v", counts)
	}
	if _, ok := counts[string(EventShot)]; ok {
		t.Error("per-shot events should not be stored")
	}
	perks, _ := a.PopularPerks(1)
	if len(perks) != 1 || perks[0].Perk != string(PerkOvercharge) {
		t.Errorf("expected overcharge from event data, got %+v", perks)
	}
}

func TestAnalyticsLiveMetrics(t *testing.T) {
	a := NewAnalytics(nil)
	defer a.Stop()

	a.SetConcurrentPeers(4)
	a.SetActiveSessions(2)
	peers, sessions := a.GetLiveMetrics()
	if peers != 4 || sessions != 2 {
		t.Errorf("expected 4/2, got %d/%d", peers, sessions)
	}

	counts, err := a.EventCounts(7)
	if err != nil || counts != nil {
		t.Errorf("expected no counts without a database, got %v (%v)", counts, err)
	}
}
