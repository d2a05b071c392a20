package main

// AchievementDef is an unlockable badge. Earned sees the pilot's lifetime
// stats with the finished run already folded in.
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	Earned      func(stats *StatsRow, run RunRow) bool
}

// finalWave is where the mecha-cat waits
const finalWave = 6

var Achievements = []AchievementDef{
	{"first_blood", "First Blood", "Get your first kill",
		func(s *StatsRow, _ RunRow) bool { return s.Kills >= 1 }},
	{"exterminator", "Exterminator", "Reach 500 total kills",
		func(s *StatsRow, _ RunRow) bool { return s.Kills >= 500 }},
	{"ace", "Ace", "Get 50 kills in a single run",
		func(_ *StatsRow, r RunRow) bool { return r.Kills >= 50 }},
	{"deep_dive", "Deep Dive", "Reach the mecha-cat's wave",
		func(_ *StatsRow, r RunRow) bool { return r.Wave >= finalWave }},
	{"arsenal", "Arsenal", "Pick 3 perks in a single run",
		func(_ *StatsRow, r RunRow) bool { return len(r.Perks) >= 3 }},
	{"mechabane", "Mechabane", "Bring down the mecha-cat and clear the arena",
		func(_ *StatsRow, r RunRow) bool { return r.Outcome == MatchCompleted }},
	{"perfectionist", "Perfectionist", "Clear the arena 10 times",
		func(s *StatsRow, _ RunRow) bool { return s.Completions >= 10 }},
	{"veteran", "Veteran", "Reach level 10",
		func(s *StatsRow, _ RunRow) bool { return s.Level >= 10 }},
	{"legend", "Legend", "Reach level 25",
		func(s *StatsRow, _ RunRow) bool { return s.Level >= 25 }},
	{"marathon", "Marathon", "Spend 1 hour in the arena",
		func(s *StatsRow, _ RunRow) bool { return s.Playtime >= 3600 }},
}

// CheckAchievements unlocks what the run earned and returns only the new
// ones. Call it after UpdateStatsAfterRun.
func CheckAchievements(db *DB, playerID int64, run RunRow) []AchievementDef {
	if db == nil {
		return nil
	}
	stats, err := db.GetStats(playerID)
	if err != nil || stats == nil {
		return nil
	}
	held, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	skip := make(map[string]struct{}, len(held))
	for _, id := range held {
		skip[id] = struct{}{}
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if _, ok := skip[def.ID]; ok || !def.Earned(stats, run) {
			continue
		}
		if fresh, err := db.UnlockAchievement(playerID, def.ID); err == nil && fresh {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
