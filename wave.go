package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Objective is the win condition of the current wave
type Objective struct {
	ID          string        `msgpack:"id"`
	Wave        int           `msgpack:"wave"`
	Type        ObjectiveType `msgpack:"type"`
	Title       string        `msgpack:"title"`
	Description string        `msgpack:"desc"`
	Target      float64       `msgpack:"target"`
	Progress    float64       `msgpack:"progress"`
	Timer       float64       `msgpack:"timer"`
	TimerTotal  float64       `msgpack:"timerTotal"`
	HasTimer    bool          `msgpack:"hasTimer"`
	Completed   bool          `msgpack:"completed"`
}

// NewObjective builds a fresh objective from its template
func NewObjective(def ObjectiveDef) *Objective {
	return &Objective{
		ID:          def.ID,
		Wave:        def.Wave,
		Type:        def.Type,
		Title:       def.Title,
		Description: def.Description,
		Target:      def.Target,
		Timer:       def.Timer,
		TimerTotal:  def.Timer,
		HasTimer:    def.Timer > 0,
	}
}

// Done reports whether progress or the timer has finished the objective
func (o Objective) Done() bool {
	return o.Completed || o.Progress >= o.Target || (o.HasTimer && o.Timer <= 0)
}

// PickArchetype chooses an archetype by weight. Negative weights count as
// zero; if every weight is zero the choice is uniform.
func PickArchetype(list []Archetype, weight func(Archetype) float64, rng *rand.Rand) Archetype {
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	}
	total := 0.0
	for _, a := range list {
		total += math.Max(0, weight(a))
	}
	if total <= 0 {
		return list[rng.Intn(len(list))]
	}
	roll := rng.Float64() * total
	for _, a := range list {
		w := math.Max(0, weight(a))
		if roll < w {
			return a
		}
		roll -= w
	}
	return list[len(list)-1]
}

// WaveProgress computes objective progress from the current state
func WaveProgress(o Objective, waveKills int, enemies []Enemy, spawn SpawnState) float64 {
	switch o.Type {
	case ObjectiveEliminate, ObjectiveSurviveMixed:
		return math.Min(o.Target, float64(waveKills))
	case ObjectiveEliminateElite:
		if spawn.ElitesSpawned == 0 {
			return 0
		}
		for _, e := range enemies {
			if e.IsElite && e.Archetype == ArchetypeBrute {
				return 0
			}
		}
		return 1
	case ObjectiveMiniboss:
		if spawn.MinibossSpawned == 0 {
			return 0
		}
		for _, e := range enemies {
			if e.Archetype == ArchetypeMiniboss {
				return 0
			}
		}
		return 1
	case ObjectiveDefendZone, ObjectiveEscort:
		if o.TimerTotal <= 0 {
			return 0
		}
		return round2(Clamp01(1-o.Timer/o.TimerTotal) * o.Target)
	}
	return 0
}

// WaveEngine drives spawning, objectives and wave transitions. All of its
// state lives in the store so a snapshot captures it.
type WaveEngine struct {
	balance *Balance
	store   *Store
	rng     *rand.Rand
}

// NewWaveEngine creates a wave engine over a store
func NewWaveEngine(b *Balance, st *Store, rng *rand.Rand) *WaveEngine {
	return &WaveEngine{balance: b, store: st, rng: rng}
}

// Update runs one tick of the wave state machine
func (w *WaveEngine) Update(dt float64) {
	st := w.store
	if st.Phase() != PhasePlaying {
		return
	}
	switch st.MatchPhase() {
	case MatchPerkSelect, MatchCompleted, MatchFailed:
		return
	}
	wave := st.Player().Wave
	if st.MatchPhase() == MatchPrewave || st.SpawnState().Wave != wave {
		w.startWave(wave)
		return
	}
	rule, ok := w.balance.WaveRule(wave)
	obj, hasObj := st.Objective()
	if !ok || !hasObj {
		return
	}

	if !obj.Completed {
		timer := obj.Timer
		if obj.HasTimer {
			timer = math.Max(0, timer-dt)
		}
		obj.Timer = timer
		progress := WaveProgress(obj, st.Player().WaveKills, st.Enemies(), st.SpawnState())
		st.UpdateObjective(progress, timer)
		obj, _ = st.Objective()
		if obj.Done() {
			st.ExhaustSpawnBudget(rule.TotalToSpawn)
			st.CompleteObjective()
		}
	}

	obj, _ = st.Objective()
	if obj.Completed {
		if st.SpawnState().Spawned >= rule.TotalToSpawn && st.EnemyCount() == 0 {
			w.clearWave(wave)
		}
		return
	}
	w.spawn(rule, dt)
}

func (w *WaveEngine) startWave(wave int) {
	def, ok := w.balance.Objective(wave)
	if !ok {
		return
	}
	rule, _ := w.balance.WaveRule(wave)
	w.store.BeginWave(def, rule.SpawnInterval)
}

func (w *WaveEngine) clearWave(wave int) {
	if wave >= w.balance.FinalWave() {
		w.store.CompleteRun()
		return
	}
	w.store.NextWave()
	w.store.ResetWaveKills()
	w.store.RollPerkOptions()
}

func (w *WaveEngine) spawn(rule WaveRule, dt float64) {
	st := w.store
	st.AdvanceSpawnTimer(dt)
	state := st.SpawnState()
	if state.Spawned >= rule.TotalToSpawn || st.EnemyCount() >= rule.MaxActive {
		return
	}
	if state.SinceLastSpawn < rule.SpawnInterval {
		return
	}
	var arch Archetype
	if state.Spawned == 0 && len(rule.Archetypes) > 0 {
		arch = rule.Archetypes[0]
	} else {
		arch = PickArchetype(rule.Archetypes, w.weight, w.rng)
	}
	id := st.AddEnemy(EnemySpawn{Position: w.spawnPoint(), Archetype: arch})
	if e, ok := st.Enemy(id); ok {
		st.RecordSpawn(e)
	}
}

func (w *WaveEngine) weight(a Archetype) float64 {
	def, _ := w.balance.Archetype(a)
	return def.SpawnWeight
}

// spawnPoint picks a jittered spawn corner inside the arena
func (w *WaveEngine) spawnPoint() mgl64.Vec3 {
	pts := w.balance.SpawnPoints
	p := pts[w.rng.Intn(len(pts))]
	j := w.balance.SpawnJitter
	pos := mgl64.Vec3{
		p[0] + (w.rng.Float64()*2-1)*j,
		0,
		p[1] + (w.rng.Float64()*2-1)*j,
	}
	return ClampToArena(pos, w.balance.ArenaHalfExtent)
}
