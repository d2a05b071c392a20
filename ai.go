package main

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	RatBaseSpeed = 5.8
	RatMass      = 0.8
	RatDecel     = 0.55
	RatTolerance = 0.5

	CatBaseSpeed   = 4.6
	CatMass        = 1.0
	BruteMass      = 1.9
	SpitterDecel   = 8.2
	BruteDecel     = 2.1
	CatDecel       = 1.2
	CatTolerance   = 0.55
	BossBaseSpeed  = 1.9
	BossPhaseSpeed = 0.2
	BossMass       = 2.5
	BossDecel      = 6.0
	BossTolerance  = 1.5
)

// SteeringParamsFor returns the arrive tuning for an enemy
func SteeringParamsFor(b *Balance, e Enemy) SteeringParams {
	def, _ := b.Archetype(e.Archetype)
	mult := def.SpeedMultiplier
	if mult <= 0 {
		mult = 1
	}
	switch e.Kind {
	case KindZombieRat:
		return SteeringParams{MaxSpeed: RatBaseSpeed * mult, Mass: RatMass, Deceleration: RatDecel, Tolerance: RatTolerance}
	case KindMechaCat:
		phase := e.Phase
		if phase < 1 {
			phase = 1
		}
		speed := (BossBaseSpeed + BossPhaseSpeed*float64(phase-1)) * mult
		return SteeringParams{MaxSpeed: speed, Mass: BossMass, Deceleration: BossDecel, Tolerance: BossTolerance}
	default:
		p := SteeringParams{MaxSpeed: CatBaseSpeed * mult, Mass: CatMass, Deceleration: CatDecel, Tolerance: CatTolerance}
		switch e.Archetype {
		case ArchetypeSpitter:
			p.Deceleration = SpitterDecel
		case ArchetypeBrute:
			p.Deceleration = BruteDecel
			p.Mass = BruteMass
		}
		return p
	}
}

// AIDirector pairs each live enemy with a steering agent. If the engine
// cannot be built the director stays idle and enemies hold position;
// construction is retried every tick.
type AIDirector struct {
	balance  *Balance
	factory  SteeringEngineFactory
	engine   SteeringEngine
	agents   map[EntityID]SteeringAgent
	reported bool
}

// NewAIDirector creates a director; the engine is built lazily
func NewAIDirector(b *Balance, factory SteeringEngineFactory) *AIDirector {
	if factory == nil {
		factory = NewVehicleEngine
	}
	return &AIDirector{
		balance: b,
		factory: factory,
		agents:  make(map[EntityID]SteeringAgent),
	}
}

// Ready reports whether a steering engine is available
func (d *AIDirector) Ready() bool {
	return d.ensureEngine()
}

func (d *AIDirector) ensureEngine() bool {
	if d.engine != nil {
		return true
	}
	engine, err := d.factory()
	if err != nil || engine == nil {
		if !d.reported {
			log.Printf("steering engine unavailable, enemies will hold position: %v", err)
			d.reported = true
		}
		return false
	}
	d.engine = engine
	d.reported = false
	return true
}

// EnemyAdded spawns a steering agent for a new enemy
func (d *AIDirector) EnemyAdded(e Enemy) {
	d.spawn(e)
}

func (d *AIDirector) spawn(e Enemy) SteeringAgent {
	if !d.ensureEngine() {
		return nil
	}
	agent, err := d.engine.Spawn(e.Position, SteeringParamsFor(d.balance, e))
	if err != nil {
		return nil
	}
	d.agents[e.ID] = agent
	return agent
}

// EnemyRemoved releases the enemy's agent
func (d *AIDirector) EnemyRemoved(e Enemy) {
	agent, ok := d.agents[e.ID]
	if !ok {
		return
	}
	if d.engine != nil {
		d.engine.Despawn(agent)
	}
	delete(d.agents, e.ID)
}

// Steer points every agent at the player and advances the engine. The
// mecha-cat speeds up as its phase rises.
func (d *AIDirector) Steer(dt float64, target mgl64.Vec3, enemies []Enemy) {
	if !d.ensureEngine() {
		return
	}
	for _, e := range enemies {
		agent, ok := d.agents[e.ID]
		if !ok {
			if agent = d.spawn(e); agent == nil {
				continue
			}
		}
		if e.Kind == KindMechaCat {
			agent.SetMaxSpeed(SteeringParamsFor(d.balance, e).MaxSpeed)
		}
		agent.SetTarget(target)
	}
	d.engine.Update(dt)
}

// Agent returns the steering agent for an enemy
func (d *AIDirector) Agent(id EntityID) (SteeringAgent, bool) {
	a, ok := d.agents[id]
	return a, ok
}

// AgentCount returns the number of live agents
func (d *AIDirector) AgentCount() int {
	return len(d.agents)
}

// Reset drops every agent and the engine
func (d *AIDirector) Reset() {
	if d.engine != nil {
		for _, a := range d.agents {
			d.engine.Despawn(a)
		}
	}
	d.agents = make(map[EntityID]SteeringAgent)
	d.engine = nil
}
