package main

// EventType names a one-shot game event
type EventType string

const (
	EventWaveStart         EventType = "wave_start"
	EventObjectiveComplete EventType = "objective_complete"
	EventRunComplete       EventType = "run_complete"
	EventPerkOffer         EventType = "perk_offer"
	EventPerkGranted       EventType = "perk_granted"
	EventEnemyHit          EventType = "hit"
	EventEnemyKilled       EventType = "kill"
	EventEnemyDetonated    EventType = "enemy_detonated"
	EventMinibossPhase     EventType = "miniboss_phase"
	EventDamageTaken       EventType = "damage_taken"
	EventPlayerDied        EventType = "player_died"
	EventTargetDestroyed   EventType = "target_destroyed"
	EventPowerUpCollected  EventType = "power_up_collected"
	EventWeaponSwitched    EventType = "weapon_swap"
	EventShot              EventType = "shot"
)

// GameEvent is delivered exactly once through ConsumeGameEvents
type GameEvent struct {
	Seq  uint64       `json:"seq" msgpack:"seq"`
	Tick uint64       `json:"tick" msgpack:"tick"`
	Type EventType    `json:"type" msgpack:"type"`
	Data EventPayload `json:"data" msgpack:"data"`
}

// EventPayload carries the optional fields of an event
type EventPayload struct {
	EnemyID   EntityID      `json:"enemyId,omitempty" msgpack:"enemyId,omitempty"`
	Archetype Archetype     `json:"archetype,omitempty" msgpack:"archetype,omitempty"`
	Wave      int           `json:"wave,omitempty" msgpack:"wave,omitempty"`
	Objective string        `json:"objective,omitempty" msgpack:"objective,omitempty"`
	Title     string        `json:"title,omitempty" msgpack:"title,omitempty"`
	Weapon    WeaponID      `json:"weapon,omitempty" msgpack:"weapon,omitempty"`
	Perk      PerkID        `json:"perk,omitempty" msgpack:"perk,omitempty"`
	Perks     []PerkID      `json:"perks,omitempty" msgpack:"perks,omitempty"`
	Phase     int           `json:"phase,omitempty" msgpack:"phase,omitempty"`
	Amount    float64       `json:"amount,omitempty" msgpack:"amount,omitempty"`
	Reward    int           `json:"reward,omitempty" msgpack:"reward,omitempty"`
	X         float64       `json:"x,omitempty" msgpack:"x,omitempty"`
	Z         float64       `json:"z,omitempty" msgpack:"z,omitempty"`
	Outcome   MatchPhase    `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
	Kind      ObjectiveType `json:"kind,omitempty" msgpack:"kind,omitempty"`
}
