package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Archetype names an enemy behaviour profile
type Archetype string

const (
	ArchetypeRusher   Archetype = "rusher"
	ArchetypeSpitter  Archetype = "spitter"
	ArchetypeBrute    Archetype = "brute"
	ArchetypeSnareRat Archetype = "snare_rat"
	ArchetypeMiniboss Archetype = "miniboss"
)

// EnemyKind is the body type an archetype is rendered and steered as
type EnemyKind string

const (
	KindZombieRat EnemyKind = "zombieRat"
	KindZombieCat EnemyKind = "zombieCat"
	KindMechaCat  EnemyKind = "mechaCat"
)

// WeaponID names a player weapon
type WeaponID string

const (
	WeaponPulseRifle    WeaponID = "pulse_rifle"
	WeaponScatterCannon WeaponID = "scatter_cannon"
	WeaponArcMarksman   WeaponID = "arc_marksman"
)

// PerkID names a run perk
type PerkID string

const (
	PerkRapidLoader    PerkID = "rapid_loader"
	PerkOvercharge     PerkID = "overcharge"
	PerkFortified      PerkID = "fortified"
	PerkVampiricRounds PerkID = "vampiric_rounds"
	PerkStabilizer     PerkID = "stabilizer"
	PerkShockwave      PerkID = "shockwave"
)

// ObjectiveType selects how wave progress is measured
type ObjectiveType string

const (
	ObjectiveEliminate      ObjectiveType = "eliminate"
	ObjectiveDefendZone     ObjectiveType = "defend_zone"
	ObjectiveEliminateElite ObjectiveType = "eliminate_elite"
	ObjectiveEscort         ObjectiveType = "escort"
	ObjectiveSurviveMixed   ObjectiveType = "survive_mixed"
	ObjectiveMiniboss       ObjectiveType = "miniboss"
)

// ArchetypeDef holds the tuning for one archetype
type ArchetypeDef struct {
	Kind             EnemyKind `yaml:"kind"`
	SpeedMultiplier  float64   `yaml:"speed_multiplier"`
	DamageMultiplier float64   `yaml:"damage_multiplier"`
	AttackRange      float64   `yaml:"attack_range"`
	SpawnWeight      float64   `yaml:"spawn_weight"`
	HealthMultiplier float64   `yaml:"health_multiplier"`
	IsElite          bool      `yaml:"is_elite"`
	HitRadius        float64   `yaml:"hit_radius"`
	Reward           int       `yaml:"reward"`
}

// WaveRule controls spawning for one wave
type WaveRule struct {
	Wave          int         `yaml:"wave"`
	MaxActive     int         `yaml:"max_active"`
	TotalToSpawn  int         `yaml:"total_to_spawn"`
	Archetypes    []Archetype `yaml:"archetypes"`
	SpawnInterval float64     `yaml:"spawn_interval"` // seconds
}

// ObjectiveDef is the template an active objective is built from
type ObjectiveDef struct {
	Wave        int           `yaml:"wave"`
	ID          string        `yaml:"id"`
	Type        ObjectiveType `yaml:"type"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Target      float64       `yaml:"target"`
	Timer       float64       `yaml:"timer"` // seconds, 0 = untimed
}

// WeaponDef holds the firing profile of a weapon
type WeaponDef struct {
	ID       WeaponID `yaml:"id"`
	Label    string   `yaml:"label"`
	FireRate float64  `yaml:"fire_rate"` // seconds between shots
	Damage   float64  `yaml:"damage"`
	Speed    float64  `yaml:"speed"`  // units/s
	Spread   float64  `yaml:"spread"` // radians
	Pellets  int      `yaml:"pellets"`
	Recoil   float64  `yaml:"recoil"`
	Life     float64  `yaml:"life"` // seconds
}

// PerkDef describes a perk and its stat modifier
type PerkDef struct {
	ID                        PerkID  `yaml:"id"`
	Title                     string  `yaml:"title"`
	Description               string  `yaml:"description"`
	FireRateMultiplier        float64 `yaml:"fire_rate_multiplier"`
	DamageMultiplier          float64 `yaml:"damage_multiplier"`
	ProjectileSpeedMultiplier float64 `yaml:"projectile_speed_multiplier"`
	MaxHealthBonus            float64 `yaml:"max_health_bonus"`
	LifeSteal                 float64 `yaml:"life_steal"`
	RecoilMultiplier          float64 `yaml:"recoil_multiplier"`
	SplashDamage              float64 `yaml:"splash_damage"`
}

// Balance is the complete tuning set for a simulation.
// DefaultBalance returns the shipped values; LoadBalance overlays a YAML file on them.
type Balance struct {
	ArenaHalfExtent float64 `yaml:"arena_half_extent"`

	PlayerMaxHealth   float64 `yaml:"player_max_health"`
	PlayerMoveSpeed   float64 `yaml:"player_move_speed"` // units/s
	PlayerMoveRadius  float64 `yaml:"player_move_radius"`
	PlayerHitRadius   float64 `yaml:"player_hit_radius"`
	PlayerBlockRadius float64 `yaml:"player_block_radius"`
	PlayerRegen       float64 `yaml:"player_regen"` // health/s
	MuzzleHeight      float64 `yaml:"muzzle_height"`
	MuzzleOffset      float64 `yaml:"muzzle_offset"`

	EnemyBaseDamage    float64   `yaml:"enemy_base_damage"`
	EnemyDamageScale   float64   `yaml:"enemy_damage_scale"`
	EnemyBaseHealth    float64   `yaml:"enemy_base_health"`
	EnemyHealthPerWave float64   `yaml:"enemy_health_per_wave"`
	PlayerBaseDamage   float64   `yaml:"player_base_damage"`
	PlayerDamageScale  float64   `yaml:"player_damage_scale"`
	EnemyMoveRadius    float64   `yaml:"enemy_move_radius"`
	SpawnJitter        float64   `yaml:"spawn_jitter"`
	DefaultEnemyKind   EnemyKind `yaml:"default_enemy_kind"`
	DefaultArchetype   Archetype `yaml:"default_archetype"`

	LaserRadius       float64 `yaml:"laser_radius"`
	TargetRadius      float64 `yaml:"target_radius"`
	LifeStealScale    float64 `yaml:"life_steal_scale"`
	SplashRadius      float64 `yaml:"splash_radius"`
	PowerUpDropChance float64 `yaml:"power_up_drop_chance"`
	PowerUpHeal       float64 `yaml:"power_up_heal"`
	PowerUpRadius     float64 `yaml:"power_up_radius"`
	PowerUpLifetime   float64 `yaml:"power_up_lifetime"` // seconds

	MaxParticles     int     `yaml:"max_particles"`
	ParticleLife     float64 `yaml:"particle_life"`
	ParticleDecay    float64 `yaml:"particle_decay"` // life/s
	ShakeDecay       float64 `yaml:"shake_decay"`    // intensity/s
	AnnouncementTime float64 `yaml:"announcement_time"`
	RecoilRecovery   float64 `yaml:"recoil_recovery"` // recoil/s
	PerkOfferCount   int     `yaml:"perk_offer_count"`

	DefaultWeapon WeaponID `yaml:"default_weapon"`

	Archetypes    map[Archetype]ArchetypeDef `yaml:"archetypes"`
	Waves         []WaveRule                 `yaml:"waves"`
	Objectives    []ObjectiveDef             `yaml:"objectives"`
	Weapons       []WeaponDef                `yaml:"weapons"`
	Perks         []PerkDef                  `yaml:"perks"`
	SpawnPoints   [][2]float64               `yaml:"spawn_points"`
	TargetPoints  [][2]float64               `yaml:"target_points"`
	BlockCenters  [][2]float64               `yaml:"block_centers"`
	BlockHalfSize float64                    `yaml:"block_half_size"`
}

// DefaultBalance returns the shipped tuning
func DefaultBalance() *Balance {
	return &Balance{
		ArenaHalfExtent: 28,

		PlayerMaxHealth:   100,
		PlayerMoveSpeed:   8,
		PlayerMoveRadius:  1.2,
		PlayerHitRadius:   1.5,
		PlayerBlockRadius: 1.1,
		PlayerRegen:       1.2,
		MuzzleHeight:      1.0,
		MuzzleOffset:      1.0,

		EnemyBaseDamage:    10,
		EnemyDamageScale:   0.2,
		EnemyBaseHealth:    30,
		EnemyHealthPerWave: 10,
		PlayerBaseDamage:   12,
		PlayerDamageScale:  0.08,
		EnemyMoveRadius:    1.4,
		SpawnJitter:        1.7,
		DefaultEnemyKind:   KindZombieCat,
		DefaultArchetype:   ArchetypeRusher,

		LaserRadius:       0.5,
		TargetRadius:      1.0,
		LifeStealScale:    0.6,
		SplashRadius:      3.5,
		PowerUpDropChance: 0.15,
		PowerUpHeal:       20,
		PowerUpRadius:     2,
		PowerUpLifetime:   30,

		MaxParticles:     900,
		ParticleLife:     1.0,
		ParticleDecay:    2,
		ShakeDecay:       5,
		AnnouncementTime: 2.2,
		RecoilRecovery:   6,
		PerkOfferCount:   3,

		DefaultWeapon: WeaponPulseRifle,

		Archetypes: map[Archetype]ArchetypeDef{
			ArchetypeRusher:   {Kind: KindZombieRat, SpeedMultiplier: 1.25, DamageMultiplier: 1.05, AttackRange: 4, SpawnWeight: 0.36, HealthMultiplier: 0.9, HitRadius: 1.0, Reward: 100},
			ArchetypeSpitter:  {Kind: KindZombieCat, SpeedMultiplier: 0.92, DamageMultiplier: 1.0, AttackRange: 16.5, SpawnWeight: 0.3, HealthMultiplier: 1.0, HitRadius: 1.0, Reward: 100},
			ArchetypeBrute:    {Kind: KindZombieCat, SpeedMultiplier: 0.68, DamageMultiplier: 1.45, AttackRange: 5.5, SpawnWeight: 0.18, HealthMultiplier: 2.7, IsElite: true, HitRadius: 1.35, Reward: 250},
			ArchetypeSnareRat: {Kind: KindZombieRat, SpeedMultiplier: 1.0, DamageMultiplier: 0.95, AttackRange: 9.5, SpawnWeight: 0.16, HealthMultiplier: 1.25, HitRadius: 1.0, Reward: 100},
			ArchetypeMiniboss: {Kind: KindMechaCat, SpeedMultiplier: 0.7, DamageMultiplier: 1.8, AttackRange: 20, SpawnWeight: 0, HealthMultiplier: 8, IsElite: true, HitRadius: 2.2, Reward: 1000},
		},
		Waves: []WaveRule{
			{Wave: 1, MaxActive: 6, TotalToSpawn: 12, Archetypes: []Archetype{ArchetypeRusher, ArchetypeSpitter}, SpawnInterval: 1.05},
			{Wave: 2, MaxActive: 8, TotalToSpawn: 16, Archetypes: []Archetype{ArchetypeRusher, ArchetypeSpitter, ArchetypeSnareRat}, SpawnInterval: 0.98},
			{Wave: 3, MaxActive: 10, TotalToSpawn: 16, Archetypes: []Archetype{ArchetypeBrute, ArchetypeSpitter, ArchetypeSnareRat}, SpawnInterval: 0.92},
			{Wave: 4, MaxActive: 12, TotalToSpawn: 20, Archetypes: []Archetype{ArchetypeRusher, ArchetypeSpitter, ArchetypeBrute, ArchetypeSnareRat}, SpawnInterval: 0.88},
			{Wave: 5, MaxActive: 14, TotalToSpawn: 24, Archetypes: []Archetype{ArchetypeRusher, ArchetypeSpitter, ArchetypeBrute, ArchetypeSnareRat}, SpawnInterval: 0.85},
			{Wave: 6, MaxActive: 1, TotalToSpawn: 1, Archetypes: []Archetype{ArchetypeMiniboss}, SpawnInterval: 0},
		},
		Objectives: []ObjectiveDef{
			{Wave: 1, ID: "wave1-eliminate", Type: ObjectiveEliminate, Title: "Sweep the Entrance", Description: "Eliminate 12 hostiles.", Target: 12},
			{Wave: 2, ID: "wave2-defend", Type: ObjectiveDefendZone, Title: "Hold Zone Alpha", Description: "Hold the zone until the timer runs out.", Target: 1, Timer: 28},
			{Wave: 3, ID: "wave3-elite", Type: ObjectiveEliminateElite, Title: "Destroy the Brute Alpha", Description: "Take down the elite brute.", Target: 1},
			{Wave: 4, ID: "wave4-escort", Type: ObjectiveEscort, Title: "Escort the Beacon", Description: "Keep the beacon alive until it arrives.", Target: 1, Timer: 34},
			{Wave: 5, ID: "wave5-mixed", Type: ObjectiveSurviveMixed, Title: "Survive Crossfire", Description: "Eliminate 20 hostiles or outlast the timer.", Target: 20, Timer: 30},
			{Wave: 6, ID: "wave6-miniboss", Type: ObjectiveMiniboss, Title: "MechaCat Override", Description: "Destroy the MechaCat.", Target: 1},
		},
		Weapons: []WeaponDef{
			{ID: WeaponPulseRifle, Label: "Pulse Rifle", FireRate: 0.12, Damage: 16, Speed: 36, Spread: 0.035, Pellets: 1, Recoil: 0.2, Life: 3.2},
			{ID: WeaponScatterCannon, Label: "Scatter Cannon", FireRate: 0.45, Damage: 12, Speed: 28, Spread: 0.17, Pellets: 6, Recoil: 0.45, Life: 3.2},
			{ID: WeaponArcMarksman, Label: "Arc Marksman", FireRate: 0.78, Damage: 48, Speed: 44, Spread: 0.01, Pellets: 1, Recoil: 0.62, Life: 4.8},
		},
		Perks: []PerkDef{
			{ID: PerkRapidLoader, Title: "Rapid Loader", Description: "Fire 18% faster.", FireRateMultiplier: 0.82},
			{ID: PerkOvercharge, Title: "Overcharge", Description: "Shots deal 22% more damage.", DamageMultiplier: 1.22},
			{ID: PerkFortified, Title: "Fortified", Description: "+35 max health.", MaxHealthBonus: 35},
			{ID: PerkVampiricRounds, Title: "Vampiric Rounds", Description: "Hits restore health.", LifeSteal: 0.08},
			{ID: PerkStabilizer, Title: "Stabilizer", Description: "Recoil reduced by 35%.", RecoilMultiplier: 0.65},
			{ID: PerkShockwave, Title: "Shockwave", Description: "Hits splash nearby enemies.", SplashDamage: 12},
		},
		SpawnPoints: [][2]float64{
			{-26, -26}, {26, -26}, {-26, 26}, {26, 26},
			{0, -26}, {0, 26}, {-26, 0}, {26, 0},
			{-14, -26}, {14, -26}, {-14, 26}, {14, 26},
			{-26, -14}, {-26, 14}, {26, -14}, {26, 14},
		},
		TargetPoints: [][2]float64{
			{0, -10}, {8, -14}, {-8, -14}, {12, -6}, {-12, -6},
		},
		BlockCenters: [][2]float64{
			{-20, -20}, {20, -20}, {-20, 20}, {20, 20},
		},
		BlockHalfSize: 1,
	}
}

// LoadBalance reads a YAML override file on top of DefaultBalance.
// An empty path returns the defaults.
func LoadBalance(path string) (*Balance, error) {
	b := DefaultBalance()
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balance %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("parse balance %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("balance %s: %w", path, err)
	}
	return b, nil
}

// Validate reports the first inconsistency in the tables
func (b *Balance) Validate() error {
	if b.ArenaHalfExtent <= 0 {
		return errors.New("arena_half_extent must be positive")
	}
	if b.PlayerMaxHealth <= 0 {
		return errors.New("player_max_health must be positive")
	}
	if len(b.Waves) == 0 {
		return errors.New("no waves configured")
	}
	if len(b.SpawnPoints) == 0 {
		return errors.New("no spawn points configured")
	}
	for i, rule := range b.Waves {
		if rule.Wave != i+1 {
			return fmt.Errorf("wave rule %d is numbered %d", i+1, rule.Wave)
		}
		if rule.MaxActive < 0 || rule.TotalToSpawn < 0 || rule.SpawnInterval < 0 {
			return fmt.Errorf("wave %d: negative limits", rule.Wave)
		}
		for _, a := range rule.Archetypes {
			if _, ok := b.Archetypes[a]; !ok {
				return fmt.Errorf("wave %d: unknown archetype %q", rule.Wave, a)
			}
		}
		if _, ok := b.Objective(rule.Wave); !ok {
			return fmt.Errorf("wave %d: no objective", rule.Wave)
		}
	}
	if _, ok := b.Weapon(b.DefaultWeapon); !ok {
		return fmt.Errorf("default weapon %q not configured", b.DefaultWeapon)
	}
	for _, w := range b.Weapons {
		if w.FireRate <= 0 || w.Pellets <= 0 || w.Speed <= 0 || w.Life <= 0 {
			return fmt.Errorf("weapon %q: fire_rate, pellets, speed and life must be positive", w.ID)
		}
	}
	return nil
}

// EnemyDamageForWave returns the base damage enemies deal on a wave
func (b *Balance) EnemyDamageForWave(wave int) float64 {
	return math.Floor(b.EnemyBaseDamage * (1 + float64(wave-1)*b.EnemyDamageScale))
}

// PlayerDamageMultiplier scales player weapon damage by wave
func (b *Balance) PlayerDamageMultiplier(wave int) float64 {
	scaled := math.Floor(b.PlayerBaseDamage * (1 + float64(wave-1)*b.PlayerDamageScale))
	return scaled / b.PlayerBaseDamage
}

// EnemyHealthForWave returns base enemy health on a wave
func (b *Balance) EnemyHealthForWave(wave int) float64 {
	return b.EnemyBaseHealth + float64(wave-1)*b.EnemyHealthPerWave
}

// WaveRule returns the spawning rule for a wave
func (b *Balance) WaveRule(wave int) (WaveRule, bool) {
	if wave < 1 || wave > len(b.Waves) {
		return WaveRule{}, false
	}
	return b.Waves[wave-1], true
}

// FinalWave is the last configured wave
func (b *Balance) FinalWave() int {
	return len(b.Waves)
}

// Objective returns the objective template for a wave
func (b *Balance) Objective(wave int) (ObjectiveDef, bool) {
	for _, o := range b.Objectives {
		if o.Wave == wave {
			return o, true
		}
	}
	return ObjectiveDef{}, false
}

// Archetype returns the tuning for an archetype
func (b *Balance) Archetype(a Archetype) (ArchetypeDef, bool) {
	def, ok := b.Archetypes[a]
	return def, ok
}

// Weapon returns a weapon definition
func (b *Balance) Weapon(id WeaponID) (WeaponDef, bool) {
	for _, w := range b.Weapons {
		if w.ID == id {
			return w, true
		}
	}
	return WeaponDef{}, false
}

// NextWeapon returns the weapon after id in rotation order
func (b *Balance) NextWeapon(id WeaponID) WeaponID {
	for i, w := range b.Weapons {
		if w.ID == id {
			return b.Weapons[(i+1)%len(b.Weapons)].ID
		}
	}
	return b.DefaultWeapon
}

// Perk returns a perk definition
func (b *Balance) Perk(id PerkID) (PerkDef, bool) {
	for _, p := range b.Perks {
		if p.ID == id {
			return p, true
		}
	}
	return PerkDef{}, false
}
