// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Genetics     GeneticsConfig     `yaml:"genetics"`
	Epidemic     EpidemicConfig     `yaml:"epidemic"`
	Energy       EnergyConfig       `yaml:"energy"`
	Mortality    MortalityConfig    `yaml:"mortality"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Learning     LearningConfig     `yaml:"learning"`
	Steering     SteeringConfig     `yaml:"steering"`
	Social       SocialConfig       `yaml:"social"`
	Reasoning    ReasoningConfig    `yaml:"reasoning"`
	Seasons      SeasonsConfig      `yaml:"seasons"`
	Resources    ResourcesConfig    `yaml:"resources"`
	Player       PlayerConfig       `yaml:"player"`
	Seeding      SeedingConfig      `yaml:"seeding"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds arena dimensions and population limits.
type WorldConfig struct {
	Bound            float64 `yaml:"bound"`             // Positions reflect at +/- this on x and z
	GridCellSize     float64 `yaml:"grid_cell_size"`    // Spatial hash cell size
	PopulationCap    int     `yaml:"population_cap"`    // Hard limit; births are refused beyond it
	CarryingCapacity int     `yaml:"carrying_capacity"` // Soft limit driving pressure and survival threshold
	MaxPressure      float64 `yaml:"max_pressure"`      // Pressure = min(this, pop/capacity)
}

// GeneticsConfig holds genotype generation ranges and phenotype expression factors.
type GeneticsConfig struct {
	SpeedMin          float64 `yaml:"speed_min"`
	SpeedMax          float64 `yaml:"speed_max"`
	SizeMin           float64 `yaml:"size_min"`
	SizeMax           float64 `yaml:"size_max"`
	SocialRadiusMin   float64 `yaml:"social_radius_min"`
	SocialRadiusMax   float64 `yaml:"social_radius_max"`
	LifespanBase      int     `yaml:"lifespan_base"`
	LifespanSpan      int     `yaml:"lifespan_span"` // Lifespan = base + U{0..span-1}
	ReproThresholdMin float64 `yaml:"repro_threshold_min"`
	ReproThresholdMax float64 `yaml:"repro_threshold_max"`
	EfficiencyMin     float64 `yaml:"efficiency_min"`
	EfficiencyMax     float64 `yaml:"efficiency_max"`
	MaxSpeedFactor    float64 `yaml:"max_speed_factor"` // Phenotype maxSpeed = speed * this
	RadiusFactor      float64 `yaml:"radius_factor"`    // Phenotype radius = size * this
}

// EpidemicConfig holds infection and recovery parameters.
type EpidemicConfig struct {
	InfectionRate       float64 `yaml:"infection_rate"`        // P(infect) = rate * (1 - resistance), one roll per tick
	PlayerInfectionRate float64 `yaml:"player_infection_rate"`
	RecoveryTicks       int     `yaml:"recovery_ticks"` // Recovered once infectionTimer exceeds this
	RecoveryBonus       float64 `yaml:"recovery_bonus"`
	PlayerRecoveryBonus float64 `yaml:"player_recovery_bonus"`
}

// EnergyConfig holds per-tick energy economics.
type EnergyConfig struct {
	Max                    float64 `yaml:"max"`
	Initial                float64 `yaml:"initial"` // Energy at spawn, seeded agents and newborns alike
	BaseLoss               float64 `yaml:"base_loss"`
	PlayerBaseLoss         float64 `yaml:"player_base_loss"`
	InfectionPenalty       float64 `yaml:"infection_penalty"`
	PlayerInfectionPenalty float64 `yaml:"player_infection_penalty"`
	AgePenalty             float64 `yaml:"age_penalty"`
	AgePenaltyFraction     float64 `yaml:"age_penalty_fraction"` // Penalty applies once age > fraction * lifespan
	PressureFactor         float64 `yaml:"pressure_factor"`      // Base loss scales by (1 + pressure * this)
	ForageRadius           float64 `yaml:"forage_radius"`
	RecoveredForageBonus   float64 `yaml:"recovered_forage_bonus"` // Intake multiplier for Recovered agents
}

// MortalityConfig holds the death probability terms.
type MortalityConfig struct {
	AgeDeathChance         float64 `yaml:"age_death_chance"` // Applied once age >= lifespan
	PlayerAgeDeathChance   float64 `yaml:"player_age_death_chance"`
	StarvationFactor       float64 `yaml:"starvation_factor"` // ((threshold-energy)/max(1,threshold)) * this
	ExhaustionFloor        float64 `yaml:"exhaustion_floor"`  // Exhaustion term active at energy <= this
	ExhaustionFactor       float64 `yaml:"exhaustion_factor"` // (floor-energy) * this
	PlayerExhaustionFactor float64 `yaml:"player_exhaustion_factor"`
	SurvivalThresholdBase  float64 `yaml:"survival_threshold_base"` // threshold = max(min, base*pop/capacity)
	SurvivalThresholdMin   float64 `yaml:"survival_threshold_min"`
}

// ReproductionConfig holds reproduction gates and mutation parameters.
type ReproductionConfig struct {
	BaseChance         float64 `yaml:"base_chance"` // p = base / (1 + pressure)
	MinEnergy          float64 `yaml:"min_energy"`  // Eligible above max(min_energy, threshold+margin)
	PlayerMinEnergy    float64 `yaml:"player_min_energy"`
	EnergyMargin       float64 `yaml:"energy_margin"`
	MinAge             int     `yaml:"min_age"`
	Cooldown           int     `yaml:"cooldown"` // Applied to parent and child
	Cost               float64 `yaml:"cost"`
	SpawnJitter        float64 `yaml:"spawn_jitter"`
	BirthGuardMin      float64 `yaml:"birth_guard_min"`      // Birth honored only if parent energy >= max(min, threshold*fraction)
	BirthGuardFraction float64 `yaml:"birth_guard_fraction"`
	MutationRate       float64 `yaml:"mutation_rate"`
	MutationMin        float64 `yaml:"mutation_min"` // Multiplicative factor drawn from [min, max]
	MutationMax        float64 `yaml:"mutation_max"`
}

// LearningConfig holds Q-learning and state discretization parameters.
type LearningConfig struct {
	Alpha              float64 `yaml:"alpha"`
	Gamma              float64 `yaml:"gamma"`
	Epsilon            float64 `yaml:"epsilon"`
	EnergyBucket       float64 `yaml:"energy_bucket"`      // State key uses floor(energy/bucket)
	NearbyCap          int     `yaml:"nearby_cap"`         // Neighbor count clamps to this in the key
	InfectedCap        int     `yaml:"infected_cap"`       // Infected count clamps to this in the key
	ResourceNearDist   float64 `yaml:"resource_near_dist"` // Key bit: nearest resource closer than this
	RewardEnergyFactor float64 `yaml:"reward_energy_factor"`
	RewardInfectedCost float64 `yaml:"reward_infected_cost"`
	RewardSeekBonus    float64 `yaml:"reward_seek_bonus"`      // Granted when hungry with a resource in reach
	RewardSeekEnergy   float64 `yaml:"reward_seek_energy"`     // Hungry means energy below this
	RewardSeekDist     float64 `yaml:"reward_seek_dist"`       // In reach means nearest resource below this
	RewardAgeFactor    float64 `yaml:"reward_age_factor"`
	ReproduceSpeed     float64 `yaml:"reproduce_speed"` // Intent speed for Reproduce; others draw U[speed_min, speed_max]
	SpeedMin           float64 `yaml:"speed_min"`
	SpeedMax           float64 `yaml:"speed_max"`
}

// SteeringConfig holds movement integration parameters.
type SteeringConfig struct {
	Damping          float64 `yaml:"damping"`      // Velocity multiplier per tick
	Restitution      float64 `yaml:"restitution"`  // Velocity multiplier on the axis that hit the bound (negative)
	AccelFactor      float64 `yaml:"accel_factor"` // Delta magnitude = maxSpeed * intentSpeed * this
	ExploreScale     float64 `yaml:"explore_scale"`
	ReproduceScale   float64 `yaml:"reproduce_scale"` // Jitter scale while holding for reproduction
	FleeRadius       float64 `yaml:"flee_radius"`
	TipEnergyLimit   float64 `yaml:"tip_energy_limit"`    // Causal agents below this prefer remembered tips
	TipScoreAgeScale float64 `yaml:"tip_score_age_scale"` // Tip score = confidence * (1 - age/this)
}

// SocialConfig holds messaging, memory and trust parameters.
type SocialConfig struct {
	Range            float64 `yaml:"range"` // Broadcast radius
	InboxCap         int     `yaml:"inbox_cap"`
	StoreCap         int     `yaml:"store_cap"` // Cap per typed store (tips, zones, help)
	ThreatMinNearby  int     `yaml:"threat_min_nearby"`
	ThreatCooldown   int     `yaml:"threat_cooldown"`
	ThreatZoneRadius float64 `yaml:"threat_zone_radius"`
	ZoneConfidence   float64 `yaml:"zone_confidence"`
	TipMaxDistance   float64 `yaml:"tip_max_distance"`
	TipMinEnergy     float64 `yaml:"tip_min_energy"`
	TipCooldown      int     `yaml:"tip_cooldown"`
	TipConfidence    float64 `yaml:"tip_confidence"`
	HelpMaxEnergy    float64 `yaml:"help_max_energy"`
	HelpCooldown     int     `yaml:"help_cooldown"`
	ShareChance      float64 `yaml:"share_chance"`
	ShareCooldown    int     `yaml:"share_cooldown"`
	VerifyDistance   float64 `yaml:"verify_distance"` // Agent checks remembered info within this distance
	TrustBase        float64 `yaml:"trust_base"`
	TrustAccurate    float64 `yaml:"trust_accurate"`   // Added per accurate verification
	TrustInaccurate  float64 `yaml:"trust_inaccurate"` // Subtracted per inaccurate verification
}

// ReasoningConfig holds the simulated deliberation parameters.
type ReasoningConfig struct {
	TriggerChance       float64 `yaml:"trigger_chance"` // Per tick, when no job is pending
	ConfidenceMin       float64 `yaml:"confidence_min"`
	ConfidenceMax       float64 `yaml:"confidence_max"`
	FoodEnergyLimit     float64 `yaml:"food_energy_limit"` // find_food goal below this
	GoalReproduceEnergy float64 `yaml:"goal_reproduce_energy"`
	PlanReproduceEnergy float64 `yaml:"plan_reproduce_energy"`
	ReproduceAge        int     `yaml:"reproduce_age"`
	PlanForageDist      float64 `yaml:"plan_forage_dist"` // Forage plan needs a resource closer than this
	AvoidUrgency        float64 `yaml:"avoid_urgency"`
	ReproduceUrgency    float64 `yaml:"reproduce_urgency"`
	ExploreUrgency      float64 `yaml:"explore_urgency"`
	RiskModerate        float64 `yaml:"risk_moderate"` // Score boundaries between low/moderate/high
	RiskHigh            float64 `yaml:"risk_high"`
}

// SeasonsConfig holds the seasonal cycle parameters.
type SeasonsConfig struct {
	Length           int     `yaml:"length"` // Ticks per season; the year is 4 seasons
	SpringMultiplier float64 `yaml:"spring_multiplier"`
	SummerMultiplier float64 `yaml:"summer_multiplier"`
	AutumnMultiplier float64 `yaml:"autumn_multiplier"`
	WinterMultiplier float64 `yaml:"winter_multiplier"`
	BaseTemperature  float64 `yaml:"base_temperature"`
	TemperatureSwing float64 `yaml:"temperature_swing"`
	WeatherChance    float64 `yaml:"weather_chance"` // Per-tick probability of redrawing the weather
	ClearWeight      float64 `yaml:"clear_weight"`
	RainWeight       float64 `yaml:"rain_weight"`
	StormWeight      float64 `yaml:"storm_weight"`
}

// ResourcesConfig holds resource spawning parameters.
type ResourcesConfig struct {
	BaseCount        int     `yaml:"base_count"`        // Pre-multiplier cap outside winter
	WinterBaseCount  int     `yaml:"winter_base_count"` // Pre-multiplier cap in winter
	RegenChance      float64 `yaml:"regen_chance"`
	RegenBatch       int     `yaml:"regen_batch"` // Up to this many spawn when the regen roll passes
	MinRadius        float64 `yaml:"min_radius"`  // Spawn annulus about the origin
	MaxRadius        float64 `yaml:"max_radius"`
	ValueScale       float64 `yaml:"value_scale"` // Value = quality*scale + base
	ValueBase        float64 `yaml:"value_base"`
	EmergencyFloor   int     `yaml:"emergency_floor"` // Injection triggers below this total
	EmergencyCount   int     `yaml:"emergency_count"`
	EmergencyQuality float64 `yaml:"emergency_quality"`
	EmergencyValue   float64 `yaml:"emergency_value"`
}

// PlayerConfig holds player control parameters.
type PlayerConfig struct {
	MoveSpeed      float64 `yaml:"move_speed"`      // Glide speed toward a pending target
	ArriveDistance float64 `yaml:"arrive_distance"` // Target considered reached within this
}

// SeedingConfig holds the reset population composition.
type SeedingConfig struct {
	Players     int `yaml:"players"`
	Causal      int `yaml:"causal"`
	Learners    int `yaml:"learners"`
	PreInfected int `yaml:"pre_infected"` // First N roster slots start Infected
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowTicks     int `yaml:"window_ticks"`
	HistorySize     int `yaml:"history_size"`
	LeaderboardSize int `yaml:"leaderboard_size"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	YearTicks int     // Seasons.Length * 4
	WorldSize float64 // World.Bound * 2
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.YearTicks = c.Seasons.Length * 4
	c.Derived.WorldSize = c.World.Bound * 2
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
