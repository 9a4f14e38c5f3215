// Package sim owns the simulation loop: the ECS world, the agent roster,
// per-agent policies, the reasoning queue, the environment and telemetry.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
	"github.com/pthm-cable/vivarium/policy"
	"github.com/pthm-cable/vivarium/reasoning"
	"github.com/pthm-cable/vivarium/social"
	"github.com/pthm-cable/vivarium/systems"
	"github.com/pthm-cable/vivarium/telemetry"
	"github.com/pthm-cable/vivarium/world"
)

// Options configures a Simulation at construction time.
type Options struct {
	Seed       int64
	Config     *config.Config // nil = global config.Cfg()
	OutputDir  string         // empty = no CSV/JSON output
	LogWindows bool           // emit each telemetry window via slog

	// StatsCallback receives every flushed telemetry window. Used by the
	// calibration harness to score runs without touching the filesystem.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation holds the complete simulation state.
type Simulation struct {
	world *ecs.World
	cfg   *config.Config
	rng   *rand.Rand
	seed  int64

	agentMapper *ecs.Map6[
		components.Identity,
		components.Position,
		components.Velocity,
		components.Vitals,
		components.Genotype,
		components.Phenotype,
	]
	agentFilter *ecs.Filter6[
		components.Identity,
		components.Position,
		components.Velocity,
		components.Vitals,
		components.Genotype,
		components.Phenotype,
	]

	// Individual component mappers for lookups
	idMap   *ecs.Map1[components.Identity]
	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	vitMap  *ecs.Map1[components.Vitals]
	genMap  *ecs.Map1[components.Genotype]
	phenMap *ecs.Map1[components.Phenotype]

	// Kind-specific components, attached after creation
	playerMap *ecs.Map[components.PlayerControl]
	socialMap *ecs.Map[components.Social]
	cogMap    *ecs.Map[components.Cognition]

	// roster is the authoritative iteration order: insertion order, with
	// removals applied by descending index. ECS queries group entities by
	// archetype, which would let component layout leak into the update
	// order and the rng stream.
	roster []ecs.Entity
	index  map[string]ecs.Entity

	// Learning policies live outside the ECS, keyed by agent ID.
	policies map[string]*policy.Learner

	engine *reasoning.Engine
	env    *world.Environment

	spatialGrid *systems.SpatialGrid

	collector *telemetry.Collector
	lifetime  *telemetry.LifetimeTracker
	history   *telemetry.History
	output    *telemetry.OutputManager
	events    []telemetry.Event
	onStats   func(telemetry.WindowStats)
	logStats  bool

	// State
	tick      int
	running   bool
	nextSer   uint64 // agent id serial
	msgSerial uint64
	player    ecs.Entity
	hasPlayer bool

	// Tick-scoped buffers
	deaths     []deathRecord
	births     []birthRecord
	scratch    []systems.Neighbor
	resScratch []world.Resource
}

// New creates a simulation from the global config with default options.
func New(seed int64) (*Simulation, error) {
	return NewWithOptions(Options{Seed: seed})
}

// NewWithOptions creates a simulation and seeds the initial population.
func NewWithOptions(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	w := ecs.NewWorld()

	s := &Simulation{
		world: w,
		cfg:   cfg,
		seed:  opts.Seed,
		agentMapper: ecs.NewMap6[
			components.Identity,
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Genotype,
			components.Phenotype,
		](w),
		agentFilter: ecs.NewFilter6[
			components.Identity,
			components.Position,
			components.Velocity,
			components.Vitals,
			components.Genotype,
			components.Phenotype,
		](w),
		idMap:     ecs.NewMap1[components.Identity](w),
		posMap:    ecs.NewMap1[components.Position](w),
		velMap:    ecs.NewMap1[components.Velocity](w),
		vitMap:    ecs.NewMap1[components.Vitals](w),
		genMap:    ecs.NewMap1[components.Genotype](w),
		phenMap:   ecs.NewMap1[components.Phenotype](w),
		playerMap: ecs.NewMap[components.PlayerControl](w),
		socialMap: ecs.NewMap[components.Social](w),
		cogMap:    ecs.NewMap[components.Cognition](w),
		index:     make(map[string]ecs.Entity),
		policies:  make(map[string]*policy.Learner),
		engine:    reasoning.NewEngine(cfg.Reasoning, cfg.Learning),
		env:       world.NewEnvironment(cfg),
		collector: telemetry.NewCollector(cfg.Telemetry.WindowTicks),
		lifetime:  telemetry.NewLifetimeTracker(),
		history:   telemetry.NewHistory(cfg.Telemetry.HistorySize, cfg.Telemetry.LeaderboardSize),
		onStats:   opts.StatsCallback,
		logStats:  opts.LogWindows,
		scratch:   make([]systems.Neighbor, 0, systems.MaxQueryResults),
	}

	s.spatialGrid = systems.NewSpatialGrid(cfg.World.Bound, cfg.World.GridCellSize)

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		s.output = om
		if err := om.WriteConfig(cfg); err != nil {
			return nil, fmt.Errorf("writing config snapshot: %w", err)
		}
	}

	s.Reset()
	return s, nil
}

// Reset discards all agents and environment state and reseeds the default
// population from the original seed, so a Reset run replays identically.
func (s *Simulation) Reset() {
	for _, e := range s.roster {
		switch s.idMap.Get(e).Kind {
		case components.KindPlayer:
			s.playerMap.Remove(e)
		case components.KindCausal:
			s.socialMap.Remove(e)
			s.cogMap.Remove(e)
		}
		s.agentMapper.Remove(e)
	}
	s.roster = s.roster[:0]
	clear(s.index)
	clear(s.policies)

	s.rng = rand.New(rand.NewSource(s.seed))
	s.engine = reasoning.NewEngine(s.cfg.Reasoning, s.cfg.Learning)
	s.env.Reset()
	s.collector = telemetry.NewCollector(s.cfg.Telemetry.WindowTicks)
	s.lifetime = telemetry.NewLifetimeTracker()
	s.history = telemetry.NewHistory(s.cfg.Telemetry.HistorySize, s.cfg.Telemetry.LeaderboardSize)
	s.events = s.events[:0]
	s.deaths = s.deaths[:0]
	s.births = s.births[:0]

	s.tick = 0
	s.running = true
	s.nextSer = 0
	s.msgSerial = 0
	s.hasPlayer = false

	s.seedPopulation()
}

// seedPopulation creates the starting roster: the player first, then the
// causal agents, then the learners. The first PreInfected roster slots
// start Infected so every run opens with an outbreak to contain.
func (s *Simulation) seedPopulation() {
	sd := s.cfg.Seeding

	for i := 0; i < sd.Players; i++ {
		s.spawnAgent(components.KindPlayer, s.randomPos(), components.NewGenotype(s.rng, s.cfg.Genetics), 0, "")
	}
	for i := 0; i < sd.Causal; i++ {
		s.spawnAgent(components.KindCausal, s.randomPos(), components.NewGenotype(s.rng, s.cfg.Genetics), 0, "")
	}
	for i := 0; i < sd.Learners; i++ {
		s.spawnAgent(components.KindLearner, s.randomPos(), components.NewGenotype(s.rng, s.cfg.Genetics), 0, "")
	}

	for i := 0; i < sd.PreInfected && i < len(s.roster); i++ {
		vit := s.vitMap.Get(s.roster[i])
		vit.Status = components.StatusInfected
		vit.InfectionTimer = 0
	}
}

// spawnAgent creates one agent and registers it everywhere it needs to be.
func (s *Simulation) spawnAgent(kind components.Kind, at components.Vec3, gen components.Genotype, generation int, parent string) ecs.Entity {
	id := fmt.Sprintf("%s-%d", kind, s.nextSer)
	s.nextSer++

	identity := components.Identity{ID: id, Kind: kind, Generation: generation}
	pos := components.Position{Vec3: at}
	vel := components.Velocity{}
	vit := components.Vitals{
		Energy: s.cfg.Energy.Initial,
		Status: components.StatusSusceptible,
		Active: s.running,
	}
	phen := gen.Express(s.cfg.Genetics)

	e := s.agentMapper.NewEntity(&identity, &pos, &vel, &vit, &gen, &phen)

	switch kind {
	case components.KindPlayer:
		pc := components.PlayerControl{MoveSpeed: s.cfg.Player.MoveSpeed}
		s.playerMap.Add(e, &pc)
		s.player = e
		s.hasPlayer = true
	case components.KindCausal:
		soc := social.New(social.RandomPersonality(s.rng))
		cog := components.Cognition{}
		s.socialMap.Add(e, &soc)
		s.cogMap.Add(e, &cog)
		s.policies[id] = policy.NewLearner()
	case components.KindLearner:
		s.policies[id] = policy.NewLearner()
	}

	s.roster = append(s.roster, e)
	s.index[id] = e
	s.lifetime.Register(id, kind, generation, parent, s.tick)

	return e
}

// randomPos draws a uniform position inside the arena bounds.
func (s *Simulation) randomPos() components.Vec3 {
	b := s.cfg.World.Bound
	return components.Vec3{
		X: (s.rng.Float64()*2 - 1) * b,
		Z: (s.rng.Float64()*2 - 1) * b,
	}
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int {
	return s.tick
}

// Seed returns the rng seed the simulation was built with.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// Population returns the number of live agents.
func (s *Simulation) Population() int {
	return len(s.roster)
}

// Running reports whether the activity gate is open.
func (s *Simulation) Running() bool {
	return s.running
}

// SetRunning opens or closes the activity gate. Vitals.Active mirrors the
// gate on every live agent; while closed, Step only honors player targets.
func (s *Simulation) SetRunning(v bool) {
	s.running = v
	for _, e := range s.roster {
		s.vitMap.Get(e).Active = v
	}
}

// SetPlayerTarget points the player at a world position, clamped to the
// arena. No-op when the player is dead.
func (s *Simulation) SetPlayerTarget(x, z float64) {
	if !s.hasPlayer {
		return
	}
	b := s.cfg.World.Bound
	pc := s.playerMap.Get(s.player)
	pc.Target = components.Vec3{X: clampAxis(x, b), Z: clampAxis(z, b)}
	pc.HasTarget = true
}

// History exposes the in-memory window/event/leaderboard record.
func (s *Simulation) History() *telemetry.History {
	return s.history
}

// Lifetime exposes the per-agent lifetime tracker.
func (s *Simulation) Lifetime() *telemetry.LifetimeTracker {
	return s.lifetime
}

// Close flushes and closes the output files, if any.
func (s *Simulation) Close() error {
	if s.output == nil {
		return nil
	}
	if err := s.output.WriteLeaderboard(s.history.Leaderboard()); err != nil {
		return err
	}
	return s.output.Close()
}

func clampAxis(v, bound float64) float64 {
	if v < -bound {
		return -bound
	}
	if v > bound {
		return bound
	}
	return v
}
