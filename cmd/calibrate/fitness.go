package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/vivarium/config"
	"github.com/pthm-cable/vivarium/sim"
	"github.com/pthm-cable/vivarium/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestBoard   []telemetry.BoardEntry
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestLeaderboard returns the leaderboard from the best evaluation.
func (fe *FitnessEvaluator) BestLeaderboard() []telemetry.BoardEntry {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestBoard
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Minimum viable population: if the roster stays below this for
// extinctionGraceTicks consecutive ticks, the run counts as functionally
// extinct even though stragglers remain.
const (
	minViablePop         = 5
	extinctionGraceTicks = 200
	warmupTicks          = 100 // let the seeded population establish before checking
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int                     // ticks before functional extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via StatsCallback each window
	board         []telemetry.BoardEntry
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
	board   []telemetry.BoardEntry
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks: longer survival = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			quality := fe.computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: quality,
				board:   result.board,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	var bestSeedFitness float64 = math.Inf(1)
	var bestSeedBoard []telemetry.BoardEntry

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedBoard = r.board
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	// Update best tracking
	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestBoard = bestSeedBoard
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run.
// Runs until functional extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	// Create a fresh config copy and apply parameters
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	// Create and run the simulation, collecting window stats via callback
	s, err := sim.NewWithOptions(sim.Options{
		Seed:   seed,
		Config: cfg,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		// Cannot happen without an output dir; score it as instant extinction
		return result
	}

	// Track how long the population has been below minimum viable size
	var belowTicks int

	// Run simulation until extinction or max ticks
	for s.Tick() < fe.maxTicks {
		frame := s.Step()

		// Let the population establish before checking (skip first ticks)
		if s.Tick() < warmupTicks {
			continue
		}

		// Hard extinction: everyone is gone
		if frame.Population == 0 {
			result.survivalTicks = s.Tick()
			result.board = s.History().Leaderboard()
			return result
		}

		// Functional extinction: population below minimum viable size too long
		if frame.Population < minViablePop {
			belowTicks++
		} else {
			belowTicks = 0
		}

		if belowTicks >= extinctionGraceTicks {
			result.survivalTicks = s.Tick()
			result.board = s.History().Leaderboard()
			return result
		}
	}

	// Survived the full run
	result.survivalTicks = fe.maxTicks
	result.board = s.History().Leaderboard()
	return result
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	// Load fresh defaults and copy base values
	cfg, _ := config.Load("")

	// Copy calibratable fields from base
	cfg.Energy = fe.baseConfig.Energy
	cfg.Epidemic = fe.baseConfig.Epidemic
	cfg.Resources = fe.baseConfig.Resources
	cfg.Reproduction = fe.baseConfig.Reproduction
	cfg.Mortality = fe.baseConfig.Mortality

	// Copy other important fields
	cfg.World = fe.baseConfig.World
	cfg.Genetics = fe.baseConfig.Genetics
	cfg.Learning = fe.baseConfig.Learning
	cfg.Steering = fe.baseConfig.Steering
	cfg.Social = fe.baseConfig.Social
	cfg.Reasoning = fe.baseConfig.Reasoning
	cfg.Seasons = fe.baseConfig.Seasons
	cfg.Player = fe.baseConfig.Player
	cfg.Seeding = fe.baseConfig.Seeding
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Derived = fe.baseConfig.Derived

	return cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := fe.computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightLevel     = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightDynamics  = 0.20

	qualityWarmupWindows = 2 // skip first N windows (warmup)
	qualityMinPop        = 5 // exclude windows below this population
)

// computeQuality computes ecosystem quality ∈ [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	// Collect valid windows (past warmup, population established)
	valid := windows[qualityWarmupWindows:]

	capacity := float64(fe.baseConfig.World.CarryingCapacity)

	// --- Per-window accumulators ---
	var levelSum, energySum, dynamicsSum float64
	var validCount int

	// --- Full time series for stability ---
	pops := make([]float64, 0, len(valid))

	for _, w := range valid {
		pop := w.Population()
		if pop < qualityMinPop {
			continue
		}

		pops = append(pops, float64(pop))
		validCount++

		// 1. Population level score: near but below carrying capacity
		ratio := float64(pop) / capacity
		levelSum += math.Exp(-math.Pow((ratio-0.7)/0.3, 2))

		// 2. Energy health score: median energy around mid-scale
		energySum += math.Exp(-math.Pow((w.EnergyP50-50.0)/20.0, 2))

		// 3. Dynamics score: infection stays contained while births keep
		// the roster turning over
		share := float64(w.Infected) / float64(pop)
		containScore := math.Exp(-math.Pow(share/0.25, 2))
		birthScore := 1.0 - math.Exp(-float64(w.Births)/2.0)
		dynamicsSum += 0.6*containScore + 0.4*birthScore
	}

	// No valid windows → zero quality
	if validCount == 0 {
		return 0
	}

	n := float64(validCount)
	levelScore := levelSum / n
	energyScore := energySum / n
	dynamicsScore := dynamicsSum / n

	// Population stability (CV across all valid windows)
	stabilityScore := 0.0
	if len(pops) >= 2 {
		c := cv(pops)
		stabilityScore = math.Exp(-(c * c))
	}

	quality := qualityWeightLevel*levelScore +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightDynamics*dynamicsScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
