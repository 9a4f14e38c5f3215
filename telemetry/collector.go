package telemetry

import "github.com/pthm-cable/vivarium/components"

// Death causes attributed by the dominant mortality term at death time.
const (
	CauseOldAge     = "old_age"
	CauseStarvation = "starvation"
	CauseExhaustion = "exhaustion"
)

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks int

	// Current window tracking
	windowStartTick int

	// Event counters for current window
	births           int
	deathsOldAge     int
	deathsStarvation int
	deathsExhaustion int
	infections       int
	recoveries       int
	messages         [4]int // indexed by components.MessageType
	reasoningJobs    int
	resourcesEaten   int
	energyForaged    float64
}

// NewCollector creates a stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a death event with its attributed cause.
func (c *Collector) RecordDeath(cause string) {
	switch cause {
	case CauseOldAge:
		c.deathsOldAge++
	case CauseStarvation:
		c.deathsStarvation++
	default:
		c.deathsExhaustion++
	}
}

// RecordInfection records an exposure that stuck.
func (c *Collector) RecordInfection() {
	c.infections++
}

// RecordRecovery records an infection running its course.
func (c *Collector) RecordRecovery() {
	c.recoveries++
}

// RecordMessage records one broadcast.
func (c *Collector) RecordMessage(t components.MessageType) {
	if int(t) < len(c.messages) {
		c.messages[t]++
	}
}

// RecordReasoning records a resolved deliberation job.
func (c *Collector) RecordReasoning() {
	c.reasoningJobs++
}

// RecordForage records one consumed resource and the energy it yielded.
func (c *Collector) RecordForage(energy float64) {
	c.resourcesEaten++
	c.energyForaged += energy
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Gauges holds the state sampled at window end; the sim fills it from the
// live population.
type Gauges struct {
	Learners int
	Causal   int
	Players  int

	Susceptible int
	Infected    int
	Recovered   int

	Energies        []float64
	Resistances     []float64
	Efficiencies    []float64
	ReproThresholds []float64
	Trusts          []float64

	ResourceCount int
	Season        string
	PolicyStates  int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int, g Gauges) WindowStats {
	mean, p10, p50, p90 := ComputeEnergyStats(g.Energies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Learners: g.Learners,
		Causal:   g.Causal,
		Players:  g.Players,

		Susceptible: g.Susceptible,
		Infected:    g.Infected,
		Recovered:   g.Recovered,

		Births:           c.births,
		DeathsOldAge:     c.deathsOldAge,
		DeathsStarvation: c.deathsStarvation,
		DeathsExhaustion: c.deathsExhaustion,

		Infections: c.infections,
		Recoveries: c.recoveries,

		ThreatWarnings:    c.messages[components.MsgThreatWarning],
		ResourceLocations: c.messages[components.MsgResourceLocation],
		HelpRequests:      c.messages[components.MsgHelpRequest],
		KnowledgeShares:   c.messages[components.MsgKnowledgeShare],

		ReasoningJobs:     c.reasoningJobs,
		ResourcesConsumed: c.resourcesEaten,
		EnergyForaged:     c.energyForaged,

		EnergyMean: mean,
		EnergyP10:  p10,
		EnergyP50:  p50,
		EnergyP90:  p90,

		ResistanceMean:  Mean(g.Resistances),
		EfficiencyMean:  Mean(g.Efficiencies),
		ReproThreshMean: Mean(g.ReproThresholds),

		TrustMean: Mean(g.Trusts),

		ResourceCount: g.ResourceCount,
		Season:        g.Season,

		PolicyStates: g.PolicyStates,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.deathsOldAge = 0
	c.deathsStarvation = 0
	c.deathsExhaustion = 0
	c.infections = 0
	c.recoveries = 0
	c.messages = [4]int{}
	c.reasoningJobs = 0
	c.resourcesEaten = 0
	c.energyForaged = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int {
	return c.windowTicks
}
