package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Population counts at window end
	Learners int `csv:"learners"`
	Causal   int `csv:"causal"`
	Players  int `csv:"players"`

	Susceptible int `csv:"susceptible"`
	Infected    int `csv:"infected"`
	Recovered   int `csv:"recovered"`

	// Events during window
	Births int `csv:"births"`

	DeathsOldAge     int `csv:"deaths_old_age"`
	DeathsStarvation int `csv:"deaths_starvation"`
	DeathsExhaustion int `csv:"deaths_exhaustion"`

	Infections int `csv:"infections"`
	Recoveries int `csv:"recoveries"`

	ThreatWarnings    int `csv:"threat_warnings"`
	ResourceLocations int `csv:"resource_locations"`
	HelpRequests      int `csv:"help_requests"`
	KnowledgeShares   int `csv:"knowledge_shares"`

	ReasoningJobs     int     `csv:"reasoning_jobs"`
	ResourcesConsumed int     `csv:"resources_consumed"`
	EnergyForaged     float64 `csv:"energy_foraged"`

	// Energy distribution (sampled at window end)
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Trait drift (sampled at window end)
	ResistanceMean  float64 `csv:"resistance_mean"`
	EfficiencyMean  float64 `csv:"efficiency_mean"`
	ReproThreshMean float64 `csv:"repro_thresh_mean"`

	// Social layer
	TrustMean float64 `csv:"trust_mean"`

	// Environment
	ResourceCount int    `csv:"resource_count"`
	Season        string `csv:"season"`

	// Learning
	PolicyStates int `csv:"policy_states"`
}

// Population returns the total population at window end.
func (w WindowStats) Population() int {
	return w.Learners + w.Causal + w.Players
}

// ComputeEnergyStats returns mean and the 10/50/90 percentiles of values.
// Returns zeros for an empty slice.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.LinInterp, sorted, nil)
	p50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.90, stat.LinInterp, sorted, nil)
	return mean, p10, p50, p90
}

// Mean averages values, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Log emits the window as one structured log record.
func (w WindowStats) Log() {
	slog.Info("telemetry_window",
		"window_end", w.WindowEndTick,
		"population", w.Population(),
		"susceptible", w.Susceptible,
		"infected", w.Infected,
		"recovered", w.Recovered,
		"births", w.Births,
		"deaths", w.DeathsOldAge+w.DeathsStarvation+w.DeathsExhaustion,
		"infections", w.Infections,
		"recoveries", w.Recoveries,
		"messages", w.ThreatWarnings+w.ResourceLocations+w.HelpRequests+w.KnowledgeShares,
		"energy_mean", w.EnergyMean,
		"trust_mean", w.TrustMean,
		"resources", w.ResourceCount,
		"season", w.Season,
	)
}
