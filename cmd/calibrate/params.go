// Package main provides CMA-ES calibration for vivarium simulation parameters.
package main

import (
	"github.com/pthm-cable/vivarium/config"
)

// ParamSpec defines a single calibratable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all calibratable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibratable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Energy (initial locked at 50)
			{Name: "base_loss", Path: "energy.base_loss", Min: 0.1, Max: 0.6, Default: 0.3},
			{Name: "infection_penalty", Path: "energy.infection_penalty", Min: 0.1, Max: 1.0, Default: 0.4},
			{Name: "pressure_factor", Path: "energy.pressure_factor", Min: 0.1, Max: 1.5, Default: 0.5},
			// Epidemic (recovery_bonus locked at 10)
			{Name: "infection_rate", Path: "epidemic.infection_rate", Min: 0.005, Max: 0.10, Default: 0.03},
			{Name: "recovery_ticks", Path: "epidemic.recovery_ticks", Min: 20, Max: 80, Default: 40},
			// Resources
			{Name: "regen_chance", Path: "resources.regen_chance", Min: 0.2, Max: 0.9, Default: 0.6},
			{Name: "regen_batch", Path: "resources.regen_batch", Min: 1, Max: 6, Default: 3},
			{Name: "value_scale", Path: "resources.value_scale", Min: 10, Max: 40, Default: 20},
			// Reproduction (cooldown locked at 60)
			{Name: "repro_base_chance", Path: "reproduction.base_chance", Min: 0.002, Max: 0.05, Default: 0.01},
			{Name: "repro_cost", Path: "reproduction.cost", Min: 5, Max: 30, Default: 15},
			// Mortality
			{Name: "starvation_factor", Path: "mortality.starvation_factor", Min: 0.005, Max: 0.05, Default: 0.02},
			{Name: "survival_threshold_base", Path: "mortality.survival_threshold_base", Min: 15, Max: 50, Default: 30},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	// Energy (initial locked)
	cfg.Energy.Initial = 50
	cfg.Energy.BaseLoss = clamped[i]; i++
	cfg.Energy.InfectionPenalty = clamped[i]; i++
	cfg.Energy.PressureFactor = clamped[i]; i++

	// Epidemic (recovery_bonus locked)
	cfg.Epidemic.RecoveryBonus = 10
	cfg.Epidemic.InfectionRate = clamped[i]; i++
	cfg.Epidemic.RecoveryTicks = int(clamped[i]); i++

	// Resources
	cfg.Resources.RegenChance = clamped[i]; i++
	cfg.Resources.RegenBatch = int(clamped[i]); i++
	cfg.Resources.ValueScale = clamped[i]; i++

	// Reproduction (cooldown locked)
	cfg.Reproduction.Cooldown = 60
	cfg.Reproduction.BaseChance = clamped[i]; i++
	cfg.Reproduction.Cost = clamped[i]; i++

	// Mortality
	cfg.Mortality.StarvationFactor = clamped[i]; i++
	cfg.Mortality.SurvivalThresholdBase = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		// Energy (initial locked)
		cfg.Energy.BaseLoss,
		cfg.Energy.InfectionPenalty,
		cfg.Energy.PressureFactor,
		// Epidemic (recovery_bonus locked)
		cfg.Epidemic.InfectionRate,
		float64(cfg.Epidemic.RecoveryTicks),
		// Resources
		cfg.Resources.RegenChance,
		float64(cfg.Resources.RegenBatch),
		cfg.Resources.ValueScale,
		// Reproduction (cooldown locked)
		cfg.Reproduction.BaseChance,
		cfg.Reproduction.Cost,
		// Mortality
		cfg.Mortality.StarvationFactor,
		cfg.Mortality.SurvivalThresholdBase,
	}
}
