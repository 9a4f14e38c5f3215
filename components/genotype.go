package components

import (
	"math/rand"

	"github.com/pthm-cable/vivarium/config"
)

// Genotype holds the heritable traits. Traits mutate multiplicatively at
// birth; the bounded ones re-clamp to [0,1] afterwards.
type Genotype struct {
	Speed          float64
	Size           float64
	SocialRadius   float64
	Resistance     float64 // infection resistance, [0,1]
	Lifespan       int     // ticks
	ReproThreshold float64
	Aggressiveness float64 // [0,1]
	Efficiency     float64 // forage efficiency, [0,1]
}

// Phenotype holds the expressed traits agents actually consume each tick.
type Phenotype struct {
	MaxSpeed       float64
	Radius         float64
	SocialDistance float64
	Resistance     float64
	Aggression     float64
	Efficiency     float64
}

// NewGenotype draws a fresh genotype from the configured trait ranges.
func NewGenotype(rng *rand.Rand, g config.GeneticsConfig) Genotype {
	return Genotype{
		Speed:          uniform(rng, g.SpeedMin, g.SpeedMax),
		Size:           uniform(rng, g.SizeMin, g.SizeMax),
		SocialRadius:   uniform(rng, g.SocialRadiusMin, g.SocialRadiusMax),
		Resistance:     rng.Float64(),
		Lifespan:       g.LifespanBase + rng.Intn(g.LifespanSpan),
		ReproThreshold: uniform(rng, g.ReproThresholdMin, g.ReproThresholdMax),
		Aggressiveness: rng.Float64(),
		Efficiency:     uniform(rng, g.EfficiencyMin, g.EfficiencyMax),
	}
}

// Express derives the phenotype an agent runs on.
func (g Genotype) Express(gc config.GeneticsConfig) Phenotype {
	return Phenotype{
		MaxSpeed:       g.Speed * gc.MaxSpeedFactor,
		Radius:         g.Size * gc.RadiusFactor,
		SocialDistance: g.SocialRadius,
		Resistance:     g.Resistance,
		Aggression:     g.Aggressiveness,
		Efficiency:     g.Efficiency,
	}
}

// Mutated returns a copy with each trait independently perturbed with
// probability rc.MutationRate by a factor drawn from [MutationMin, MutationMax].
func (g Genotype) Mutated(rng *rand.Rand, rc config.ReproductionConfig) Genotype {
	child := g

	maybe := func(v float64) float64 {
		if rng.Float64() < rc.MutationRate {
			return v * uniform(rng, rc.MutationMin, rc.MutationMax)
		}
		return v
	}

	child.Speed = maybe(child.Speed)
	child.Size = maybe(child.Size)
	child.SocialRadius = maybe(child.SocialRadius)
	child.Resistance = clamp01(maybe(child.Resistance))
	if rng.Float64() < rc.MutationRate {
		child.Lifespan = int(float64(child.Lifespan) * uniform(rng, rc.MutationMin, rc.MutationMax))
		if child.Lifespan < 1 {
			child.Lifespan = 1
		}
	}
	child.ReproThreshold = maybe(child.ReproThreshold)
	child.Aggressiveness = clamp01(maybe(child.Aggressiveness))
	child.Efficiency = clamp01(maybe(child.Efficiency))

	return child
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
