// Package world owns the environment around the agents: the seasonal
// cycle, cosmetic weather, and the resource pool with its regeneration
// and scarcity-floor rules.
package world

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

// Season of the 4-season year.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

// String returns the display name for a Season.
func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Autumn:
		return "autumn"
	case Winter:
		return "winter"
	}
	return "unknown"
}

// Weather is cosmetic state for frontends; nothing downstream consumes it.
type Weather uint8

const (
	Clear Weather = iota
	Rain
	Storm
)

// String returns the display name for a Weather.
func (w Weather) String() string {
	switch w {
	case Clear:
		return "clear"
	case Rain:
		return "rain"
	case Storm:
		return "storm"
	}
	return "unknown"
}

// Resource is one consumable item on the ground.
type Resource struct {
	ID      uint64
	Pos     components.Vec3
	Quality float64
	Value   float64
}

// Environment holds the world state outside the agents. Resources keep
// insertion order for deterministic iteration.
type Environment struct {
	cfg *config.Config

	tick    int
	weather Weather

	resources map[uint64]Resource
	order     []uint64
	nextID    uint64
}

// NewEnvironment creates a fresh environment.
func NewEnvironment(cfg *config.Config) *Environment {
	e := &Environment{cfg: cfg}
	e.Reset()
	return e
}

// Reset clears the environment. Resources refill through the regular
// regeneration and scarcity-floor rules on the following ticks.
func (e *Environment) Reset() {
	e.tick = 0
	e.weather = Clear
	e.resources = make(map[uint64]Resource)
	e.order = e.order[:0]
	e.nextID = 0
}

// Advance moves the environment one tick: weather redraw, regeneration,
// scarcity floor. Called after the agents updated. Returns the number of
// resources injected by the scarcity floor, zero in the common case.
func (e *Environment) Advance(rng *rand.Rand) int {
	e.tick++

	sc := e.cfg.Seasons
	if rng.Float64() < sc.WeatherChance {
		r := rng.Float64()
		switch {
		case r < sc.ClearWeight:
			e.weather = Clear
		case r < sc.ClearWeight+sc.RainWeight:
			e.weather = Rain
		default:
			e.weather = Storm
		}
	}

	rc := e.cfg.Resources
	if maxRes := e.MaxResources(); len(e.resources) < maxRes && rng.Float64() < rc.RegenChance {
		n := maxRes - len(e.resources)
		if n > rc.RegenBatch {
			n = rc.RegenBatch
		}
		for i := 0; i < n; i++ {
			e.spawn(rng, rng.Float64(), 0)
		}
	}

	injected := 0
	if len(e.resources) < rc.EmergencyFloor {
		for i := 0; i < rc.EmergencyCount; i++ {
			e.spawn(rng, rc.EmergencyQuality, rc.EmergencyValue)
		}
		injected = rc.EmergencyCount
	}

	e.compact()
	return injected
}

// spawn places one resource on the annulus. A fixedValue of 0 means the
// value derives from quality.
func (e *Environment) spawn(rng *rand.Rand, quality, fixedValue float64) {
	rc := e.cfg.Resources

	angle := rng.Float64() * 2 * math.Pi
	radius := rc.MinRadius + rng.Float64()*(rc.MaxRadius-rc.MinRadius)

	value := fixedValue
	if value == 0 {
		value = quality*rc.ValueScale + rc.ValueBase
	}

	e.nextID++
	r := Resource{
		ID:      e.nextID,
		Pos:     components.Vec3{X: math.Cos(angle) * radius, Z: math.Sin(angle) * radius},
		Quality: quality,
		Value:   value,
	}
	e.resources[r.ID] = r
	e.order = append(e.order, r.ID)
}

// compact drops consumed ids from the iteration order.
func (e *Environment) compact() {
	if len(e.order) == len(e.resources) {
		return
	}
	kept := e.order[:0]
	for _, id := range e.order {
		if _, ok := e.resources[id]; ok {
			kept = append(kept, id)
		}
	}
	e.order = kept
}

// Tick returns how many times the environment advanced.
func (e *Environment) Tick() int {
	return e.tick
}

// Season returns the current season of the 600-tick year.
func (e *Environment) Season() Season {
	return Season((e.tick % e.cfg.Derived.YearTicks) / e.cfg.Seasons.Length)
}

// Phase returns the fractional year position in season units, [0,4).
func (e *Environment) Phase() float64 {
	return float64(e.tick%e.cfg.Derived.YearTicks) / float64(e.cfg.Seasons.Length)
}

// Temperature returns the cosmetic seasonal temperature: coldest at the
// start of spring, hottest at the start of autumn.
func (e *Environment) Temperature() float64 {
	sc := e.cfg.Seasons
	return sc.BaseTemperature + sc.TemperatureSwing*math.Sin((e.Phase()-1)*math.Pi/2)
}

// Weather returns the current cosmetic weather.
func (e *Environment) Weather() Weather {
	return e.weather
}

// Multiplier returns the seasonal abundance multiplier.
func (e *Environment) Multiplier(s Season) float64 {
	sc := e.cfg.Seasons
	switch s {
	case Spring:
		return sc.SpringMultiplier
	case Summer:
		return sc.SummerMultiplier
	case Autumn:
		return sc.AutumnMultiplier
	}
	return sc.WinterMultiplier
}

// MaxResources returns the season-adjusted resource cap.
func (e *Environment) MaxResources() int {
	rc := e.cfg.Resources
	season := e.Season()
	base := float64(rc.BaseCount)
	if season == Winter {
		base = float64(rc.WinterBaseCount)
	}
	return int(base * e.Multiplier(season))
}

// Count returns the number of live resources.
func (e *Environment) Count() int {
	return len(e.resources)
}

// Nearest returns the closest resource to pos.
func (e *Environment) Nearest(pos components.Vec3) (Resource, bool) {
	found := false
	var best Resource
	bestSq := math.Inf(1)
	for _, id := range e.order {
		r, ok := e.resources[id]
		if !ok {
			continue
		}
		if d := pos.DistSqTo(r.Pos); d < bestSq {
			best = r
			bestSq = d
			found = true
		}
	}
	return best, found
}

// WithinInto appends every resource within radius of pos to dst and
// returns the updated slice, in insertion order.
func (e *Environment) WithinInto(dst []Resource, pos components.Vec3, radius float64) []Resource {
	rSq := radius * radius
	for _, id := range e.order {
		r, ok := e.resources[id]
		if !ok {
			continue
		}
		if pos.DistSqTo(r.Pos) <= rSq {
			dst = append(dst, r)
		}
	}
	return dst
}

// HasWithin reports whether any resource lies within radius of pos.
func (e *Environment) HasWithin(pos components.Vec3, radius float64) bool {
	rSq := radius * radius
	for _, id := range e.order {
		r, ok := e.resources[id]
		if !ok {
			continue
		}
		if pos.DistSqTo(r.Pos) <= rSq {
			return true
		}
	}
	return false
}

// Consume removes a resource, returning it. The removal is immediate:
// agents updating later in the same tick no longer see it.
func (e *Environment) Consume(id uint64) (Resource, bool) {
	r, ok := e.resources[id]
	if !ok {
		return Resource{}, false
	}
	delete(e.resources, id)
	return r, true
}

// Resources returns the live resources in insertion order.
func (e *Environment) Resources() []Resource {
	out := make([]Resource, 0, len(e.resources))
	for _, id := range e.order {
		if r, ok := e.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Snapshot captures the environment for one frame.
type Snapshot struct {
	Tick          int        `json:"tick"`
	Season        string     `json:"season"`
	Temperature   float64    `json:"temperature"`
	Weather       string     `json:"weather"`
	ResourceCount int        `json:"resource_count"`
	MaxResources  int        `json:"max_resources"`
	Resources     []Resource `json:"resources"`
}

// Snapshot returns the frame view of the environment.
func (e *Environment) Snapshot() Snapshot {
	return Snapshot{
		Tick:          e.tick,
		Season:        e.Season().String(),
		Temperature:   e.Temperature(),
		Weather:       e.Weather().String(),
		ResourceCount: len(e.resources),
		MaxResources:  e.MaxResources(),
		Resources:     e.Resources(),
	}
}
