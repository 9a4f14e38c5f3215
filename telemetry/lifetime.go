package telemetry

import "github.com/pthm-cable/vivarium/components"

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	ID         string
	Kind       components.Kind
	Generation int
	Parent     string
	BirthTick  int

	SurvivalTicks      int
	DistanceMoved      float64
	ResourcesEaten     int
	EnergyForaged      float64
	Offspring          int
	MessagesSent       int
	InfectionsSurvived int
	PeakEnergy         float64
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[string]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{stats: make(map[string]*LifetimeStats)}
}

// Register creates lifetime stats for a new agent.
func (lt *LifetimeTracker) Register(id string, kind components.Kind, generation int, parent string, birthTick int) {
	lt.stats[id] = &LifetimeStats{
		ID:         id,
		Kind:       kind,
		Generation: generation,
		Parent:     parent,
		BirthTick:  birthTick,
	}
}

// Get returns the lifetime stats for an agent, or nil if unknown.
func (lt *LifetimeTracker) Get(id string) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an agent's stats and returns them, finalized at deathTick.
func (lt *LifetimeTracker) Remove(id string, deathTick int) *LifetimeStats {
	s := lt.stats[id]
	if s != nil {
		s.SurvivalTicks = deathTick - s.BirthTick
		delete(lt.stats, id)
	}
	return s
}

// RecordMove accumulates distance traveled.
func (lt *LifetimeTracker) RecordMove(id string, dist float64) {
	if s := lt.stats[id]; s != nil {
		s.DistanceMoved += dist
	}
}

// RecordForage accumulates one consumed resource.
func (lt *LifetimeTracker) RecordForage(id string, energy float64) {
	if s := lt.stats[id]; s != nil {
		s.ResourcesEaten++
		s.EnergyForaged += energy
	}
}

// RecordOffspring increments the offspring count.
func (lt *LifetimeTracker) RecordOffspring(id string) {
	if s := lt.stats[id]; s != nil {
		s.Offspring++
	}
}

// RecordMessage increments the messages-sent count.
func (lt *LifetimeTracker) RecordMessage(id string) {
	if s := lt.stats[id]; s != nil {
		s.MessagesSent++
	}
}

// RecordRecovery increments the infections-survived count.
func (lt *LifetimeTracker) RecordRecovery(id string) {
	if s := lt.stats[id]; s != nil {
		s.InfectionsSurvived++
	}
}

// ObserveEnergy tracks the peak energy reached.
func (lt *LifetimeTracker) ObserveEnergy(id string, energy float64) {
	if s := lt.stats[id]; s != nil && energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// Count returns how many live agents are tracked.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
