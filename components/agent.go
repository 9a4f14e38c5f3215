// Package components defines the data components agents are built from.
package components

// Kind discriminates agent variants. The shared lifecycle is identical;
// variants differ in constants and in which optional components they carry.
type Kind uint8

const (
	KindLearner Kind = iota // policy-driven agent
	KindCausal              // learner plus social and reasoning layers
	KindPlayer              // user-steered agent with relaxed constants
)

// String returns the display name for a Kind.
func (k Kind) String() string {
	switch k {
	case KindLearner:
		return "learner"
	case KindCausal:
		return "causal"
	case KindPlayer:
		return "player"
	}
	return "unknown"
}

// Status is the epidemic state. Recovered is absorbing.
type Status uint8

const (
	StatusSusceptible Status = iota
	StatusInfected
	StatusRecovered
)

// String returns the display name for a Status.
func (s Status) String() string {
	switch s {
	case StatusSusceptible:
		return "susceptible"
	case StatusInfected:
		return "infected"
	case StatusRecovered:
		return "recovered"
	}
	return "unknown"
}

// Identity names an agent for the lifetime of the simulation.
type Identity struct {
	ID         string // unique, issued by the sim's id source
	Kind       Kind
	Generation int // 0 for seeded agents, parent+1 for births
}

// Vitals tracks the mutable survival state of an agent.
type Vitals struct {
	Energy         float64 // clamped to [0, max]
	Age            int     // ticks since birth, monotonic
	Status         Status
	InfectionTimer int // ticks spent in the current infection
	ReproCooldown  int // ticks until reproduction is allowed again
	Active         bool
}

// PlayerControl carries user steering state. Present only on the player.
type PlayerControl struct {
	HasTarget bool
	Target    Vec3
	MoveSpeed float64
}
