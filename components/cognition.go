package components

// Action is a movement intent produced by a policy or a reasoning plan.
type Action uint8

const (
	ActForage Action = iota
	ActExplore
	ActFlee
	ActReproduce
)

// ActionCount is the size of the action space.
const ActionCount = 4

// String returns the display name for an Action.
func (a Action) String() string {
	switch a {
	case ActForage:
		return "forage"
	case ActExplore:
		return "explore"
	case ActFlee:
		return "flee"
	case ActReproduce:
		return "reproduce"
	}
	return "unknown"
}

// Intent pairs an action with its speed parameter. Speed scales the
// steering delta and is not part of the learned policy.
type Intent struct {
	Action Action
	Speed  float64
}

// Goal is a weighted objective produced by the deliberation pipeline.
type Goal struct {
	Name    string
	Urgency float64
}

// Trace records one full pass of the deliberation pipeline, retained for
// inspection until the next pass overwrites it.
type Trace struct {
	Tick       int
	Situation  string
	Goals      []Goal
	Risk       string
	Plan       string
	Conclusion string
	Intent     Intent
	Confidence float64
}

// Cognition carries an agent's deliberation state. Present only on causal
// agents. At most one job is in flight per agent; a resolved intent
// overrides the policy for exactly one tick.
type Cognition struct {
	Pending   bool
	HasIntent bool
	Intent    Intent
	LastTrace *Trace
}
