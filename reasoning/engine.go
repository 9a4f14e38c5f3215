// Package reasoning simulates deliberation for causal agents. Scheduling
// is fire-and-forget: jobs land on a FIFO queue the sim drains at the
// start of a later tick, so a tick never blocks on its own thinking.
// No external calls are made; the pipeline is a deterministic function of
// the observation snapshot (confidence aside, which is cosmetic).
package reasoning

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

// Input is the observation snapshot a job reasons over, captured at
// schedule time.
type Input struct {
	AgentID string
	Tick    int

	Energy   float64
	Age      int
	Lifespan int
	Status   components.Status

	NearbyCount    int
	NearbyInfected int

	HasResource  bool
	ResourceDist float64

	ReproCooldown int
	Season        string
}

// Engine queues and resolves deliberation jobs.
type Engine struct {
	queue []Input
	rc    config.ReasoningConfig
	lc    config.LearningConfig
}

// NewEngine creates an empty engine. Learning config supplies the intent
// speed convention so reasoned intents steer like policy intents.
func NewEngine(rc config.ReasoningConfig, lc config.LearningConfig) *Engine {
	return &Engine{rc: rc, lc: lc}
}

// Schedule enqueues one job. The caller guards against scheduling while a
// job for the same agent is already in flight.
func (e *Engine) Schedule(in Input) {
	e.queue = append(e.queue, in)
}

// Pending returns the number of queued jobs.
func (e *Engine) Pending() int {
	return len(e.queue)
}

// Resolve drains the queue in FIFO order, delivering each finished trace
// through the callback. Jobs whose agent died in the meantime are the
// callback's problem to drop. Returns the number of jobs resolved.
func (e *Engine) Resolve(rng *rand.Rand, deliver func(agentID string, trace *components.Trace)) int {
	n := len(e.queue)
	for _, in := range e.queue {
		deliver(in.AgentID, e.think(in, rng))
	}
	e.queue = e.queue[:0]
	return n
}

// think runs the five-stage pipeline over one snapshot.
func (e *Engine) think(in Input, rng *rand.Rand) *components.Trace {
	situation := e.situation(in)
	goals := e.goals(in)
	riskScore, risk := e.risk(in)
	plan, action := e.plan(in, goals)

	speed := e.lc.ReproduceSpeed
	if action != components.ActReproduce {
		speed = e.lc.SpeedMin + rng.Float64()*(e.lc.SpeedMax-e.lc.SpeedMin)
	}

	confidence := e.rc.ConfidenceMin + rng.Float64()*(e.rc.ConfidenceMax-e.rc.ConfidenceMin)

	return &components.Trace{
		Tick:       in.Tick,
		Situation:  situation,
		Goals:      goals,
		Risk:       risk,
		Plan:       plan,
		Conclusion: fmt.Sprintf("decided to %s (risk %s, score %.2f)", action, risk, riskScore),
		Intent:     components.Intent{Action: action, Speed: speed},
		Confidence: confidence,
	}
}

// situation summarizes the snapshot in one line.
func (e *Engine) situation(in Input) string {
	band := "high"
	switch {
	case in.Energy < 20:
		band = "critical"
	case in.Energy < e.rc.FoodEnergyLimit:
		band = "low"
	case in.Energy < e.rc.PlanReproduceEnergy:
		band = "stable"
	}
	food := "no food in sight"
	if in.HasResource {
		food = fmt.Sprintf("nearest food %.1f away", in.ResourceDist)
	}
	return fmt.Sprintf("%s energy (%.0f), %d neighbors (%d infected), %s, %s season",
		band, in.Energy, in.NearbyCount, in.NearbyInfected, food, in.Season)
}

// goals derives the active objectives, most urgent first. Order within
// equal urgencies keeps the rule order.
func (e *Engine) goals(in Input) []components.Goal {
	var goals []components.Goal
	if in.Energy < e.rc.FoodEnergyLimit {
		goals = append(goals, components.Goal{Name: "find_food", Urgency: 1 - in.Energy/100})
	}
	if in.NearbyInfected > 0 {
		goals = append(goals, components.Goal{Name: "avoid_infection", Urgency: e.rc.AvoidUrgency})
	}
	if in.Energy > e.rc.GoalReproduceEnergy && in.Age > e.rc.ReproduceAge {
		goals = append(goals, components.Goal{Name: "reproduce", Urgency: e.rc.ReproduceUrgency})
	}
	goals = append(goals, components.Goal{Name: "explore", Urgency: e.rc.ExploreUrgency})

	sort.SliceStable(goals, func(i, j int) bool {
		return goals[i].Urgency > goals[j].Urgency
	})
	return goals
}

// risk scores the snapshot and maps it to a band.
func (e *Engine) risk(in Input) (float64, string) {
	score := 0.0
	switch {
	case in.Energy < 20:
		score += 0.4
	case in.Energy < e.rc.FoodEnergyLimit:
		score += 0.2
	}
	inf := in.NearbyInfected
	if inf > 2 {
		inf = 2
	}
	score += 0.2 * float64(inf)
	if in.NearbyCount > 5 {
		score += 0.2
	}
	if float64(in.Age) > 0.8*float64(in.Lifespan) {
		score += 0.2
	}

	switch {
	case score < e.rc.RiskModerate:
		return score, "low"
	case score < e.rc.RiskHigh:
		return score, "moderate"
	}
	return score, "high"
}

// plan picks the action by fixed precedence.
func (e *Engine) plan(in Input, goals []components.Goal) (string, components.Action) {
	switch {
	case len(goals) > 0 && goals[0].Name == "find_food" && in.HasResource && in.ResourceDist < e.rc.PlanForageDist:
		return "head for the nearest known food", components.ActForage
	case in.NearbyInfected > 0 && in.Status == components.StatusSusceptible:
		return "put distance between self and the infected", components.ActFlee
	case in.Energy > e.rc.PlanReproduceEnergy && in.ReproCooldown == 0 && in.Age > e.rc.ReproduceAge:
		return "spend the surplus on offspring", components.ActReproduce
	}
	return "wander and see what turns up", components.ActExplore
}
