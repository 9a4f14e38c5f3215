package reasoning

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return NewEngine(cfg.Reasoning, cfg.Learning)
}

// ---------- queue ----------

func TestScheduleResolveFIFO(t *testing.T) {
	e := testEngine(t)
	rng := rand.New(rand.NewSource(42))

	for _, id := range []string{"a", "b", "c"} {
		e.Schedule(Input{AgentID: id, Energy: 50, Lifespan: 300})
	}
	if e.Pending() != 3 {
		t.Fatalf("Pending: got %d, want 3", e.Pending())
	}

	var order []string
	n := e.Resolve(rng, func(id string, trace *components.Trace) {
		order = append(order, id)
		if trace == nil {
			t.Fatalf("nil trace delivered for %s", id)
		}
	})
	if n != 3 {
		t.Errorf("Resolve count: got %d, want 3", n)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("delivery order: got %v, want [a b c]", order)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending after resolve: got %d, want 0", e.Pending())
	}
}

// ---------- plan precedence ----------

func TestPlanPrecedence(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		in   Input
		want components.Action
	}{
		{
			"hungry with food in reach forages",
			Input{Energy: 30, HasResource: true, ResourceDist: 5, Lifespan: 300},
			components.ActForage,
		},
		{
			"hungry but food too far explores",
			Input{Energy: 30, HasResource: true, ResourceDist: 15, Lifespan: 300},
			components.ActExplore,
		},
		{
			"susceptible near infection flees",
			Input{Energy: 50, NearbyInfected: 1, Status: components.StatusSusceptible, Lifespan: 300},
			components.ActFlee,
		},
		{
			"recovered near infection does not flee",
			Input{Energy: 50, NearbyInfected: 1, Status: components.StatusRecovered, Lifespan: 300},
			components.ActExplore,
		},
		{
			"infection outranks hunger",
			Input{Energy: 30, HasResource: true, ResourceDist: 5, NearbyInfected: 1,
				Status: components.StatusSusceptible, Lifespan: 300},
			components.ActFlee,
		},
		{
			"rich mature agent reproduces",
			Input{Energy: 80, Age: 40, ReproCooldown: 0, Lifespan: 300},
			components.ActReproduce,
		},
		{
			"cooldown blocks reproduction",
			Input{Energy: 80, Age: 40, ReproCooldown: 10, Lifespan: 300},
			components.ActExplore,
		},
		{
			"too young to reproduce",
			Input{Energy: 80, Age: 20, ReproCooldown: 0, Lifespan: 300},
			components.ActExplore,
		},
		{
			"nothing pressing explores",
			Input{Energy: 50, Lifespan: 300},
			components.ActExplore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, action := e.plan(tt.in, e.goals(tt.in))
			if action != tt.want {
				t.Errorf("plan: got %v, want %v", action, tt.want)
			}
		})
	}
}

// The avoidance goal outranks hunger at moderate energy, which redirects
// the plan even though food is in reach.
func TestGoalOrderingDrivesPlan(t *testing.T) {
	e := testEngine(t)

	// Energy 30 puts find_food at 0.7, below avoid_infection's 0.9.
	in := Input{Energy: 30, HasResource: true, ResourceDist: 5, NearbyInfected: 1,
		Status: components.StatusSusceptible, Lifespan: 300}
	goals := e.goals(in)
	if goals[0].Name != "avoid_infection" {
		t.Fatalf("top goal: got %s, want avoid_infection", goals[0].Name)
	}

	// Energy 5 puts find_food at 0.95, on top; the stable sort keeps
	// rule order on exact ties.
	in.Energy = 5
	goals = e.goals(in)
	if goals[0].Name != "find_food" {
		t.Fatalf("top goal at critical energy: got %s", goals[0].Name)
	}
	if math.Abs(goals[0].Urgency-0.95) > 1e-9 {
		t.Errorf("find_food urgency: got %v, want 0.95", goals[0].Urgency)
	}

	in.Energy = 10 // find_food urgency exactly 0.9, tied with avoid_infection
	goals = e.goals(in)
	if goals[0].Name != "find_food" || goals[1].Name != "avoid_infection" {
		t.Errorf("tied goals should keep rule order: got %s then %s", goals[0].Name, goals[1].Name)
	}

	// Explore is always present and always last here.
	if goals[len(goals)-1].Name != "explore" {
		t.Errorf("explore should rank last: got %v", goals)
	}
}

// ---------- risk ----------

func TestRiskBands(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name      string
		in        Input
		wantScore float64
		wantBand  string
	}{
		{"calm", Input{Energy: 50, Lifespan: 300}, 0, "low"},
		{"critical energy alone", Input{Energy: 10, Lifespan: 300}, 0.4, "moderate"},
		{"low energy alone", Input{Energy: 30, Lifespan: 300}, 0.2, "low"},
		{"critical and infected pair", Input{Energy: 10, NearbyInfected: 2, Lifespan: 300}, 0.8, "high"},
		{"infected count capped", Input{Energy: 50, NearbyInfected: 9, Lifespan: 300}, 0.4, "moderate"},
		{"crowded", Input{Energy: 50, NearbyCount: 6, Lifespan: 300}, 0.2, "low"},
		{"old age", Input{Energy: 50, Age: 250, Lifespan: 300}, 0.2, "low"},
		{"everything at once", Input{Energy: 10, NearbyInfected: 2, NearbyCount: 6, Age: 250, Lifespan: 300}, 1.2, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, band := e.risk(tt.in)
			if math.Abs(score-tt.wantScore) > 1e-9 {
				t.Errorf("risk score: got %v, want %v", score, tt.wantScore)
			}
			if band != tt.wantBand {
				t.Errorf("risk band: got %q, want %q", band, tt.wantBand)
			}
		})
	}
}

// ---------- trace assembly ----------

func TestThinkTrace(t *testing.T) {
	e := testEngine(t)
	rng := rand.New(rand.NewSource(42))

	in := Input{
		AgentID: "causal-1", Tick: 77,
		Energy: 30, Age: 10, Lifespan: 300,
		HasResource: true, ResourceDist: 4,
		Season: "spring",
	}

	for i := 0; i < 100; i++ {
		trace := e.think(in, rng)
		if trace.Tick != 77 {
			t.Fatalf("trace tick: got %d, want 77", trace.Tick)
		}
		if trace.Intent.Action != components.ActForage {
			t.Fatalf("trace action: got %v, want forage", trace.Intent.Action)
		}
		if !strings.Contains(trace.Situation, "low energy") {
			t.Fatalf("situation band missing: %q", trace.Situation)
		}
		if !strings.Contains(trace.Conclusion, "decided to forage") {
			t.Fatalf("conclusion: %q", trace.Conclusion)
		}
		if trace.Confidence < 0.6 || trace.Confidence > 1.0 {
			t.Fatalf("confidence out of range: %v", trace.Confidence)
		}
		if len(trace.Goals) == 0 || trace.Plan == "" || trace.Risk == "" {
			t.Fatalf("incomplete trace: %+v", trace)
		}
	}
}
