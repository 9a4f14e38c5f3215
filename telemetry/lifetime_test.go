package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/vivarium/components"
)

func TestLifetimeRegisterAndGet(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register("causal-3", components.KindCausal, 2, "causal-1", 40)

	s := lt.Get("causal-3")
	if s == nil {
		t.Fatal("registered agent not found")
	}
	if s.Kind != components.KindCausal || s.Generation != 2 || s.Parent != "causal-1" || s.BirthTick != 40 {
		t.Errorf("registered fields: %+v", s)
	}
	if lt.Get("nobody") != nil {
		t.Error("unknown agent should return nil")
	}
	if lt.Count() != 1 {
		t.Errorf("count: got %d, want 1", lt.Count())
	}
}

func TestLifetimeAccumulation(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register("learner-1", components.KindLearner, 0, "", 0)

	lt.RecordMove("learner-1", 1.5)
	lt.RecordMove("learner-1", 2.5)
	lt.RecordForage("learner-1", 20)
	lt.RecordForage("learner-1", 10)
	lt.RecordOffspring("learner-1")
	lt.RecordMessage("learner-1")
	lt.RecordRecovery("learner-1")
	lt.ObserveEnergy("learner-1", 80)
	lt.ObserveEnergy("learner-1", 60) // below the peak, ignored

	s := lt.Get("learner-1")
	if math.Abs(s.DistanceMoved-4) > 1e-9 {
		t.Errorf("distance: got %v, want 4", s.DistanceMoved)
	}
	if s.ResourcesEaten != 2 || math.Abs(s.EnergyForaged-30) > 1e-9 {
		t.Errorf("foraging: eaten=%d energy=%v", s.ResourcesEaten, s.EnergyForaged)
	}
	if s.Offspring != 1 || s.MessagesSent != 1 || s.InfectionsSurvived != 1 {
		t.Errorf("counters: %+v", s)
	}
	if s.PeakEnergy != 80 {
		t.Errorf("peak energy: got %v, want 80", s.PeakEnergy)
	}
}

func TestLifetimeRecordsForUnknownAreNoOps(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.RecordMove("ghost", 1)
	lt.RecordForage("ghost", 1)
	lt.RecordOffspring("ghost")
	lt.ObserveEnergy("ghost", 50)
	if lt.Count() != 0 {
		t.Errorf("no-op records created entries: %d", lt.Count())
	}
}

func TestLifetimeRemoveFinalizes(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register("learner-2", components.KindLearner, 0, "", 10)

	s := lt.Remove("learner-2", 150)
	if s == nil {
		t.Fatal("Remove returned nil for a live agent")
	}
	if s.SurvivalTicks != 140 {
		t.Errorf("survival: got %d, want 140", s.SurvivalTicks)
	}
	if lt.Count() != 0 {
		t.Errorf("agent still tracked after removal: %d", lt.Count())
	}
	if lt.Remove("learner-2", 151) != nil {
		t.Error("second removal should return nil")
	}
}
