package sim

import (
	"testing"

	"github.com/pthm-cable/vivarium/components"
)

// ---------- frames ----------

func TestFrameCounts(t *testing.T) {
	s := newTestSim(t, 21, nil)
	f := s.buildFrame()

	if f.Population != 25 || len(f.Agents) != 25 {
		t.Fatalf("population = %d with %d agents, want 25", f.Population, len(f.Agents))
	}
	if f.Tick != 0 {
		t.Errorf("frame tick = %d, want 0", f.Tick)
	}
	if f.Infected != 1 {
		t.Errorf("infected = %d, want the pre-seeded 1", f.Infected)
	}
	if f.Susceptible+f.Infected+f.Recovered != f.Population {
		t.Errorf("SIR counts %d+%d+%d do not sum to population %d",
			f.Susceptible, f.Infected, f.Recovered, f.Population)
	}

	// The player is infected at seed time but still renders as the player.
	if f.Agents[0].ID != "player-0" || f.Agents[0].ColorClass != "player" {
		t.Errorf("agent 0 = %s/%s, want player-0/player", f.Agents[0].ID, f.Agents[0].ColorClass)
	}
	if f.Agents[1].Kind != "causal" {
		t.Errorf("agent 1 kind = %q, want causal", f.Agents[1].Kind)
	}
}

func TestColorClass(t *testing.T) {
	cases := []struct {
		kind   components.Kind
		status components.Status
		want   string
	}{
		{components.KindPlayer, components.StatusInfected, "player"},
		{components.KindLearner, components.StatusInfected, "infected"},
		{components.KindCausal, components.StatusRecovered, "recovered"},
		{components.KindLearner, components.StatusSusceptible, "learner"},
		{components.KindCausal, components.StatusSusceptible, "causal"},
	}
	for _, c := range cases {
		if got := colorClass(c.kind, c.status); got != c.want {
			t.Errorf("colorClass(%v, %v) = %q, want %q", c.kind, c.status, got, c.want)
		}
	}
}

// ---------- inspection ----------

func TestInspect(t *testing.T) {
	s := newTestSim(t, 33, nil)

	rep, ok := s.Inspect("causal-1")
	if !ok {
		t.Fatal("Inspect(causal-1) not found")
	}
	if rep.Kind != "causal" || rep.Generation != 0 {
		t.Errorf("kind/generation = %q/%d, want causal/0", rep.Kind, rep.Generation)
	}
	if rep.Energy != 50 {
		t.Errorf("energy = %v, want 50", rep.Energy)
	}
	if rep.Personality == "" {
		t.Error("causal agent reported no personality")
	}
	if rep.Trust != 0.5 {
		t.Errorf("trust with no peers = %v, want the 0.5 base", rep.Trust)
	}

	// Learners carry no social layer; the report leaves those fields zero.
	rep, ok = s.Inspect("learner-10")
	if !ok {
		t.Fatal("Inspect(learner-10) not found")
	}
	if rep.Personality != "" || rep.Trust != 0 {
		t.Errorf("learner personality/trust = %q/%v, want empty/0", rep.Personality, rep.Trust)
	}

	if _, ok := s.Inspect("nobody-99"); ok {
		t.Error("Inspect(nobody-99) = ok, want not found")
	}
}

// ---------- snapshots ----------

func TestBuildSnapshotMirrorsState(t *testing.T) {
	s := newTestSim(t, 17, nil)
	for i := 0; i < 10; i++ {
		s.Step()
	}

	snap := s.BuildSnapshot()
	if snap.Tick != 10 || snap.Seed != 17 {
		t.Errorf("snapshot tick/seed = %d/%d, want 10/17", snap.Tick, snap.Seed)
	}
	if len(snap.Agents) != s.Population() {
		t.Fatalf("snapshot agents = %d, want %d", len(snap.Agents), s.Population())
	}
	for i, e := range s.roster {
		dump := snap.Agents[i]
		vit := s.vitMap.Get(e)
		if dump.ID != s.idMap.Get(e).ID {
			t.Errorf("agent %d dump id = %q, want %q", i, dump.ID, s.idMap.Get(e).ID)
		}
		if dump.Energy != vit.Energy || dump.Age != vit.Age {
			t.Errorf("agent %d dump energy/age = %v/%d, want %v/%d",
				i, dump.Energy, dump.Age, vit.Energy, vit.Age)
		}
	}
	if snap.Environment.Tick != 10 {
		t.Errorf("environment snapshot tick = %d, want 10", snap.Environment.Tick)
	}
}
