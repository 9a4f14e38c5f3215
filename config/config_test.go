package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// ---------- embedded defaults ----------

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if cfg.World.Bound != 20 {
		t.Errorf("World.Bound: got %v, want 20", cfg.World.Bound)
	}
	if cfg.World.PopulationCap != 200 {
		t.Errorf("World.PopulationCap: got %v, want 200", cfg.World.PopulationCap)
	}
	if cfg.World.CarryingCapacity != 100 {
		t.Errorf("World.CarryingCapacity: got %v, want 100", cfg.World.CarryingCapacity)
	}
	if math.Abs(cfg.Epidemic.InfectionRate-0.03) > 1e-12 {
		t.Errorf("Epidemic.InfectionRate: got %v, want 0.03", cfg.Epidemic.InfectionRate)
	}
	if cfg.Epidemic.RecoveryTicks != 40 {
		t.Errorf("Epidemic.RecoveryTicks: got %v, want 40", cfg.Epidemic.RecoveryTicks)
	}
	if cfg.Learning.Alpha != 0.1 || cfg.Learning.Gamma != 0.9 || cfg.Learning.Epsilon != 0.15 {
		t.Errorf("Learning constants: got alpha=%v gamma=%v epsilon=%v",
			cfg.Learning.Alpha, cfg.Learning.Gamma, cfg.Learning.Epsilon)
	}
	if cfg.Seasons.Length != 150 {
		t.Errorf("Seasons.Length: got %v, want 150", cfg.Seasons.Length)
	}
	if cfg.Reproduction.Cooldown != 60 {
		t.Errorf("Reproduction.Cooldown: got %v, want 60", cfg.Reproduction.Cooldown)
	}
	if cfg.Seeding.Players+cfg.Seeding.Causal+cfg.Seeding.Learners != 25 {
		t.Errorf("seeded population: got %d, want 25",
			cfg.Seeding.Players+cfg.Seeding.Causal+cfg.Seeding.Learners)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Derived.YearTicks != 600 {
		t.Errorf("Derived.YearTicks: got %v, want 600", cfg.Derived.YearTicks)
	}
	if cfg.Derived.WorldSize != 40 {
		t.Errorf("Derived.WorldSize: got %v, want 40", cfg.Derived.WorldSize)
	}
}

// ---------- file overlay ----------

func TestLoadOverlayMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	override := []byte("world:\n  bound: 30.0\nseasons:\n  length: 100\n")
	if err := os.WriteFile(path, override, 0644); err != nil {
		t.Fatalf("writing override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", path, err)
	}

	if cfg.World.Bound != 30 {
		t.Errorf("overridden World.Bound: got %v, want 30", cfg.World.Bound)
	}
	if cfg.Seasons.Length != 100 {
		t.Errorf("overridden Seasons.Length: got %v, want 100", cfg.Seasons.Length)
	}
	// Untouched fields keep their defaults.
	if cfg.World.PopulationCap != 200 {
		t.Errorf("World.PopulationCap should keep default: got %v", cfg.World.PopulationCap)
	}
	// Derived values recompute from the merged result.
	if cfg.Derived.YearTicks != 400 {
		t.Errorf("Derived.YearTicks: got %v, want 400", cfg.Derived.YearTicks)
	}
	if cfg.Derived.WorldSize != 60 {
		t.Errorf("Derived.WorldSize: got %v, want 60", cfg.Derived.WorldSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load with missing file should fail")
	}
}

// ---------- round trip ----------

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	cfg.World.Bound = 25
	cfg.Energy.BaseLoss = 0.4

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if loaded.World.Bound != 25 {
		t.Errorf("World.Bound after round trip: got %v, want 25", loaded.World.Bound)
	}
	if math.Abs(loaded.Energy.BaseLoss-0.4) > 1e-12 {
		t.Errorf("Energy.BaseLoss after round trip: got %v, want 0.4", loaded.Energy.BaseLoss)
	}
	if loaded.Derived.WorldSize != 50 {
		t.Errorf("Derived.WorldSize after round trip: got %v, want 50", loaded.Derived.WorldSize)
	}
}

// ---------- global access ----------

func TestInitAndCfg(t *testing.T) {
	MustInit("")
	cfg := Cfg()
	if cfg == nil {
		t.Fatal("Cfg returned nil after MustInit")
	}
	if cfg.World.Bound != 20 {
		t.Errorf("Cfg().World.Bound: got %v, want 20", cfg.World.Bound)
	}
}
