package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("empty dir should disable output, not fail: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should return a nil manager")
	}

	// Every method is a no-op on nil.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("WriteTelemetry on nil: %v", err)
	}
	if err := om.WriteEvents([]Event{{Type: EventBirth}}); err != nil {
		t.Errorf("WriteEvents on nil: %v", err)
	}
	if err := om.WriteLeaderboard([]BoardEntry{{}}); err != nil {
		t.Errorf("WriteLeaderboard on nil: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("Dir on nil: %q", om.Dir())
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestOutputFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	if om.Dir() != dir {
		t.Errorf("Dir: got %q, want %q", om.Dir(), dir)
	}

	if err := om.WriteTelemetry(WindowStats{WindowEndTick: 100, Learners: 10, Season: "spring"}); err != nil {
		t.Fatalf("WriteTelemetry: %v", err)
	}
	if err := om.WriteTelemetry(WindowStats{WindowEndTick: 200, Learners: 9, Season: "summer"}); err != nil {
		t.Fatalf("WriteTelemetry: %v", err)
	}

	events := []Event{
		NewBirthEvent(5, "learner-25", "learner-3", components.KindLearner),
		NewDeathEvent(9, "causal-2", components.KindCausal, CauseStarvation, 0),
		NewScarcityEvent(12, 5),
	}
	if err := om.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := om.WriteLeaderboard([]BoardEntry{{Stats: LifetimeStats{ID: "learner-3"}, Score: 310}}); err != nil {
		t.Fatalf("WriteLeaderboard: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// telemetry.csv: one header plus one line per window.
	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("telemetry.csv lines: got %d, want 3", len(lines))
	}
	if !strings.Contains(lines[0], "window_end") || strings.Contains(lines[1], "window_end") {
		t.Errorf("header should appear exactly once:\n%s", string(data))
	}
	if !strings.Contains(lines[1], "spring") || !strings.Contains(lines[2], "summer") {
		t.Errorf("window rows missing: %v", lines[1:])
	}

	// events.csv: header plus one line per event, scarcity with blank kind.
	data, err = os.ReadFile(filepath.Join(dir, "events.csv"))
	if err != nil {
		t.Fatalf("reading events.csv: %v", err)
	}
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("events.csv lines: got %d, want 4", len(lines))
	}
	if !strings.Contains(lines[1], "birth") || !strings.Contains(lines[1], "learner-25") {
		t.Errorf("birth row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "starvation") {
		t.Errorf("death row should carry the cause: %q", lines[2])
	}
	if !strings.Contains(lines[3], "scarcity") || strings.Contains(lines[3], "learner") {
		t.Errorf("scarcity row: %q", lines[3])
	}

	data, err = os.ReadFile(filepath.Join(dir, "leaderboard.json"))
	if err != nil {
		t.Fatalf("reading leaderboard.json: %v", err)
	}
	if !strings.Contains(string(data), "learner-3") {
		t.Errorf("leaderboard content: %s", string(data))
	}
}

func TestWriteLeaderboardEmpty(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	// A run short enough that nobody died still leaves a leaderboard file.
	if err := om.WriteLeaderboard(nil); err != nil {
		t.Fatalf("WriteLeaderboard(nil): %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "leaderboard.json"))
	if err != nil {
		t.Fatalf("reading leaderboard.json: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty board should serialize as []: %q", string(data))
	}
}

func TestWriteConfigSnapshot(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}
	defer om.Close()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	reloaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if reloaded.World.Bound != cfg.World.Bound {
		t.Errorf("config round trip: bound %v != %v", reloaded.World.Bound, cfg.World.Bound)
	}
}
