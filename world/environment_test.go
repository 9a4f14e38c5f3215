package world

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/vivarium/components"
	"github.com/pthm-cable/vivarium/config"
)

func testEnv(t *testing.T) *Environment {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return NewEnvironment(cfg)
}

// putResource drops a resource at an exact position, bypassing the annulus.
func putResource(e *Environment, pos components.Vec3, value float64) uint64 {
	e.nextID++
	r := Resource{ID: e.nextID, Pos: pos, Quality: 0.5, Value: value}
	e.resources[r.ID] = r
	e.order = append(e.order, r.ID)
	return r.ID
}

// ---------- seasonal cycle ----------

func TestSeasonCycle(t *testing.T) {
	tests := []struct {
		tick int
		want Season
	}{
		{0, Spring},
		{149, Spring},
		{150, Summer},
		{299, Summer},
		{300, Autumn},
		{449, Autumn},
		{450, Winter},
		{599, Winter},
		{600, Spring}, // year wraps
		{750, Summer},
	}

	e := testEnv(t)
	for _, tt := range tests {
		e.tick = tt.tick
		if got := e.Season(); got != tt.want {
			t.Errorf("Season at tick %d: got %v, want %v", tt.tick, got, tt.want)
		}
	}
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		tick int
		want float64
	}{
		{0, 5},    // coldest at the start of spring
		{150, 20}, // base at the start of summer
		{300, 35}, // hottest at the start of autumn
		{450, 20}, // back to base entering winter
	}

	e := testEnv(t)
	for _, tt := range tests {
		e.tick = tt.tick
		if got := e.Temperature(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Temperature at tick %d: got %v, want %v", tt.tick, got, tt.want)
		}
	}
}

func TestMaxResourcesPerSeason(t *testing.T) {
	tests := []struct {
		tick int
		want int
	}{
		{0, 84},   // spring: 60 * 1.4
		{150, 72}, // summer: 60 * 1.2
		{300, 60}, // autumn: 60 * 1.0
		{450, 24}, // winter: 40 * 0.6
	}

	e := testEnv(t)
	for _, tt := range tests {
		e.tick = tt.tick
		if got := e.MaxResources(); got != tt.want {
			t.Errorf("MaxResources at tick %d: got %d, want %d", tt.tick, got, tt.want)
		}
	}
}

// ---------- regeneration ----------

func TestAdvanceRegeneration(t *testing.T) {
	e := testEnv(t)
	rng := rand.New(rand.NewSource(42))

	// Stay inside spring so the cap is constant.
	for i := 0; i < 140; i++ {
		e.Advance(rng)
		if e.Count() > e.MaxResources() {
			t.Fatalf("tick %d: count %d exceeds cap %d", e.Tick(), e.Count(), e.MaxResources())
		}
	}
	if e.Tick() != 140 {
		t.Errorf("Tick: got %d, want 140", e.Tick())
	}
	if e.Count() == 0 {
		t.Fatal("no resources after 140 ticks of regeneration")
	}

	rc := e.cfg.Resources
	for _, r := range e.Resources() {
		radius := r.Pos.Length()
		if radius < rc.MinRadius-1e-9 || radius > rc.MaxRadius+1e-9 {
			t.Errorf("resource %d off the annulus: radius %v", r.ID, radius)
		}
		if r.Pos.Y != 0 {
			t.Errorf("resource %d has nonzero Y: %v", r.ID, r.Pos.Y)
		}
		derived := r.Quality*rc.ValueScale + rc.ValueBase
		emergency := r.Quality == rc.EmergencyQuality && r.Value == rc.EmergencyValue
		if !emergency && math.Abs(r.Value-derived) > 1e-9 {
			t.Errorf("resource %d value: got %v, want %v", r.ID, r.Value, derived)
		}
	}
}

func TestEmergencyInjection(t *testing.T) {
	e := testEnv(t)
	rng := rand.New(rand.NewSource(1))

	// An empty pool is under the scarcity floor, so the very first tick injects.
	injected := e.Advance(rng)
	if injected != e.cfg.Resources.EmergencyCount {
		t.Fatalf("injected: got %d, want %d", injected, e.cfg.Resources.EmergencyCount)
	}

	fixed := 0
	for _, r := range e.Resources() {
		if r.Quality == e.cfg.Resources.EmergencyQuality && r.Value == e.cfg.Resources.EmergencyValue {
			fixed++
		}
	}
	if fixed < e.cfg.Resources.EmergencyCount {
		t.Errorf("emergency resources: got %d, want at least %d", fixed, e.cfg.Resources.EmergencyCount)
	}
}

// ---------- lookup and consumption ----------

func TestNearestAndWithin(t *testing.T) {
	e := testEnv(t)
	far := putResource(e, components.Vec3{X: 5}, 20)
	near := putResource(e, components.Vec3{X: 2}, 20)
	putResource(e, components.Vec3{X: 9}, 20)

	origin := components.Vec3{}
	r, ok := e.Nearest(origin)
	if !ok || r.ID != near {
		t.Errorf("Nearest: got id %d ok=%v, want id %d", r.ID, ok, near)
	}

	within := e.WithinInto(nil, origin, 5)
	if len(within) != 2 {
		t.Fatalf("WithinInto: got %d resources, want 2", len(within))
	}
	// Insertion order, and the boundary resource at exactly radius counts.
	if within[0].ID != far || within[1].ID != near {
		t.Errorf("WithinInto order: got [%d %d], want [%d %d]", within[0].ID, within[1].ID, far, near)
	}

	if e.HasWithin(origin, 1.5) {
		t.Error("HasWithin(1.5) should be false with the closest resource at 2")
	}
	if !e.HasWithin(origin, 2) {
		t.Error("HasWithin(2) should include the resource at exactly 2")
	}
}

func TestConsume(t *testing.T) {
	e := testEnv(t)
	id := putResource(e, components.Vec3{X: 4}, 30)
	putResource(e, components.Vec3{X: -4}, 30)

	r, ok := e.Consume(id)
	if !ok || r.ID != id || r.Value != 30 {
		t.Fatalf("Consume: got %+v ok=%v", r, ok)
	}
	if _, ok := e.Consume(id); ok {
		t.Error("second Consume of the same id should fail")
	}
	if e.Count() != 1 {
		t.Errorf("Count after consume: got %d, want 1", e.Count())
	}
	for _, left := range e.Resources() {
		if left.ID == id {
			t.Error("consumed resource still listed")
		}
	}
}

func TestEmptyPoolLookups(t *testing.T) {
	e := testEnv(t)
	if _, ok := e.Nearest(components.Vec3{}); ok {
		t.Error("Nearest on empty pool should report not found")
	}
	if e.HasWithin(components.Vec3{}, 100) {
		t.Error("HasWithin on empty pool should be false")
	}
}

// ---------- reset and snapshot ----------

func TestReset(t *testing.T) {
	e := testEnv(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		e.Advance(rng)
	}

	e.Reset()
	if e.Tick() != 0 {
		t.Errorf("Tick after reset: got %d, want 0", e.Tick())
	}
	if e.Count() != 0 {
		t.Errorf("Count after reset: got %d, want 0", e.Count())
	}
	if e.Weather() != Clear {
		t.Errorf("Weather after reset: got %v, want clear", e.Weather())
	}
	if e.Season() != Spring {
		t.Errorf("Season after reset: got %v, want spring", e.Season())
	}
}

func TestSnapshot(t *testing.T) {
	e := testEnv(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		e.Advance(rng)
	}

	snap := e.Snapshot()
	if snap.Tick != 5 {
		t.Errorf("snapshot tick: got %d, want 5", snap.Tick)
	}
	if snap.Season != "spring" {
		t.Errorf("snapshot season: got %q, want \"spring\"", snap.Season)
	}
	if snap.ResourceCount != e.Count() || len(snap.Resources) != e.Count() {
		t.Errorf("snapshot resources: count=%d len=%d, want %d",
			snap.ResourceCount, len(snap.Resources), e.Count())
	}
	if snap.MaxResources != 84 {
		t.Errorf("snapshot max resources: got %d, want 84", snap.MaxResources)
	}
}
