package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/vivarium/components"
)

func gridWorld() (*ecs.World, *ecs.Map1[components.Position]) {
	w := ecs.NewWorld()
	return w, ecs.NewMap1[components.Position](w)
}

func spawnAt(posMap *ecs.Map1[components.Position], x, z float64) ecs.Entity {
	return posMap.NewEntity(&components.Position{Vec3: components.Vec3{X: x, Z: z}})
}

func TestQueryRadius(t *testing.T) {
	_, posMap := gridWorld()
	grid := NewSpatialGrid(20, 10)

	self := spawnAt(posMap, 0, 0)
	near := spawnAt(posMap, 3, 0)
	edge := spawnAt(posMap, 0, 4.9)
	far := spawnAt(posMap, 9, 0)

	for _, e := range []ecs.Entity{self, near, edge, far} {
		p := posMap.Get(e)
		grid.Insert(e, p.X, p.Z)
	}

	found := grid.QueryRadiusInto(nil, 0, 0, 5, self, posMap)
	if len(found) != 2 {
		t.Fatalf("neighbors: got %d, want 2", len(found))
	}

	byEntity := make(map[ecs.Entity]Neighbor, len(found))
	for _, n := range found {
		byEntity[n.E] = n
	}
	if _, ok := byEntity[self]; ok {
		t.Error("query must exclude the querying entity")
	}
	if _, ok := byEntity[far]; ok {
		t.Error("entity at distance 9 should be outside radius 5")
	}

	n, ok := byEntity[near]
	if !ok {
		t.Fatal("entity at distance 3 missing")
	}
	if math.Abs(n.DistSq-9) > 1e-12 || math.Abs(n.DX-3) > 1e-12 || n.DZ != 0 {
		t.Errorf("neighbor deltas: %+v", n)
	}
	if e, ok := byEntity[edge]; !ok || math.Abs(e.DistSq-24.01) > 1e-9 {
		t.Errorf("edge neighbor: %+v ok=%v", e, ok)
	}
}

func TestQueryRadiusNoExclude(t *testing.T) {
	_, posMap := gridWorld()
	grid := NewSpatialGrid(20, 10)

	a := spawnAt(posMap, 1, 0)
	grid.Insert(a, 1, 0)

	// The zero entity never matches a live one, so everything is returned.
	found := grid.QueryRadiusInto(nil, 0, 0, 5, ecs.Entity{}, posMap)
	if len(found) != 1 || found[0].E != a {
		t.Errorf("got %+v, want the single entity", found)
	}
}

func TestQueryAcrossCells(t *testing.T) {
	_, posMap := gridWorld()
	// Small cells force the query to cover several of them.
	grid := NewSpatialGrid(20, 2)

	a := spawnAt(posMap, -4, 0)
	b := spawnAt(posMap, 4.5, 0)
	grid.Insert(a, -4, 0)
	grid.Insert(b, 4.5, 0)

	found := grid.QueryRadiusInto(nil, 0, 0, 5, ecs.Entity{}, posMap)
	if len(found) != 2 {
		t.Fatalf("cross-cell query: got %d neighbors, want 2", len(found))
	}
}

func TestQueryResultCap(t *testing.T) {
	_, posMap := gridWorld()
	grid := NewSpatialGrid(20, 10)

	for i := 0; i < MaxQueryResults+50; i++ {
		e := spawnAt(posMap, 1, 1)
		grid.Insert(e, 1, 1)
	}

	found := grid.QueryRadiusInto(nil, 0, 0, 5, ecs.Entity{}, posMap)
	if len(found) != MaxQueryResults {
		t.Errorf("capped query: got %d, want %d", len(found), MaxQueryResults)
	}
}

func TestInsertClampsOutOfBounds(t *testing.T) {
	_, posMap := gridWorld()
	grid := NewSpatialGrid(20, 10)

	// Position beyond the bound lands in the edge cell but keeps its true
	// coordinates for the distance check.
	e := spawnAt(posMap, 22, 0)
	grid.Insert(e, 22, 0)

	found := grid.QueryRadiusInto(nil, 19, 0, 4, ecs.Entity{}, posMap)
	if len(found) != 1 {
		t.Fatalf("clamped entity not found: %d results", len(found))
	}
	if math.Abs(found[0].DistSq-9) > 1e-12 {
		t.Errorf("distance to clamped entity: got %v, want 9", found[0].DistSq)
	}
}

func TestClear(t *testing.T) {
	_, posMap := gridWorld()
	grid := NewSpatialGrid(20, 10)

	e := spawnAt(posMap, 0, 0)
	grid.Insert(e, 0, 0)
	grid.Clear()

	if found := grid.QueryRadiusInto(nil, 0, 0, 5, ecs.Entity{}, posMap); len(found) != 0 {
		t.Errorf("grid should be empty after Clear: %d results", len(found))
	}
}
