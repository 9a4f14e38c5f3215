// Package systems provides spatial indexing and movement integration.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/vivarium/components"
)

// Neighbor holds a nearby entity with precomputed spatial data.
// This avoids recomputing deltas and distances in perception code.
type Neighbor struct {
	E      ecs.Entity
	DX, DZ float64 // delta from query origin
	DistSq float64 // squared distance (avoid sqrt in hot path)
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid over
// the bounded arena [-bound, +bound] on x and z. Positions outside the
// bound clamp into the edge cells.
type SpatialGrid struct {
	cellSize float64
	bound    float64
	cols     int
	cells    [][]ecs.Entity // flat grid of entity lists
}

// NewSpatialGrid creates a spatial grid covering the arena.
func NewSpatialGrid(bound, cellSize float64) *SpatialGrid {
	cols := int(2*bound/cellSize) + 1

	cells := make([][]ecs.Entity, cols*cols)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		bound:    bound,
		cols:     cols,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, z float64) {
	idx := g.cellIndex(x, z)
	g.cells[idx] = append(g.cells[idx], e)
}

// MaxQueryResults caps the number of neighbors returned by spatial queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// QueryRadiusInto finds entities within radius and appends to dst (up to
// MaxQueryResults). Returns the updated slice. Reuse dst across calls to
// avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, z, radius float64, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []Neighbor {
	cellRadius := int(radius/g.cellSize) + 1

	centerCol := g.axisIndex(x)
	centerRow := g.axisIndex(z)

	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.cols {
				continue
			}

			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude {
					continue
				}

				pos := posMap.Get(e)
				if pos == nil {
					continue
				}

				dx := pos.X - x
				dz := pos.Z - z
				distSq := dx*dx + dz*dz

				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, DX: dx, DZ: dz, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, z float64) int {
	return g.axisIndex(z)*g.cols + g.axisIndex(x)
}

// axisIndex maps one coordinate to a clamped column/row index.
func (g *SpatialGrid) axisIndex(v float64) int {
	i := int((v + g.bound) / g.cellSize)
	if i < 0 {
		return 0
	}
	if i >= g.cols {
		return g.cols - 1
	}
	return i
}
