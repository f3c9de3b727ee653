package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
)

// DefaultCellSize is the edge length of a grid cell in world units
const DefaultCellSize = 20.0

// Locatable is anything that can be filed in the grid. ok is false when the
// item has no usable position (removed mid-tick, not yet spawned, ...).
type Locatable interface {
	Location() (pos mgl64.Vec3, ok bool)
}

// Entry is one (entity-ref, id) pair stored in a cell
type Entry struct {
	Item     Locatable
	ID       core.EntityID
	Position mgl64.Vec3
}

type cellKey struct {
	x, z int
}

type cell [core.NumCategories][]Entry

// Grid is a uniform hash grid over the XZ plane. It is a broad-phase filter:
// a neighbour query returns everything in the 3x3 block of cells around a
// point and callers must still run an exact test.
//
// The grid is never patched incrementally. Every rebuild starts with Clear
// and re-inserts every live entity.
type Grid struct {
	cellSize float64
	cells    map[cellKey]*cell
	count    int

	builtAt uint64
	built   bool
}

// NewGrid creates an empty grid. A non-positive cell size falls back to
// DefaultCellSize.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]*cell),
	}
}

// CellSize returns the configured cell edge length
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Clear resets all cells and forgets the build stamp
func (g *Grid) Clear() {
	clear(g.cells)
	g.count = 0
	g.built = false
}

// MarkBuilt records the tick the grid contents correspond to
func (g *Grid) MarkBuilt(tick uint64) {
	g.builtAt = tick
	g.built = true
}

// Built reports whether the grid holds a build that has not been cleared
func (g *Grid) Built() bool {
	return g.built
}

// FreshAt reports whether the grid was rebuilt during the given tick
func (g *Grid) FreshAt(tick uint64) bool {
	return g.built && g.builtAt == tick
}

// Insert files item under the cell containing its current position.
// It is a no-op for a nil item, an item without a position, or a position
// that is not finite.
func (g *Grid) Insert(item Locatable, category core.Category, id core.EntityID) {
	if item == nil || int(category) >= core.NumCategories {
		return
	}
	pos, ok := item.Location()
	if !ok || !core.Finite(pos) {
		return
	}

	key := g.keyFor(pos)
	c := g.cells[key]
	if c == nil {
		c = &cell{}
		g.cells[key] = c
	}
	c[category] = append(c[category], Entry{Item: item, ID: id, Position: pos})
	g.count++
}

// QueryNeighbors returns the entries of a category in the 3x3 block of cells
// centred on pos's cell. Order is deterministic: cells by x then z, entries
// in insertion order.
func (g *Grid) QueryNeighbors(pos mgl64.Vec3, category core.Category) []Entry {
	if int(category) >= core.NumCategories || !core.Finite(pos) {
		return nil
	}

	center := g.keyFor(pos)
	var out []Entry
	for x := center.x - 1; x <= center.x+1; x++ {
		for z := center.z - 1; z <= center.z+1; z++ {
			c := g.cells[cellKey{x: x, z: z}]
			if c == nil {
				continue
			}
			out = append(out, c[category]...)
		}
	}
	return out
}

// QueryRadius narrows QueryNeighbors to entries whose filed position lies
// within radius of pos on the XZ plane. Radii larger than one cell are
// clipped by the 3x3 block.
func (g *Grid) QueryRadius(pos mgl64.Vec3, radius float64, category core.Category) []Entry {
	candidates := g.QueryNeighbors(pos, category)
	out := candidates[:0]
	for _, e := range candidates {
		if core.HorizontalDistance(pos, e.Position) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries across all cells and categories
func (g *Grid) Count() int {
	return g.count
}

// CellCount returns the number of non-empty cells
func (g *Grid) CellCount() int {
	return len(g.cells)
}

func (g *Grid) keyFor(pos mgl64.Vec3) cellKey {
	return cellKey{
		x: int(math.Floor(pos.X() / g.cellSize)),
		z: int(math.Floor(pos.Z() / g.cellSize)),
	}
}
