// Package nav builds flow fields over the arena floor. A field holds, for
// every cell, the travel cost to the nearest goal with obstacles, trails and
// the wall margin blocked out. The player autopilot steers by it.
package nav

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Unreachable is the integration value of blocked or cut-off cells
var Unreachable = math.Inf(1)

// Field is a square flow field centred on the arena origin, laid out on the
// XZ plane
type Field struct {
	half     float64
	cellSize float64
	width    int

	blocked     []bool
	cost        []float64
	integration []float64
}

type cell struct {
	x, z int
}

// 8-connected neighbourhood
var neighbors = [8]cell{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// NewField creates an open field covering an arena of the given side length
func NewField(size, cellSize float64) *Field {
	if cellSize <= 0 {
		cellSize = 1
	}
	width := int(math.Ceil(size / cellSize))
	if width < 1 {
		width = 1
	}
	n := width * width
	f := &Field{
		half:        size / 2,
		cellSize:    cellSize,
		width:       width,
		blocked:     make([]bool, n),
		cost:        make([]float64, n),
		integration: make([]float64, n),
	}
	for i := range f.cost {
		f.cost[i] = 1
		f.integration[i] = Unreachable
	}
	return f
}

// Width returns the number of cells along each side
func (f *Field) Width() int {
	return f.width
}

// CellSize returns the side length of one cell
func (f *Field) CellSize() float64 {
	return f.cellSize
}

// SetCost sets the traversal cost of the cell containing p. Costs below 1
// are raised to 1 so straight-line distance stays a lower bound.
func (f *Field) SetCost(p mgl64.Vec3, cost float64) {
	if i, ok := f.index(f.cellOf(p)); ok {
		f.cost[i] = math.Max(1, cost)
	}
}

// Block marks every cell whose centre lies within radius of p on the XZ
// plane. The cell containing p is always blocked.
func (f *Field) Block(p mgl64.Vec3, radius float64) {
	c := f.cellOf(p)
	if i, ok := f.index(c); ok {
		f.blocked[i] = true
	}
	span := int(math.Ceil(radius / f.cellSize))
	for dz := -span; dz <= span; dz++ {
		for dx := -span; dx <= span; dx++ {
			n := cell{c.x + dx, c.z + dz}
			i, ok := f.index(n)
			if !ok {
				continue
			}
			center := f.centerOf(n)
			if math.Hypot(center.X()-p.X(), center.Z()-p.Z()) <= radius {
				f.blocked[i] = true
			}
		}
	}
}

// BlockMargin blocks every cell whose centre is within margin of the arena
// edge
func (f *Field) BlockMargin(margin float64) {
	limit := f.half - margin
	for z := 0; z < f.width; z++ {
		for x := 0; x < f.width; x++ {
			c := f.centerOf(cell{x, z})
			if math.Abs(c.X()) > limit || math.Abs(c.Z()) > limit {
				f.blocked[z*f.width+x] = true
			}
		}
	}
}

// Blocked reports whether p lies in a blocked cell. Points outside the
// field are blocked.
func (f *Field) Blocked(p mgl64.Vec3) bool {
	i, ok := f.index(f.cellOf(p))
	return !ok || f.blocked[i]
}

// Generate fills the integration field with the cost from every cell to the
// nearest goal. Goals in blocked cells or outside the field are ignored.
// It returns the number of goals seeded.
func (f *Field) Generate(goals []mgl64.Vec3) int {
	for i := range f.integration {
		f.integration[i] = Unreachable
	}

	pq := &cellQueue{}
	seeded := 0
	for _, g := range goals {
		c := f.cellOf(g)
		i, ok := f.index(c)
		if !ok || f.blocked[i] || f.integration[i] == 0 {
			continue
		}
		f.integration[i] = 0
		heap.Push(pq, &queued{cell: c, cost: 0})
		seeded++
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*queued)
		ci, _ := f.index(cur.cell)
		if cur.cost > f.integration[ci] {
			continue // stale entry
		}
		for _, d := range neighbors {
			n := cell{cur.cell.x + d.x, cur.cell.z + d.z}
			ni, ok := f.index(n)
			if !ok || f.blocked[ni] {
				continue
			}
			step := f.cost[ni]
			if d.x != 0 && d.z != 0 {
				// No corner cutting past blocked cells
				a, _ := f.index(cell{cur.cell.x + d.x, cur.cell.z})
				b, _ := f.index(cell{cur.cell.x, cur.cell.z + d.z})
				if f.blocked[a] || f.blocked[b] {
					continue
				}
				step *= math.Sqrt2
			}
			if next := cur.cost + step; next < f.integration[ni] {
				f.integration[ni] = next
				heap.Push(pq, &queued{cell: n, cost: next})
			}
		}
	}
	return seeded
}

// CostAt returns the integration value at p in cell units
func (f *Field) CostAt(p mgl64.Vec3) float64 {
	i, ok := f.index(f.cellOf(p))
	if !ok {
		return Unreachable
	}
	return f.integration[i]
}

// FlowAt returns the unit XZ direction of steepest descent at p, or the
// zero vector at a goal, in a blocked cell or where no goal is reachable
func (f *Field) FlowAt(p mgl64.Vec3) mgl64.Vec3 {
	c := f.cellOf(p)
	i, ok := f.index(c)
	if !ok || f.blocked[i] || math.IsInf(f.integration[i], 1) {
		return mgl64.Vec3{}
	}

	here := f.integration[i]
	var dir mgl64.Vec3
	for _, d := range neighbors {
		ni, ok := f.index(cell{c.x + d.x, c.z + d.z})
		if !ok || f.integration[ni] >= here {
			continue
		}
		w := here - f.integration[ni]
		dir = dir.Add(mgl64.Vec3{float64(d.x), 0, float64(d.z)}.Normalize().Mul(w))
	}
	if dir.Len() == 0 {
		return mgl64.Vec3{}
	}
	return dir.Normalize()
}

func (f *Field) cellOf(p mgl64.Vec3) cell {
	return cell{
		x: int(math.Floor((p.X() + f.half) / f.cellSize)),
		z: int(math.Floor((p.Z() + f.half) / f.cellSize)),
	}
}

func (f *Field) centerOf(c cell) mgl64.Vec3 {
	return mgl64.Vec3{
		(float64(c.x)+0.5)*f.cellSize - f.half,
		0,
		(float64(c.z)+0.5)*f.cellSize - f.half,
	}
}

func (f *Field) index(c cell) (int, bool) {
	if c.x < 0 || c.x >= f.width || c.z < 0 || c.z >= f.width {
		return 0, false
	}
	return c.z*f.width + c.x, true
}

type queued struct {
	cell  cell
	cost  float64
	index int
}

// cellQueue is a min-heap on cost
type cellQueue []*queued

func (q cellQueue) Len() int { return len(q) }

func (q cellQueue) Less(i, j int) bool {
	return q[i].cost < q[j].cost
}

func (q cellQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *cellQueue) Push(x any) {
	item := x.(*queued)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *cellQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
