package spatial

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
)

type point struct {
	pos     mgl64.Vec3
	missing bool
}

func (p *point) Location() (mgl64.Vec3, bool) {
	if p == nil || p.missing {
		return mgl64.Vec3{}, false
	}
	return p.pos, true
}

func TestGridBasicOperations(t *testing.T) {
	g := NewGrid(20)

	p := &point{pos: mgl64.Vec3{10, 3, 10}}
	g.Insert(p, core.CategoryAIs, 7)

	results := g.QueryNeighbors(mgl64.Vec3{12, 0, 12}, core.CategoryAIs)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].ID != 7 {
		t.Fatalf("Expected entity ID 7, got %d", results[0].ID)
	}
	if results[0].Item != p {
		t.Fatalf("Expected stored item to be the inserted pointer")
	}

	// Other categories stay empty
	if got := g.QueryNeighbors(mgl64.Vec3{12, 0, 12}, core.CategoryTrails); len(got) != 0 {
		t.Fatalf("Expected 0 trail results, got %d", len(got))
	}

	g.Clear()
	if got := g.QueryNeighbors(mgl64.Vec3{12, 0, 12}, core.CategoryAIs); len(got) != 0 {
		t.Fatalf("Expected 0 results after clear, got %d", len(got))
	}
	if g.Count() != 0 {
		t.Fatalf("Expected empty grid after clear, got %d entries", g.Count())
	}
}

func TestGridNeighborBlock(t *testing.T) {
	g := NewGrid(20)

	// Query point sits in cell (0,0). Everything in cells -1..1 must be
	// returned, cells two away must not.
	inside := []mgl64.Vec3{
		{-19, 0, -19}, // cell (-1,-1)
		{39, 0, 0},    // cell (1,0)
		{0, 0, 39.9},  // cell (0,1)
		{-0.5, 0, 25}, // cell (-1,1)
	}
	outside := []mgl64.Vec3{
		{40, 0, 0},   // cell (2,0)
		{0, 0, -21},  // cell (0,-2)
		{-41, 0, 10}, // cell (-3,0)
	}

	id := core.EntityID(1)
	for _, pos := range inside {
		g.Insert(&point{pos: pos}, core.CategoryTrails, id)
		id++
	}
	for _, pos := range outside {
		g.Insert(&point{pos: pos}, core.CategoryTrails, id)
		id++
	}

	results := g.QueryNeighbors(mgl64.Vec3{5, 0, 5}, core.CategoryTrails)
	if len(results) != len(inside) {
		t.Fatalf("Expected %d neighbours, got %d", len(inside), len(results))
	}

	found := make(map[core.EntityID]bool)
	for _, r := range results {
		found[r.ID] = true
	}
	for i := range inside {
		if !found[core.EntityID(i+1)] {
			t.Fatalf("Expected to find entity %d in the 3x3 block", i+1)
		}
	}
}

func TestGridNegativeCoordinatesUseFloor(t *testing.T) {
	g := NewGrid(20)

	// -0.1 is cell -1, so a query at x=-25 (cell -2) must still see it
	g.Insert(&point{pos: mgl64.Vec3{-0.1, 0, 0}}, core.CategoryPowerups, 1)

	if got := g.QueryNeighbors(mgl64.Vec3{-25, 0, 0}, core.CategoryPowerups); len(got) != 1 {
		t.Fatalf("Expected 1 result across the origin, got %d", len(got))
	}
	if got := g.QueryNeighbors(mgl64.Vec3{-45, 0, 0}, core.CategoryPowerups); len(got) != 0 {
		t.Fatalf("Expected 0 results three cells away, got %d", len(got))
	}
}

func TestGridInsertIgnoresAbsentItems(t *testing.T) {
	g := NewGrid(20)

	var nilPoint *point
	g.Insert(nil, core.CategoryAIs, 1)
	g.Insert(nilPoint, core.CategoryAIs, 2)
	g.Insert(&point{missing: true}, core.CategoryAIs, 3)
	g.Insert(&point{pos: mgl64.Vec3{0, 0, 0}}, core.Category(200), 4)

	if g.Count() != 0 {
		t.Fatalf("Expected no entries, got %d", g.Count())
	}
}

func TestGridRadiusQuery(t *testing.T) {
	g := NewGrid(20)
	g.Insert(&point{pos: mgl64.Vec3{0, 0, 0}}, core.CategoryPowerups, 1)
	g.Insert(&point{pos: mgl64.Vec3{5, 0, 0}}, core.CategoryPowerups, 2)
	g.Insert(&point{pos: mgl64.Vec3{15, 0, 0}}, core.CategoryPowerups, 3)

	results := g.QueryRadius(mgl64.Vec3{0, 0, 0}, 10, core.CategoryPowerups)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results within radius, got %d", len(results))
	}
	for _, r := range results {
		if r.ID == 3 {
			t.Fatalf("Entity 3 should not be within radius")
		}
	}
}

func TestGridFreshness(t *testing.T) {
	g := NewGrid(0)
	if g.CellSize() != DefaultCellSize {
		t.Fatalf("Expected default cell size, got %f", g.CellSize())
	}
	if g.FreshAt(0) {
		t.Fatalf("New grid must not report as fresh")
	}

	g.MarkBuilt(4)
	if !g.FreshAt(4) || g.FreshAt(5) {
		t.Fatalf("Expected grid fresh at tick 4 only")
	}

	if !g.Built() {
		t.Fatalf("Expected grid to report a build")
	}

	g.Clear()
	if g.FreshAt(4) || g.Built() {
		t.Fatalf("Clear must drop the build stamp")
	}
}
