package nav

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
	"neontrail/internal/shape"
	"neontrail/internal/world"
)

// Options tunes a field built from a world
type Options struct {
	CellSize float64
	// WallMargin blocks a band this wide along the arena edge
	WallMargin float64
	// Clearance pads obstacles, trails and other bikes
	Clearance float64
	// Lookahead is how far Steer probes along each candidate heading
	Lookahead float64
}

// DefaultOptions returns settings suited to the default arena
func DefaultOptions() Options {
	return Options{
		CellSize:   10,
		WallMargin: 15,
		Clearance:  4,
		Lookahead:  30,
	}
}

// FromWorld builds a field that leads self toward the nearest powerup.
// Self's own newest trail segments are left open so the field does not wall
// in the bike it is steering.
func FromWorld(w *world.World, self *world.Bike, opts Options) *Field {
	f := NewField(w.Config().Size, opts.CellSize)
	f.BlockMargin(opts.WallMargin)

	for _, o := range w.Obstacles {
		if o.Boundary {
			continue
		}
		f.Block(o.Position, Footprint(o.Shape)+opts.Clearance)
	}

	near := 2 * opts.CellSize
	for _, b := range w.Bikes() {
		if b != self {
			f.Block(b.Pose.Position, opts.Clearance)
		}
		for _, seg := range b.Trail.Segments() {
			if b == self && seg.Position.Sub(b.Pose.Position).Len() < near {
				continue
			}
			f.Block(seg.Position, opts.Clearance)
		}
	}

	goals := make([]mgl64.Vec3, 0, len(w.Powerups))
	for _, p := range w.Powerups {
		goals = append(goals, p.Position)
	}
	f.Generate(goals)
	return f
}

// Footprint returns the XZ radius an obstacle shape covers
func Footprint(s shape.Shape) float64 {
	switch s := s.(type) {
	case shape.Box:
		return math.Hypot(s.Size.Width, s.Size.Depth) / 2
	case shape.Cylinder:
		return math.Max(s.RadiusTop, s.RadiusBottom)
	case shape.Tetrahedron:
		r := s.Radius
		for _, v := range s.Vertices {
			r = math.Max(r, math.Hypot(v.X(), v.Z()))
		}
		return r
	case shape.Sphere:
		return s.Radius
	}
	return shape.MinObstacleDistance
}

var candidates = [3]core.Turn{core.TurnStraight, core.TurnLeft, core.TurnRight}

// Steer picks a turn for pose. Candidates whose probe crosses a blocked cell
// are ruled out; of the rest the one ending on the lowest cost wins, with
// straight preferred on ties. With every direction blocked it keeps straight.
func Steer(f *Field, pose core.Pose, lookahead float64) core.Turn {
	best, bestCost, found := core.TurnStraight, Unreachable, false
	for _, t := range candidates {
		cost, ok := probe(f, pose.Position, pose.Heading.Turned(t).Vec(), lookahead)
		if !ok {
			continue
		}
		if !found || cost < bestCost {
			best, bestCost, found = t, cost, true
		}
	}
	return best
}

func probe(f *Field, from, dir mgl64.Vec3, lookahead float64) (float64, bool) {
	step := f.CellSize() / 2
	end := from
	for d := step; d <= lookahead; d += step {
		end = from.Add(dir.Mul(d))
		if f.Blocked(end) {
			return 0, false
		}
	}
	return f.CostAt(end), true
}
