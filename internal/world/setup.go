package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
	"neontrail/internal/shape"
	"neontrail/internal/trail"
)

const (
	wallHeight    = 20.0
	wallThickness = 2.0
	// obstacles keep this much clearance (plus 10 per size unit) from bikes
	obstacleClearance = 50.0
	// powerups keep 15 per size unit away from obstacles
	powerupClearance = 15.0
	edgeInset        = 40.0
	respawnInset     = 100.0
	portalInset      = 30.0
)

var portalHalfExtents = mgl64.Vec3{17, 17, 2}

// AddBoundaryWalls creates the four perimeter walls. Calling it again is a
// no-op because walls persist across rounds.
func (w *World) AddBoundaryWalls() {
	for _, o := range w.Obstacles {
		if o.Boundary {
			return
		}
	}

	half := w.HalfSize()
	size := w.cfg.Size
	walls := []struct {
		prim shape.BoxPrimitive
		pos  mgl64.Vec3
	}{
		{shape.BoxPrimitive{Width: size, Height: wallHeight, Depth: wallThickness}, mgl64.Vec3{0, wallHeight / 2, -half}},
		{shape.BoxPrimitive{Width: size, Height: wallHeight, Depth: wallThickness}, mgl64.Vec3{0, wallHeight / 2, half}},
		{shape.BoxPrimitive{Width: wallThickness, Height: wallHeight, Depth: size}, mgl64.Vec3{half, wallHeight / 2, 0}},
		{shape.BoxPrimitive{Width: wallThickness, Height: wallHeight, Depth: size}, mgl64.Vec3{-half, wallHeight / 2, 0}},
	}
	for _, wall := range walls {
		o := NewObstacle(w.NextID(), wall.prim, 1, wall.pos, 0)
		o.Boundary = true
		w.Obstacles = append(w.Obstacles, o)
	}
	w.Touch()
}

// SpawnPlayer places the player at the spawn point heading +X with a fresh
// trail
func (w *World) SpawnPlayer() *Bike {
	w.Player = &Bike{
		ID:   core.PlayerID,
		Kind: core.EntityKindPlayer,
		Pose: core.Pose{
			Position: mgl64.Vec3{0, w.cfg.SpawnHeight, -w.cfg.Size / 4},
			Heading:  core.HeadingPosX,
			Owner:    core.PlayerID,
		},
		Speed: w.cfg.PlayerSpeed,
		Trail: trail.New(core.PlayerID, w.cfg.Trail),
	}
	w.Touch()
	return w.Player
}

// SpawnAI adds an AI bike of the current generation. Later generations are
// faster. Traits are drawn from the shared knowledge base.
func (w *World) SpawnAI() *Bike {
	gen := w.Learning.Generation()
	id := w.NextID()
	index := len(w.AIs)

	b := &Bike{
		ID:   id,
		Kind: core.EntityKindAI,
		Pose: core.Pose{
			Position: mgl64.Vec3{w.cfg.Size / 4, w.cfg.SpawnHeight, float64(index) * 10},
			Heading:  core.HeadingNegX,
			Owner:    id,
		},
		Speed:      w.cfg.AISpeedBase * (1 + float64(gen-1)*0.05),
		Trail:      trail.New(id, w.cfg.Trail),
		Generation: gen,
		Traits:     w.Learning.Spawn(w.Rand),
	}
	w.AIs = append(w.AIs, b)
	w.Touch()
	return b
}

// Respawn clears b's trail and drops it at a random point of the inset arena
// with a random axis heading. Learned traits are kept.
func (w *World) Respawn(b *Bike) []trail.Event {
	if b == nil {
		return nil
	}
	events := b.Trail.Clear()
	events = append(events, b.Trail.Reset()...)

	span := w.cfg.Size - respawnInset
	b.Pose.Position = mgl64.Vec3{
		(w.Rand.Float64() - 0.5) * span,
		w.cfg.SpawnHeight,
		(w.Rand.Float64() - 0.5) * span,
	}
	b.Pose.Heading = core.Headings[w.Rand.Intn(len(core.Headings))]
	w.Touch()
	return events
}

// GenerateObstacles places up to n random interior obstacles and returns how
// many fit. An obstacle that cannot find a clear spot within the attempt
// budget is skipped.
func (w *World) GenerateObstacles(n int) int {
	placed := 0
	for i := 0; i < n; i++ {
		if _, err := w.placeObstacle(); err == nil {
			placed++
		}
	}
	if placed > 0 {
		w.Touch()
	}
	return placed
}

func (w *World) placeObstacle() (*Obstacle, error) {
	m := 1 + w.Rand.Float64()*4

	var prim shape.Primitive
	var lift float64
	switch w.Rand.Intn(3) {
	case 0:
		prim = shape.BoxPrimitive{Width: 10 * m, Height: 15 * m, Depth: 10 * m}
		lift = 15 * m / 2
	case 1:
		prim = shape.CylinderPrimitive{RadiusTop: 5 * m, RadiusBottom: 5 * m, Height: 20 * m, RadialSegments: 8}
		lift = 20 * m / 2
	default:
		prim = shape.TetrahedronPrimitive{Radius: 10 * m}
		lift = 10 * m / 2
	}

	clearance := obstacleClearance + 10*m
	span := w.cfg.Size - edgeInset
	for attempt := 0; attempt < w.cfg.PlacementAttempts; attempt++ {
		p := mgl64.Vec3{(w.Rand.Float64() - 0.5) * span, 0, (w.Rand.Float64() - 0.5) * span}
		if !w.clearOfBikes(p, clearance) {
			continue
		}
		o := NewObstacle(w.NextID(), prim, m, mgl64.Vec3{p.X(), lift, p.Z()}, 0)
		w.Obstacles = append(w.Obstacles, o)
		return o, nil
	}
	return nil, fmt.Errorf("no clear spot for obstacle after %d attempts", w.cfg.PlacementAttempts)
}

func (w *World) clearOfBikes(p mgl64.Vec3, clearance float64) bool {
	for _, b := range w.Bikes() {
		if p.Sub(b.Pose.Position).Len() <= clearance {
			return false
		}
	}
	return true
}

// PlacePowerup drops one powerup at a random spot clear of obstacles
func (w *World) PlacePowerup() (*Powerup, error) {
	span := w.cfg.Size - edgeInset
	for attempt := 0; attempt < w.cfg.PlacementAttempts; attempt++ {
		p := mgl64.Vec3{(w.Rand.Float64() - 0.5) * span, 0, (w.Rand.Float64() - 0.5) * span}
		if !w.clearOfObstacles(p) {
			continue
		}
		pu := &Powerup{
			ID:       w.NextID(),
			Position: mgl64.Vec3{p.X(), 3, p.Z()},
			Radius:   w.cfg.PowerupRadius,
		}
		w.Powerups = append(w.Powerups, pu)
		w.Touch()
		return pu, nil
	}
	return nil, fmt.Errorf("no clear spot for powerup after %d attempts", w.cfg.PlacementAttempts)
}

// AddPowerup registers a powerup at an explicit position
func (w *World) AddPowerup(pos mgl64.Vec3) *Powerup {
	pu := &Powerup{ID: w.NextID(), Position: pos, Radius: w.cfg.PowerupRadius}
	w.Powerups = append(w.Powerups, pu)
	w.Touch()
	return pu
}

// AddObstacle registers an interior obstacle at an explicit position
func (w *World) AddObstacle(prim shape.Primitive, sizeMultiplier float64, pos mgl64.Vec3) *Obstacle {
	o := NewObstacle(w.NextID(), prim, sizeMultiplier, pos, 0)
	w.Obstacles = append(w.Obstacles, o)
	w.Touch()
	return o
}

func (w *World) clearOfObstacles(p mgl64.Vec3) bool {
	for _, o := range w.Obstacles {
		d := math.Hypot(p.X()-o.Position.X(), p.Z()-o.Position.Z())
		if d < powerupClearance*o.Multiplier() {
			return false
		}
	}
	return true
}

// RegisterPortal adds a portal zone with the given bounds
func (w *World) RegisterPortal(kind PortalKind, bounds core.AABB3D) *Portal {
	p := &Portal{ID: w.NextID(), Kind: kind, Bounds: bounds}
	w.Portals = append(w.Portals, p)
	return p
}

// RegisterDefaultPortals places the start portal on the player spawn and the
// exit and metaverse portals in the two far corners
func (w *World) RegisterDefaultPortals() {
	half := w.HalfSize()
	y := w.cfg.SpawnHeight
	w.RegisterPortal(PortalStart, core.AABBFromCenter(mgl64.Vec3{0, y, -w.cfg.Size / 4}, portalHalfExtents))
	w.RegisterPortal(PortalExit, core.AABBFromCenter(mgl64.Vec3{half - portalInset, y, -half + portalInset}, portalHalfExtents))
	w.RegisterPortal(PortalMetaverse, core.AABBFromCenter(mgl64.Vec3{-half + portalInset, y, -half + portalInset}, portalHalfExtents))
}

// Setup populates a round: walls (kept if present), player, first AI,
// obstacles, powerups and portals. restart selects the smaller restart
// counts.
func (w *World) Setup(restart bool) error {
	obstacles, powerups := w.cfg.InitialObstacles, w.cfg.InitialPowerups
	if restart {
		obstacles, powerups = w.cfg.RestartObstacles, w.cfg.RestartPowerups
	}

	w.AddBoundaryWalls()
	w.SpawnPlayer()
	w.SpawnAI()
	w.GenerateObstacles(obstacles)

	for i := 0; i < powerups; i++ {
		if _, err := w.PlacePowerup(); err != nil {
			return fmt.Errorf("failed to place powerup %d of %d: %w", i+1, powerups, err)
		}
	}

	if len(w.Portals) == 0 {
		w.RegisterDefaultPortals()
	}
	return nil
}

// Teardown releases everything a round created except the boundary walls
// and portals. Every trail segment still alive is reported as evicted so a
// renderer can drop its meshes. The knowledge base goes back to defaults.
func (w *World) Teardown() []trail.Event {
	var events []trail.Event
	for _, b := range w.Bikes() {
		events = append(events, b.Trail.Clear()...)
	}
	w.Player = nil
	w.AIs = nil

	walls := w.Obstacles[:0]
	for _, o := range w.Obstacles {
		if o.Boundary {
			walls = append(walls, o)
		}
	}
	clear(w.Obstacles[len(walls):])
	w.Obstacles = walls

	w.Powerups = nil
	w.Grid.Clear()
	w.Learning.Reset()
	w.Touch()
	return events
}
