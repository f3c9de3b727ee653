package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/ai/learning"
	"neontrail/internal/core"
	"neontrail/internal/shape"
	"neontrail/internal/trail"
)

// BikeSize is the collision box shared by the player and AI bikes
var BikeSize = core.Size{Width: 4, Height: 6, Depth: 0.5}

// TrailSize is the collision box of a single trail segment
var TrailSize = core.Size{Width: 2, Height: 6, Depth: 0.5}

// Bike is a light cycle, human or AI controlled
type Bike struct {
	ID    core.EntityID
	Kind  core.EntityKind
	Pose  core.Pose
	Speed float64
	Trail *trail.Trail

	// AI only
	Generation int
	Traits     learning.Traits

	Score   int
	Pickups int
	Crashes int
}

// Location implements spatial.Locatable
func (b *Bike) Location() (mgl64.Vec3, bool) {
	if b == nil {
		return mgl64.Vec3{}, false
	}
	return b.Pose.Position, true
}

// Box returns the bike's collision box at its current pose
func (b *Bike) Box() core.Box {
	return core.Box{Center: b.Pose.Position, Size: BikeSize, Yaw: b.Pose.Heading.Yaw()}
}

// IsAI reports whether the bike is computer controlled
func (b *Bike) IsAI() bool {
	return b != nil && b.Kind == core.EntityKindAI
}

// SegmentBox returns the collision box of a trail segment
func SegmentBox(seg trail.Segment) core.Box {
	return core.Box{Center: seg.Position, Size: TrailSize, Yaw: seg.Yaw}
}

// Obstacle is static arena geometry. Its collision shape is classified once
// when the obstacle is created and never changes.
type Obstacle struct {
	ID             core.EntityID
	Primitive      shape.Primitive
	SizeMultiplier float64
	Position       mgl64.Vec3
	Yaw            float64
	// Boundary walls survive round resets and are handled by the wall margin
	// check instead of the obstacle pass
	Boundary bool
	Shape    shape.Shape
}

// NewObstacle builds an obstacle and caches its collision shape
func NewObstacle(id core.EntityID, prim shape.Primitive, sizeMultiplier float64, pos mgl64.Vec3, yaw float64) *Obstacle {
	return &Obstacle{
		ID:             id,
		Primitive:      prim,
		SizeMultiplier: sizeMultiplier,
		Position:       pos,
		Yaw:            yaw,
		Shape:          shape.Classify(prim, sizeMultiplier),
	}
}

// Location implements spatial.Locatable
func (o *Obstacle) Location() (mgl64.Vec3, bool) {
	if o == nil {
		return mgl64.Vec3{}, false
	}
	return o.Position, true
}

// Multiplier returns the size multiplier, treating unset values as 1
func (o *Obstacle) Multiplier() float64 {
	if o == nil || !(o.SizeMultiplier > 0) {
		return 1
	}
	return o.SizeMultiplier
}

// Powerup is a collectible that lengthens the collector's trail
type Powerup struct {
	ID       core.EntityID
	Position mgl64.Vec3
	Radius   float64
}

// Location implements spatial.Locatable
func (p *Powerup) Location() (mgl64.Vec3, bool) {
	if p == nil {
		return mgl64.Vec3{}, false
	}
	return p.Position, true
}

// PortalKind names the portal a bike approached
type PortalKind uint8

const (
	PortalStart PortalKind = iota
	PortalExit
	PortalMetaverse
)

func (k PortalKind) String() string {
	switch k {
	case PortalStart:
		return "start"
	case PortalExit:
		return "exit"
	case PortalMetaverse:
		return "metaverse"
	}
	return "unknown"
}

// MarshalText renders the portal kind for JSON consumers
func (k PortalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Portal is a registered navigation zone. Only the centre of its bounds
// matters for interaction.
type Portal struct {
	ID     core.EntityID
	Kind   PortalKind
	Bounds core.AABB3D
}
