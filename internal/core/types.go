package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EntityID identifies a bike, trail segment, obstacle or powerup within a world
type EntityID uint64

// PlayerID is the fixed identifier of the human-controlled bike
const PlayerID EntityID = 1

// EntityKind distinguishes who controls a bike
type EntityKind uint8

const (
	EntityKindPlayer EntityKind = iota
	EntityKindAI
)

func (k EntityKind) String() string {
	switch k {
	case EntityKindPlayer:
		return "player"
	case EntityKindAI:
		return "ai"
	}
	return "unknown"
}

// Category is the per-cell bucket an entity is filed under in the spatial grid
type Category uint8

const (
	CategoryPlayers Category = iota
	CategoryAIs
	CategoryTrails
	CategoryObstacles
	CategoryPowerups

	categoryCount
)

// NumCategories is the number of spatial buckets each grid cell carries
const NumCategories = int(categoryCount)

func (c Category) String() string {
	switch c {
	case CategoryPlayers:
		return "players"
	case CategoryAIs:
		return "ais"
	case CategoryTrails:
		return "trails"
	case CategoryObstacles:
		return "obstacles"
	case CategoryPowerups:
		return "powerups"
	}
	return "unknown"
}

// Heading is one of the four axis-aligned directions a bike can travel.
// Turns are always 90 degrees.
type Heading uint8

const (
	HeadingPosX Heading = iota
	HeadingPosZ
	HeadingNegX
	HeadingNegZ
)

// Headings lists every legal heading
var Headings = [4]Heading{HeadingPosX, HeadingPosZ, HeadingNegX, HeadingNegZ}

var headingVectors = [4]mgl64.Vec3{
	HeadingPosX: {1, 0, 0},
	HeadingPosZ: {0, 0, 1},
	HeadingNegX: {-1, 0, 0},
	HeadingNegZ: {0, 0, -1},
}

// Vec returns the unit direction vector
func (h Heading) Vec() mgl64.Vec3 {
	return headingVectors[h&3]
}

// Left rotates the heading 90 degrees counter-clockwise when viewed from +Y:
// (dx, 0, dz) becomes (dz, 0, -dx).
func (h Heading) Left() Heading {
	switch h & 3 {
	case HeadingPosX:
		return HeadingNegZ
	case HeadingNegZ:
		return HeadingNegX
	case HeadingNegX:
		return HeadingPosZ
	default:
		return HeadingPosX
	}
}

// Right rotates the heading 90 degrees clockwise when viewed from +Y:
// (dx, 0, dz) becomes (-dz, 0, dx).
func (h Heading) Right() Heading {
	switch h & 3 {
	case HeadingPosX:
		return HeadingPosZ
	case HeadingPosZ:
		return HeadingNegX
	case HeadingNegX:
		return HeadingNegZ
	default:
		return HeadingPosX
	}
}

// Turned applies a turn to the heading
func (h Heading) Turned(t Turn) Heading {
	switch t {
	case TurnLeft:
		return h.Left()
	case TurnRight:
		return h.Right()
	}
	return h
}

// Yaw is the rotation about Y derived from the heading, atan2(dz, dx)
func (h Heading) Yaw() float64 {
	v := h.Vec()
	return math.Atan2(v.Z(), v.X())
}

func (h Heading) String() string {
	switch h & 3 {
	case HeadingPosX:
		return "+x"
	case HeadingPosZ:
		return "+z"
	case HeadingNegX:
		return "-x"
	default:
		return "-z"
	}
}

// MarshalText renders the heading for JSON consumers
func (h Heading) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Turn is a discrete steering choice relative to the current heading
type Turn uint8

const (
	TurnStraight Turn = iota
	TurnLeft
	TurnRight
)

func (t Turn) String() string {
	switch t {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	}
	return "straight"
}

// MarshalText renders the turn for JSON and YAML consumers
func (t Turn) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts "left", "right" or "straight"
func (t *Turn) UnmarshalText(b []byte) error {
	*t = ParseTurn(string(b))
	return nil
}

// ParseTurn maps "left" / "right" to a Turn. Anything else is straight.
func ParseTurn(s string) Turn {
	switch s {
	case "left":
		return TurnLeft
	case "right":
		return TurnRight
	}
	return TurnStraight
}

// Pose is the per-tick kinematic state of a bike
type Pose struct {
	Position mgl64.Vec3
	Heading  Heading
	Owner    EntityID
}

// Advance moves the pose along its heading by distance
func (p *Pose) Advance(distance float64) {
	p.Position = p.Position.Add(p.Heading.Vec().Mul(distance))
}

// Size holds full width (X), height (Y) and depth (Z) of a box volume
type Size struct {
	Width, Height, Depth float64
}

// Box is a collision volume centred on a position. Yaw is tracked for
// presentation but intersection tests treat the box as axis-aligned.
type Box struct {
	Center mgl64.Vec3
	Size   Size
	Yaw    float64
}

// AABB3D is an axis-aligned bounding box in world space
type AABB3D struct {
	Min, Max mgl64.Vec3
}

// Center returns the midpoint of the box
func (b AABB3D) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Intersects reports whether two boxes overlap (touching counts)
func (b AABB3D) Intersects(o AABB3D) bool {
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y() &&
		b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z()
}

// ClampPoint returns the point inside the box closest to p
func (b AABB3D) ClampPoint(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(p.X(), b.Min.X(), b.Max.X()),
		mgl64.Clamp(p.Y(), b.Min.Y(), b.Max.Y()),
		mgl64.Clamp(p.Z(), b.Min.Z(), b.Max.Z()),
	}
}

// Corners returns the eight corners of the box
func (b AABB3D) Corners() [8]mgl64.Vec3 {
	lo, hi := b.Min, b.Max
	return [8]mgl64.Vec3{
		{lo.X(), lo.Y(), lo.Z()},
		{lo.X(), lo.Y(), hi.Z()},
		{lo.X(), hi.Y(), lo.Z()},
		{lo.X(), hi.Y(), hi.Z()},
		{hi.X(), lo.Y(), lo.Z()},
		{hi.X(), lo.Y(), hi.Z()},
		{hi.X(), hi.Y(), lo.Z()},
		{hi.X(), hi.Y(), hi.Z()},
	}
}

// AABBFromCenter builds a box from its centre and half extents
func AABBFromCenter(center, half mgl64.Vec3) AABB3D {
	return AABB3D{Min: center.Sub(half), Max: center.Add(half)}
}

// HorizontalDistance is the distance between two points ignoring Y
func HorizontalDistance(a, b mgl64.Vec3) float64 {
	return math.Hypot(a.X()-b.X(), a.Z()-b.Z())
}

// Finite reports whether every component of v is a finite number
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Reason classifies what a bike crashed into
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonWall
	ReasonObstacle
	ReasonOwnTrail
	ReasonOpponentTrail
	ReasonOpponentBike
)

func (r Reason) String() string {
	switch r {
	case ReasonWall:
		return "wall"
	case ReasonObstacle:
		return "obstacle"
	case ReasonOwnTrail:
		return "own-trail"
	case ReasonOpponentTrail:
		return "opponent-trail"
	case ReasonOpponentBike:
		return "opponent-bike"
	}
	return "none"
}

// MarshalText renders the reason tag for JSON consumers
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
