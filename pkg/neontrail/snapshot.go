package neontrail

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"neontrail/internal/ai/learning"
	"neontrail/internal/core"
	"neontrail/internal/game"
	"neontrail/internal/shape"
	"neontrail/internal/world"
)

// BikeView is a copy of one bike
type BikeView struct {
	ID         core.EntityID    `json:"id"`
	AI         bool             `json:"ai"`
	Position   mgl64.Vec3       `json:"position"`
	Heading    core.Heading     `json:"heading"`
	Speed      float64          `json:"speed"`
	Generation int              `json:"generation,omitempty"`
	Traits     *learning.Traits `json:"traits,omitempty"`
	Score      int              `json:"score"`
	TailLength int              `json:"tailLength"`
	Trail      []mgl64.Vec3     `json:"trail"`
}

// ObstacleView is a copy of one obstacle
type ObstacleView struct {
	ID             core.EntityID `json:"id"`
	Shape          shape.Kind    `json:"shape"`
	Position       mgl64.Vec3    `json:"position"`
	SizeMultiplier float64       `json:"sizeMultiplier"`
	Boundary       bool          `json:"boundary,omitempty"`
}

// PowerupView is a copy of one powerup
type PowerupView struct {
	ID       core.EntityID `json:"id"`
	Position mgl64.Vec3    `json:"position"`
	Radius   float64       `json:"radius"`
}

// PortalView is a copy of one portal
type PortalView struct {
	ID     core.EntityID    `json:"id"`
	Kind   world.PortalKind `json:"kind"`
	Center mgl64.Vec3       `json:"center"`
}

// Snapshot is a point-in-time copy of the world, safe to hand to another
// goroutine
type Snapshot struct {
	Round     uuid.UUID      `json:"round"`
	State     game.State     `json:"state"`
	Tick      uint64         `json:"tick"`
	Time      float64        `json:"time"`
	Size      float64        `json:"size"`
	Bikes     []BikeView     `json:"bikes"`
	Obstacles []ObstacleView `json:"obstacles"`
	Powerups  []PowerupView  `json:"powerups"`
	Portals   []PortalView   `json:"portals"`
}

func snapshotOf(d *game.Driver) Snapshot {
	w := d.World()
	snap := Snapshot{
		Round: d.Round(),
		State: d.State(),
		Tick:  d.Tick(),
		Time:  w.Now,
		Size:  w.Config().Size,
	}

	for _, b := range w.Bikes() {
		view := BikeView{
			ID:         b.ID,
			AI:         b.IsAI(),
			Position:   b.Pose.Position,
			Heading:    b.Pose.Heading,
			Speed:      b.Speed,
			Score:      b.Score,
			TailLength: b.Trail.TailLength(),
		}
		if b.IsAI() {
			traits := b.Traits
			view.Generation = b.Generation
			view.Traits = &traits
		}
		for _, seg := range b.Trail.Segments() {
			view.Trail = append(view.Trail, seg.Position)
		}
		snap.Bikes = append(snap.Bikes, view)
	}

	for _, o := range w.Obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleView{
			ID:             o.ID,
			Shape:          o.Shape.Kind(),
			Position:       o.Position,
			SizeMultiplier: o.Multiplier(),
			Boundary:       o.Boundary,
		})
	}
	for _, p := range w.Powerups {
		snap.Powerups = append(snap.Powerups, PowerupView{ID: p.ID, Position: p.Position, Radius: p.Radius})
	}
	for _, p := range w.Portals {
		snap.Portals = append(snap.Portals, PortalView{ID: p.ID, Kind: p.Kind, Center: p.Bounds.Center()})
	}
	return snap
}
