package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
	"neontrail/internal/spatial"
	"neontrail/internal/trail"
	"neontrail/internal/world"
)

// Config tunes the lethal-collision and portal queries
type Config struct {
	// WallMargin is how close to the boundary a bike may get
	WallMargin float64 `yaml:"wallMargin"`
	// TrailIgnore is the number of a bike's own newest segments that can
	// never kill it
	TrailIgnore int `yaml:"trailIgnore"`
	// TeleportDistance and ProximityDistance classify portal zones
	TeleportDistance  float64 `yaml:"teleportDistance"`
	ProximityDistance float64 `yaml:"proximityDistance"`
}

// DefaultConfig returns the default tuning
func DefaultConfig() Config {
	return Config{
		WallMargin:        5,
		TrailIgnore:       5,
		TeleportDistance:  15,
		ProximityDistance: 50,
	}
}

// Result is the classification of a single collision query. Reason is
// ReasonNone exactly when Collision is false.
type Result struct {
	Collision bool        `json:"collision"`
	Reason    core.Reason `json:"reason,omitempty"`
}

// Hit builds a positive result
func Hit(reason core.Reason) Result {
	return Result{Collision: true, Reason: reason}
}

// Pickup awards a powerup to a collector
type Pickup struct {
	Collector core.EntityID `json:"collector"`
	Powerup   core.EntityID `json:"powerup"`
}

// Zone is how close a bike is to a portal
type Zone uint8

const (
	ZoneProximity Zone = iota
	ZoneTeleport
)

func (z Zone) String() string {
	if z == ZoneTeleport {
		return "teleport"
	}
	return "proximity"
}

// MarshalText renders the zone for JSON consumers
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// PortalEvent reports a bike inside a portal zone
type PortalEvent struct {
	Portal   core.EntityID    `json:"portal"`
	Kind     world.PortalKind `json:"kind"`
	Zone     Zone             `json:"zone"`
	Distance float64          `json:"distance"`
}

// Engine runs the higher-level queries against a world. All of its methods
// are read-only and safe to repeat.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling unset fields from DefaultConfig
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.WallMargin < 0 || math.IsNaN(cfg.WallMargin) {
		cfg.WallMargin = def.WallMargin
	}
	if cfg.TrailIgnore < 0 {
		cfg.TrailIgnore = def.TrailIgnore
	}
	if cfg.TeleportDistance <= 0 {
		cfg.TeleportDistance = def.TeleportDistance
	}
	if cfg.ProximityDistance <= 0 {
		cfg.ProximityDistance = def.ProximityDistance
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine tuning
func (e *Engine) Config() Config {
	return e.cfg
}

// CheckEntityCollision classifies whether b hits anything lethal. Checks run
// cheapest and most catastrophic first and the first match wins: wall,
// obstacle, own trail (minus the newest TrailIgnore segments), other bikes,
// other trails.
//
// When the spatial index is current the bike and trail passes only look at
// the 3x3 cell block around b; otherwise they scan everything. Obstacles
// are always scanned in full since large ones span many cells.
func (e *Engine) CheckEntityCollision(w *world.World, b *world.Bike) Result {
	return e.check(w, b, false)
}

// CheckEntityCollisionStale classifies like CheckEntityCollision but also
// uses an index built on an earlier tick. Indexed trail entries that are no
// longer live are dropped, segments laid since the build are added, and
// bikes are scanned in full since they have moved. Without any build it
// scans like CheckEntityCollision.
func (e *Engine) CheckEntityCollisionStale(w *world.World, b *world.Bike) Result {
	return e.check(w, b, true)
}

func (e *Engine) check(w *world.World, b *world.Bike, allowStale bool) Result {
	if w == nil || b == nil || !core.Finite(b.Pose.Position) {
		return Result{}
	}
	pos := b.Pose.Position
	box := b.Box()

	limit := w.HalfSize() - e.cfg.WallMargin
	if math.Abs(pos.X()) > limit || math.Abs(pos.Z()) > limit {
		return Hit(core.ReasonWall)
	}

	for _, o := range w.Obstacles {
		if o == nil || o.Boundary {
			continue
		}
		if CheckObstacleCollision(box, o.Position, o.Shape) {
			return Hit(core.ReasonObstacle)
		}
	}

	indexed := w.IndexFresh()
	trailIndexed := indexed
	var trailCandidates []spatial.Entry
	switch {
	case indexed:
		trailCandidates = w.Grid.QueryNeighbors(pos, core.CategoryTrails)
	case allowStale && w.IndexBuilt():
		trailCandidates = staleTrailCandidates(w, pos)
		trailIndexed = true
	}

	if e.hitsOwnTrail(b, box, trailIndexed, trailCandidates) {
		return Hit(core.ReasonOwnTrail)
	}
	if e.hitsOtherBike(w, b, box, indexed) {
		return Hit(core.ReasonOpponentBike)
	}
	if e.hitsOtherTrail(w, b, box, trailIndexed, trailCandidates) {
		return Hit(core.ReasonOpponentTrail)
	}
	return Result{}
}

// staleTrailCandidates queries an out of date index around pos. Segments
// never move once laid, so the indexed ones only need a liveness check.
func staleTrailCandidates(w *world.World, pos mgl64.Vec3) []spatial.Entry {
	var out []spatial.Entry
	for _, c := range w.Grid.QueryNeighbors(pos, core.CategoryTrails) {
		seg, ok := c.Item.(trail.Segment)
		if !ok {
			continue
		}
		if owner := w.Bike(seg.Owner); owner != nil && owner.Trail.Live(seg) {
			out = append(out, c)
		}
	}
	for _, b := range w.Bikes() {
		for _, seg := range w.Unindexed(b) {
			out = append(out, spatial.Entry{Item: seg, ID: b.ID, Position: seg.Position})
		}
	}
	return out
}

func (e *Engine) hitsOwnTrail(b *world.Bike, box core.Box, indexed bool, candidates []spatial.Entry) bool {
	if !indexed {
		for _, seg := range b.Trail.Older(e.cfg.TrailIgnore) {
			if BoxVsBox(box, world.SegmentBox(seg)) {
				return true
			}
		}
		return false
	}

	for _, c := range candidates {
		seg, ok := c.Item.(trail.Segment)
		if !ok || seg.Owner != b.ID || b.Trail.IsRecent(seg, e.cfg.TrailIgnore) {
			continue
		}
		if BoxVsBox(box, world.SegmentBox(seg)) {
			return true
		}
	}
	return false
}

func (e *Engine) hitsOtherBike(w *world.World, b *world.Bike, box core.Box, indexed bool) bool {
	var others []*world.Bike
	if indexed {
		for _, cat := range []core.Category{core.CategoryPlayers, core.CategoryAIs} {
			for _, c := range w.Grid.QueryNeighbors(b.Pose.Position, cat) {
				if other, ok := c.Item.(*world.Bike); ok {
					others = append(others, other)
				}
			}
		}
	} else {
		others = w.Bikes()
	}

	for _, other := range others {
		if other == nil || other.ID == b.ID {
			continue
		}
		if BoxVsBox(box, other.Box()) {
			return true
		}
	}
	return false
}

func (e *Engine) hitsOtherTrail(w *world.World, b *world.Bike, box core.Box, indexed bool, candidates []spatial.Entry) bool {
	if indexed {
		for _, c := range candidates {
			seg, ok := c.Item.(trail.Segment)
			if !ok || seg.Owner == b.ID {
				continue
			}
			if BoxVsBox(box, world.SegmentBox(seg)) {
				return true
			}
		}
		return false
	}

	for _, other := range w.Bikes() {
		if other.ID == b.ID {
			continue
		}
		for _, seg := range other.Trail.Segments() {
			if BoxVsBox(box, world.SegmentBox(seg)) {
				return true
			}
		}
	}
	return false
}

// CheckPowerupPickups lists the powerups each bike overlaps this tick. The
// player is checked first, then the AIs in spawn order, and a powerup is
// awarded at most once even when several bikes touch it.
func (e *Engine) CheckPowerupPickups(w *world.World) []Pickup {
	if w == nil || len(w.Powerups) == 0 {
		return nil
	}
	indexed := w.IndexFresh()

	var pickups []Pickup
	consumed := make(map[core.EntityID]struct{})
	for _, b := range w.Bikes() {
		if !core.Finite(b.Pose.Position) {
			continue
		}
		box := b.Box()

		candidates := w.Powerups
		if indexed {
			candidates = candidates[:0:0]
			for _, c := range w.Grid.QueryNeighbors(b.Pose.Position, core.CategoryPowerups) {
				if p, ok := c.Item.(*world.Powerup); ok {
					candidates = append(candidates, p)
				}
			}
		}

		for _, p := range candidates {
			if p == nil {
				continue
			}
			if _, taken := consumed[p.ID]; taken {
				continue
			}
			if BoxVsSphere(box, Sphere{Center: p.Position, Radius: p.Radius}) {
				consumed[p.ID] = struct{}{}
				pickups = append(pickups, Pickup{Collector: b.ID, Powerup: p.ID})
			}
		}
	}
	return pickups
}

// CheckPortalInteractions classifies b's distance to each portal's centre
func (e *Engine) CheckPortalInteractions(w *world.World, b *world.Bike) []PortalEvent {
	if w == nil || b == nil {
		return nil
	}

	var events []PortalEvent
	for _, p := range w.Portals {
		if p == nil {
			continue
		}
		d := b.Pose.Position.Sub(p.Bounds.Center()).Len()
		switch {
		case d < e.cfg.TeleportDistance:
			events = append(events, PortalEvent{Portal: p.ID, Kind: p.Kind, Zone: ZoneTeleport, Distance: d})
		case d < e.cfg.ProximityDistance:
			events = append(events, PortalEvent{Portal: p.ID, Kind: p.Kind, Zone: ZoneProximity, Distance: d})
		}
	}
	return events
}
