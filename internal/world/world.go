// Package world holds the simulation context: every bike, obstacle,
// powerup and portal of a round, plus the spatial index and learning store
// the subsystems share. Nothing here is global, so independent worlds can
// run side by side.
package world

import (
	"math/rand"

	"neontrail/internal/ai/learning"
	"neontrail/internal/core"
	"neontrail/internal/spatial"
	"neontrail/internal/trail"
)

// Config holds world construction parameters
type Config struct {
	Size        float64 `yaml:"size"`
	PlayerSpeed float64 `yaml:"playerSpeed"`
	AISpeedBase float64 `yaml:"aiSpeedBase"`
	CellSize    float64 `yaml:"cellSize"`
	SpawnHeight float64 `yaml:"spawnHeight"`

	InitialObstacles int     `yaml:"initialObstacles"`
	RestartObstacles int     `yaml:"restartObstacles"`
	InitialPowerups  int     `yaml:"initialPowerups"`
	RestartPowerups  int     `yaml:"restartPowerups"`
	PowerupRadius    float64 `yaml:"powerupRadius"`

	// PlacementAttempts bounds the rejection sampling used to place one
	// obstacle or powerup
	PlacementAttempts int `yaml:"placementAttempts"`

	Trail         trail.Config           `yaml:"trail"`
	KnowledgeBase learning.KnowledgeBase `yaml:"knowledgeBase"`
}

// DefaultConfig returns the default arena
func DefaultConfig() Config {
	return Config{
		Size:              1000,
		PlayerSpeed:       1.2,
		AISpeedBase:       1.3,
		CellSize:          spatial.DefaultCellSize,
		SpawnHeight:       3,
		InitialObstacles:  150,
		RestartObstacles:  80,
		InitialPowerups:   30,
		RestartPowerups:   20,
		PowerupRadius:     4,
		PlacementAttempts: 200,
		Trail:             trail.DefaultConfig(),
		KnowledgeBase:     learning.DefaultKnowledgeBase(),
	}
}

// World is the explicit simulation context passed to every subsystem
type World struct {
	cfg Config

	Player    *Bike
	AIs       []*Bike
	Obstacles []*Obstacle
	Powerups  []*Powerup
	Portals   []*Portal

	Grid     *spatial.Grid
	Learning *learning.Store
	Rand     *rand.Rand

	// Now is simulation time in seconds
	Now float64

	epoch  uint64
	nextID core.EntityID

	// indexedSeq is each trail's NextSeq at the last index build
	indexedSeq map[core.EntityID]uint64
}

// New creates an empty world. All randomness flows from seed.
func New(cfg Config, seed int64) *World {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.PlacementAttempts <= 0 {
		cfg.PlacementAttempts = def.PlacementAttempts
	}
	if cfg.PowerupRadius <= 0 {
		cfg.PowerupRadius = def.PowerupRadius
	}
	return &World{
		cfg:      cfg,
		Grid:     spatial.NewGrid(cfg.CellSize),
		Learning: learning.NewStore(cfg.KnowledgeBase),
		Rand:     rand.New(rand.NewSource(seed)),
		nextID:   core.PlayerID + 1,
	}
}

// Config returns the construction parameters
func (w *World) Config() Config {
	return w.cfg
}

// HalfSize is the distance from the origin to each boundary wall
func (w *World) HalfSize() float64 {
	return w.cfg.Size / 2
}

// NextID allocates a fresh entity identifier
func (w *World) NextID() core.EntityID {
	id := w.nextID
	w.nextID++
	return id
}

// Epoch changes every time an entity moves, appears or disappears. The
// spatial index is current only when it was built at the present epoch.
func (w *World) Epoch() uint64 {
	return w.epoch
}

// Touch records a state change that invalidates the spatial index
func (w *World) Touch() {
	w.epoch++
}

// Bikes returns the player (if any) followed by the AIs in spawn order
func (w *World) Bikes() []*Bike {
	bikes := make([]*Bike, 0, len(w.AIs)+1)
	if w.Player != nil {
		bikes = append(bikes, w.Player)
	}
	return append(bikes, w.AIs...)
}

// Bike looks up a bike by id
func (w *World) Bike(id core.EntityID) *Bike {
	if w.Player != nil && w.Player.ID == id {
		return w.Player
	}
	for _, b := range w.AIs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Move advances a bike along its heading by its speed
func (w *World) Move(b *Bike) {
	if b == nil {
		return
	}
	b.Pose.Advance(b.Speed)
	w.Touch()
}

// LayTrail samples b's trail at its current pose
func (w *World) LayTrail(b *Bike) []trail.Event {
	if b == nil {
		return nil
	}
	events := b.Trail.MaybeAppend(b.Pose, w.Now)
	if len(events) > 0 {
		w.Touch()
	}
	return events
}

// IndexFresh reports whether the spatial index reflects the current state
func (w *World) IndexFresh() bool {
	return w.Grid.FreshAt(w.epoch)
}

// RebuildIndex clears the spatial index and re-inserts every live entity
func (w *World) RebuildIndex() {
	w.Grid.Clear()
	if w.indexedSeq == nil {
		w.indexedSeq = make(map[core.EntityID]uint64)
	}
	clear(w.indexedSeq)

	for _, o := range w.Obstacles {
		w.Grid.Insert(o, core.CategoryObstacles, o.ID)
	}
	if w.Player != nil {
		w.Grid.Insert(w.Player, core.CategoryPlayers, w.Player.ID)
		w.indexTrail(w.Player)
	}
	for _, b := range w.AIs {
		w.Grid.Insert(b, core.CategoryAIs, b.ID)
		w.indexTrail(b)
	}
	for _, p := range w.Powerups {
		w.Grid.Insert(p, core.CategoryPowerups, p.ID)
	}

	w.Grid.MarkBuilt(w.epoch)
}

func (w *World) indexTrail(b *Bike) {
	for _, seg := range b.Trail.Segments() {
		w.Grid.Insert(seg, core.CategoryTrails, b.ID)
	}
	w.indexedSeq[b.ID] = b.Trail.NextSeq()
}

// IndexBuilt reports whether the spatial index holds a build from this
// round, fresh or not
func (w *World) IndexBuilt() bool {
	return w.Grid.Built()
}

// Unindexed returns b's segments laid after the last index build. A bike
// spawned since then has all of its segments returned.
func (w *World) Unindexed(b *Bike) []trail.Segment {
	if b == nil {
		return nil
	}
	return b.Trail.Since(w.indexedSeq[b.ID])
}

// RemovePowerup drops a powerup from the active list. It reports false if
// the powerup was already gone.
func (w *World) RemovePowerup(id core.EntityID) (*Powerup, bool) {
	for i, p := range w.Powerups {
		if p.ID == id {
			w.Powerups = append(w.Powerups[:i], w.Powerups[i+1:]...)
			w.Touch()
			return p, true
		}
	}
	return nil, false
}

// AITraits returns the trait vectors of the live AI bikes
func (w *World) AITraits() []learning.Traits {
	traits := make([]learning.Traits, 0, len(w.AIs))
	for _, b := range w.AIs {
		traits = append(traits, b.Traits)
	}
	return traits
}
