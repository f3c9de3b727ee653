// Package game runs rounds of the arena. The Driver owns the world and calls
// every subsystem in a fixed order once per tick.
package game

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"neontrail/internal/ai"
	"neontrail/internal/ai/learning"
	"neontrail/internal/collision"
	"neontrail/internal/config"
	"neontrail/internal/core"
	"neontrail/internal/trail"
	"neontrail/internal/world"
)

var (
	// ErrRoundOver is returned once the player has crashed
	ErrRoundOver = errors.New("round is over")
	// ErrNotRunning is returned when ticking a round that was not started or
	// is paused
	ErrNotRunning = errors.New("round is not running")
)

// State is the round lifecycle
type State uint8

const (
	Ready State = iota
	Running
	Paused
	Over
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Over:
		return "over"
	}
	return "unknown"
}

// MarshalText renders the state for JSON consumers
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AICrash describes one AI bike that crashed and respawned this tick
type AICrash struct {
	Bike       core.EntityID   `json:"bike"`
	Generation int             `json:"generation"`
	Reason     core.Reason     `json:"reason"`
	Traits     learning.Traits `json:"traits"`
}

// TickReport is everything that happened during one tick
type TickReport struct {
	Tick  uint64    `json:"tick"`
	Round uuid.UUID `json:"round"`
	Time  float64   `json:"time"`

	Player      collision.Result        `json:"player"`
	Pickups     []collision.Pickup      `json:"pickups,omitempty"`
	TrailEvents []trail.Event           `json:"trailEvents,omitempty"`
	Portals     []collision.PortalEvent `json:"portals,omitempty"`
	AICrashes   []AICrash               `json:"aiCrashes,omitempty"`
	// SpawnedAIs lists AI bikes added by the generation timer
	SpawnedAIs []core.EntityID `json:"spawnedAIs,omitempty"`
	// Powerups lists powerups that reappeared this tick
	Powerups []core.EntityID `json:"powerups,omitempty"`

	GameOver bool `json:"gameOver"`
}

// Driver runs rounds of one world
type Driver struct {
	cfg        config.Config
	world      *world.World
	collisions *collision.Engine
	brain      *ai.Brain
	logger     *log.Logger

	state  State
	round  uuid.UUID
	rounds int
	tick   uint64
	dt     float64

	turns       []core.Turn
	respawns    []float64
	nextAISpawn float64
}

// NewDriver creates a driver for cfg. A nil logger discards output.
func NewDriver(cfg config.Config, logger *log.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	w := world.New(cfg.World, cfg.Seed)
	return &Driver{
		cfg:        cfg,
		world:      w,
		collisions: collision.NewEngine(cfg.Collision),
		brain:      ai.NewBrain(cfg.AI, w.Rand),
		logger:     logger,
		dt:         1 / float64(cfg.Rules.TickRate),
	}, nil
}

// World exposes the simulation context. Callers must not mutate it while a
// tick is running.
func (d *Driver) World() *world.World {
	return d.world
}

// Brain exposes the AI pilots
func (d *Driver) Brain() *ai.Brain {
	return d.brain
}

// Collisions exposes the collision engine
func (d *Driver) Collisions() *collision.Engine {
	return d.collisions
}

// Config returns the driver tuning
func (d *Driver) Config() config.Config {
	return d.cfg
}

// State returns the lifecycle state of the current round
func (d *Driver) State() State {
	return d.state
}

// Round returns the id of the current round
func (d *Driver) Round() uuid.UUID {
	return d.round
}

// Tick returns the number of ticks run in the current round
func (d *Driver) Tick() uint64 {
	return d.tick
}

// NewRound tears the previous round down and sets up a fresh one. The
// returned events evict every trail segment of the old round. The new round
// waits in Ready until Start is called.
func (d *Driver) NewRound() ([]trail.Event, error) {
	w := d.world
	events := w.Teardown()
	d.brain.Reset()

	if err := w.Setup(d.rounds > 0); err != nil {
		d.state = Over
		return events, fmt.Errorf("setting up round %d: %w", d.rounds+1, err)
	}

	id, err := uuid.NewRandomFromReader(w.Rand)
	if err != nil {
		return events, fmt.Errorf("generating round id: %w", err)
	}

	d.rounds++
	d.round = id
	d.tick = 0
	d.turns = d.turns[:0]
	d.respawns = d.respawns[:0]
	w.Now = 0
	d.nextAISpawn = d.cfg.Rules.AISpawnInterval
	d.state = Ready

	d.logger.Printf("Round %s started: %d obstacles, %d powerups", d.round, len(w.Obstacles), len(w.Powerups))
	return events, nil
}

// Start begins or resumes the round
func (d *Driver) Start() error {
	if d.world.Player == nil && d.state != Over {
		return ErrNotRunning
	}
	switch d.state {
	case Over:
		return ErrRoundOver
	case Ready, Paused:
		d.state = Running
	}
	return nil
}

// Pause suspends ticking until Start is called again
func (d *Driver) Pause() error {
	switch d.state {
	case Over:
		return ErrRoundOver
	case Running:
		d.state = Paused
		return nil
	}
	return ErrNotRunning
}

// Turn queues a player turn for the next movement step. Several turns queued
// in one tick are applied in order.
func (d *Driver) Turn(t core.Turn) error {
	switch d.state {
	case Over:
		return ErrRoundOver
	case Running:
	default:
		return ErrNotRunning
	}
	if t != core.TurnStraight {
		d.turns = append(d.turns, t)
	}
	return nil
}

// Step advances the round by one tick
func (d *Driver) Step() (TickReport, error) {
	switch d.state {
	case Over:
		return TickReport{}, ErrRoundOver
	case Running:
	default:
		return TickReport{}, ErrNotRunning
	}

	w := d.world
	player := w.Player
	d.tick++
	w.Now += d.dt
	rep := TickReport{Tick: d.tick, Round: d.round, Time: w.Now}

	// Player input and movement
	for _, t := range d.turns {
		player.Pose.Heading = player.Pose.Heading.Turned(t)
	}
	d.turns = d.turns[:0]
	w.Move(player)
	rep.TrailEvents = append(rep.TrailEvents, w.LayTrail(player)...)

	if d.due(d.cfg.Throttle.IndexRebuildEvery) {
		w.RebuildIndex()
	}

	rep.Player = d.collisions.CheckEntityCollision(w, player)
	if rep.Player.Collision {
		d.state = Over
		rep.GameOver = true
		d.logger.Printf("Game over at tick %d: player hit %s, score %d", d.tick, rep.Player.Reason, player.Score)
		return rep, nil
	}

	rep.Pickups = d.collectPowerups()
	rep.Portals = d.collisions.CheckPortalInteractions(w, player)

	for _, b := range w.AIs {
		if h, ok := d.brain.Decide(w, b, w.Now); ok && h != b.Pose.Heading {
			b.Pose.Heading = h
			w.Touch()
		}
		w.Move(b)
		rep.TrailEvents = append(rep.TrailEvents, w.LayTrail(b)...)
	}

	if d.due(d.cfg.Throttle.AICollisionEvery) {
		if d.cfg.Throttle.IndexRebuildEvery == 1 {
			w.RebuildIndex()
		}
		for _, b := range w.AIs {
			res := d.collisions.CheckEntityCollisionStale(w, b)
			if !res.Collision {
				continue
			}
			crash, events := d.crashAI(b, res.Reason)
			rep.AICrashes = append(rep.AICrashes, crash)
			rep.TrailEvents = append(rep.TrailEvents, events...)
		}
	}

	rep.Powerups = d.respawnPowerups()
	if id, ok := d.spawnGeneration(); ok {
		rep.SpawnedAIs = append(rep.SpawnedAIs, id)
	}
	return rep, nil
}

func (d *Driver) due(every int) bool {
	return every <= 1 || d.tick%uint64(every) == 0
}

func (d *Driver) collectPowerups() []collision.Pickup {
	w := d.world
	pickups := d.collisions.CheckPowerupPickups(w)
	for _, p := range pickups {
		if _, ok := w.RemovePowerup(p.Powerup); !ok {
			continue
		}
		b := w.Bike(p.Collector)
		if b == nil {
			continue
		}
		b.Trail.Grow()
		b.Pickups++
		if b.IsAI() {
			w.Learning.OnPickup(&b.Traits)
		} else {
			b.Score++
		}
		d.respawns = append(d.respawns, w.Now+d.cfg.Rules.PowerupRespawnDelay)
	}
	return pickups
}

func (d *Driver) crashAI(b *world.Bike, reason core.Reason) (AICrash, []trail.Event) {
	w := d.world
	w.Learning.OnCrash(&b.Traits, reason)
	b.Crashes++
	d.brain.Crash(b.ID)
	events := w.Respawn(b)
	d.brain.Respawned(b.ID)

	d.logger.Printf("AI %d (gen %d) hit %s, respawned at (%.0f, %.0f)", b.ID, b.Generation, reason, b.Pose.Position.X(), b.Pose.Position.Z())
	return AICrash{Bike: b.ID, Generation: b.Generation, Reason: reason, Traits: b.Traits}, events
}

// respawnPowerups places every powerup whose delay has run out. Delays are
// constant, so the queue is already in due order.
func (d *Driver) respawnPowerups() []core.EntityID {
	w := d.world
	var placed []core.EntityID
	n := 0
	for n < len(d.respawns) && d.respawns[n] <= w.Now {
		n++
	}
	for i := 0; i < n; i++ {
		pu, err := w.PlacePowerup()
		if err != nil {
			d.logger.Printf("Powerup respawn skipped: %v", err)
			continue
		}
		placed = append(placed, pu.ID)
	}
	d.respawns = append(d.respawns[:0], d.respawns[n:]...)
	return placed
}

func (d *Driver) spawnGeneration() (core.EntityID, bool) {
	w := d.world
	if w.Now < d.nextAISpawn {
		return 0, false
	}
	d.nextAISpawn += d.cfg.Rules.AISpawnInterval
	if limit := d.cfg.Rules.MaxAIs; limit > 0 && len(w.AIs) >= limit {
		return 0, false
	}

	gen := w.Learning.NextGeneration()
	b := w.SpawnAI()
	d.logger.Printf("AI %d spawned: generation %d, speed %.2f", b.ID, gen, b.Speed)
	return b.ID, true
}

// Stats summarizes the current round
type Stats struct {
	Round      uuid.UUID      `json:"round"`
	State      State          `json:"state"`
	Tick       uint64         `json:"tick"`
	Time       float64        `json:"time"`
	Score      int            `json:"score"`
	TailLength int            `json:"tailLength"`
	Generation int            `json:"generation"`
	AIs        int            `json:"ais"`
	AICrashes  int            `json:"aiCrashes"`
	Population learning.Stats `json:"population"`
}

// Stats summarizes the round so far
func (d *Driver) Stats() Stats {
	w := d.world
	s := Stats{
		Round:      d.round,
		State:      d.state,
		Tick:       d.tick,
		Time:       w.Now,
		Generation: w.Learning.Generation(),
		AIs:        len(w.AIs),
		Population: learning.Population(w.AITraits()),
	}
	if w.Player != nil {
		s.Score = w.Player.Score
		s.TailLength = w.Player.Trail.TailLength()
	}
	for _, b := range w.AIs {
		s.AICrashes += b.Crashes
	}
	return s
}
