// Package neontrail is the public entry point to the arena simulation. An
// Engine is safe for concurrent use: input handlers and the tick loop can
// run on different goroutines.
package neontrail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"neontrail/internal/collision"
	"neontrail/internal/config"
	"neontrail/internal/core"
	"neontrail/internal/game"
	"neontrail/internal/nav"
	"neontrail/internal/trail"
)

// Config is the full simulation tuning
type Config = config.Config

// TickReport is everything that happened during one tick
type TickReport = game.TickReport

// Stats summarizes a round
type Stats = game.Stats

// State is the round lifecycle
type State = game.State

// TrailEvent reports a trail segment being laid or evicted
type TrailEvent = trail.Event

var (
	ErrRoundOver  = game.ErrRoundOver
	ErrNotRunning = game.ErrNotRunning
)

// Engine wraps a game driver behind a mutex
type Engine struct {
	mu     sync.Mutex
	driver *game.Driver
}

// DefaultConfig returns the default tuning
func DefaultConfig() *Config {
	cfg := config.Default()
	return &cfg
}

// LoadConfig reads a YAML tuning file over the defaults
func LoadConfig(path string) (*Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewEngine creates an engine. A nil config selects the defaults and a nil
// logger discards output.
func NewEngine(cfg *Config, logger *log.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	driver, err := game.NewDriver(*cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{driver: driver}, nil
}

// Round Management

// NewRound tears down the current round and prepares a fresh one. The new
// round starts in the Ready state. The returned events evict every trail
// segment of the old round.
func (e *Engine) NewRound() ([]TrailEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.NewRound()
}

// Start begins or resumes the current round
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Start()
}

// Pause suspends the current round
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Pause()
}

// State returns the lifecycle state of the current round
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.State()
}

// Round returns the id of the current round
func (e *Engine) Round() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Round()
}

// Input

// Turn queues a player turn for the next tick
func (e *Engine) Turn(t core.Turn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Turn(t)
}

// TurnLeft queues a left turn
func (e *Engine) TurnLeft() error {
	return e.Turn(core.TurnLeft)
}

// TurnRight queues a right turn
func (e *Engine) TurnRight() error {
	return e.Turn(core.TurnRight)
}

// Simulation

// Step advances the current round by one tick
func (e *Engine) Step() (TickReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Step()
}

// Run ticks the current round every interval until the round ends or ctx is
// done. onTick, if set, receives every report outside the engine lock. A
// paused round is skipped rather than stopped.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onTick func(TickReport)) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		rep, err := e.Step()
		switch {
		case errors.Is(err, ErrNotRunning):
			continue
		case err != nil:
			return err
		}
		if onTick != nil {
			onTick(rep)
		}
		if rep.GameOver {
			return nil
		}
	}
}

// Queries

// Stats summarizes the current round
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver.Stats()
}

// Snapshot copies the current world into plain views
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotOf(e.driver)
}

// CheckBike runs the collision classifier for one bike without changing
// anything. Unknown ids report no collision.
func (e *Engine) CheckBike(id core.EntityID) collision.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.driver.World()
	return e.driver.Collisions().CheckEntityCollision(w, w.Bike(id))
}

// Nearby lists the entities of one category filed within radius of pos on
// the ground plane. The spatial index is rebuilt first if it is stale.
func (e *Engine) Nearby(pos mgl64.Vec3, radius float64, category core.Category) []core.EntityID {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.driver.World()
	if !w.IndexFresh() {
		w.RebuildIndex()
	}

	var ids []core.EntityID
	for _, entry := range w.Grid.QueryRadius(pos, radius, category) {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Autopilot suggests a turn that keeps the player clear of walls, obstacles
// and trails while heading for the nearest powerup. It does not queue it.
func (e *Engine) Autopilot() core.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.driver.World()
	if w.Player == nil {
		return core.TurnStraight
	}
	opts := nav.DefaultOptions()
	opts.WallMargin = math.Max(opts.WallMargin, e.driver.Config().Collision.WallMargin+opts.CellSize)
	f := nav.FromWorld(w, w.Player, opts)
	return nav.Steer(f, w.Player.Pose, opts.Lookahead)
}

// Drive queues the autopilot's turn, if any
func (e *Engine) Drive() error {
	if t := e.Autopilot(); t != core.TurnStraight {
		return e.Turn(t)
	}
	return nil
}

// GetConfig returns the engine tuning
func (e *Engine) GetConfig() Config {
	return e.driver.Config()
}
