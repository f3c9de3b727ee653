package neontrail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neontrail/internal/core"
	"neontrail/internal/game"
	"neontrail/internal/trail"
)

func newRunningEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil, nil)
	require.NoError(t, err)
	_, err = e.NewRound()
	require.NoError(t, err)
	require.NoError(t, e.Start())
	return e
}

func TestEngineRound(t *testing.T) {
	e := newRunningEngine(t)
	assert.Equal(t, game.Running, e.State())

	require.NoError(t, e.TurnLeft())
	rep, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rep.Tick)
	assert.Equal(t, e.Round(), rep.Round)

	snap := e.Snapshot()
	require.NotEmpty(t, snap.Bikes)
	player := snap.Bikes[0]
	assert.False(t, player.AI)
	assert.Nil(t, player.Traits)
	assert.Equal(t, core.HeadingNegZ, player.Heading)
	assert.True(t, snap.Bikes[1].AI)
	assert.NotNil(t, snap.Bikes[1].Traits)

	assert.Len(t, snap.Powerups, 30)
	assert.Len(t, snap.Portals, 3)
	assert.Equal(t, 1000.0, snap.Size)

	boundary := 0
	for _, o := range snap.Obstacles {
		if o.Boundary {
			boundary++
		}
	}
	assert.Equal(t, 4, boundary)

	assert.False(t, e.CheckBike(core.PlayerID).Collision)
	assert.False(t, e.CheckBike(9999).Collision)

	require.NoError(t, e.Pause())
	_, err = e.Step()
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestEngineNearby(t *testing.T) {
	e := newRunningEngine(t)
	snap := e.Snapshot()
	pos := snap.Bikes[0].Position

	ids := e.Nearby(pos, 5, core.CategoryPlayers)
	assert.Equal(t, []core.EntityID{core.PlayerID}, ids)
	assert.Empty(t, e.Nearby(mgl64.Vec3{400, 3, 400}, 5, core.CategoryPlayers))
}

func TestEngineRun(t *testing.T) {
	e := newRunningEngine(t)

	assert.Error(t, e.Run(context.Background(), 0, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var (
		mu    sync.Mutex
		ticks int
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := e.TurnRight(); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	err := e.Run(ctx, time.Millisecond, func(rep TickReport) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})
	wg.Wait()

	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected run error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, ticks)
	assert.Equal(t, uint64(ticks), e.Stats().Tick)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestEngineAutopilotTurnsBeforeWall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.World.InitialObstacles = 0
	cfg.World.InitialPowerups = 0
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	_, err = e.NewRound()
	require.NoError(t, err)
	require.NoError(t, e.Start())

	// Open arena and no goals: straight until the wall band, then turn
	assert.Equal(t, core.TurnStraight, e.Autopilot())

	for i := 0; i < 500; i++ {
		require.NoError(t, e.Drive())
		rep, err := e.Step()
		require.NoError(t, err)
		require.False(t, rep.GameOver, "tick %d: %s", rep.Tick, rep.Player.Reason)
	}

	player := e.Snapshot().Bikes[0]
	assert.NotEqual(t, core.HeadingPosX, player.Heading)
	assert.Less(t, player.Position.X(), 490.0)
}

func TestEngineNewRoundEvictsLiveTrails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.World.InitialObstacles = 0
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	events, err := e.NewRound()
	require.NoError(t, err)
	assert.Empty(t, events, "nothing to tear down before the first round")
	require.NoError(t, e.Start())

	for i := 0; i < 60; i++ {
		_, err := e.Step()
		require.NoError(t, err)
	}

	live := 0
	for _, b := range e.Snapshot().Bikes {
		live += len(b.Trail)
	}
	require.Positive(t, live)

	events, err = e.NewRound()
	require.NoError(t, err)
	assert.Len(t, events, live)
	for _, ev := range events {
		assert.Equal(t, trail.Evicted, ev.Kind)
	}
	for _, b := range e.Snapshot().Bikes {
		assert.Empty(t, b.Trail)
	}
}
