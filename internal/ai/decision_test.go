package ai

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neontrail/internal/ai/learning"
	"neontrail/internal/core"
	"neontrail/internal/shape"
	"neontrail/internal/world"
)

// newArena returns a world holding one deterministic AI bike at pos
func newArena(t *testing.T, pos mgl64.Vec3, h core.Heading, preferred core.Turn) (*world.World, *world.Bike) {
	t.Helper()
	w := world.New(world.DefaultConfig(), 3)
	b := w.SpawnAI()
	b.Pose.Position = pos
	b.Pose.Heading = h
	b.Traits = learning.Traits{
		AvoidDistance:  w.Learning.KnowledgeBase().AvoidDistance,
		PowerupWeight:  50,
		TurnRandomness: 0,
		PreferredTurn:  preferred,
		RiskTolerance:  1,
	}
	return w, b
}

func TestPreferredTurnBreaksTie(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnLeft)
	best, evals := Choose(DefaultConfig(), w, b, rng)
	assert.Equal(t, core.TurnLeft, best.Turn)
	assert.Equal(t, core.HeadingPosX.Left(), best.Heading)
	assert.InDelta(t, evals[0].Score+10, evals[1].Score, 1e-9)
	assert.InDelta(t, evals[0].Score, evals[2].Score, 1e-9)

	w, b = newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingNegZ, core.TurnRight)
	best, _ = Choose(DefaultConfig(), w, b, rng)
	assert.Equal(t, core.TurnRight, best.Turn)
	assert.Equal(t, core.HeadingNegZ.Right(), best.Heading)
}

func TestExactTieKeepsStraight(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosZ, core.TurnStraight)
	best, _ := Choose(DefaultConfig(), w, b, rand.New(rand.NewSource(1)))
	assert.Equal(t, core.TurnStraight, best.Turn)
	assert.Equal(t, core.HeadingPosZ, best.Heading)
}

func TestAvoidsWall(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{480, 3, 100}, core.HeadingPosX, core.TurnLeft)
	best, evals := Choose(DefaultConfig(), w, b, rand.New(rand.NewSource(1)))

	assert.Less(t, evals[0].Score, evals[1].Score)
	assert.Less(t, evals[0].Distances.Walls, 0.0)
	assert.NotEqual(t, core.HeadingPosX, best.Heading)
}

func TestAvoidsObstacle(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnStraight)
	w.AddObstacle(shape.BoxPrimitive{Width: 30, Height: 45, Depth: 30}, 3, mgl64.Vec3{30, 3, 0})

	straight := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))
	left := Evaluate(DefaultConfig(), w, b, core.HeadingPosX.Left(), rand.New(rand.NewSource(1)))

	assert.InDelta(t, 0, straight.Distances.Obstacles, 1e-9)
	// Full size penalty: 3 * 500 at generation 1
	assert.InDelta(t, 100-1500, straight.Score, 1e-9)
	assert.Greater(t, left.Score, straight.Score)
}

func TestHigherGenerationsFearObstaclesLess(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnStraight)
	w.AddObstacle(shape.BoxPrimitive{Width: 10, Height: 15, Depth: 10}, 1, mgl64.Vec3{30, 3, 0})

	young := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))
	b.Generation = 6
	old := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))

	assert.Greater(t, old.Score, young.Score)
}

func TestSeeksPowerup(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnLeft)
	w.AddPowerup(mgl64.Vec3{0, 3, 30})

	best, _ := Choose(DefaultConfig(), w, b, rand.New(rand.NewSource(1)))
	assert.Equal(t, core.HeadingPosZ, best.Heading)
	assert.InDelta(t, 0, best.Distances.ClosestPowerup, 1e-9)
}

func TestAvoidsTrails(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnStraight)
	w.SpawnPlayer()
	w.Player.Pose.Position = mgl64.Vec3{30, 3, 0}
	w.LayTrail(w.Player)

	straight := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 100-400, straight.Score, 1e-9)
	assert.InDelta(t, 0, straight.Distances.PlayerTrail, 1e-9)
}

func TestOwnTrailSkipsNewestSegments(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnStraight)

	// Three segments around the projected point are all among the newest
	// three and must be ignored
	for _, x := range []float64{26, 30, 34} {
		b.Pose.Position = mgl64.Vec3{x, 3, 0}
		w.LayTrail(b)
	}
	b.Pose.Position = mgl64.Vec3{0, 3, 0}

	ev := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 100, ev.Score, 1e-9)

	b.Pose.Position = mgl64.Vec3{60, 3, 0}
	w.LayTrail(b)
	b.Pose.Position = mgl64.Vec3{0, 3, 0}

	ev = Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 100-400*1.2, ev.Score, 1e-9)
}

func TestPursuit(t *testing.T) {
	cfg := DefaultConfig()
	origin := mgl64.Vec3{}

	assert.InDelta(t, 0, pursuit(cfg, origin, mgl64.Vec3{150, 0, 0}, 3), 1e-9)
	assert.InDelta(t, 15, pursuit(cfg, origin, mgl64.Vec3{100, 0, 0}, 3), 1e-9)
	assert.InDelta(t, 30, pursuit(cfg, origin, mgl64.Vec3{100, 0, 0}, 4), 1e-9)
	assert.InDelta(t, 0, pursuit(cfg, origin, mgl64.Vec3{30, 0, 0}, 3), 1e-9)
	assert.InDelta(t, -50, pursuit(cfg, origin, mgl64.Vec3{10, 0, 0}, 3), 1e-9)
}

func TestJitterScalesWithRandomness(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnStraight)
	b.Traits.TurnRandomness = 1

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		ev := Evaluate(DefaultConfig(), w, b, core.HeadingPosX, rng)
		require.InDelta(t, 100, ev.Score, 10)
	}
}
