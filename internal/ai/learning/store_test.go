package learning

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neontrail/internal/core"
)

func TestFoldTrait(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		incoming   float64
		generation int
		want       float64
	}{
		{"first generation takes incoming", 25, 30, 1, 30},
		{"second generation halves", 20, 30, 2, 25},
		{"fourth generation", 40, 80, 4, 50},
		{"zero generation treated as one", 10, 12, 0, 12},
		{"negative generation treated as one", 10, 12, -3, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FoldTrait(tt.current, tt.incoming, tt.generation), 1e-9)
		})
	}
}

func TestOnPickup(t *testing.T) {
	s := NewStore(DefaultKnowledgeBase())
	s.NextGeneration()
	traits := Traits{PowerupWeight: 60}

	s.OnPickup(&traits)

	assert.InDelta(t, 60.5, traits.PowerupWeight, 1e-9)
	// (50*1 + 60.5) / 2
	assert.InDelta(t, 55.25, s.KnowledgeBase().PowerupWeight, 1e-9)
}

func TestOnCrashByReason(t *testing.T) {
	tests := []struct {
		reason    core.Reason
		wantAvoid float64
		wantWall  float64
	}{
		{core.ReasonWall, 25.5, 1.1},
		{core.ReasonObstacle, 25.3, 1.0},
		{core.ReasonOwnTrail, 25.3, 1.0},
		{core.ReasonOpponentTrail, 25.3, 1.0},
		{core.ReasonOpponentBike, 25.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			s := NewStore(DefaultKnowledgeBase())
			traits := Traits{AvoidDistance: 25, TurnRandomness: 0.2}

			s.OnCrash(&traits, tt.reason)

			assert.InDelta(t, tt.wantAvoid, traits.AvoidDistance, 1e-9)
			assert.InDelta(t, 0.195, traits.TurnRandomness, 1e-9)
			kb := s.KnowledgeBase()
			assert.InDelta(t, tt.wantWall, kb.AvoidWallWeight, 1e-9)
			// Generation 1 folds the personal value in outright
			assert.InDelta(t, tt.wantAvoid, kb.AvoidDistance, 1e-9)
		})
	}
}

func TestTurnRandomnessFloor(t *testing.T) {
	s := NewStore(DefaultKnowledgeBase())
	traits := Traits{AvoidDistance: 25, TurnRandomness: 0.2}

	reasons := []core.Reason{core.ReasonWall, core.ReasonObstacle, core.ReasonOpponentBike}
	for i := 0; i < 10000; i++ {
		s.OnCrash(&traits, reasons[i%len(reasons)])
		if traits.TurnRandomness < MinTurnRandomness {
			t.Fatalf("Expected turnRandomness >= %v after %d crashes, got %v", MinTurnRandomness, i+1, traits.TurnRandomness)
		}
	}
	assert.Equal(t, MinTurnRandomness, traits.TurnRandomness)
}

func TestSpawnJittersKnowledgeBase(t *testing.T) {
	s := NewStore(DefaultKnowledgeBase())
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		tr := s.Spawn(rng)
		assert.InDelta(t, 25, tr.AvoidDistance, 2.5)
		assert.InDelta(t, 50, tr.PowerupWeight, 5)
		assert.GreaterOrEqual(t, tr.TurnRandomness, 0.16-1e-9)
		assert.LessOrEqual(t, tr.TurnRandomness, 0.24+1e-9)
		assert.GreaterOrEqual(t, tr.RiskTolerance, 0.8)
		assert.Less(t, tr.RiskTolerance, 1.2)
		assert.Contains(t, []core.Turn{core.TurnLeft, core.TurnRight}, tr.PreferredTurn)
	}
}

func TestSpawnIsDeterministicForSeed(t *testing.T) {
	a := NewStore(DefaultKnowledgeBase()).Spawn(rand.New(rand.NewSource(7)))
	b := NewStore(DefaultKnowledgeBase()).Spawn(rand.New(rand.NewSource(7)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("Spawn differs for identical seeds (-a +b):\n%s", diff)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	s := NewStore(DefaultKnowledgeBase())
	s.NextGeneration()
	s.NextGeneration()
	traits := Traits{AvoidDistance: 40, PowerupWeight: 90, TurnRandomness: 0.3}
	s.OnCrash(&traits, core.ReasonWall)
	s.OnPickup(&traits)
	require.NotEqual(t, DefaultKnowledgeBase(), s.KnowledgeBase())

	s.Reset()

	assert.Equal(t, 1, s.Generation())
	if diff := cmp.Diff(DefaultKnowledgeBase(), s.KnowledgeBase()); diff != "" {
		t.Fatalf("knowledge base not reset (-want +got):\n%s", diff)
	}
}

func TestNilTraitsIgnored(t *testing.T) {
	s := NewStore(DefaultKnowledgeBase())
	s.OnCrash(nil, core.ReasonWall)
	s.OnPickup(nil)
	assert.Equal(t, DefaultKnowledgeBase(), s.KnowledgeBase())
}

func TestPopulation(t *testing.T) {
	assert.Equal(t, Stats{}, Population(nil))

	one := Population([]Traits{{AvoidDistance: 30, PreferredTurn: core.TurnLeft}})
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, Summary{Mean: 30}, one.AvoidDistance)
	assert.Equal(t, 1.0, one.LeftHanded)

	stats := Population([]Traits{
		{AvoidDistance: 20, PowerupWeight: 40, TurnRandomness: 0.1, RiskTolerance: 1, PreferredTurn: core.TurnLeft},
		{AvoidDistance: 30, PowerupWeight: 60, TurnRandomness: 0.3, RiskTolerance: 1, PreferredTurn: core.TurnRight},
	})
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 25, stats.AvoidDistance.Mean, 1e-9)
	assert.InDelta(t, 7.0710678, stats.AvoidDistance.StdDev, 1e-6)
	assert.InDelta(t, 50, stats.PowerupWeight.Mean, 1e-9)
	assert.InDelta(t, 0, stats.RiskTolerance.StdDev, 1e-9)
	assert.InDelta(t, 0.5, stats.LeftHanded, 1e-9)
}
