// Package learning holds the per-bike AI trait vectors and the shared
// knowledge base they drift.
package learning

import (
	"math"
	"math/rand"

	"neontrail/internal/core"
)

// MinTurnRandomness keeps every AI at least a little unpredictable
const MinTurnRandomness = 0.05

// Traits is the mutable personality of one AI bike
type Traits struct {
	AvoidDistance  float64   `json:"avoidDistance" yaml:"avoidDistance"`
	PowerupWeight  float64   `json:"powerupWeight" yaml:"powerupWeight"`
	TurnRandomness float64   `json:"turnRandomness" yaml:"turnRandomness"`
	PreferredTurn  core.Turn `json:"preferredTurn" yaml:"preferredTurn"`
	RiskTolerance  float64   `json:"riskTolerance" yaml:"riskTolerance"`
}

// KnowledgeBase is the session-wide running average of AI traits
type KnowledgeBase struct {
	AvoidDistance   float64 `json:"avoidDistance" yaml:"avoidDistance"`
	PowerupWeight   float64 `json:"powerupWeight" yaml:"powerupWeight"`
	TurnRandomness  float64 `json:"turnRandomness" yaml:"turnRandomness"`
	AvoidWallWeight float64 `json:"avoidWallWeight" yaml:"avoidWallWeight"`
	LearningRate    float64 `json:"learningRate" yaml:"learningRate"`
}

// DefaultKnowledgeBase returns the values a fresh session starts from
func DefaultKnowledgeBase() KnowledgeBase {
	return KnowledgeBase{
		AvoidDistance:   25,
		PowerupWeight:   50,
		TurnRandomness:  0.2,
		AvoidWallWeight: 1.0,
		LearningRate:    0.1,
	}
}

// FoldTrait merges an updated personal trait into a shared average weighted
// by the current generation count. Generations below 1 count as 1, which
// makes the incoming value win outright.
func FoldTrait(current, incoming float64, generation int) float64 {
	if generation < 1 {
		generation = 1
	}
	g := float64(generation)
	return (current*(g-1) + incoming) / g
}

// Store owns the knowledge base and the generation counter. It is the only
// writer of either.
type Store struct {
	defaults   KnowledgeBase
	kb         KnowledgeBase
	generation int
}

// NewStore creates a store seeded with defaults at generation 1
func NewStore(defaults KnowledgeBase) *Store {
	return &Store{
		defaults:   defaults,
		kb:         defaults,
		generation: 1,
	}
}

// KnowledgeBase returns a copy of the shared averages
func (s *Store) KnowledgeBase() KnowledgeBase {
	return s.kb
}

// Generation is the ordinal of the most recently spawned AI
func (s *Store) Generation() int {
	return s.generation
}

// NextGeneration advances the generation counter and returns the new value
func (s *Store) NextGeneration() int {
	s.generation++
	return s.generation
}

// Reset puts the knowledge base back to its defaults and the generation
// counter back to 1
func (s *Store) Reset() {
	s.kb = s.defaults
	s.generation = 1
}

// Spawn draws a fresh trait vector by jittering the knowledge base
func (s *Store) Spawn(rng *rand.Rand) Traits {
	preferred := core.TurnRight
	if rng.Float64() > 0.5 {
		preferred = core.TurnLeft
	}
	return Traits{
		AvoidDistance:  s.kb.AvoidDistance + (rng.Float64()-0.5)*5,
		PowerupWeight:  s.kb.PowerupWeight + (rng.Float64()-0.5)*10,
		TurnRandomness: math.Max(MinTurnRandomness, s.kb.TurnRandomness*(0.8+rng.Float64()*0.4)),
		PreferredTurn:  preferred,
		RiskTolerance:  0.8 + rng.Float64()*0.4,
	}
}

// OnPickup reinforces powerup seeking after t collected one
func (s *Store) OnPickup(t *Traits) {
	if t == nil {
		return
	}
	t.PowerupWeight += s.kb.LearningRate * 5
	s.kb.PowerupWeight = FoldTrait(s.kb.PowerupWeight, t.PowerupWeight, s.generation)
}

// OnCrash widens t's avoidance margin according to what it hit and makes it
// slightly more predictable. Bike-on-bike crashes teach no avoidance.
func (s *Store) OnCrash(t *Traits, reason core.Reason) {
	if t == nil {
		return
	}
	lr := s.kb.LearningRate

	switch reason {
	case core.ReasonWall:
		t.AvoidDistance += lr * 5
		s.kb.AvoidWallWeight += lr
	case core.ReasonObstacle, core.ReasonOwnTrail, core.ReasonOpponentTrail:
		t.AvoidDistance += lr * 3
	}

	t.TurnRandomness = math.Max(MinTurnRandomness, t.TurnRandomness-lr*0.05)
	s.kb.AvoidDistance = FoldTrait(s.kb.AvoidDistance, t.AvoidDistance, s.generation)
}
