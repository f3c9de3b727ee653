// Package ai steers the computer-controlled bikes.
//
// Every few hundred milliseconds a pilot projects each legal heading
// forward, scores the projected point against the arena and commits to the
// best one.
package ai

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
	"neontrail/internal/world"
)

// Config holds the scoring weights
type Config struct {
	// Lookahead is the projection distance for a bike whose avoidDistance
	// equals the knowledge base average
	Lookahead float64 `yaml:"lookahead"`

	BaseScore        float64 `yaml:"baseScore"`
	WallDanger       float64 `yaml:"wallDanger"`
	WallPenalty      float64 `yaml:"wallPenalty"`
	ObstacleDanger   float64 `yaml:"obstacleDanger"`
	ObstaclePenalty  float64 `yaml:"obstaclePenalty"`
	TrailDanger      float64 `yaml:"trailDanger"`
	TrailPenalty     float64 `yaml:"trailPenalty"`
	OwnTrailWeight   float64 `yaml:"ownTrailWeight"`
	OtherTrailWeight float64 `yaml:"otherTrailWeight"`
	// OwnTrailSkip is how many of its newest segments a bike ignores
	OwnTrailSkip int `yaml:"ownTrailSkip"`

	PowerupRange float64 `yaml:"powerupRange"`

	PursuitGeneration int     `yaml:"pursuitGeneration"`
	PursuitOptimal    float64 `yaml:"pursuitOptimal"`
	PursuitFalloff    float64 `yaml:"pursuitFalloff"`
	PursuitBonus      float64 `yaml:"pursuitBonus"`
	BackOffDistance   float64 `yaml:"backOffDistance"`
	BackOffPenalty    float64 `yaml:"backOffPenalty"`

	JitterScale    float64 `yaml:"jitterScale"`
	PreferredBonus float64 `yaml:"preferredBonus"`

	// DecisionDelay is divided by speed to get the minimum time between
	// evaluations
	DecisionDelay float64 `yaml:"decisionDelay"`
	// DecisionRate is the jitter window added after each evaluation. It
	// shrinks by RateStep per generation down to DecisionRate-MaxRateCut.
	DecisionRate float64 `yaml:"decisionRate"`
	RateStep     float64 `yaml:"rateStep"`
	MaxRateCut   float64 `yaml:"maxRateCut"`
}

// DefaultConfig returns the default weights
func DefaultConfig() Config {
	return Config{
		Lookahead:         30,
		BaseScore:         100,
		WallDanger:        20,
		WallPenalty:       1000,
		ObstacleDanger:    15,
		ObstaclePenalty:   500,
		TrailDanger:       10,
		TrailPenalty:      400,
		OwnTrailWeight:    1.2,
		OtherTrailWeight:  0.8,
		OwnTrailSkip:      3,
		PowerupRange:      50,
		PursuitGeneration: 2,
		PursuitOptimal:    50,
		PursuitFalloff:    100,
		PursuitBonus:      30,
		BackOffDistance:   20,
		BackOffPenalty:    100,
		JitterScale:       20,
		PreferredBonus:    10,
		DecisionDelay:     0.5,
		DecisionRate:      0.5,
		RateStep:          0.05,
		MaxRateCut:        0.3,
	}
}

// Distances records how close the projected point came to each hazard
type Distances struct {
	Walls          float64 `json:"walls"`
	Obstacles      float64 `json:"obstacles"`
	PlayerTrail    float64 `json:"playerTrail"`
	AITrails       float64 `json:"aiTrails"`
	ClosestPowerup float64 `json:"closestPowerup"`
}

// Evaluation is the score of one candidate heading
type Evaluation struct {
	Heading   core.Heading `json:"heading"`
	Turn      core.Turn    `json:"turn"`
	Score     float64      `json:"score"`
	Distances Distances    `json:"distances"`
}

// Evaluate scores moving b along heading. It reads the world but never
// changes it; the only side effect is one draw from rng for jitter.
func Evaluate(cfg Config, w *world.World, b *world.Bike, heading core.Heading, rng *rand.Rand) Evaluation {
	ev := Evaluation{
		Heading: heading,
		Turn:    turnBetween(b.Pose.Heading, heading),
		Distances: Distances{
			Walls:          math.Inf(1),
			Obstacles:      math.Inf(1),
			PlayerTrail:    math.Inf(1),
			AITrails:       math.Inf(1),
			ClosestPowerup: math.Inf(1),
		},
	}
	traits := b.Traits
	kb := w.Learning.KnowledgeBase()
	gen := float64(max(b.Generation, 1))

	lookahead := cfg.Lookahead
	if kb.AvoidDistance > 0 {
		lookahead = cfg.Lookahead * traits.AvoidDistance / kb.AvoidDistance
	}
	future := b.Pose.Position.Add(heading.Vec().Mul(lookahead))
	score := cfg.BaseScore * traits.RiskTolerance

	half := w.HalfSize()
	toWall := math.Min(half-math.Abs(future.X()), half-math.Abs(future.Z()))
	ev.Distances.Walls = toWall
	if toWall < cfg.WallDanger {
		score -= cfg.WallPenalty * kb.AvoidWallWeight * (cfg.WallDanger - toWall) / cfg.WallDanger
	}

	awareness := 1 + (gen-1)*0.1
	for _, o := range w.Obstacles {
		if o.Boundary {
			continue
		}
		m := o.Multiplier()
		d := future.Sub(o.Position).Len()
		ev.Distances.Obstacles = math.Min(ev.Distances.Obstacles, d)

		threshold := cfg.ObstacleDanger * traits.RiskTolerance * m
		if d < threshold {
			score -= m * cfg.ObstaclePenalty / awareness * (threshold - d) / threshold
		}
	}

	if w.Player != nil {
		for _, seg := range w.Player.Trail.Segments() {
			d := future.Sub(seg.Position).Len()
			ev.Distances.PlayerTrail = math.Min(ev.Distances.PlayerTrail, d)
			if d < cfg.TrailDanger {
				score -= cfg.TrailPenalty
			}
		}
	}

	for _, other := range w.AIs {
		segs := other.Trail.Segments()
		weight := cfg.OtherTrailWeight
		if other.ID == b.ID {
			segs = other.Trail.Older(cfg.OwnTrailSkip)
			weight = cfg.OwnTrailWeight
		}
		for _, seg := range segs {
			d := future.Sub(seg.Position).Len()
			ev.Distances.AITrails = math.Min(ev.Distances.AITrails, d)
			if d < cfg.TrailDanger {
				score -= cfg.TrailPenalty * weight
			}
		}
	}

	appetite := traits.PowerupWeight * (1 + (gen-1)*0.1)
	for _, p := range w.Powerups {
		d := future.Sub(p.Position).Len()
		ev.Distances.ClosestPowerup = math.Min(ev.Distances.ClosestPowerup, d)
		if d < cfg.PowerupRange {
			score += appetite * (1 - d/cfg.PowerupRange)
		}
	}

	if b.Generation > cfg.PursuitGeneration && w.Player != nil {
		score += pursuit(cfg, future, w.Player.Pose.Position, gen)
	}

	score += (rng.Float64() - 0.5) * cfg.JitterScale * traits.TurnRandomness

	if traits.PreferredTurn != core.TurnStraight && heading == b.Pose.Heading.Turned(traits.PreferredTurn) {
		score += cfg.PreferredBonus
	}

	ev.Score = score
	return ev
}

// pursuit rewards closing on the player down to the optimal distance and
// punishes getting closer than the back-off distance
func pursuit(cfg Config, future, player mgl64.Vec3, gen float64) float64 {
	d := future.Sub(player).Len()
	switch {
	case d > cfg.PursuitOptimal:
		target := cfg.PursuitBonus * (gen - float64(cfg.PursuitGeneration))
		return target * (1 - math.Min(1, (d-cfg.PursuitOptimal)/cfg.PursuitFalloff))
	case d < cfg.BackOffDistance:
		return -cfg.BackOffPenalty * (1 - d/cfg.BackOffDistance)
	}
	return 0
}

func turnBetween(from, to core.Heading) core.Turn {
	switch to {
	case from.Left():
		return core.TurnLeft
	case from.Right():
		return core.TurnRight
	}
	return core.TurnStraight
}

// Choose evaluates straight, left and right in that order and picks the
// winner. Leaving straight requires a strictly better score than both
// alternatives, so ties keep the current heading.
func Choose(cfg Config, w *world.World, b *world.Bike, rng *rand.Rand) (Evaluation, [3]Evaluation) {
	h := b.Pose.Heading
	evals := [3]Evaluation{
		Evaluate(cfg, w, b, h, rng),
		Evaluate(cfg, w, b, h.Left(), rng),
		Evaluate(cfg, w, b, h.Right(), rng),
	}
	straight, left, right := evals[0], evals[1], evals[2]

	switch {
	case left.Score > straight.Score && left.Score > right.Score:
		return left, evals
	case right.Score > straight.Score && right.Score > left.Score:
		return right, evals
	}
	return straight, evals
}
