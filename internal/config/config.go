// Package config loads simulation tuning from YAML. Every knob has a
// default, so a file only needs to name what it changes.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neontrail/internal/ai"
	"neontrail/internal/collision"
	"neontrail/internal/world"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Rules holds the round timers
type Rules struct {
	// TickRate is the number of simulation steps per second of game time
	TickRate int `yaml:"tickRate"`
	// PowerupRespawnDelay is how long a collected powerup stays gone, in seconds
	PowerupRespawnDelay float64 `yaml:"powerupRespawnDelay"`
	// AISpawnInterval is the time between new AI generations, in seconds
	AISpawnInterval float64 `yaml:"aiSpawnInterval"`
	// MaxAIs caps the number of live AI bikes. Zero means no cap.
	MaxAIs int `yaml:"maxAIs"`
}

// Throttle trades accuracy for speed on weak hardware. A value of N runs the
// step on every Nth tick.
type Throttle struct {
	AICollisionEvery  int `yaml:"aiCollisionEvery"`
	IndexRebuildEvery int `yaml:"indexRebuildEvery"`
}

// DesktopThrottle runs every step on every tick
func DesktopThrottle() Throttle {
	return Throttle{AICollisionEvery: 1, IndexRebuildEvery: 1}
}

// MobileThrottle checks AI collisions every second tick and rebuilds the
// spatial index every third
func MobileThrottle() Throttle {
	return Throttle{AICollisionEvery: 2, IndexRebuildEvery: 3}
}

// Config is the full tuning of one simulation
type Config struct {
	Seed      int64            `yaml:"seed"`
	World     world.Config     `yaml:"world"`
	Collision collision.Config `yaml:"collision"`
	AI        ai.Config        `yaml:"ai"`
	Rules     Rules            `yaml:"rules"`
	Throttle  Throttle         `yaml:"throttle"`
}

// Default returns the default tuning
func Default() Config {
	return Config{
		Seed:      1,
		World:     world.DefaultConfig(),
		Collision: collision.DefaultConfig(),
		AI:        ai.DefaultConfig(),
		Rules: Rules{
			TickRate:            60,
			PowerupRespawnDelay: 2,
			AISpawnInterval:     10,
		},
		Throttle: DesktopThrottle(),
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config YAML: %w", err)
	}
	return data, nil
}

// Validate reports every out-of-range value at once
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	w := c.World
	check(w.Size > 0, "world.size must be positive, got %v", w.Size)
	check(w.PlayerSpeed > 0, "world.playerSpeed must be positive, got %v", w.PlayerSpeed)
	check(w.AISpeedBase > 0, "world.aiSpeedBase must be positive, got %v", w.AISpeedBase)
	check(w.CellSize > 0, "world.cellSize must be positive, got %v", w.CellSize)
	check(w.InitialObstacles >= 0 && w.RestartObstacles >= 0, "world obstacle counts must not be negative")
	check(w.InitialPowerups >= 0 && w.RestartPowerups >= 0, "world powerup counts must not be negative")
	check(w.PowerupRadius > 0, "world.powerupRadius must be positive, got %v", w.PowerupRadius)
	check(w.PlacementAttempts > 0, "world.placementAttempts must be positive, got %d", w.PlacementAttempts)

	check(w.Trail.Spacing > 0, "world.trail.spacing must be positive, got %v", w.Trail.Spacing)
	check(w.Trail.BaseLength >= 1, "world.trail.baseLength must be at least 1, got %d", w.Trail.BaseLength)
	check(w.Trail.Growth >= 0, "world.trail.growth must not be negative, got %d", w.Trail.Growth)

	kb := w.KnowledgeBase
	check(kb.AvoidDistance > 0, "world.knowledgeBase.avoidDistance must be positive, got %v", kb.AvoidDistance)
	check(kb.TurnRandomness >= 0, "world.knowledgeBase.turnRandomness must not be negative, got %v", kb.TurnRandomness)
	check(kb.LearningRate >= 0 && kb.LearningRate <= 1, "world.knowledgeBase.learningRate must be in [0, 1], got %v", kb.LearningRate)

	col := c.Collision
	check(col.WallMargin >= 0, "collision.wallMargin must not be negative, got %v", col.WallMargin)
	check(col.TrailIgnore >= 0, "collision.trailIgnore must not be negative, got %d", col.TrailIgnore)
	check(col.TeleportDistance <= col.ProximityDistance, "collision.teleportDistance must not exceed proximityDistance")

	check(c.AI.Lookahead > 0, "ai.lookahead must be positive, got %v", c.AI.Lookahead)
	check(c.AI.WallDanger > 0 && c.AI.ObstacleDanger > 0 && c.AI.TrailDanger > 0, "ai danger distances must be positive")
	check(c.AI.PowerupRange > 0, "ai.powerupRange must be positive, got %v", c.AI.PowerupRange)
	check(c.AI.DecisionRate >= c.AI.MaxRateCut, "ai.maxRateCut must not exceed decisionRate")

	check(c.Rules.TickRate > 0, "rules.tickRate must be positive, got %d", c.Rules.TickRate)
	check(c.Rules.PowerupRespawnDelay >= 0, "rules.powerupRespawnDelay must not be negative")
	check(c.Rules.AISpawnInterval > 0, "rules.aiSpawnInterval must be positive, got %v", c.Rules.AISpawnInterval)
	check(c.Rules.MaxAIs >= 0, "rules.maxAIs must not be negative, got %d", c.Rules.MaxAIs)

	check(c.Throttle.AICollisionEvery >= 1, "throttle.aiCollisionEvery must be at least 1, got %d", c.Throttle.AICollisionEvery)
	check(c.Throttle.IndexRebuildEvery >= 1, "throttle.indexRebuildEvery must be at least 1, got %d", c.Throttle.IndexRebuildEvery)

	return errors.Join(errs...)
}
