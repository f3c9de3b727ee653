package ai

import (
	"math"
	"math/rand"

	"neontrail/internal/core"
	"neontrail/internal/world"
)

// State is where an AI bike is in its decide/crash cycle
type State uint8

const (
	Cruising State = iota
	Evaluating
	Crashed
)

func (s State) String() string {
	switch s {
	case Cruising:
		return "cruising"
	case Evaluating:
		return "evaluating"
	case Crashed:
		return "crashed"
	}
	return "unknown"
}

// MarshalText renders the state for JSON consumers
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Pilot is the decision state kept for one AI bike
type Pilot struct {
	State    State
	LastTurn float64
	// Last is the evaluation of the most recently committed heading
	Last      Evaluation
	Decisions int
}

// Brain owns the pilots of every AI bike in a world
type Brain struct {
	cfg    Config
	rng    *rand.Rand
	pilots map[core.EntityID]*Pilot
}

// NewBrain creates a brain drawing jitter from rng
func NewBrain(cfg Config, rng *rand.Rand) *Brain {
	return &Brain{
		cfg:    cfg,
		rng:    rng,
		pilots: make(map[core.EntityID]*Pilot),
	}
}

// Config returns the scoring weights
func (br *Brain) Config() Config {
	return br.cfg
}

// Pilot returns the pilot for id, creating a cruising one on first use
func (br *Brain) Pilot(id core.EntityID) *Pilot {
	p, ok := br.pilots[id]
	if !ok {
		p = &Pilot{State: Cruising}
		br.pilots[id] = p
	}
	return p
}

// Ready reports whether b may re-evaluate at time now. Faster bikes think
// more often.
func (br *Brain) Ready(b *world.Bike, now float64) bool {
	p := br.Pilot(b.ID)
	if p.State == Crashed {
		return false
	}
	speed := b.Speed
	if !(speed > 0) {
		speed = 1
	}
	return now >= p.LastTurn+br.cfg.DecisionDelay/speed
}

// Decide re-evaluates b's heading when its cadence allows. It returns the
// heading to take and whether an evaluation happened at all. b itself is
// not modified.
func (br *Brain) Decide(w *world.World, b *world.Bike, now float64) (core.Heading, bool) {
	if w == nil || b == nil {
		return 0, false
	}
	if !br.Ready(b, now) {
		return b.Pose.Heading, false
	}

	p := br.Pilot(b.ID)
	p.State = Evaluating

	// Later generations think faster
	gen := float64(max(b.Generation, 1))
	rate := br.cfg.DecisionRate - math.Min(br.cfg.MaxRateCut, (gen-1)*br.cfg.RateStep)
	p.LastTurn = now + br.rng.Float64()*rate

	best, _ := Choose(br.cfg, w, b, br.rng)
	p.Last = best
	p.Decisions++
	p.State = Cruising
	return best.Heading, true
}

// Crash marks b's pilot as crashed until Respawned is called
func (br *Brain) Crash(id core.EntityID) {
	br.Pilot(id).State = Crashed
}

// Respawned returns a crashed pilot to cruising
func (br *Brain) Respawned(id core.EntityID) {
	br.Pilot(id).State = Cruising
}

// Forget drops the pilot of a removed bike
func (br *Brain) Forget(id core.EntityID) {
	delete(br.pilots, id)
}

// Reset drops every pilot
func (br *Brain) Reset() {
	clear(br.pilots)
}
