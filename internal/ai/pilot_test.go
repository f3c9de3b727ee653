package ai

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
)

func TestDecisionCadence(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnLeft)
	br := NewBrain(DefaultConfig(), rand.New(rand.NewSource(5)))

	if _, decided := br.Decide(w, b, 0); decided {
		t.Fatalf("Expected the first evaluation to wait for the decision delay")
	}

	heading, decided := br.Decide(w, b, 1)
	if !decided {
		t.Fatalf("Expected first call to evaluate")
	}
	if heading != core.HeadingPosX.Left() {
		t.Fatalf("Expected preferred left heading, got %s", heading)
	}
	if b.Pose.Heading != core.HeadingPosX {
		t.Fatalf("Decide must not mutate the bike")
	}

	p := br.Pilot(b.ID)
	if p.LastTurn < 1 || p.LastTurn >= 1.5 {
		t.Fatalf("Expected lastTurn in [1, 1.5), got %f", p.LastTurn)
	}

	if _, decided := br.Decide(w, b, 1.1); decided {
		t.Fatalf("Expected no evaluation before the cadence elapsed")
	}
	if _, decided := br.Decide(w, b, 2.0); !decided {
		t.Fatalf("Expected evaluation once the cadence elapsed")
	}
	if p.Decisions != 2 {
		t.Fatalf("Expected 2 decisions, got %d", p.Decisions)
	}
	if p.State != Cruising {
		t.Fatalf("Expected cruising after a decision, got %s", p.State)
	}
}

func TestLaterGenerationsThinkFaster(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnLeft)
	b.Generation = 10
	br := NewBrain(DefaultConfig(), rand.New(rand.NewSource(5)))

	for i := 1; i <= 50; i++ {
		now := float64(i) * 10
		if _, decided := br.Decide(w, b, now); !decided {
			t.Fatalf("Expected evaluation at %f", now)
		}
		if wait := br.Pilot(b.ID).LastTurn - now; wait > 0.2 {
			t.Fatalf("Expected decision jitter <= 0.2 at generation 10, got %f", wait)
		}
	}
}

func TestCrashedPilotDoesNotDecide(t *testing.T) {
	w, b := newArena(t, mgl64.Vec3{0, 3, 0}, core.HeadingPosX, core.TurnLeft)
	br := NewBrain(DefaultConfig(), rand.New(rand.NewSource(5)))

	br.Crash(b.ID)
	if _, decided := br.Decide(w, b, 100); decided {
		t.Fatalf("Crashed pilot must not evaluate")
	}

	br.Respawned(b.ID)
	if _, decided := br.Decide(w, b, 100); !decided {
		t.Fatalf("Respawned pilot should evaluate")
	}
}

func TestBrainReset(t *testing.T) {
	br := NewBrain(DefaultConfig(), rand.New(rand.NewSource(5)))
	br.Pilot(4).LastTurn = 99
	br.Reset()
	if br.Pilot(4).LastTurn != 0 {
		t.Fatalf("Expected fresh pilot after reset")
	}

	br.Pilot(5).Decisions = 3
	br.Forget(5)
	if br.Pilot(5).Decisions != 0 {
		t.Fatalf("Expected fresh pilot after forget")
	}
}

func TestDecideNilSafety(t *testing.T) {
	br := NewBrain(DefaultConfig(), rand.New(rand.NewSource(5)))
	if _, decided := br.Decide(nil, nil, 0); decided {
		t.Fatalf("Expected no decision without a world")
	}
}
