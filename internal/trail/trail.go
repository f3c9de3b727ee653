// Package trail keeps the wall of segments each bike leaves behind.
package trail

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"neontrail/internal/core"
)

// Config tunes segment sampling and the tail cap
type Config struct {
	// Spacing is the distance a bike must travel past its newest segment
	// before another one is laid
	Spacing float64 `yaml:"spacing"`
	// BaseLength is the tail cap a bike starts (and respawns) with
	BaseLength int `yaml:"baseLength"`
	// Growth is added to the cap on every powerup pickup
	Growth int `yaml:"growth"`
}

// DefaultConfig returns the default trail tuning
func DefaultConfig() Config {
	return Config{
		Spacing:    3,
		BaseLength: 5,
		Growth:     5,
	}
}

// Segment is one collidable box of a trail. Seq increases by one per
// segment laid by the same owner and is never reused within a round.
type Segment struct {
	Owner     core.EntityID `json:"owner"`
	Seq       uint64        `json:"seq"`
	Position  mgl64.Vec3    `json:"position"`
	Heading   core.Heading  `json:"heading"`
	Yaw       float64       `json:"yaw"`
	CreatedAt float64       `json:"createdAt"`
}

// Location implements spatial.Locatable
func (s Segment) Location() (mgl64.Vec3, bool) {
	return s.Position, true
}

// EventKind tells a renderer whether to add or drop a segment mesh
type EventKind uint8

const (
	Created EventKind = iota
	Evicted
)

func (k EventKind) String() string {
	if k == Evicted {
		return "evicted"
	}
	return "created"
}

// MarshalText renders the event kind for JSON consumers
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event reports a segment lifecycle change
type Event struct {
	Kind    EventKind `json:"kind"`
	Segment Segment   `json:"segment"`
}

// Trail is the ordered (oldest first) segment list of a single bike
type Trail struct {
	owner      core.EntityID
	cfg        Config
	segments   []Segment
	tailLength int
	nextSeq    uint64
}

// New creates an empty trail for owner
func New(owner core.EntityID, cfg Config) *Trail {
	def := DefaultConfig()
	if cfg.Spacing <= 0 {
		cfg.Spacing = def.Spacing
	}
	if cfg.BaseLength <= 0 {
		cfg.BaseLength = def.BaseLength
	}
	if cfg.Growth < 0 {
		cfg.Growth = 0
	}
	return &Trail{
		owner:      owner,
		cfg:        cfg,
		tailLength: cfg.BaseLength,
		nextSeq:    1,
	}
}

// Owner returns the bike the trail belongs to
func (t *Trail) Owner() core.EntityID {
	return t.owner
}

// MaybeAppend lays a new segment at pose when the trail is empty or the
// bike has moved more than Spacing from the newest segment, then evicts the
// oldest segments until the cap holds again. Sampling is distance gated so
// a fast bike gets the same segment density as a slow one.
func (t *Trail) MaybeAppend(pose core.Pose, now float64) []Event {
	if t == nil || !core.Finite(pose.Position) {
		return nil
	}
	if last, ok := t.Last(); ok && last.Position.Sub(pose.Position).Len() <= t.cfg.Spacing {
		return nil
	}

	seg := Segment{
		Owner:     t.owner,
		Seq:       t.nextSeq,
		Position:  pose.Position,
		Heading:   pose.Heading,
		Yaw:       pose.Heading.Yaw(),
		CreatedAt: now,
	}
	t.nextSeq++
	t.segments = append(t.segments, seg)

	events := []Event{{Kind: Created, Segment: seg}}
	return append(events, t.trim()...)
}

// Grow raises the tail cap by one pickup's worth of segments
func (t *Trail) Grow() {
	t.tailLength += t.cfg.Growth
}

// TailLength is the current segment cap
func (t *Trail) TailLength() int {
	return t.tailLength
}

// Reset restores the base tail cap and evicts whatever now exceeds it
func (t *Trail) Reset() []Event {
	if t == nil {
		return nil
	}
	t.tailLength = t.cfg.BaseLength
	return t.trim()
}

// Clear evicts every segment, oldest first
func (t *Trail) Clear() []Event {
	if t == nil || len(t.segments) == 0 {
		return nil
	}
	events := make([]Event, 0, len(t.segments))
	for _, seg := range t.segments {
		events = append(events, Event{Kind: Evicted, Segment: seg})
	}
	t.segments = t.segments[:0]
	return events
}

// Len returns the number of live segments
func (t *Trail) Len() int {
	if t == nil {
		return 0
	}
	return len(t.segments)
}

// Segments returns the live segments, oldest first. The slice is owned by
// the trail and must not be modified.
func (t *Trail) Segments() []Segment {
	if t == nil {
		return nil
	}
	return t.segments
}

// Older returns every segment except the newest k
func (t *Trail) Older(k int) []Segment {
	if t == nil {
		return nil
	}
	n := len(t.segments) - k
	if n <= 0 {
		return nil
	}
	return t.segments[:n]
}

// IsRecent reports whether seg is among the newest k segments of this trail
func (t *Trail) IsRecent(seg Segment, k int) bool {
	if t == nil || k <= 0 || seg.Owner != t.owner {
		return false
	}
	return seg.Seq+uint64(k) >= t.nextSeq
}

// Live reports whether seg is still part of this trail
func (t *Trail) Live(seg Segment) bool {
	if t == nil || len(t.segments) == 0 || seg.Owner != t.owner {
		return false
	}
	return seg.Seq >= t.segments[0].Seq && seg.Seq <= t.segments[len(t.segments)-1].Seq
}

// NextSeq is the sequence number the next segment will carry
func (t *Trail) NextSeq() uint64 {
	if t == nil {
		return 0
	}
	return t.nextSeq
}

// Since returns the live segments whose Seq is at least seq, oldest first
func (t *Trail) Since(seq uint64) []Segment {
	if t == nil {
		return nil
	}
	i := sort.Search(len(t.segments), func(i int) bool { return t.segments[i].Seq >= seq })
	return t.segments[i:]
}

// Last returns the newest segment
func (t *Trail) Last() (Segment, bool) {
	if t == nil || len(t.segments) == 0 {
		return Segment{}, false
	}
	return t.segments[len(t.segments)-1], true
}

func (t *Trail) trim() []Event {
	var events []Event
	for len(t.segments) > t.tailLength {
		events = append(events, Event{Kind: Evicted, Segment: t.segments[0]})
		t.segments = t.segments[1:]
	}
	return events
}
