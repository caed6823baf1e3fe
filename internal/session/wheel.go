package session

import (
	"math"
	"time"
)

// Rand is the random source for draws and wheel jitter.
type Rand interface {
	IntN(n int) int
}

// WheelConfig controls the spin animation handed to clients.
type WheelConfig struct {
	FullTurns int
	Duration  time.Duration
}

// DefaultWheelConfig returns the production spin settings.
func DefaultWheelConfig() WheelConfig {
	return WheelConfig{FullTurns: 5, Duration: 4 * time.Second}
}

// Spin tells a client how to animate a draw. Segments are laid out clockwise from the
// pointer in Labels order; rotating the wheel clockwise by Rotation degrees stops the
// pointer inside segment Index.
type Spin struct {
	Labels     []string `json:"labels"`
	Index      int      `json:"index"`
	Rotation   float64  `json:"rotation"`
	DurationMs int64    `json:"duration_ms"`
}

// newSpin computes the rotation that lands on segment index, jittered within 40% of the segment half-width.
func newSpin(labels []string, index int, rng Rand, cfg WheelConfig) *Spin {
	n := len(labels)
	segment := 360.0 / float64(n)
	jitter := (float64(rng.IntN(801)) - 400) / 1000 * segment
	target := float64(index)*segment + segment/2 + jitter

	turns := cfg.FullTurns
	if turns < 1 {
		turns = 1
	}
	return &Spin{
		Labels:     labels,
		Index:      index,
		Rotation:   float64(turns)*360 + (360 - target),
		DurationMs: cfg.Duration.Milliseconds(),
	}
}

// SegmentAt returns the segment under the pointer after rotating a wheel of n segments by rotation degrees.
func SegmentAt(n int, rotation float64) int {
	if n <= 0 {
		return -1
	}
	segment := 360.0 / float64(n)
	angle := math.Mod(360-math.Mod(rotation, 360), 360)
	if angle < 0 {
		angle += 360
	}
	idx := int(angle / segment)
	if idx >= n {
		idx = n - 1
	}
	return idx
}
