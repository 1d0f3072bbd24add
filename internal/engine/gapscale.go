package engine

import (
	"github.com/yanun0323/errors"
)

// GapScaleTable maps the absolute position-diff magnitude to a gap
// multiplier. Index 0 holds the multiplier for |diff| == 1; lookups
// beyond the table clamp to the last entry.
type GapScaleTable []float64

// Validate rejects tables that would break mean reversion: every entry
// must be at least 1.0 and the sequence must be non-decreasing.
func (t GapScaleTable) Validate() error {
	if len(t) == 0 {
		return errors.New("gap scale table is empty")
	}
	prev := 1.0
	for i, s := range t {
		if s < 1.0 {
			return errors.Errorf("gap scale level %d is %v, must be >= 1.0", i+1, s)
		}
		if s < prev {
			return errors.Errorf("gap scale table not monotonic at level %d: %v < %v", i+1, s, prev)
		}
		prev = s
	}
	return nil
}

// Scale returns the (buy, sell) gap multipliers for a position-diff.
// A net-long book widens the buy side, a net-short book the sell side;
// a flat book leaves both gaps untouched.
func (t GapScaleTable) Scale(positionDiff int64) (buyMul, sellMul float64) {
	if positionDiff == 0 || len(t) == 0 {
		return 1.0, 1.0
	}

	level := positionDiff
	if level < 0 {
		level = -level
	}
	if level > int64(len(t)) {
		level = int64(len(t))
	}
	s := t[level-1]

	if positionDiff > 0 {
		return s, 1.0
	}
	return 1.0, s
}
