package pricing

import (
	"math"
	"testing"
)

func TestOptionDeltaAtTheMoney(t *testing.T) {
	// ATM call delta is slightly above 0.5 for positive rates.
	d := OptionDelta(24500, 24500, 0.07, 30, 0.15, true)
	if d < 0.5 || d > 0.6 {
		t.Fatalf("ATM call delta = %v, want in [0.5, 0.6]", d)
	}

	p := OptionDelta(24500, 24500, 0.07, 30, 0.15, false)
	if math.Abs((d-1)-p) > 1e-12 {
		t.Fatalf("put-call delta parity violated: call=%v put=%v", d, p)
	}
}

func TestOptionDeltaBounds(t *testing.T) {
	for _, days := range []int{0, 1, 7, 30, 365} {
		for _, strike := range []float64{20000, 24500, 30000} {
			c := OptionDelta(24500, strike, 0.07, days, 0.2, true)
			if c < 0 || c > 1 {
				t.Fatalf("call delta %v out of [0,1] (strike=%v days=%d)", c, strike, days)
			}
			p := OptionDelta(24500, strike, 0.07, days, 0.2, false)
			if p < -1 || p > 0 {
				t.Fatalf("put delta %v out of [-1,0] (strike=%v days=%d)", p, strike, days)
			}
		}
	}
}

func TestOptionDeltaDegenerate(t *testing.T) {
	if d := OptionDelta(0, 24500, 0.07, 30, 0.2, true); d != 0 {
		t.Fatalf("zero spot delta = %v, want 0", d)
	}
	if d := OptionDelta(30000, 24500, 0.07, 0, 0.2, true); d != 1 {
		t.Fatalf("expired ITM call delta = %v, want 1", d)
	}
	if d := OptionDelta(20000, 24500, 0.07, 0, 0.2, false); d != -1 {
		t.Fatalf("expired ITM put delta = %v, want -1", d)
	}
	if d := OptionDelta(24500, 20000, 0.07, 30, 0, true); d != 1 {
		t.Fatalf("zero vol ITM call delta = %v, want 1", d)
	}
}

func TestOptionDeltaMonotoneInSpot(t *testing.T) {
	prev := -1.0
	for spot := 20000.0; spot <= 30000; spot += 500 {
		d := OptionDelta(spot, 24500, 0.07, 30, 0.18, true)
		if d < prev {
			t.Fatalf("call delta not monotone in spot at %v: %v < %v", spot, d, prev)
		}
		prev = d
	}
}
