// Package pricing provides the option pricing primitive consumed by the
// risk engine. It is pure: no I/O, no state.
package pricing

import "math"

const daysPerYear = 365.0

// OptionDelta returns the Black-Scholes delta for a European option.
// Call deltas are in [0, 1], put deltas in [-1, 0]. Degenerate inputs
// (expired, zero volatility, non-positive prices) collapse to the
// intrinsic 0/±1 limits instead of returning NaN.
func OptionDelta(spot, strike, riskFreeRate float64, daysToExpiry int, volatility float64, isCall bool) float64 {
	if spot <= 0 || strike <= 0 {
		return 0
	}

	t := float64(daysToExpiry) / daysPerYear
	if t <= 0 || volatility <= 0 {
		return intrinsicDelta(spot, strike, isCall)
	}

	d1 := (math.Log(spot/strike) + (riskFreeRate+volatility*volatility/2)*t) / (volatility * math.Sqrt(t))
	if isCall {
		return normCDF(d1)
	}
	return normCDF(d1) - 1
}

func intrinsicDelta(spot, strike float64, isCall bool) float64 {
	if isCall {
		if spot > strike {
			return 1
		}
		return 0
	}
	if spot < strike {
		return -1
	}
	return 0
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
