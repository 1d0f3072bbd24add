package engine

import (
	"main/internal/model"
	"main/internal/schema"
	"main/internal/venue"
)

// WaveEnv is everything a policy sees when shaping one wave.
type WaveEnv struct {
	Symbol    string
	Class     schema.InstrumentClass
	Qty       model.Quantity
	FinalBuy  model.Price
	FinalSell model.Price
}

// WavePlan is the order set a policy wants resting. A nil side is
// simply not part of the strategy; Pair requests linking when both
// sides get placed.
type WavePlan struct {
	Sell *venue.PlaceRequest
	Buy  *venue.PlaceRequest
	Pair bool
}

// Policy shapes one wave. Risk restrictions, placement ordering and
// pairing mechanics stay in the orchestrator; policies only decide
// which orders should exist.
type Policy interface {
	Name() string
	BuildWave(env WaveEnv) WavePlan
}

// GapWavePolicy is the default strategy: a paired buy/sell pair resting
// around the reference price.
type GapWavePolicy struct{}

func (GapWavePolicy) Name() string { return "gapwave" }

func (GapWavePolicy) BuildWave(env WaveEnv) WavePlan {
	return WavePlan{
		Sell: &venue.PlaceRequest{
			Symbol: env.Symbol,
			Class:  env.Class,
			Side:   schema.OrderSideSell,
			Price:  env.FinalSell,
			Qty:    env.Qty,
		},
		Buy: &venue.PlaceRequest{
			Symbol: env.Symbol,
			Class:  env.Class,
			Side:   schema.OrderSideBuy,
			Price:  env.FinalBuy,
			Qty:    env.Qty,
		},
		Pair: true,
	}
}

// OptionSellPolicy is the directional variant: it keeps a single short
// option resting above the reference price and relies on the fill path
// resetting the reference price before the next wave. Orders are
// unpaired by construction.
type OptionSellPolicy struct{}

func (OptionSellPolicy) Name() string { return "optionsell" }

func (OptionSellPolicy) BuildWave(env WaveEnv) WavePlan {
	return WavePlan{
		Sell: &venue.PlaceRequest{
			Symbol: env.Symbol,
			Class:  env.Class,
			Side:   schema.OrderSideSell,
			Price:  env.FinalSell,
			Qty:    env.Qty,
		},
	}
}
