package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func testConfig() Config {
	return Config{
		MinDelta:         -100,
		MaxDelta:         100,
		ExpiryWindowDays: 14,
		RiskFreeRate:     0.07,
		Volatility:       0.15,
		MinPremium:       500, // 5.00 at scale 2
		PriceScale:       2,
	}
}

func TestLongViolationRestrictions(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Evaluate([]schema.Position{
		{Symbol: "NIFTY24DECFUT", Class: schema.InstrumentFuture, Qty: 150},
	}, 2450000, time.Now())

	require.InDelta(t, 150, res.Delta, 1e-9)
	require.Equal(t, ExposureLong, res.Exposure)

	assert.False(t, res.Restrictions.Allows(schema.InstrumentFuture, schema.OrderSideBuy))
	assert.False(t, res.Restrictions.Allows(schema.InstrumentCall, schema.OrderSideBuy))
	assert.False(t, res.Restrictions.Allows(schema.InstrumentPut, schema.OrderSideSell))

	assert.True(t, res.Restrictions.Allows(schema.InstrumentFuture, schema.OrderSideSell))
	assert.True(t, res.Restrictions.Allows(schema.InstrumentCall, schema.OrderSideSell))
	assert.True(t, res.Restrictions.Allows(schema.InstrumentPut, schema.OrderSideBuy))
}

func TestShortViolationRestrictions(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Evaluate([]schema.Position{
		{Symbol: "NIFTY24DECFUT", Class: schema.InstrumentFuture, Qty: -150},
	}, 2450000, time.Now())

	require.Equal(t, ExposureShort, res.Exposure)
	assert.False(t, res.Restrictions.Allows(schema.InstrumentFuture, schema.OrderSideSell))
	assert.False(t, res.Restrictions.Allows(schema.InstrumentCall, schema.OrderSideSell))
	assert.False(t, res.Restrictions.Allows(schema.InstrumentPut, schema.OrderSideBuy))
	assert.True(t, res.Restrictions.Allows(schema.InstrumentFuture, schema.OrderSideBuy))
}

func TestDeltaBoundaryInclusive(t *testing.T) {
	e := NewEngine(testConfig())

	at := e.Evaluate([]schema.Position{
		{Symbol: "F", Class: schema.InstrumentFuture, Qty: 100},
	}, 2450000, time.Now())
	assert.Equal(t, ExposureWithinBounds, at.Exposure, "delta exactly at maxDelta is within bounds")
	assert.True(t, at.Restrictions.Allows(schema.InstrumentFuture, schema.OrderSideBuy))

	over := e.Evaluate([]schema.Position{
		{Symbol: "F", Class: schema.InstrumentFuture, Qty: 101},
	}, 2450000, time.Now())
	assert.Equal(t, ExposureLong, over.Exposure)
}

func TestOptionDeltaContribution(t *testing.T) {
	e := NewEngine(testConfig())
	now := time.Now()

	// Short 100 ATM calls: delta ~ -0.5 * 100.
	res := e.Evaluate([]schema.Position{
		{Symbol: "NIFTY24DEC24500CE", Class: schema.InstrumentCall, Strike: 2450000, Expiry: now.AddDate(0, 0, 7), Qty: -100},
	}, 2450000, now)
	assert.Less(t, res.Delta, -40.0)
	assert.Greater(t, res.Delta, -70.0)
	assert.Equal(t, ExposureWithinBounds, res.Exposure)
}

func TestExpiryWindowExcludesFarOptions(t *testing.T) {
	e := NewEngine(testConfig())
	now := time.Now()

	res := e.Evaluate([]schema.Position{
		{Symbol: "NIFTY25JUN24500CE", Class: schema.InstrumentCall, Strike: 2450000, Expiry: now.AddDate(0, 6, 0), Qty: -500},
	}, 2450000, now)
	assert.Zero(t, res.Delta, "options past the expiry window must not contribute delta")

	// But the held-option buy denial still applies: it is a portfolio
	// fact, not a delta fact.
	assert.False(t, res.Restrictions.AllowsOrder(schema.InstrumentCall, schema.OrderSideBuy, "NIFTY25JUN24500CE", 10000))
}

func TestHeldOptionDeniesFurtherBuys(t *testing.T) {
	e := NewEngine(testConfig())
	now := time.Now()
	res := e.Evaluate([]schema.Position{
		{Symbol: "NIFTY24DEC24000PE", Class: schema.InstrumentPut, Strike: 2400000, Expiry: now.AddDate(0, 0, 7), Qty: 75},
	}, 2450000, now)

	assert.False(t, res.Restrictions.AllowsOrder(schema.InstrumentPut, schema.OrderSideBuy, "NIFTY24DEC24000PE", 10000))
	// A different strike is unaffected.
	assert.True(t, res.Restrictions.AllowsOrder(schema.InstrumentPut, schema.OrderSideBuy, "NIFTY24DEC23500PE", 10000))
}

func TestMinPremiumLiftsBuyRestriction(t *testing.T) {
	e := NewEngine(testConfig())
	now := time.Now()
	res := e.Evaluate([]schema.Position{
		{Symbol: "F", Class: schema.InstrumentFuture, Qty: 150}, // long violation: call.buy denied
		{Symbol: "NIFTY24DEC25000CE", Class: schema.InstrumentCall, Strike: 2500000, Expiry: now.AddDate(0, 0, 7), Qty: -75},
	}, 2450000, now)

	require.Equal(t, ExposureLong, res.Exposure)
	// Above the premium floor the denial holds.
	assert.False(t, res.Restrictions.AllowsOrder(schema.InstrumentCall, schema.OrderSideBuy, "NIFTY24DEC25000CE", 2000))
	// At or below it, closing the near-worthless short is always allowed.
	assert.True(t, res.Restrictions.AllowsOrder(schema.InstrumentCall, schema.OrderSideBuy, "NIFTY24DEC25000CE", 500))
	assert.True(t, res.Restrictions.AllowsOrder(schema.InstrumentCall, schema.OrderSideBuy, "NIFTY24DEC25000CE", 95))
}

func TestCleanMatrix(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Evaluate(nil, 2450000, time.Now())
	assert.True(t, res.Restrictions.Clean())
	assert.Equal(t, ExposureWithinBounds, res.Exposure)
}
