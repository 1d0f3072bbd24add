package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/pkg/exception"
)

type scriptQuoter struct {
	prices []model.Price
	i      int
	errAt  int // 1-based call index that fails, 0 = never
}

func (q *scriptQuoter) Quote(_ context.Context, _ string) (model.Price, error) {
	q.i++
	if q.errAt != 0 && q.i >= q.errAt {
		return 0, exception.ErrMarketDataUnavailable
	}
	idx := q.i - 1
	if idx >= len(q.prices) {
		idx = len(q.prices) - 1
	}
	return q.prices[idx], nil
}

func TestResolveStablePrice(t *testing.T) {
	q := &scriptQuoter{prices: []model.Price{2450000, 2450000}}
	r := NewResolver(q, 0)

	buy, sell, err := r.Resolve(context.Background(), "NIFTY24DECFUT", 2450000, 2500, 2500)
	require.NoError(t, err)
	assert.EqualValues(t, 2447500, buy)
	assert.EqualValues(t, 2452500, sell)
}

func TestResolveMostAggressiveOfBothObservations(t *testing.T) {
	// Price drops during the cool-off: buy must follow it down, sell
	// must keep the earlier, higher anchor.
	q := &scriptQuoter{prices: []model.Price{2450000, 2440000}}
	r := NewResolver(q, 0)

	buy, sell, err := r.Resolve(context.Background(), "X", 2450000, 2500, 2500)
	require.NoError(t, err)
	assert.EqualValues(t, 2437500, buy, "buy follows the second, lower sample")
	assert.EqualValues(t, 2452500, sell, "sell keeps the first, higher sample")
}

func TestResolveUsesLastExecutionAnchor(t *testing.T) {
	// Last execution below both samples drags the buy candidate down.
	q := &scriptQuoter{prices: []model.Price{2450000, 2450000}}
	r := NewResolver(q, 0)

	buy, sell, err := r.Resolve(context.Background(), "X", 2430000, 2500, 2500)
	require.NoError(t, err)
	assert.EqualValues(t, 2427500, buy)
	assert.EqualValues(t, 2452500, sell)
}

func TestResolveMonotoneProperty(t *testing.T) {
	cases := [][2]model.Price{
		{2450000, 2450000},
		{2450000, 2460000},
		{2460000, 2450000},
		{2400000, 2500000},
	}
	lastExec := model.Price(2445000)
	for _, c := range cases {
		q := &scriptQuoter{prices: []model.Price{c[0], c[1]}}
		r := NewResolver(q, 0)
		buy, sell, err := r.Resolve(context.Background(), "X", lastExec, 2500, 2500)
		require.NoError(t, err)

		cand0Buy := min(c[0]-2500, lastExec-2500)
		cand1Buy := c[1] - 2500
		assert.LessOrEqual(t, buy, min(cand0Buy, cand1Buy))

		cand0Sell := max(c[0]+2500, lastExec+2500)
		cand1Sell := c[1] + 2500
		assert.GreaterOrEqual(t, sell, max(cand0Sell, cand1Sell))
	}
}

func TestResolveFailsWithoutMarketData(t *testing.T) {
	r := NewResolver(&scriptQuoter{prices: []model.Price{2450000}, errAt: 1}, 0)
	_, _, err := r.Resolve(context.Background(), "X", 2450000, 2500, 2500)
	assert.ErrorIs(t, err, exception.ErrMarketDataUnavailable)

	r = NewResolver(&scriptQuoter{prices: []model.Price{2450000, 0}, errAt: 2}, 0)
	_, _, err = r.Resolve(context.Background(), "X", 2450000, 2500, 2500)
	assert.ErrorIs(t, err, exception.ErrMarketDataUnavailable, "second sample failure must also abort")
}
