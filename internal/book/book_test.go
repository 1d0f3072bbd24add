package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
	"main/pkg/exception"
)

func checkSymmetry(t *testing.T, b *Book) {
	t.Helper()
	for _, o := range b.Live() {
		if o.AssocID == "" {
			continue
		}
		partner, ok := b.Get(o.AssocID)
		require.Truef(t, ok, "order %s points at missing partner %s", o.ID, o.AssocID)
		require.Equalf(t, o.ID, partner.AssocID, "pairing asymmetric: %s <-> %s", o.ID, o.AssocID)
	}
}

func makePair(t *testing.T, b *Book) (sell, buy Order) {
	t.Helper()
	sell = Order{ID: "S1", Symbol: "NIFTY24DECFUT", Class: schema.InstrumentFuture, Side: schema.OrderSideSell, Price: 2452500, Qty: 75}
	buy = Order{ID: "B1", Symbol: "NIFTY24DECFUT", Class: schema.InstrumentFuture, Side: schema.OrderSideBuy, Price: 2447500, Qty: 75}
	for _, o := range []Order{sell, buy} {
		out, err := b.Register(o)
		require.NoError(t, err)
		assert.False(t, out.Deferred)
	}
	require.NoError(t, b.Link("S1", "B1"))
	checkSymmetry(t, b)
	return sell, buy
}

func TestFillCancelsPartner(t *testing.T) {
	b := New()
	makePair(t, b)

	out := b.Apply(schema.OrderEvent{OrderID: "S1", Status: schema.StatusFilled, Price: 2452700})
	require.True(t, out.Filled)
	assert.EqualValues(t, 2452700, out.ExecPrice)
	assert.Equal(t, []string{"B1"}, out.CancelIDs)
	assert.ElementsMatch(t, []string{"S1", "B1"}, out.Removed)
	assert.Equal(t, 0, b.Len())
	checkSymmetry(t, b)
}

func TestTerminalEventIdempotent(t *testing.T) {
	b := New()
	makePair(t, b)

	first := b.Apply(schema.OrderEvent{OrderID: "S1", Status: schema.StatusFilled, Price: 2452700})
	require.True(t, first.Filled)

	again := b.Apply(schema.OrderEvent{OrderID: "S1", Status: schema.StatusFilled, Price: 2452700})
	assert.False(t, again.Filled, "second terminal event must be a no-op")
	assert.False(t, again.Deferred, "removed id must not re-enter the ledger")
	assert.Empty(t, again.CancelIDs)
	assert.Equal(t, 0, b.Len())
}

func TestCancelClearsPartnerLink(t *testing.T) {
	b := New()
	makePair(t, b)

	out := b.Apply(schema.OrderEvent{OrderID: "B1", Status: schema.StatusClosed})
	require.True(t, out.Applied)
	assert.False(t, out.Filled)
	assert.Empty(t, out.CancelIDs, "cancel must not cascade to the partner")

	sell, ok := b.Get("S1")
	require.True(t, ok, "partner must stay live")
	assert.Empty(t, sell.AssocID, "partner must be unpaired")
	checkSymmetry(t, b)
}

func TestOtherEventUpdatesCacheOnly(t *testing.T) {
	b := New()
	makePair(t, b)

	out := b.Apply(schema.OrderEvent{OrderID: "S1", Status: schema.StatusOther, Price: 2452600, Qty: 150})
	assert.True(t, out.Applied)
	assert.False(t, out.Filled)
	assert.Equal(t, 2, b.Len())

	sell, _ := b.Get("S1")
	assert.EqualValues(t, 2452600, sell.Price)
	assert.EqualValues(t, 150, sell.Qty)
	checkSymmetry(t, b)
}

func TestDeferredEventAppliedOnRegistration(t *testing.T) {
	b := New()

	out := b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusFilled, Price: 2452700})
	require.True(t, out.Deferred)
	assert.Equal(t, 1, b.DeferredLen())

	reg, err := b.Register(Order{ID: "X", Symbol: "NIFTY24DECFUT", Side: schema.OrderSideSell, Price: 2452500, Qty: 75})
	require.NoError(t, err)
	assert.True(t, reg.Filled, "deferred fill must apply synchronously within registration")
	assert.EqualValues(t, 2452700, reg.ExecPrice)
	assert.Equal(t, 0, b.DeferredLen(), "ledger entry must be removed")
	assert.Equal(t, 0, b.Len())

	// Re-applying after resolution stays a no-op.
	again := b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusFilled, Price: 2452700})
	assert.False(t, again.Filled)
	assert.False(t, again.Deferred)
}

func TestDeferredFillSurvivesStaleOpenUpdate(t *testing.T) {
	b := New()

	out := b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusFilled, Price: 2452700, Qty: 75})
	require.True(t, out.Deferred)

	// A reordered OPEN update arriving after the fill must not
	// downgrade the ledger entry.
	out = b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusOther, Price: 2452500, Qty: 75})
	assert.True(t, out.Deferred)
	assert.Equal(t, 1, b.DeferredLen())

	reg, err := b.Register(Order{ID: "X", Symbol: "NIFTY24DECFUT", Side: schema.OrderSideSell, Price: 2452500, Qty: 75})
	require.NoError(t, err)
	require.True(t, reg.Filled, "the deferred fill must still apply at registration")
	assert.EqualValues(t, 2452700, reg.ExecPrice)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.DeferredLen())
}

func TestDeferredTerminalUpgradesEarlierUpdate(t *testing.T) {
	b := New()

	b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusOther, Price: 2452500})
	out := b.Apply(schema.OrderEvent{OrderID: "X", Status: schema.StatusFilled, Price: 2452700})
	require.True(t, out.Deferred)

	reg, err := b.Register(Order{ID: "X", Side: schema.OrderSideSell, Price: 2452500, Qty: 75})
	require.NoError(t, err)
	assert.True(t, reg.Filled, "latest terminal event wins over the earlier update")
	assert.EqualValues(t, 2452700, reg.ExecPrice)
}

func TestLinkValidation(t *testing.T) {
	b := New()
	sell, buy := makePair(t, b)

	assert.ErrorIs(t, b.Link(sell.ID, buy.ID), exception.ErrOrderAlreadyLinked)
	assert.ErrorIs(t, b.Link("S1", "S1"), exception.ErrOrderInvalidLink)
	assert.ErrorIs(t, b.Link("S1", "nope"), exception.ErrOrderNotFound)
}

func TestRegisterDuplicate(t *testing.T) {
	b := New()
	_, err := b.Register(Order{ID: "A"})
	require.NoError(t, err)
	_, err = b.Register(Order{ID: "A"})
	assert.ErrorIs(t, err, exception.ErrOrderDuplicate)
}

func TestExpireDeferred(t *testing.T) {
	b := New()
	b.Apply(schema.OrderEvent{OrderID: "ghost", Status: schema.StatusFilled, At: time.Now().Add(-time.Hour)})
	require.Equal(t, 1, b.DeferredLen())

	dropped := b.ExpireDeferred(time.Now(), 10*time.Minute)
	require.Len(t, dropped, 1)
	assert.Equal(t, "ghost", dropped[0].OrderID)
	assert.Equal(t, 0, b.DeferredLen())

	// A dropped id that later registers starts clean.
	out, err := b.Register(Order{ID: "ghost"})
	require.NoError(t, err)
	assert.False(t, out.Filled)
	assert.Equal(t, 1, b.Len())
}
