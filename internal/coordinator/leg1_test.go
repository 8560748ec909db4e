package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

func invertedBooks(rig *testRig) {
	rig.putBook(domain.VenueHPX, 99, 2, 100, 1, 99.5)
	rig.putBook(domain.VenueZB, 103, 5, 104, 5, 103)
}

func TestTickPrimaryFullFillHandsOffToHedge(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	rig.hpx.refreshFn = func(o *domain.Order) error {
		o.ApplyFill(o.Size, domain.OrderStatusFilled, time.Now().UTC())
		return nil
	}

	rig.coord.TickPrimary(context.Background())

	assert.Equal(t, StateLeg2Pending, rig.coord.State())
	ledger := rig.coord.Ledger()
	require.NotNil(t, ledger)
	taker := ledger.Taker()
	assert.Equal(t, domain.VenueHPX, taker.Venue)
	assert.Equal(t, domain.OrderSideBuy, taker.Side)
	assert.InDelta(t, 1.0, taker.FilledSize, 1e-9)
	assert.Equal(t, domain.OrderStatusFilled, taker.Status)

	// The fill estimate reduced the cached quote balance.
	bal, ok := rig.coord.balances.Get(domain.VenueHPX)
	require.True(t, ok)
	assert.InDelta(t, 100000-100.0, bal.Quote, 1e-9)
}

func TestTickPrimaryPartialFillForceCloses(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	// The venue only ever reports 0.4 of the 1.0 order filled.
	rig.hpx.refreshFn = func(o *domain.Order) error {
		o.ApplyFill(0.4, domain.OrderStatusPartiallyFilled, time.Now().UTC())
		return nil
	}

	rig.coord.TickPrimary(context.Background())

	require.Equal(t, StateLeg2Pending, rig.coord.State())
	ledger := rig.coord.Ledger()
	require.NotNil(t, ledger)
	taker := ledger.Taker()
	// Force-closed at the confirmed partial: the hedge targets 0.4, not 1.0.
	assert.InDelta(t, 0.4, taker.FilledSize, 1e-9)
	assert.InDelta(t, 0.4, taker.Size, 1e-9)
	assert.Equal(t, domain.OrderStatusFilled, taker.Status)
	// The remainder was canceled on the venue.
	assert.NotEmpty(t, rig.hpx.cancels)
}

func TestTickPrimaryUnfilledAborts(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	// Never fills; cancel sticks at zero.
	rig.hpx.refreshFn = func(o *domain.Order) error { return nil }

	rig.coord.TickPrimary(context.Background())

	assert.Equal(t, StateIdle, rig.coord.State())
	assert.Nil(t, rig.coord.Ledger())
	assert.NotEmpty(t, rig.hpx.cancels)
	// No hedge order was ever sent.
	assert.Empty(t, rig.zb.sentOrders())
}

func TestTickPrimaryInsufficientBalanceSuppresses(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	rig.hpx.sendFn = func(o *domain.Order) (venue.SendResult, error) {
		o.Status = domain.OrderStatusRejected
		return venue.SendResult{Outcome: venue.SendInsufficientBalance}, nil
	}

	rig.coord.TickPrimary(context.Background())

	assert.Equal(t, StateIdle, rig.coord.State())
	assert.Nil(t, rig.coord.Ledger())
	assert.Empty(t, rig.zb.sentOrders())
	assert.True(t, rig.coord.suppressedUntil.After(time.Now()))

	// The next tick sits out the suppression window instead of rescanning.
	rig.coord.TickPrimary(context.Background())
	assert.Len(t, rig.hpx.sentOrders(), 1)
}

func TestTickPrimaryPlainRejectionRescansNextTick(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	rig.hpx.sendFn = func(o *domain.Order) (venue.SendResult, error) {
		o.Status = domain.OrderStatusRejected
		return venue.SendResult{Outcome: venue.SendRejected, Reason: "price out of range"}, nil
	}

	rig.coord.TickPrimary(context.Background())
	assert.Equal(t, StateIdle, rig.coord.State())
	assert.False(t, rig.coord.suppressedUntil.After(time.Now()))

	rig.coord.TickPrimary(context.Background())
	assert.Len(t, rig.hpx.sentOrders(), 2)
}

func TestTickPrimaryDemoModeSendsNothing(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.DemoMode = true
	rig := newTestRig(t, cfg)
	invertedBooks(rig)

	rig.coord.TickPrimary(context.Background())

	assert.Equal(t, StateIdle, rig.coord.State())
	assert.Empty(t, rig.hpx.sentOrders())
	assert.Empty(t, rig.zb.sentOrders())
}

func TestTickPrimaryBusyStateDoesNotScan(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	invertedBooks(rig)

	taker := domain.NewOrder(domain.VenueHPX, domain.OrderSideBuy, 1, 100, domain.OrderTypeLimit)
	require.NoError(t, rig.coord.beginTransaction(domain.NewTransactionLedger(domain.DirectionTakerBuy, taker), StateLeg2Pending))

	rig.coord.TickPrimary(context.Background())
	assert.Empty(t, rig.hpx.sentOrders())
}

func TestBeginTransactionSingleFlight(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())

	taker := domain.NewOrder(domain.VenueHPX, domain.OrderSideBuy, 1, 100, domain.OrderTypeLimit)
	require.NoError(t, rig.coord.beginTransaction(domain.NewTransactionLedger(domain.DirectionTakerBuy, taker), StateLeg1Pending))

	other := domain.NewOrder(domain.VenueHPX, domain.OrderSideBuy, 1, 100, domain.OrderTypeLimit)
	err := rig.coord.beginTransaction(domain.NewTransactionLedger(domain.DirectionTakerBuy, other), StateLeg1Pending)
	assert.ErrorIs(t, err, domain.ErrTransactionOpen)

	rig.coord.clearTransaction()
	assert.Equal(t, StateIdle, rig.coord.State())
	assert.Nil(t, rig.coord.Ledger())
}
