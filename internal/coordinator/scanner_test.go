package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestScanFindsTakerBuyOpportunity(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	// Primary asks at 100, secondary bids at 103: buy on HPX, sell on ZB.
	rig.putBook(domain.VenueHPX, 99, 2, 100, 1, 99.5)
	rig.putBook(domain.VenueZB, 103, 5, 104, 5, 103)

	res, ok := rig.coord.scan()
	require.True(t, ok)
	assert.Equal(t, domain.DirectionTakerBuy, res.Direction)
	assert.InDelta(t, 100.0, res.TakerQuote.Price, 1e-9)
	// Maker joins one tick under the secondary best bid.
	assert.InDelta(t, 102.99, res.MakerQuote.Price, 1e-9)
	assert.InDelta(t, 2.99, res.InvertedSpread, 1e-9)
	// Sized to the smaller of the two book volumes.
	assert.InDelta(t, 1.0, res.TargetVolume, 1e-9)
}

func TestScanFindsTakerSellOpportunity(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	// Primary bids at 105, secondary asks at 100: sell on HPX, buy on ZB.
	rig.putBook(domain.VenueHPX, 105, 2, 106, 2, 105)
	rig.putBook(domain.VenueZB, 99, 5, 100, 5, 100)

	res, ok := rig.coord.scan()
	require.True(t, ok)
	assert.Equal(t, domain.DirectionTakerSell, res.Direction)
	assert.InDelta(t, 105.0, res.TakerQuote.Price, 1e-9)
	assert.InDelta(t, 100.01, res.MakerQuote.Price, 1e-9)
	assert.InDelta(t, 4.99, res.InvertedSpread, 1e-9)
	assert.InDelta(t, 2.0, res.TargetVolume, 1e-9)
}

func TestScanIgnoresAlignedBooks(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	// Secondary bid below primary ask: nothing inverted.
	rig.putBook(domain.VenueHPX, 99, 2, 100, 1, 99.5)
	rig.putBook(domain.VenueZB, 98, 5, 99, 5, 98)

	_, ok := rig.coord.scan()
	assert.False(t, ok)
}

func TestScanIgnoresSpreadBelowThreshold(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.ArbitragePoint = 1.0
	rig := newTestRig(t, cfg)
	// Inverted by ~0.5%, under the 1% floor.
	rig.putBook(domain.VenueHPX, 99, 2, 100, 1, 99.5)
	rig.putBook(domain.VenueZB, 100.51, 5, 101, 5, 100.51)

	_, ok := rig.coord.scan()
	assert.False(t, ok)
}

func TestScanSizeCappedByBalance(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	// Only 50 quote on the taker venue: at price 100 that caps size at 0.5.
	rig.hpx.balance = domain.BrokerBalance{Venue: domain.VenueHPX, Base: 1000, Quote: 50}
	require.NoError(t, rig.coord.balances.Refresh(context.Background(), domain.VenueHPX))

	rig.putBook(domain.VenueHPX, 99, 2, 100, 5, 99.5)
	rig.putBook(domain.VenueZB, 103, 5, 104, 5, 103)

	res, ok := rig.coord.scan()
	require.True(t, ok)
	assert.InDelta(t, 0.5, res.TargetVolume, 1e-9)
}

func TestScanSizeCappedByMaxSize(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MaxSize = 2
	rig := newTestRig(t, cfg)
	rig.putBook(domain.VenueHPX, 99, 10, 100, 10, 99.5)
	rig.putBook(domain.VenueZB, 103, 10, 104, 10, 103)

	res, ok := rig.coord.scan()
	require.True(t, ok)
	assert.InDelta(t, 2.0, res.TargetVolume, 1e-9)
}

func TestScanRejectsBelowMinSize(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	// Inverted, but only 0.005 available against a 0.01 minimum.
	rig.putBook(domain.VenueHPX, 99, 2, 100, 0.005, 99.5)
	rig.putBook(domain.VenueZB, 103, 5, 104, 5, 103)

	_, ok := rig.coord.scan()
	assert.False(t, ok)
}

func TestScanRequiresBothSnapshots(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())
	rig.putBook(domain.VenueHPX, 99, 2, 100, 1, 99.5)

	_, ok := rig.coord.scan()
	assert.False(t, ok)
}

func TestMakerQuoteReferenceAnchor(t *testing.T) {
	rig := newTestRig(t, defaultTestConfig())

	// Best bid above the anchor: the bid wins, sell joins a tick under it.
	snap := domain.OrderBookSnapshot{Quotes: []domain.Quote{
		{Side: domain.QuoteBid, Price: 105, Volume: 3, ReferencePrice: 100},
	}}
	q, vol, ok := rig.coord.makerQuote(snap, domain.OrderSideSell)
	require.True(t, ok)
	assert.InDelta(t, 104.99, q.Price, 1e-9)
	assert.InDelta(t, 3.0, vol, 1e-9)

	// Anchor above a depressed best bid: the anchor wins, keeping the sell
	// where the venue actually trades.
	snap = domain.OrderBookSnapshot{Quotes: []domain.Quote{
		{Side: domain.QuoteBid, Price: 100, Volume: 3, ReferencePrice: 105},
	}}
	q, _, ok = rig.coord.makerQuote(snap, domain.OrderSideSell)
	require.True(t, ok)
	assert.InDelta(t, 104.99, q.Price, 1e-9)

	// Buy side mirrors with min.
	snap = domain.OrderBookSnapshot{Quotes: []domain.Quote{
		{Side: domain.QuoteAsk, Price: 100, Volume: 3, ReferencePrice: 95},
	}}
	q, _, ok = rig.coord.makerQuote(snap, domain.OrderSideBuy)
	require.True(t, ok)
	assert.InDelta(t, 95.01, q.Price, 1e-9)
}

func TestRoundDown(t *testing.T) {
	assert.InDelta(t, 0.5, roundDown(0.509, 0.01), 1e-9)
	assert.InDelta(t, 0.0, roundDown(0.009, 0.01), 1e-9)
	assert.InDelta(t, 1.25, roundDown(1.25, 0), 1e-9)
}
