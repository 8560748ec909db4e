package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get(domain.VenueHPX)
	assert.False(t, ok)

	first := domain.OrderBookSnapshot{
		Venue:     domain.VenueHPX,
		Quotes:    []domain.Quote{{Venue: domain.VenueHPX, Side: domain.QuoteBid, Price: 100, Volume: 1}},
		Timestamp: time.Now().UTC(),
	}
	c.Put(first)

	got, ok := c.Get(domain.VenueHPX)
	require.True(t, ok)
	assert.Equal(t, first.Timestamp, got.Timestamp)
	require.Len(t, got.Quotes, 1)
	assert.Equal(t, 100.0, got.Quotes[0].Price)

	// A new snapshot replaces the old one wholesale.
	second := domain.OrderBookSnapshot{
		Venue:     domain.VenueHPX,
		Quotes:    []domain.Quote{{Venue: domain.VenueHPX, Side: domain.QuoteAsk, Price: 101, Volume: 2}},
		Timestamp: first.Timestamp.Add(time.Second),
	}
	c.Put(second)

	got, ok = c.Get(domain.VenueHPX)
	require.True(t, ok)
	require.Len(t, got.Quotes, 1)
	assert.Equal(t, domain.QuoteAsk, got.Quotes[0].Side)

	// Venues are independent.
	_, ok = c.Get(domain.VenueZB)
	assert.False(t, ok)
}

func TestMergeByStepBucketsVolume(t *testing.T) {
	snap := domain.OrderBookSnapshot{
		Venue: domain.VenueZB,
		Quotes: []domain.Quote{
			{Side: domain.QuoteBid, Price: 100.07, Volume: 1, ReferencePrice: 100},
			{Side: domain.QuoteBid, Price: 100.02, Volume: 2, ReferencePrice: 100},
			{Side: domain.QuoteBid, Price: 99.98, Volume: 3, ReferencePrice: 100},
			{Side: domain.QuoteAsk, Price: 100.11, Volume: 4, ReferencePrice: 100},
			{Side: domain.QuoteAsk, Price: 100.19, Volume: 5, ReferencePrice: 100},
		},
	}

	out := MergeByStep(snap, 0.1)
	require.Len(t, out.Quotes, 3)

	// Bids floor to the bucket below, asks ceil to the bucket above.
	assert.Equal(t, domain.QuoteBid, out.Quotes[0].Side)
	assert.InDelta(t, 100.0, out.Quotes[0].Price, 1e-9)
	assert.InDelta(t, 3.0, out.Quotes[0].Volume, 1e-9)

	assert.Equal(t, domain.QuoteBid, out.Quotes[1].Side)
	assert.InDelta(t, 99.9, out.Quotes[1].Price, 1e-9)
	assert.InDelta(t, 3.0, out.Quotes[1].Volume, 1e-9)

	assert.Equal(t, domain.QuoteAsk, out.Quotes[2].Side)
	assert.InDelta(t, 100.2, out.Quotes[2].Price, 1e-9)
	assert.InDelta(t, 9.0, out.Quotes[2].Volume, 1e-9)

	// First quote's non-price fields survive the merge.
	assert.InDelta(t, 100.0, out.Quotes[0].ReferencePrice, 1e-9)
}

func TestMergeByStepZeroStepPassthrough(t *testing.T) {
	snap := domain.OrderBookSnapshot{
		Quotes: []domain.Quote{{Side: domain.QuoteBid, Price: 100.07, Volume: 1}},
	}
	out := MergeByStep(snap, 0)
	assert.Equal(t, snap, out)
}
