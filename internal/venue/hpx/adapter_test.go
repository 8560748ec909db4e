package hpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "ak", "sk")
	return NewAdapter(client, AdapterConfig{Symbol: "hsr_qc", BaseAsset: "HSR", QuoteAsset: "QC"})
}

func TestFetchQuotesParsesDepth(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/depth", r.URL.Path)
		assert.Equal(t, "hsr_qc", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"code":"0000","msg":"ok","data":{"bids":[["100.5","2"]],"asks":[["101.2","3"]],"last":"100.7"}}`))
	})

	snap, err := a.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Quotes, 2)
	assert.Equal(t, domain.VenueHPX, snap.Venue)

	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 100.5, bid.Price, 1e-9)
	assert.InDelta(t, 2.0, bid.Volume, 1e-9)
	assert.InDelta(t, 100.7, bid.ReferencePrice, 1e-9)

	ask, ok := snap.BestAsk()
	require.True(t, ok)
	assert.InDelta(t, 101.2, ask.Price, 1e-9)
	assert.InDelta(t, 3.0, ask.Volume, 1e-9)
}

func TestFetchQuotesEmptyBook(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0000","msg":"ok","data":{"bids":[],"asks":[],"last":"100"}}`))
	})

	_, err := a.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}
