package zb

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
	client := NewClient(srv.URL, srv.URL, "ak", "sk")
	return NewAdapter(client, AdapterConfig{Market: "hsr_qc", BaseAsset: "HSR", QuoteAsset: "QC"})
}

func TestFetchQuotesParsesDepth(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/v1/depth":
			assert.Equal(t, "hsr_qc", r.URL.Query().Get("market"))
			_, _ = w.Write([]byte(`{"bids":[[100.5,2]],"asks":[[101.2,3]]}`))
		case "/data/v1/ticker":
			_, _ = w.Write([]byte(`{"ticker":{"last":"100.7"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	snap, err := a.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Quotes, 2)
	assert.Equal(t, domain.VenueZB, snap.Venue)

	bid, ok := snap.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 100.5, bid.Price, 1e-9)
	assert.InDelta(t, 100.7, bid.ReferencePrice, 1e-9)

	ask, ok := snap.BestAsk()
	require.True(t, ok)
	assert.InDelta(t, 101.2, ask.Price, 1e-9)
}

func TestFetchQuotesEmptyBook(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/v1/depth":
			_, _ = w.Write([]byte(`{"bids":[],"asks":[]}`))
		case "/data/v1/ticker":
			_, _ = w.Write([]byte(`{"ticker":{"last":"100"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	_, err := a.FetchQuotes(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}
