package marketdata

import (
	"math"
	"sort"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// MergeByStep buckets a snapshot's quotes to the given price step and sums the
// volume of levels falling into the same bucket. Bid prices round down and ask
// prices round up, so merged levels never look better than the real book.
// A step of zero returns the snapshot unchanged.
func MergeByStep(snap domain.OrderBookSnapshot, step float64) domain.OrderBookSnapshot {
	if step <= 0 {
		return snap
	}

	type key struct {
		side  domain.QuoteSide
		price float64
	}
	buckets := make(map[key]domain.Quote)
	order := make([]key, 0, len(snap.Quotes))

	for _, q := range snap.Quotes {
		var price float64
		if q.Side == domain.QuoteBid {
			price = math.Floor(q.Price/step) * step
		} else {
			price = math.Ceil(q.Price/step) * step
		}
		k := key{side: q.Side, price: price}
		if merged, ok := buckets[k]; ok {
			merged.Volume += q.Volume
			buckets[k] = merged
			continue
		}
		q.Price = price
		buckets[k] = q
		order = append(order, k)
	}

	out := domain.OrderBookSnapshot{
		Venue:     snap.Venue,
		Timestamp: snap.Timestamp,
		Quotes:    make([]domain.Quote, 0, len(order)),
	}
	for _, k := range order {
		out.Quotes = append(out.Quotes, buckets[k])
	}
	// Keep the book shape deterministic after merging: bids descending,
	// asks ascending.
	sort.SliceStable(out.Quotes, func(i, j int) bool {
		a, b := out.Quotes[i], out.Quotes[j]
		if a.Side != b.Side {
			return a.Side == domain.QuoteBid
		}
		if a.Side == domain.QuoteBid {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	})
	return out
}
