package domain

import "time"

// Venue identifies one of the two trading venues the coordinator arbitrages
// between. HPX is the primary (taker) venue, ZB the secondary (hedge) venue.
type Venue string

const (
	VenueHPX Venue = "hpx"
	VenueZB  Venue = "zb"
)

// Other returns the opposite venue. Every two-leg transaction has its taker
// order on one venue and its hedge orders on the other.
func (v Venue) Other() Venue {
	if v == VenueHPX {
		return VenueZB
	}
	return VenueHPX
}

// QuoteSide indicates which side of the book a quote sits on.
type QuoteSide string

const (
	QuoteBid QuoteSide = "bid"
	QuoteAsk QuoteSide = "ask"
)

// Quote is a single price level in a venue's order book. ReferencePrice is the
// venue-supplied last-trade anchor used to clamp how aggressively a computed
// price may deviate from the live market. Quotes are immutable once published
// into a snapshot.
type Quote struct {
	Venue          Venue
	Side           QuoteSide
	Price          float64
	ReferencePrice float64
	Volume         float64
}

// OrderBookSnapshot is the ordered sequence of quotes for one venue at one
// poll. Snapshots are replaced atomically in the market-data cache; consumers
// always see a complete snapshot, never a partial one.
type OrderBookSnapshot struct {
	Venue     Venue
	Quotes    []Quote
	Timestamp time.Time
}

// BestBid returns the highest-priced bid in the snapshot.
func (s OrderBookSnapshot) BestBid() (Quote, bool) {
	var best Quote
	found := false
	for _, q := range s.Quotes {
		if q.Side != QuoteBid {
			continue
		}
		if !found || q.Price > best.Price {
			best = q
			found = true
		}
	}
	return best, found
}

// BestAsk returns the lowest-priced ask in the snapshot.
func (s OrderBookSnapshot) BestAsk() (Quote, bool) {
	var best Quote
	found := false
	for _, q := range s.Quotes {
		if q.Side != QuoteAsk {
			continue
		}
		if !found || q.Price < best.Price {
			best = q
			found = true
		}
	}
	return best, found
}

// Direction identifies which way a two-leg transaction runs, named by the
// taker leg's side. The hedge leg always takes the opposite side on the other
// venue.
type Direction string

const (
	// DirectionTakerBuy: the taker leg buys, the hedge leg sells.
	DirectionTakerBuy Direction = "taker_buy"
	// DirectionTakerSell: the taker leg sells, the hedge leg buys.
	DirectionTakerSell Direction = "taker_sell"
)

// DirectionFor maps an order side to the transaction direction whose taker
// leg has that side.
func DirectionFor(side OrderSide) Direction {
	if side == OrderSideBuy {
		return DirectionTakerBuy
	}
	return DirectionTakerSell
}

// TakerSide returns the order side of the taker leg.
func (d Direction) TakerSide() OrderSide {
	if d == DirectionTakerBuy {
		return OrderSideBuy
	}
	return OrderSideSell
}

// SpreadAnalysisResult is the ephemeral output of one opportunity scan. It is
// produced read-only from the latest snapshots and balances, consumed
// immediately by the execution step, and never stored.
type SpreadAnalysisResult struct {
	Direction       Direction
	TakerQuote      Quote // best opposing quote on the taker venue
	MakerQuote      Quote // re-priced hedge quote on the maker venue
	InvertedSpread  float64
	AvailableVolume float64
	TargetVolume    float64
}
