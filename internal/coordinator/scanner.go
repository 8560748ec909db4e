package coordinator

import (
	"log/slog"
	"math"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// scan inspects both venues' latest snapshots and balances and produces at
// most one opportunity. It is read-only; no order state changes here.
func (c *Coordinator) scan() (domain.SpreadAnalysisResult, bool) {
	primary := c.cfg.PrimaryVenue
	secondary := primary.Other()

	pSnap, ok := c.cache.Get(primary)
	if !ok {
		return domain.SpreadAnalysisResult{}, false
	}
	sSnap, ok := c.cache.Get(secondary)
	if !ok {
		return domain.SpreadAnalysisResult{}, false
	}
	pBal, ok := c.balances.Get(primary)
	if !ok {
		return domain.SpreadAnalysisResult{}, false
	}
	sBal, ok := c.balances.Get(secondary)
	if !ok {
		return domain.SpreadAnalysisResult{}, false
	}

	var (
		best   domain.SpreadAnalysisResult
		found  bool
		bestBp float64
	)
	for _, dir := range []domain.Direction{domain.DirectionTakerBuy, domain.DirectionTakerSell} {
		res, ok := c.scanDirection(dir, pSnap, sSnap, pBal, sBal)
		if !ok {
			continue
		}
		bp := res.InvertedSpread / res.TakerQuote.Price
		if !found || bp > bestBp {
			best = res
			bestBp = bp
			found = true
		}
	}
	if found {
		c.logger.Info("opportunity detected",
			slog.String("direction", string(best.Direction)),
			slog.Float64("taker_price", best.TakerQuote.Price),
			slog.Float64("maker_price", best.MakerQuote.Price),
			slog.Float64("inverted_spread", best.InvertedSpread),
			slog.Float64("target_volume", best.TargetVolume),
		)
	}
	return best, found
}

// scanDirection evaluates one direction. For a taker buy the coordinator
// lifts the primary venue's best ask and hedges with a sell on the secondary
// venue; the mirror direction hits the primary bid and hedges with a buy.
func (c *Coordinator) scanDirection(dir domain.Direction, pSnap, sSnap domain.OrderBookSnapshot, pBal, sBal domain.BrokerBalance) (domain.SpreadAnalysisResult, bool) {
	var (
		takerQuote domain.Quote
		ok         bool
	)
	if dir == domain.DirectionTakerBuy {
		takerQuote, ok = pSnap.BestAsk()
	} else {
		takerQuote, ok = pSnap.BestBid()
	}
	if !ok || takerQuote.Price <= 0 {
		return domain.SpreadAnalysisResult{}, false
	}

	hedgeSide := dir.TakerSide().Opposite()
	makerQuote, makerVolume, ok := c.makerQuote(sSnap, hedgeSide)
	if !ok {
		return domain.SpreadAnalysisResult{}, false
	}

	// invertedSpread > 0 means the hedge leg trades at a better price than
	// the taker leg pays or receives.
	var spread float64
	if dir == domain.DirectionTakerBuy {
		spread = makerQuote.Price - takerQuote.Price
	} else {
		spread = takerQuote.Price - makerQuote.Price
	}
	if spread <= 0 {
		return domain.SpreadAnalysisResult{}, false
	}
	if spread/takerQuote.Price*100 < c.cfg.ArbitragePoint {
		return domain.SpreadAnalysisResult{}, false
	}

	volume := math.Min(takerQuote.Volume, makerVolume)
	volume = math.Min(volume, c.cfg.MaxSize)
	volume = math.Min(volume, takerCapacity(dir, takerQuote.Price, pBal))
	volume = math.Min(volume, hedgeCapacity(hedgeSide, makerQuote.Price, sBal))
	volume = roundDown(volume, c.cfg.SizeGranularity)
	if volume < c.cfg.MinSize {
		return domain.SpreadAnalysisResult{}, false
	}

	return domain.SpreadAnalysisResult{
		Direction:       dir,
		TakerQuote:      takerQuote,
		MakerQuote:      makerQuote,
		InvertedSpread:  spread,
		AvailableVolume: math.Min(takerQuote.Volume, makerVolume),
		TargetVolume:    volume,
	}, true
}

// makerQuote computes the hedge leg's price on the maker venue. A sell joins
// just under the higher of best bid and the reference anchor; a buy joins
// just over the lower of best ask and the anchor. The anchor keeps a
// manipulated top of book from dragging the hedge price away from where the
// venue actually trades.
func (c *Coordinator) makerQuote(snap domain.OrderBookSnapshot, side domain.OrderSide) (domain.Quote, float64, bool) {
	var (
		top domain.Quote
		ok  bool
	)
	if side == domain.OrderSideSell {
		top, ok = snap.BestBid()
	} else {
		top, ok = snap.BestAsk()
	}
	if !ok || top.Price <= 0 {
		return domain.Quote{}, 0, false
	}

	price := top.Price
	if top.ReferencePrice > 0 {
		if side == domain.OrderSideSell {
			price = math.Max(top.Price, top.ReferencePrice) - c.cfg.PriceTick
		} else {
			price = math.Min(top.Price, top.ReferencePrice) + c.cfg.PriceTick
		}
	}
	if price <= 0 {
		return domain.Quote{}, 0, false
	}

	q := top
	q.Price = price
	return q, top.Volume, true
}

// takerCapacity is the largest size the taker venue's balance supports.
func takerCapacity(dir domain.Direction, price float64, bal domain.BrokerBalance) float64 {
	if dir == domain.DirectionTakerBuy {
		return bal.Quote / price
	}
	return bal.Base
}

// hedgeCapacity is the largest size the hedge venue's balance supports.
func hedgeCapacity(side domain.OrderSide, price float64, bal domain.BrokerBalance) float64 {
	if side == domain.OrderSideBuy {
		return bal.Quote / price
	}
	return bal.Base
}

// roundDown floors v to a multiple of step. A step of zero leaves v as is.
func roundDown(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Floor(v/step) * step
}
