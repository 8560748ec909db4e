package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// tickLadder maintains the mirrored maker orders on the secondary venue:
// reconcile standing orders against the venue's live listing to catch fills
// and cancellations that happened out-of-band, cancel orders that drifted
// inside the excluded band, then top the ladder back up from the primary
// venue's book. A fill of at least the minimum size opens a hedge transaction
// and ladder maintenance pauses until it settles.
func (c *Coordinator) tickLadder(ctx context.Context) error {
	if c.cfg.DemoMode {
		return nil
	}
	secondary := c.cfg.PrimaryVenue.Other()

	started, err := c.reconcileLadder(ctx, secondary)
	if err != nil {
		return err
	}
	if started {
		return nil
	}

	snap, ok := c.cache.Get(c.cfg.PrimaryVenue)
	if !ok {
		return nil
	}
	bestBid, hasBid := snap.BestBid()
	bestAsk, hasAsk := snap.BestAsk()
	if !hasBid || !hasAsk {
		return nil
	}

	// The innermost RemovalRatio percent around best price is never mirrored;
	// orders that close to the top would fill constantly.
	bidBound := bestBid.Price * (1 - c.cfg.RemovalRatio/100)
	askBound := bestAsk.Price * (1 + c.cfg.RemovalRatio/100)

	if started := c.maintainSide(ctx, secondary, snap, domain.OrderSideBuy, bidBound); started {
		return nil
	}
	if started := c.maintainSide(ctx, secondary, snap, domain.OrderSideSell, askBound); started {
		return nil
	}
	return nil
}

// reconcileLadder compares every standing order against the venue's open
// order listing. Orders missing from the listing were filled or canceled
// out-of-band; they are refreshed individually to learn which. Returns true
// when a detected fill opened a hedge transaction.
func (c *Coordinator) reconcileLadder(ctx context.Context, v domain.Venue) (bool, error) {
	for _, side := range []domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell} {
		live, err := c.router.OpenOrders(ctx, v, 1, side)
		if err != nil {
			return false, fmt.Errorf("coordinator: ladder listing %s %s: %w", v, side, err)
		}
		byBrokerID := make(map[string]domain.Order, len(live))
		for _, o := range live {
			byBrokerID[o.BrokerOrderID] = o
		}

		ladder := c.ladderSide(side)
		kept := make([]*domain.Order, 0, len(*ladder))
		var filled *domain.Order
		for _, o := range *ladder {
			rec, open := byBrokerID[o.BrokerOrderID]
			if open {
				o.ApplyFill(rec.FilledSize, rec.Status, time.Now().UTC())
			} else if err := c.router.Refresh(ctx, o); err != nil {
				// Keep it; the next tick retries the refresh.
				c.logger.WarnContext(ctx, "ladder refresh failed",
					slog.String("broker_order_id", o.BrokerOrderID),
					slog.String("error", err.Error()),
				)
				kept = append(kept, o)
				continue
			}

			if o.FilledSize >= c.cfg.MinSize {
				if filled == nil {
					if !o.Status.Terminal() {
						c.cancelAndRefresh(ctx, o)
					}
					filled = o
					continue
				}
				// Only one hedge may be in flight; this fill waits its turn.
				kept = append(kept, o)
				continue
			}
			if !open && o.Status.Terminal() {
				// Canceled out-of-band with no meaningful fill; drop it.
				continue
			}
			kept = append(kept, o)
		}
		*ladder = kept
		if filled != nil {
			return true, c.startLadderHedge(ctx, filled)
		}
	}
	return false, nil
}

// maintainSide cancels drifted orders, tops the side up to CopyQuantity from
// the primary book, and prunes any excess. bound is the price limit of the
// excluded band for this side. Returns true when a fill discovered during a
// drift cancel opened a hedge transaction.
func (c *Coordinator) maintainSide(ctx context.Context, v domain.Venue, snap domain.OrderBookSnapshot, side domain.OrderSide, bound float64) bool {
	ladder := c.ladderSide(side)

	// Drift pass: an order now inside the excluded band gets canceled. The
	// refresh after the cancel can reveal a racing fill; hedge it if so.
	kept := make([]*domain.Order, 0, len(*ladder))
	var filled *domain.Order
	for _, o := range *ladder {
		inside := false
		if side == domain.OrderSideBuy {
			inside = o.Price > bound
		} else {
			inside = o.Price < bound
		}
		if !inside || filled != nil {
			kept = append(kept, o)
			continue
		}
		c.cancelAndRefresh(ctx, o)
		if o.FilledSize >= c.cfg.MinSize {
			filled = o
		}
	}
	*ladder = kept
	if filled != nil {
		if err := c.startLadderHedge(ctx, filled); err != nil {
			c.logger.ErrorContext(ctx, "ladder hedge start failed", slog.String("error", err.Error()))
		}
		return true
	}

	// Top-up pass: mirror eligible levels, best first, until CopyQuantity.
	for _, q := range snap.Quotes {
		if len(*ladder) >= c.cfg.CopyQuantity {
			break
		}
		if !c.eligibleLevel(q, side, bound) {
			continue
		}
		if c.mirrored(*ladder, q.Price) {
			continue
		}

		size := roundDown(clamp(q.Volume*c.cfg.VolumeRatio/100, c.cfg.MinSize, c.cfg.MaxSize), c.cfg.SizeGranularity)
		if size < c.cfg.MinSize {
			continue
		}
		order := domain.NewOrder(v, side, size, q.Price, domain.OrderTypeLimit)
		sent, err := c.router.Send(ctx, order)
		if err != nil {
			c.logger.WarnContext(ctx, "ladder send failed",
				slog.String("side", string(side)),
				slog.String("error", err.Error()),
			)
			break
		}
		if sent.Outcome == venue.SendInsufficientBalance {
			// No funds for more rungs this tick.
			break
		}
		if sent.Outcome != venue.SendAccepted {
			c.logger.WarnContext(ctx, "ladder order rejected",
				slog.String("side", string(side)),
				slog.String("reason", sent.Reason),
			)
			continue
		}
		c.recordOrder(ctx, order)
		*ladder = append(*ladder, order)
		c.logger.DebugContext(ctx, "ladder order placed",
			slog.String("side", string(side)),
			slog.Float64("price", order.Price),
			slog.Float64("size", order.Size),
		)
	}

	// Bids sorted descending, asks ascending: element 0 is always the best
	// rung and the tail is the first to prune.
	sort.SliceStable(*ladder, func(i, j int) bool {
		if side == domain.OrderSideBuy {
			return (*ladder)[i].Price > (*ladder)[j].Price
		}
		return (*ladder)[i].Price < (*ladder)[j].Price
	})

	for len(*ladder) > c.cfg.CopyQuantity {
		worst := (*ladder)[len(*ladder)-1]
		c.cancelAndRefresh(ctx, worst)
		*ladder = (*ladder)[:len(*ladder)-1]
		if worst.FilledSize >= c.cfg.MinSize {
			if err := c.startLadderHedge(ctx, worst); err != nil {
				c.logger.ErrorContext(ctx, "ladder hedge start failed", slog.String("error", err.Error()))
			}
			return true
		}
	}
	return false
}

// startLadderHedge opens a transaction around a filled ladder order. The
// filled order becomes the taker leg; the hedge machine prices the offsetting
// leg on the primary venue.
func (c *Coordinator) startLadderHedge(ctx context.Context, o *domain.Order) error {
	o.ForceClose(time.Now().UTC())
	c.recordFill(ctx, o)
	c.balances.ApplyFillEstimate(o.Venue, o.Side, o.Price, o.FilledSize)

	ledger := domain.NewTransactionLedger(domain.DirectionFor(o.Side), o)
	if err := c.beginTransaction(ledger, StateLeg2Pending); err != nil {
		return fmt.Errorf("coordinator: ladder hedge: %w", err)
	}

	c.publishEvent(ctx, domain.BusEvent{
		Event:         domain.EventLegFilled,
		TransactionID: ledger.ID,
		Venue:         o.Venue,
		Direction:     ledger.Direction,
		Price:         o.Price,
		Size:          o.FilledSize,
		Timestamp:     time.Now().UTC(),
	})
	c.logger.InfoContext(ctx, "ladder fill detected, hedging",
		slog.String("transaction", ledger.ID),
		slog.String("side", string(o.Side)),
		slog.Float64("price", o.Price),
		slog.Float64("filled", o.FilledSize),
	)
	return nil
}

func (c *Coordinator) ladderSide(side domain.OrderSide) *[]*domain.Order {
	if side == domain.OrderSideBuy {
		return &c.ladderBids
	}
	return &c.ladderAsks
}

// eligibleLevel reports whether a primary book level may be mirrored on this
// side: right side of the book and outside the excluded band.
func (c *Coordinator) eligibleLevel(q domain.Quote, side domain.OrderSide, bound float64) bool {
	if side == domain.OrderSideBuy && q.Side != domain.QuoteBid {
		return false
	}
	if side == domain.OrderSideSell && q.Side != domain.QuoteAsk {
		return false
	}
	if side == domain.OrderSideBuy {
		return q.Price <= bound
	}
	return q.Price >= bound
}

// mirrored reports whether a ladder order already sits at (or within a tick
// of) the given price.
func (c *Coordinator) mirrored(ladder []*domain.Order, price float64) bool {
	tol := c.cfg.PriceTick
	if tol <= 0 {
		tol = 1e-9
	}
	for _, o := range ladder {
		if math.Abs(o.Price-price) < tol {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
