package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// tickHedge advances the leg-2 machine one step: refresh the latest hedge
// order, check cumulative fills against the taker fill, and either settle,
// re-price, or give up and force-settle when the retry budget runs out.
// Re-pricing attempts are strictly sequential per ledger; the budget bounds
// them so the loop always terminates.
func (c *Coordinator) tickHedge(ctx context.Context) error {
	ledger := c.Ledger()
	if ledger == nil {
		c.setState(StateIdle)
		return nil
	}
	taker := ledger.Taker()
	hedgeVenue := taker.Venue.Other()
	hedgeSide := taker.Side.Opposite()

	last := ledger.LastHedge()
	if last != nil && !last.Status.Terminal() {
		if err := c.router.Refresh(ctx, last); err != nil {
			// Transient failure; refresh is idempotent, try again next tick.
			return fmt.Errorf("coordinator: refresh hedge: %w", err)
		}
		c.recordFill(ctx, last)
	}

	// Fully hedged within the consistency bound.
	if ledger.HedgeFilled() >= taker.FilledSize-c.cfg.Epsilon {
		if last != nil && !last.Status.Terminal() {
			c.cancelAndRefresh(ctx, last)
			c.recordFill(ctx, last)
		}
		return c.settle(ctx, ledger, false)
	}

	if c.retries >= c.cfg.MaxRetryCount {
		if last != nil && !last.Status.Terminal() {
			c.cancelAndRefresh(ctx, last)
			c.recordFill(ctx, last)
		}
		c.logger.WarnContext(ctx, "hedge retry budget exhausted, force settling",
			slog.String("transaction", ledger.ID),
			slog.Float64("taker_filled", taker.FilledSize),
			slog.Float64("hedge_filled", ledger.HedgeFilled()),
		)
		return c.settle(ctx, ledger, true)
	}

	snap, ok := c.cache.Get(hedgeVenue)
	if !ok {
		return nil
	}
	fair, crossPrice, ok := c.hedgePrices(snap, hedgeSide)
	if !ok {
		return nil
	}

	// An active order stays put until it drifts past the staleness tolerance
	// or the stop engages.
	if last != nil && !last.Status.Terminal() {
		drifted := math.Abs(last.Price-fair)/fair*100 > c.cfg.CancelPoint
		if !drifted && !c.stopEngaged(taker, fair) {
			c.retries++
			return nil
		}
		c.cancelAndRefresh(ctx, last)
		c.recordFill(ctx, last)
		// The refresh above may have revealed a fill that completes the hedge.
		if ledger.HedgeFilled() >= taker.FilledSize-c.cfg.Epsilon {
			return c.settle(ctx, ledger, false)
		}
	}

	residual := taker.FilledSize - ledger.HedgeFilled()
	if residual < c.cfg.MinSize {
		// Nothing placeable remains; the epsilon check will pass next tick or
		// the budget will force-settle. Settle now rather than spin.
		return c.settle(ctx, ledger, false)
	}

	price := fair
	if c.stopEngaged(taker, fair) {
		// Cross the spread to guarantee completion.
		price = crossPrice
		c.logger.WarnContext(ctx, "hedge stop engaged, crossing the spread",
			slog.String("transaction", ledger.ID),
			slog.Int("retries", c.retries),
			slog.Float64("price", price),
		)
	}

	order := domain.NewOrder(hedgeVenue, hedgeSide, residual, price, domain.OrderTypeLimit)
	sent, err := c.router.Send(ctx, order)
	if err != nil {
		c.retries++
		return fmt.Errorf("coordinator: send hedge: %w", err)
	}
	c.retries++

	switch sent.Outcome {
	case venue.SendInsufficientBalance:
		c.logger.WarnContext(ctx, "hedge rejected for insufficient balance",
			slog.String("transaction", ledger.ID),
			slog.String("venue", string(hedgeVenue)),
		)
		c.notifyEvent(ctx, notify.Message{
			Event:         domain.EventCoordinatorFatal,
			Title:         "Insufficient balance",
			Body:          fmt.Sprintf("hedge %s %s rejected: insufficient balance", hedgeSide, formatSize(residual)),
			Venue:         hedgeVenue,
			TransactionID: ledger.ID,
		})
		return nil
	case venue.SendRejected:
		c.logger.WarnContext(ctx, "hedge rejected",
			slog.String("transaction", ledger.ID),
			slog.String("reason", sent.Reason),
		)
		return nil
	}

	ledger.AppendHedge(order)
	c.recordOrder(ctx, order)
	c.logger.InfoContext(ctx, "hedge placed",
		slog.String("transaction", ledger.ID),
		slog.String("broker_order_id", order.BrokerOrderID),
		slog.Float64("price", order.Price),
		slog.Float64("size", order.Size),
		slog.Int("attempt", c.retries),
	)
	c.sleep(ctx, c.cfg.PostSendWait)
	return nil
}

// hedgePrices derives the passive (fair) and aggressive (spread-crossing)
// prices for the hedge side from the latest snapshot.
func (c *Coordinator) hedgePrices(snap domain.OrderBookSnapshot, side domain.OrderSide) (fair, cross float64, ok bool) {
	bid, hasBid := snap.BestBid()
	ask, hasAsk := snap.BestAsk()
	if !hasBid || !hasAsk {
		return 0, 0, false
	}

	if side == domain.OrderSideSell {
		fair = math.Max(bid.Price, bid.ReferencePrice) - c.cfg.PriceTick
		cross = bid.Price
	} else {
		ref := ask.ReferencePrice
		if ref <= 0 {
			ref = ask.Price
		}
		fair = math.Min(ask.Price, ref) + c.cfg.PriceTick
		cross = ask.Price
	}
	if fair <= 0 || cross <= 0 {
		return 0, 0, false
	}
	return fair, cross, true
}

// stopEngaged reports whether the stop crossing should take over: the retry
// count has passed the stop threshold and, when a stop point is configured,
// the fair hedge price has moved against the taker fill by at least that
// percentage.
func (c *Coordinator) stopEngaged(taker *domain.Order, fair float64) bool {
	if c.cfg.StopRetryCount <= 0 || c.retries < c.cfg.StopRetryCount {
		return false
	}
	if c.cfg.StopPoint <= 0 {
		return true
	}
	var adverse float64
	if taker.Side == domain.OrderSideBuy {
		// Hedge sells; a fair price falling below the taker price is adverse.
		adverse = (taker.Price - fair) / taker.Price * 100
	} else {
		adverse = (fair - taker.Price) / taker.Price * 100
	}
	return adverse >= c.cfg.StopPoint
}
