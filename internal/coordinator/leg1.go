package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// suppressWindow is how long a venue/side stays suppressed after an
// insufficient-balance rejection before the scanner may try it again.
const suppressWindow = 30 * time.Second

// executeTaker sends the taker leg for a detected opportunity and confirms
// its fill. On success the transaction moves to the hedge machine; every
// abort path leaves the coordinator idle with no ledger.
func (c *Coordinator) executeTaker(ctx context.Context, res domain.SpreadAnalysisResult) error {
	if c.cfg.DemoMode {
		c.logger.InfoContext(ctx, "demo mode: skipping taker send",
			slog.String("direction", string(res.Direction)),
			slog.Float64("price", res.TakerQuote.Price),
			slog.Float64("volume", res.TargetVolume),
		)
		return nil
	}

	order := domain.NewOrder(c.cfg.PrimaryVenue, res.Direction.TakerSide(), res.TargetVolume, res.TakerQuote.Price, domain.OrderTypeLimit)

	sent, err := c.router.Send(ctx, order)
	if err != nil {
		return fmt.Errorf("coordinator: send taker: %w", err)
	}

	switch sent.Outcome {
	case venue.SendInsufficientBalance:
		c.suppressedUntil = time.Now().Add(suppressWindow)
		c.logger.WarnContext(ctx, "taker rejected for insufficient balance",
			slog.String("venue", string(order.Venue)),
			slog.String("side", string(order.Side)),
		)
		c.notifyEvent(ctx, notify.Message{
			Event: domain.EventCoordinatorFatal,
			Title: "Insufficient balance",
			Body:  fmt.Sprintf("taker %s %s rejected: insufficient balance", order.Side, formatSize(order.Size)),
			Venue: order.Venue,
		})
		return nil
	case venue.SendRejected:
		c.logger.WarnContext(ctx, "taker rejected",
			slog.String("venue", string(order.Venue)),
			slog.String("reason", sent.Reason),
		)
		c.sleep(ctx, c.cfg.PostSendWait)
		return nil
	}

	ledger := domain.NewTransactionLedger(res.Direction, order)
	if err := c.beginTransaction(ledger, StateLeg1Pending); err != nil {
		// Should not happen: only the primary loop opens transactions. Cancel
		// the orphaned order rather than leak it.
		c.cancelAndRefresh(ctx, order)
		return fmt.Errorf("coordinator: begin transaction: %w", err)
	}

	c.recordOrder(ctx, order)
	c.publishEvent(ctx, domain.BusEvent{
		Event:          domain.EventArbDetected,
		TransactionID:  ledger.ID,
		Venue:          order.Venue,
		Direction:      res.Direction,
		Price:          order.Price,
		Size:           order.Size,
		InvertedSpread: res.InvertedSpread,
		Timestamp:      time.Now().UTC(),
	})
	c.logger.InfoContext(ctx, "taker accepted",
		slog.String("transaction", ledger.ID),
		slog.String("broker_order_id", order.BrokerOrderID),
		slog.Float64("price", order.Price),
		slog.Float64("size", order.Size),
	)

	c.sleep(ctx, c.cfg.PostSendWait)
	return c.confirmTaker(ctx, ledger)
}

// confirmTaker polls the taker order a bounded number of times. Outcomes:
// fully filled, force-closed at a partial fill of at least the minimum size,
// or canceled and aborted. A cancel is never trusted without a refresh after
// it; the venue may fill concurrently with the cancel.
func (c *Coordinator) confirmTaker(ctx context.Context, ledger *domain.TransactionLedger) error {
	order := ledger.Taker()

	for attempt := 0; attempt < c.cfg.ConfirmRetryCount; attempt++ {
		if err := c.router.Refresh(ctx, order); err != nil {
			c.logger.WarnContext(ctx, "taker refresh failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
		} else if order.Status == domain.OrderStatusFilled {
			break
		}
		c.sleep(ctx, c.cfg.StatusCheckWait)
	}
	c.recordFill(ctx, order)

	if order.Status != domain.OrderStatusFilled {
		// Cancel the remainder, then refresh once more: a fill racing the
		// cancel must be observed, not lost.
		c.cancelAndRefresh(ctx, order)
		c.recordFill(ctx, order)
		if order.FilledSize < c.cfg.MinSize {
			c.logger.InfoContext(ctx, "taker unfilled, transaction aborted",
				slog.String("transaction", ledger.ID),
				slog.Float64("filled", order.FilledSize),
			)
			c.clearTransaction()
			return nil
		}
		// A partial fill of at least the minimum proceeds to the hedge at
		// its confirmed size.
		order.ForceClose(time.Now().UTC())
	}

	c.balances.ApplyFillEstimate(order.Venue, order.Side, order.Price, order.FilledSize)
	c.publishEvent(ctx, domain.BusEvent{
		Event:         domain.EventLegFilled,
		TransactionID: ledger.ID,
		Venue:         order.Venue,
		Direction:     ledger.Direction,
		Price:         order.Price,
		Size:          order.FilledSize,
		Timestamp:     time.Now().UTC(),
	})
	c.logger.InfoContext(ctx, "taker confirmed",
		slog.String("transaction", ledger.ID),
		slog.Float64("filled", order.FilledSize),
	)

	c.setState(StateLeg2Pending)
	return nil
}

// cancelAndRefresh cancels an order and immediately refreshes it so a fill
// racing the cancel is observed rather than lost. Errors are logged, not
// returned; refresh is idempotent and the next tick retries.
func (c *Coordinator) cancelAndRefresh(ctx context.Context, o *domain.Order) {
	if err := c.router.Cancel(ctx, o); err != nil {
		c.logger.WarnContext(ctx, "cancel failed",
			slog.String("broker_order_id", o.BrokerOrderID),
			slog.String("error", err.Error()),
		)
	}
	if err := c.router.Refresh(ctx, o); err != nil {
		c.logger.WarnContext(ctx, "refresh after cancel failed",
			slog.String("broker_order_id", o.BrokerOrderID),
			slog.String("error", err.Error()),
		)
	}
}

func formatSize(v float64) string {
	return fmt.Sprintf("%.8f", v)
}
