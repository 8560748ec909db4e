package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/export"
	"github.com/alanyoungcy/spreadbot/internal/notify"
)

// busChannel and busStream are where lifecycle events are published.
const (
	busChannel = "spreadbot.events"
	busStream  = "spreadbot:events"
)

// settle closes the transaction: compute the realized result, persist the
// record, publish the event, and return the coordinator to idle. forced marks
// a degraded settlement where the hedge did not fully match the taker fill.
func (c *Coordinator) settle(ctx context.Context, ledger *domain.TransactionLedger, forced bool) error {
	c.setState(StateSettling)

	now := time.Now().UTC()
	st := ledger.Settled(forced, now)

	// Hedge fills consumed balance on the hedge venue since the last refresh;
	// fold the estimate in so the next scan does not oversize.
	taker := ledger.Taker()
	if filled := ledger.HedgeFilled(); filled > 0 {
		c.balances.ApplyFillEstimate(taker.Venue.Other(), taker.Side.Opposite(), ledger.HedgeVWAP(), filled)
	}

	if c.trades != nil {
		if err := c.trades.CreateSettlement(ctx, st); err != nil {
			// The transaction is economically done; losing the record is log
			// worthy but must not wedge the state machine.
			c.logger.ErrorContext(ctx, "settlement persist failed",
				slog.String("transaction", st.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if c.exportDir != "" {
		if _, err := export.AppendFile(c.exportDir, st); err != nil {
			c.logger.ErrorContext(ctx, "settlement csv export failed",
				slog.String("transaction", st.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.publishEvent(ctx, domain.BusEvent{
		Event:         domain.EventSettled,
		TransactionID: st.ID,
		Direction:     st.Direction,
		Price:         st.HedgeVWAP,
		Size:          st.Taker.FilledSize,
		Profit:        st.Profit,
		Timestamp:     now,
	})
	c.notifyEvent(ctx, notify.Message{
		Event: domain.EventSettled,
		Title: "Transaction settled",
		Body: fmt.Sprintf("taker %s @ %s, hedge vwap %s, profit %s%s",
			formatSize(st.Taker.FilledSize), formatSize(st.Taker.Price),
			formatSize(st.HedgeVWAP), formatSize(st.Profit), forcedSuffix(forced)),
		Venue:         st.Taker.Venue,
		TransactionID: st.ID,
	})

	c.logger.InfoContext(ctx, "transaction settled",
		slog.String("transaction", st.ID),
		slog.String("direction", string(st.Direction)),
		slog.Float64("taker_filled", st.Taker.FilledSize),
		slog.Float64("hedge_vwap", st.HedgeVWAP),
		slog.Float64("profit", st.Profit),
		slog.Bool("forced", forced),
	)

	c.clearTransaction()
	return nil
}

func forcedSuffix(forced bool) string {
	if forced {
		return " (forced, partial hedge)"
	}
	return ""
}

// recordOrder writes a sent order to the audit store when one is wired.
func (c *Coordinator) recordOrder(ctx context.Context, o *domain.Order) {
	if c.orders == nil {
		return
	}
	if err := c.orders.Create(ctx, *o); err != nil {
		c.logger.ErrorContext(ctx, "order audit write failed",
			slog.String("order", o.ID),
			slog.String("error", err.Error()),
		)
	}
}

// recordFill updates the audit store with an order's latest fill state.
func (c *Coordinator) recordFill(ctx context.Context, o *domain.Order) {
	if c.orders == nil {
		return
	}
	if err := c.orders.UpdateFill(ctx, o.ID, o.FilledSize, o.Status); err != nil {
		c.logger.ErrorContext(ctx, "order audit update failed",
			slog.String("order", o.ID),
			slog.String("error", err.Error()),
		)
	}
}

// publishEvent pushes a lifecycle event to the signal bus when one is wired.
func (c *Coordinator) publishEvent(ctx context.Context, ev domain.BusEvent) {
	if c.bus == nil {
		return
	}
	if err := c.bus.PublishEvent(ctx, busChannel, busStream, ev); err != nil {
		c.logger.WarnContext(ctx, "event publish failed",
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}

// notifyEvent routes an operator alert through the notifier when one is wired.
func (c *Coordinator) notifyEvent(ctx context.Context, m notify.Message) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, m); err != nil {
		c.logger.WarnContext(ctx, "notification failed",
			slog.String("event", m.Event),
			slog.String("error", err.Error()),
		)
	}
}
