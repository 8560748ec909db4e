// Package balance caches per-venue balances for sizing decisions. The periodic
// venue fetch is authoritative; fill-driven decrements between fetches are
// best-effort estimates only.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// Thresholds holds the per-venue alert floors. A zero threshold disables the
// alert for that asset.
type Thresholds struct {
	Base  float64
	Quote float64
}

// Tracker caches the latest fetched balance per venue and raises a low-balance
// notification when an authoritative refresh drops below the configured floor.
type Tracker struct {
	router     *venue.Router
	notifier   *notify.Notifier
	thresholds map[domain.Venue]Thresholds
	logger     *slog.Logger

	mu       sync.RWMutex
	balances map[domain.Venue]domain.BrokerBalance
	alerted  map[domain.Venue]bool
}

// NewTracker creates a balance tracker over the venue router. notifier may be
// nil when alerting is not wired.
func NewTracker(router *venue.Router, notifier *notify.Notifier, thresholds map[domain.Venue]Thresholds, logger *slog.Logger) *Tracker {
	return &Tracker{
		router:     router,
		notifier:   notifier,
		thresholds: thresholds,
		logger:     logger.With(slog.String("component", "balance")),
		balances:   make(map[domain.Venue]domain.BrokerBalance),
		alerted:    make(map[domain.Venue]bool),
	}
}

// Refresh fetches the venue's balance and replaces the cached value. This is
// the authoritative path; any estimates applied since the last refresh are
// overwritten.
func (t *Tracker) Refresh(ctx context.Context, v domain.Venue) error {
	bal, err := t.router.GetBalance(ctx, v)
	if err != nil {
		return fmt.Errorf("balance: refresh %s: %w", v, err)
	}

	t.mu.Lock()
	t.balances[v] = bal
	t.mu.Unlock()

	t.logger.DebugContext(ctx, "balance refreshed",
		slog.String("venue", string(v)),
		slog.Float64("base", bal.Base),
		slog.Float64("quote", bal.Quote),
	)
	t.checkThresholds(ctx, v, bal)
	return nil
}

// Get returns the cached balance for the venue. The second return is false
// when the venue has never been refreshed.
func (t *Tracker) Get(v domain.Venue) (domain.BrokerBalance, bool) {
	t.mu.RLock()
	bal, ok := t.balances[v]
	t.mu.RUnlock()
	return bal, ok
}

// ApplyFillEstimate optimistically adjusts the cached balance for a fill so
// sizing between refreshes does not overshoot. A buy spends quote and gains
// base; a sell is the reverse. The next Refresh discards the estimate.
func (t *Tracker) ApplyFillEstimate(v domain.Venue, side domain.OrderSide, price, size float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bal, ok := t.balances[v]
	if !ok {
		return
	}
	if side == domain.OrderSideBuy {
		bal.Base += size
		bal.Quote -= price * size
	} else {
		bal.Base -= size
		bal.Quote += price * size
	}
	if bal.Base < 0 {
		bal.Base = 0
	}
	if bal.Quote < 0 {
		bal.Quote = 0
	}
	t.balances[v] = bal
}

// checkThresholds raises a single low-balance alert per venue until the
// balance recovers above the floor.
func (t *Tracker) checkThresholds(ctx context.Context, v domain.Venue, bal domain.BrokerBalance) {
	th, ok := t.thresholds[v]
	if !ok {
		return
	}

	low := (th.Base > 0 && bal.Base < th.Base) || (th.Quote > 0 && bal.Quote < th.Quote)

	t.mu.Lock()
	already := t.alerted[v]
	t.alerted[v] = low
	t.mu.Unlock()

	if !low || already {
		return
	}

	t.logger.WarnContext(ctx, "balance below threshold",
		slog.String("venue", string(v)),
		slog.Float64("base", bal.Base),
		slog.Float64("quote", bal.Quote),
	)
	if t.notifier != nil {
		m := notify.Message{
			Event: domain.EventLowBalance,
			Title: "Low balance",
			Body: fmt.Sprintf("balance low: base %.8f quote %.8f (floors %.8f / %.8f)",
				bal.Base, bal.Quote, th.Base, th.Quote),
			Venue: v,
		}
		if err := t.notifier.Notify(ctx, m); err != nil {
			t.logger.ErrorContext(ctx, "low balance alert failed", slog.String("error", err.Error()))
		}
	}
}
