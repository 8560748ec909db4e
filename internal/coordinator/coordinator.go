// Package coordinator implements the execution coordinator: opportunity
// scanning, the two-leg order lifecycle state machine with re-pricing, the
// standing ladder strategy, and settlement.
//
// Exactly one two-leg transaction may be in flight at a time. The primary
// venue's loop drives scanning and the taker leg; the secondary venue's loop
// drives hedge re-pricing, settlement, and ladder reconciliation. Handoff
// between the loops goes through the coordinator's state field; the mutex is
// held only to read or swap state and the ledger pointer, never across a
// venue call.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/balance"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/marketdata"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// State is the coordinator's position in the transaction lifecycle.
type State int

const (
	// StateIdle: no transaction in flight; scanning and ladder maintenance
	// are allowed.
	StateIdle State = iota
	// StateLeg1Pending: a taker order is sent and awaiting confirmation. Owned
	// by the primary loop.
	StateLeg1Pending
	// StateLeg2Pending: the taker leg is confirmed; the hedge machine is
	// re-pricing on the other venue. Owned by the secondary loop.
	StateLeg2Pending
	// StateSettling: the hedge is complete and the record is being persisted.
	StateSettling
)

// String returns a log-friendly name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLeg1Pending:
		return "leg1_pending"
	case StateLeg2Pending:
		return "leg2_pending"
	case StateSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// Config carries every threshold the coordinator consults. Percentages are
// expressed as percents (1.0 means 1%).
type Config struct {
	PrimaryVenue domain.Venue

	DemoMode         bool
	ArbitrageEnabled bool
	LadderEnabled    bool

	MinSize         float64
	MaxSize         float64
	SizeGranularity float64
	PriceTick       float64

	ArbitragePoint float64 // minimum inverted spread, percent of taker price
	CancelPoint    float64 // hedge staleness tolerance, percent of fair price
	StopPoint      float64 // adverse move past which a stop crossing engages

	MaxRetryCount     int // hedge re-pricing budget
	StopRetryCount    int // retries before the hedge crosses the spread
	ConfirmRetryCount int // taker fill confirmation attempts

	StatusCheckWait time.Duration
	PostSendWait    time.Duration

	// Epsilon bounds how far cumulative hedge fills may trail the taker fill
	// and still count as fully hedged. Defaults to MinSize.
	Epsilon float64

	RemovalRatio float64 // percent of best price excluded around the top of book
	VolumeRatio  float64 // percent of mirrored level volume to replicate
	CopyQuantity int     // ladder orders maintained per side
}

// Coordinator owns the in-flight transaction ledger and the ladder.
type Coordinator struct {
	cfg      Config
	router   *venue.Router
	cache    *marketdata.Cache
	balances *balance.Tracker
	notifier *notify.Notifier
	trades    domain.TradeStore
	orders    domain.OrderStore
	bus       domain.SignalBus
	exportDir string
	logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	state  State
	ledger *domain.TransactionLedger

	// Leg-2 machine state, touched only by the secondary loop.
	retries int

	// Ladder state, touched only by the secondary loop.
	ladderBids []*domain.Order
	ladderAsks []*domain.Order

	// Venue/side suppressed after an insufficient-balance rejection, touched
	// only by the primary loop.
	suppressedUntil time.Time
}

// Deps bundles the coordinator's collaborators. Trades, Orders, Bus, and
// Notifier are optional; a nil value disables that output. ExportDir, when
// non-empty, appends every settlement to a per-day CSV file under it.
type Deps struct {
	Router    *venue.Router
	Cache     *marketdata.Cache
	Balances  *balance.Tracker
	Notifier  *notify.Notifier
	Trades    domain.TradeStore
	Orders    domain.OrderStore
	Bus       domain.SignalBus
	ExportDir string
	Logger    *slog.Logger
}

// New creates a coordinator in the idle state.
func New(cfg Config, deps Deps) *Coordinator {
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = cfg.MinSize
	}
	return &Coordinator{
		cfg:       cfg,
		router:    deps.Router,
		cache:     deps.Cache,
		balances:  deps.Balances,
		notifier:  deps.Notifier,
		trades:    deps.Trades,
		orders:    deps.Orders,
		bus:       deps.Bus,
		exportDir: deps.ExportDir,
		logger:    deps.Logger.With(slog.String("component", "coordinator")),
		sleep:     sleepCtx,
		state:     StateIdle,
	}
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ledger returns the in-flight ledger, or nil when idle.
func (c *Coordinator) Ledger() *domain.TransactionLedger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger
}

// TickPrimary is driven by the primary venue's loop. When idle it scans for
// an opportunity and, on finding one, executes and confirms the taker leg,
// handing the transaction to the secondary loop.
func (c *Coordinator) TickPrimary(ctx context.Context) {
	if !c.cfg.ArbitrageEnabled {
		return
	}
	if time.Now().Before(c.suppressedUntil) {
		return
	}
	if c.State() != StateIdle {
		return
	}

	res, ok := c.scan()
	if !ok {
		return
	}
	if err := c.executeTaker(ctx, res); err != nil {
		c.logger.ErrorContext(ctx, "taker execution failed",
			slog.String("direction", string(res.Direction)),
			slog.String("error", err.Error()),
		)
	}
}

// TickSecondary is driven by the secondary venue's loop. It advances the
// hedge machine when a transaction is in flight, and reconciles the ladder
// when idle.
func (c *Coordinator) TickSecondary(ctx context.Context) {
	switch c.State() {
	case StateLeg2Pending:
		if err := c.tickHedge(ctx); err != nil {
			c.logger.ErrorContext(ctx, "hedge tick failed", slog.String("error", err.Error()))
		}
	case StateIdle:
		if c.cfg.LadderEnabled {
			if err := c.tickLadder(ctx); err != nil {
				c.logger.ErrorContext(ctx, "ladder tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// beginTransaction atomically moves Idle → to with a fresh ledger. It fails
// with ErrTransactionOpen when another transaction is already in flight.
func (c *Coordinator) beginTransaction(l *domain.TransactionLedger, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return domain.ErrTransactionOpen
	}
	c.state = to
	c.ledger = l
	c.retries = 0
	return nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// clearTransaction drops the ledger and returns to idle.
func (c *Coordinator) clearTransaction() {
	c.mu.Lock()
	c.ledger = nil
	c.state = StateIdle
	c.retries = 0
	c.mu.Unlock()
}

// CancelAll cancels every open order on every registered venue. Used by the
// emergency cancel-all-and-exit path; each cancel is followed by a refresh so
// racing fills are at least observed in the audit trail.
func (c *Coordinator) CancelAll(ctx context.Context) error {
	var lastErr error
	for _, v := range c.router.Venues() {
		for _, side := range []domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell} {
			// Always re-fetch the first page: canceling shifts the listing, so
			// walking pages forward would skip orders.
			for attempt := 0; attempt < 100; attempt++ {
				open, err := c.router.OpenOrders(ctx, v, 1, side)
				if err != nil {
					c.logger.ErrorContext(ctx, "cancel all: listing failed",
						slog.String("venue", string(v)),
						slog.String("side", string(side)),
						slog.String("error", err.Error()),
					)
					lastErr = err
					break
				}
				if len(open) == 0 {
					break
				}
				for i := range open {
					o := &open[i]
					c.cancelAndRefresh(ctx, o)
					c.logger.InfoContext(ctx, "order canceled",
						slog.String("venue", string(v)),
						slog.String("broker_order_id", o.BrokerOrderID),
					)
				}
			}
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
