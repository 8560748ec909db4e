// Package app provides top-level application lifecycle management for the
// spreadbot coordinator. It wires together all dependencies (venue adapters,
// market-data cache, balance tracker, stores, signal bus, archiver, and
// notifications) and supervises the two venue loops.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/spreadbot/internal/config"
	"github.com/alanyoungcy/spreadbot/internal/coordinator"
	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, builds the
// coordinator, and either performs the emergency cancel-all pass or starts
// the venue loops, blocking until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting coordinator",
		slog.Bool("demo_mode", a.cfg.Trading.DemoMode),
		slog.Bool("arbitrage", a.cfg.Trading.ArbitrageEnabled),
		slog.Bool("ladder", a.cfg.Ladder.Enabled),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	coord := coordinator.New(coordinator.Config{
		PrimaryVenue: domain.VenueHPX,

		DemoMode:         a.cfg.Trading.DemoMode,
		ArbitrageEnabled: a.cfg.Trading.ArbitrageEnabled,
		LadderEnabled:    a.cfg.Ladder.Enabled,

		MinSize:         a.cfg.Trading.MinSize,
		MaxSize:         a.cfg.Trading.MaxSize,
		SizeGranularity: a.cfg.Trading.SizeGranularity,
		PriceTick:       a.cfg.Trading.PriceTick,

		ArbitragePoint: a.cfg.Trading.ArbitragePoint,
		CancelPoint:    a.cfg.Trading.CancelPoint,
		StopPoint:      a.cfg.Trading.StopPoint,

		MaxRetryCount:     a.cfg.Trading.MaxRetryCount,
		StopRetryCount:    a.cfg.Trading.StopRetryCount,
		ConfirmRetryCount: a.cfg.Trading.ConfirmRetryCount,

		StatusCheckWait: a.cfg.Trading.StatusCheckWait.Duration,
		PostSendWait:    a.cfg.Trading.PostSendWait.Duration,
		Epsilon:         a.cfg.Trading.Epsilon,

		RemovalRatio: a.cfg.Ladder.RemovalRatio,
		VolumeRatio:  a.cfg.Ladder.VolumeRatio,
		CopyQuantity: a.cfg.Ladder.CopyQuantity,
	}, coordinator.Deps{
		Router:    deps.Router,
		Cache:     deps.Cache,
		Balances:  deps.Balances,
		Notifier:  deps.Notifier,
		Trades:    deps.TradeStore,
		Orders:    deps.OrderStore,
		Bus:       deps.SignalBus,
		ExportDir: a.cfg.Export.Dir,
		Logger:    a.logger,
	})

	if a.cfg.Trading.CancelAllAndExit {
		a.logger.InfoContext(ctx, "cancel-all-and-exit requested")
		if err := coord.CancelAll(ctx); err != nil {
			return fmt.Errorf("app: cancel all: %w", err)
		}
		a.logger.InfoContext(ctx, "all open orders canceled, exiting")
		return nil
	}

	return a.runLoops(ctx, deps, coord)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
