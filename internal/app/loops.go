package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spreadbot/internal/coordinator"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/feed"
	"github.com/alanyoungcy/spreadbot/internal/marketdata"
)

// runLoops starts the two venue loops, the optional websocket feed, and the
// optional archiver, and blocks until the first fatal error or context
// cancellation.
func (a *App) runLoops(ctx context.Context, deps *Dependencies, coord *coordinator.Coordinator) error {
	g, ctx := errgroup.WithContext(ctx)

	// Websocket depth feed for the primary venue. When running, the primary
	// loop skips REST depth polling and consumes cache snapshots pushed here.
	feedRunning := false
	if a.cfg.Feed.Enabled {
		wsFeed := feed.NewHPXFeed(
			a.cfg.Feed.WsURL,
			a.cfg.HPX.Symbol,
			func(ctx context.Context, snap domain.OrderBookSnapshot) {
				deps.Cache.Put(marketdata.MergeByStep(snap, a.cfg.Trading.PriceMergeStep))
			},
			a.logger,
		)
		feedRunning = true
		g.Go(func() error {
			defer wsFeed.Close()
			return wsFeed.Run(ctx)
		})
	}

	g.Go(func() error {
		return a.runVenueLoop(ctx, deps, venueLoop{
			venue:     domain.VenueHPX,
			interval:  a.cfg.Loops.PrimaryInterval.Duration,
			pollDepth: !feedRunning,
			tick:      coord.TickPrimary,
		})
	})
	g.Go(func() error {
		return a.runVenueLoop(ctx, deps, venueLoop{
			venue:     domain.VenueZB,
			interval:  a.cfg.Loops.SecondaryInterval.Duration,
			pollDepth: true,
			tick:      coord.TickSecondary,
		})
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiverLoop(ctx, deps)
		})
	}

	return g.Wait()
}

// venueLoop describes one venue's polling loop.
type venueLoop struct {
	venue     domain.Venue
	interval  time.Duration
	pollDepth bool
	tick      func(ctx context.Context)
}

// runVenueLoop drives one venue: refresh the order book snapshot, refresh the
// balance every Nth tick, and advance the coordinator. Poll failures are
// logged and the loop keeps going; a stale snapshot just means the scanner
// sits out until the next successful poll.
func (a *App) runVenueLoop(ctx context.Context, deps *Dependencies, loop venueLoop) error {
	logger := a.logger.With(slog.String("venue", string(loop.venue)))
	logger.InfoContext(ctx, "venue loop starting",
		slog.Duration("interval", loop.interval),
		slog.Bool("poll_depth", loop.pollDepth),
	)

	ticker := time.NewTicker(loop.interval)
	defer ticker.Stop()

	balanceEvery := a.cfg.Loops.BalanceEveryTicks
	ticks := 0

	for {
		if loop.pollDepth {
			snap, err := deps.Router.FetchQuotes(ctx, loop.venue)
			if err != nil {
				logger.WarnContext(ctx, "depth poll failed", slog.String("error", err.Error()))
			} else {
				deps.Cache.Put(marketdata.MergeByStep(snap, a.cfg.Trading.PriceMergeStep))
			}
		}

		// Refresh on the first tick so the scanner never sizes against a
		// zero balance, then every Nth tick after.
		if ticks%balanceEvery == 0 {
			if err := deps.Balances.Refresh(ctx, loop.venue); err != nil {
				logger.WarnContext(ctx, "balance refresh failed", slog.String("error", err.Error()))
			}
		}
		ticks++

		loop.tick(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runArchiverLoop periodically uploads old settlements to blob storage.
func (a *App) runArchiverLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Export.ArchiveInterval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := deps.Archiver.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
