// Package feed streams HPX market depth over WebSocket into the market-data
// cache, replacing REST depth polling on the primary venue when enabled.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// SnapshotHandler is called for each complete depth snapshot received.
type SnapshotHandler func(ctx context.Context, snap domain.OrderBookSnapshot)

// wsCommand is the subscribe/unsubscribe envelope sent to the HPX feed.
type wsCommand struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Market  string `json:"market"`
}

// depthMessage is one full depth snapshot pushed on the "depth" channel.
type depthMessage struct {
	Channel string `json:"channel"`
	Market  string `json:"market"`
	Data    struct {
		Bids [][]string `json:"bids"` // [price, volume], best first
		Asks [][]string `json:"asks"`
		Last string     `json:"last"`
	} `json:"data"`
}

// HPXFeed connects to the HPX WebSocket, subscribes to depth for the
// configured market, and invokes the handler with each complete snapshot.
// It reconnects with exponential backoff on disconnect.
type HPXFeed struct {
	wsURL      string
	market     string
	onSnapshot SnapshotHandler
	logger     *slog.Logger
	closeOnce  sync.Once
	done       chan struct{}
}

// NewHPXFeed creates a feed for the given market symbol.
func NewHPXFeed(wsURL, market string, onSnapshot SnapshotHandler, logger *slog.Logger) *HPXFeed {
	return &HPXFeed{
		wsURL:      wsURL,
		market:     market,
		onSnapshot: onSnapshot,
		logger:     logger.With(slog.String("component", "hpx_ws_feed")),
		done:       make(chan struct{}),
	}
}

// Run connects and streams depth until ctx is cancelled or Close is called.
func (f *HPXFeed) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("hpx ws disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the feed.
func (f *HPXFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// runConnection dials, subscribes, and reads until the connection drops or
// the context is cancelled. Returns nil only on clean shutdown.
func (f *HPXFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := wsCommand{Event: "subscribe", Channel: "depth", Market: f.market}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("hpx ws subscribed", slog.String("market", f.market))

	// Close the connection when the context or the feed is shut down so the
	// blocking ReadMessage below unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		case <-stop:
			return
		}
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		_ = conn.Close()
	}()
	go f.pingLoop(conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, raw)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (f *HPXFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw message and dispatches depth snapshots. Messages
// on other channels and unparseable payloads are dropped.
func (f *HPXFeed) handleMessage(ctx context.Context, raw []byte) {
	var msg depthMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Channel != "depth" || msg.Market != f.market {
		return
	}

	snap := depthToSnapshot(&msg)
	if len(snap.Quotes) == 0 {
		return
	}
	if f.onSnapshot != nil {
		f.onSnapshot(ctx, snap)
	}
}

// depthToSnapshot converts a wire depth message into a domain snapshot. Levels
// with unparseable numbers are skipped rather than failing the whole snapshot.
func depthToSnapshot(msg *depthMessage) domain.OrderBookSnapshot {
	last, _ := strconv.ParseFloat(msg.Data.Last, 64)

	snap := domain.OrderBookSnapshot{
		Venue:     domain.VenueHPX,
		Quotes:    make([]domain.Quote, 0, len(msg.Data.Bids)+len(msg.Data.Asks)),
		Timestamp: time.Now().UTC(),
	}
	appendLevels := func(levels [][]string, side domain.QuoteSide) {
		for _, lv := range levels {
			if len(lv) < 2 {
				continue
			}
			price, err := strconv.ParseFloat(lv[0], 64)
			if err != nil {
				continue
			}
			volume, err := strconv.ParseFloat(lv[1], 64)
			if err != nil {
				continue
			}
			snap.Quotes = append(snap.Quotes, domain.Quote{
				Venue:          domain.VenueHPX,
				Side:           side,
				Price:          price,
				ReferencePrice: last,
				Volume:         volume,
			})
		}
	}
	appendLevels(msg.Data.Bids, domain.QuoteBid)
	appendLevels(msg.Data.Asks, domain.QuoteAsk)
	return snap
}
