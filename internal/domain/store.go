package domain

import (
	"context"
	"io"
	"time"
)

// SettledLeg is one order's contribution to a settled transaction.
type SettledLeg struct {
	OrderID       string
	BrokerOrderID string
	Venue         Venue
	Side          OrderSide
	Price         float64
	FilledSize    float64
	CreatedAt     time.Time
}

// SettledTransaction is the append-only record emitted once a two-leg
// transaction completes (fully hedged or force-settled).
type SettledTransaction struct {
	ID        string
	Direction Direction
	Taker     SettledLeg
	Hedges    []SettledLeg
	HedgeVWAP float64
	Profit    float64
	Forced    bool
	OpenedAt  time.Time
	SettledAt time.Time
}

// TradeStore persists settled transactions.
type TradeStore interface {
	CreateSettlement(ctx context.Context, st SettledTransaction) error
	// ListSettledBefore returns settlements older than cutoff, oldest first,
	// up to limit. Used by the archiver.
	ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]SettledTransaction, error)
	// DeleteSettledBefore removes archived settlements older than cutoff.
	DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderStore records every order the coordinator sends, for audit.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	UpdateFill(ctx context.Context, id string, filled float64, status OrderStatus) error
}

// SignalBus distributes coordinator lifecycle events: fan-out to live
// subscribers plus a durable, replayable stream.
type SignalBus interface {
	// PublishEvent delivers the event to the channel's subscribers and appends
	// it to the stream.
	PublishEvent(ctx context.Context, channel, stream string, ev BusEvent) error
	// Subscribe returns a channel of raw event payloads for live consumers.
	// The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	// StreamRead replays up to count entries recorded after lastID; "0" reads
	// from the beginning. It returns nil (not an error) when nothing is there.
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]StreamMessage, error)
}

// StreamMessage is one durable entry read back from the signal bus stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// BlobWriter uploads objects to blob storage. PutMultipart is for payloads
// large enough that a single-shot upload is not appropriate.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}
