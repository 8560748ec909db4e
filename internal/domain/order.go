package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType is the execution type of an order.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderStatus tracks the order lifecycle. An order is created PendingNew,
// becomes New once the venue accepts it, moves through PartiallyFilled to
// Filled as executions arrive, or ends Rejected/Canceled.
type OrderStatus string

const (
	OrderStatusPendingNew      OrderStatus = "pending_new"
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether the status is final.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// Order is a single order on one venue. FilledSize is only ever mutated from
// venue responses (send/refresh/cancel), never guessed locally; the one
// exception is ForceClose, which freezes an acknowledged partial fill.
type Order struct {
	ID            string
	Venue         Venue
	Side          OrderSide
	Type          OrderType
	Size          float64
	Price         float64
	FilledSize    float64
	BrokerOrderID string
	Status        OrderStatus
	CreationTime  time.Time
	SentTime      time.Time
	LastUpdated   time.Time
}

// NewOrder creates a PendingNew order with a fresh local ID.
func NewOrder(venue Venue, side OrderSide, size, price float64, typ OrderType) *Order {
	return &Order{
		ID:           uuid.New().String(),
		Venue:        venue,
		Side:         side,
		Type:         typ,
		Size:         size,
		Price:        price,
		Status:       OrderStatusPendingNew,
		CreationTime: time.Now().UTC(),
	}
}

// PendingSize is the portion of the order not yet filled.
func (o *Order) PendingSize() float64 {
	return o.Size - o.FilledSize
}

// ApplyFill records a fill total reported by the venue. Fills are monotonic:
// a stale response reporting less than we already know is ignored. The filled
// size is clamped to the order size.
func (o *Order) ApplyFill(filled float64, status OrderStatus, now time.Time) {
	if filled > o.FilledSize {
		if filled > o.Size {
			filled = o.Size
		}
		o.FilledSize = filled
	}
	o.Status = status
	if o.Status == OrderStatusNew && o.FilledSize > 0 && o.FilledSize < o.Size {
		o.Status = OrderStatusPartiallyFilled
	}
	o.LastUpdated = now
}

// ForceClose marks the order logically filled at its current filled size.
// Used when the coordinator decides to proceed with a confirmed partial fill
// rather than wait for the remainder.
func (o *Order) ForceClose(now time.Time) {
	o.Size = o.FilledSize
	o.Status = OrderStatusFilled
	o.LastUpdated = now
}
