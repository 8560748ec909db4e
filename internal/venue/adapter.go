// Package venue defines the per-venue gateway interface the coordinator talks
// through, and a router that dispatches requests to the adapter matching an
// order's venue.
package venue

import (
	"context"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// SendOutcome classifies a venue's response to a new order. It is a tagged
// result: "insufficient balance" is a distinct outcome, never encoded in the
// broker order ID.
type SendOutcome int

const (
	// SendAccepted: the venue assigned a broker order ID.
	SendAccepted SendOutcome = iota
	// SendRejected: the venue refused the order; no ID was assigned.
	SendRejected
	// SendInsufficientBalance: refused specifically for lack of funds. The
	// coordinator treats this differently from a plain rejection (it backs
	// off that venue/side instead of rescanning immediately).
	SendInsufficientBalance
)

// String returns a log-friendly name for the outcome.
func (o SendOutcome) String() string {
	switch o {
	case SendAccepted:
		return "accepted"
	case SendRejected:
		return "rejected"
	case SendInsufficientBalance:
		return "insufficient_balance"
	default:
		return "unknown"
	}
}

// SendResult is the typed outcome of Adapter.Send.
type SendResult struct {
	Outcome       SendOutcome
	BrokerOrderID string
	Reason        string
}

// Adapter is the gateway to a single venue. Implementations are pure
// request/response: they hold no cross-order state. Send, Refresh, and Cancel
// mutate the passed order from the venue's reply; the coordinator never
// guesses order state itself.
type Adapter interface {
	Venue() domain.Venue

	// Send submits the order. On acceptance the order's BrokerOrderID and
	// status are set from the reply; on rejection or insufficient balance the
	// order becomes Rejected and the result carries the distinction.
	Send(ctx context.Context, o *domain.Order) (SendResult, error)

	// Refresh updates FilledSize/Status/LastUpdated from the venue's current
	// record of the order. Idempotent; safe to retry after failures.
	Refresh(ctx context.Context, o *domain.Order) error

	// Cancel asks the venue to cancel the order. Callers must Refresh
	// afterwards before trusting the terminal state: a fill can race the
	// cancel on the venue side.
	Cancel(ctx context.Context, o *domain.Order) error

	// FetchQuotes returns the current order book snapshot.
	FetchQuotes(ctx context.Context) (domain.OrderBookSnapshot, error)

	// GetBalance returns the venue's available balances.
	GetBalance(ctx context.Context) (domain.BrokerBalance, error)

	// OpenOrders lists the venue's resting orders for one side, paginated.
	// Used by ladder reconciliation to detect fills and cancellations in bulk
	// without refreshing each order individually.
	OpenOrders(ctx context.Context, page int, side domain.OrderSide) ([]domain.Order, error)
}
