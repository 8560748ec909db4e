package venue

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Router fans requests out to the adapter matching the order's or request's
// venue. It fails loudly with domain.ErrUnknownVenue when no adapter matches.
type Router struct {
	adapters map[domain.Venue]Adapter
}

// NewRouter builds a router over the given adapters.
func NewRouter(adapters ...Adapter) *Router {
	m := make(map[domain.Venue]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Venue()] = a
	}
	return &Router{adapters: m}
}

func (r *Router) adapterFor(v domain.Venue) (Adapter, error) {
	a, ok := r.adapters[v]
	if !ok {
		return nil, fmt.Errorf("venue %q: %w", v, domain.ErrUnknownVenue)
	}
	return a, nil
}

// Send routes the order to its venue's adapter.
func (r *Router) Send(ctx context.Context, o *domain.Order) (SendResult, error) {
	a, err := r.adapterFor(o.Venue)
	if err != nil {
		return SendResult{}, err
	}
	return a.Send(ctx, o)
}

// Refresh routes the refresh to the order's venue.
func (r *Router) Refresh(ctx context.Context, o *domain.Order) error {
	a, err := r.adapterFor(o.Venue)
	if err != nil {
		return err
	}
	return a.Refresh(ctx, o)
}

// Cancel routes the cancel to the order's venue.
func (r *Router) Cancel(ctx context.Context, o *domain.Order) error {
	a, err := r.adapterFor(o.Venue)
	if err != nil {
		return err
	}
	return a.Cancel(ctx, o)
}

// FetchQuotes returns the latest order book snapshot for the venue.
func (r *Router) FetchQuotes(ctx context.Context, v domain.Venue) (domain.OrderBookSnapshot, error) {
	a, err := r.adapterFor(v)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	return a.FetchQuotes(ctx)
}

// GetBalance returns the venue's available balances.
func (r *Router) GetBalance(ctx context.Context, v domain.Venue) (domain.BrokerBalance, error) {
	a, err := r.adapterFor(v)
	if err != nil {
		return domain.BrokerBalance{}, err
	}
	return a.GetBalance(ctx)
}

// OpenOrders lists resting orders on the venue for one side.
func (r *Router) OpenOrders(ctx context.Context, v domain.Venue, page int, side domain.OrderSide) ([]domain.Order, error) {
	a, err := r.adapterFor(v)
	if err != nil {
		return nil, err
	}
	return a.OpenOrders(ctx, page, side)
}

// Venues returns the registered venue identifiers.
func (r *Router) Venues() []domain.Venue {
	out := make([]domain.Venue, 0, len(r.adapters))
	for v := range r.adapters {
		out = append(out, v)
	}
	return out
}
