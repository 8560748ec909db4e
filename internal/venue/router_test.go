package venue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// stubAdapter is a minimal scripted Adapter for router tests.
type stubAdapter struct {
	venue   domain.Venue
	sent    int
	balance domain.BrokerBalance
}

func (s *stubAdapter) Venue() domain.Venue { return s.venue }

func (s *stubAdapter) Send(ctx context.Context, o *domain.Order) (SendResult, error) {
	s.sent++
	o.BrokerOrderID = "stub-1"
	o.Status = domain.OrderStatusNew
	return SendResult{Outcome: SendAccepted, BrokerOrderID: "stub-1"}, nil
}

func (s *stubAdapter) Refresh(ctx context.Context, o *domain.Order) error { return nil }
func (s *stubAdapter) Cancel(ctx context.Context, o *domain.Order) error  { return nil }

func (s *stubAdapter) FetchQuotes(ctx context.Context) (domain.OrderBookSnapshot, error) {
	return domain.OrderBookSnapshot{Venue: s.venue}, nil
}

func (s *stubAdapter) GetBalance(ctx context.Context) (domain.BrokerBalance, error) {
	return s.balance, nil
}

func (s *stubAdapter) OpenOrders(ctx context.Context, page int, side domain.OrderSide) ([]domain.Order, error) {
	return nil, nil
}

func TestRouterDispatchesByVenue(t *testing.T) {
	hpx := &stubAdapter{venue: domain.VenueHPX, balance: domain.BrokerBalance{Base: 1}}
	zb := &stubAdapter{venue: domain.VenueZB, balance: domain.BrokerBalance{Base: 2}}
	r := NewRouter(hpx, zb)

	o := domain.NewOrder(domain.VenueZB, domain.OrderSideBuy, 1, 100, domain.OrderTypeLimit)
	res, err := r.Send(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, SendAccepted, res.Outcome)
	assert.Equal(t, 1, zb.sent)
	assert.Equal(t, 0, hpx.sent)

	bal, err := r.GetBalance(context.Background(), domain.VenueHPX)
	require.NoError(t, err)
	assert.Equal(t, 1.0, bal.Base)
}

func TestRouterUnknownVenue(t *testing.T) {
	r := NewRouter(&stubAdapter{venue: domain.VenueHPX})

	o := domain.NewOrder(domain.VenueZB, domain.OrderSideBuy, 1, 100, domain.OrderTypeLimit)
	_, err := r.Send(context.Background(), o)
	assert.ErrorIs(t, err, domain.ErrUnknownVenue)

	_, err = r.FetchQuotes(context.Background(), domain.VenueZB)
	assert.ErrorIs(t, err, domain.ErrUnknownVenue)

	err = r.Refresh(context.Background(), o)
	assert.ErrorIs(t, err, domain.ErrUnknownVenue)
}

func TestRouterVenues(t *testing.T) {
	r := NewRouter(&stubAdapter{venue: domain.VenueHPX}, &stubAdapter{venue: domain.VenueZB})
	assert.ElementsMatch(t, []domain.Venue{domain.VenueHPX, domain.VenueZB}, r.Venues())
}
