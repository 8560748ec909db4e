package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/balance"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/marketdata"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// fakeVenue is a scripted venue.Adapter. Behavior defaults to "accept
// everything, never fill"; tests override the function hooks.
type fakeVenue struct {
	v domain.Venue

	mu      sync.Mutex
	seq     int
	sends   []*domain.Order
	cancels []string

	balance   domain.BrokerBalance
	sendFn    func(o *domain.Order) (venue.SendResult, error)
	refreshFn func(o *domain.Order) error
	cancelFn  func(o *domain.Order) error
	openFn    func(page int, side domain.OrderSide) ([]domain.Order, error)
}

func newFakeVenue(v domain.Venue, bal domain.BrokerBalance) *fakeVenue {
	return &fakeVenue{v: v, balance: bal}
}

func (f *fakeVenue) Venue() domain.Venue { return f.v }

func (f *fakeVenue) Send(ctx context.Context, o *domain.Order) (venue.SendResult, error) {
	f.mu.Lock()
	f.sends = append(f.sends, o)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(o)
	}
	f.mu.Lock()
	f.seq++
	id := fmt.Sprintf("%s-%d", f.v, f.seq)
	f.mu.Unlock()
	o.BrokerOrderID = id
	o.Status = domain.OrderStatusNew
	o.SentTime = time.Now().UTC()
	return venue.SendResult{Outcome: venue.SendAccepted, BrokerOrderID: id}, nil
}

func (f *fakeVenue) Refresh(ctx context.Context, o *domain.Order) error {
	if f.refreshFn != nil {
		return f.refreshFn(o)
	}
	return nil
}

func (f *fakeVenue) Cancel(ctx context.Context, o *domain.Order) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, o.BrokerOrderID)
	f.mu.Unlock()
	if f.cancelFn != nil {
		return f.cancelFn(o)
	}
	o.ApplyFill(o.FilledSize, domain.OrderStatusCanceled, time.Now().UTC())
	return nil
}

func (f *fakeVenue) FetchQuotes(ctx context.Context) (domain.OrderBookSnapshot, error) {
	return domain.OrderBookSnapshot{Venue: f.v}, nil
}

func (f *fakeVenue) GetBalance(ctx context.Context) (domain.BrokerBalance, error) {
	return f.balance, nil
}

func (f *fakeVenue) OpenOrders(ctx context.Context, page int, side domain.OrderSide) ([]domain.Order, error) {
	if f.openFn != nil {
		return f.openFn(page, side)
	}
	return nil, nil
}

func (f *fakeVenue) sentOrders() []*domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Order(nil), f.sends...)
}

// recordingTradeStore captures settlements in memory.
type recordingTradeStore struct {
	mu      sync.Mutex
	settled []domain.SettledTransaction
}

func (s *recordingTradeStore) CreateSettlement(ctx context.Context, st domain.SettledTransaction) error {
	s.mu.Lock()
	s.settled = append(s.settled, st)
	s.mu.Unlock()
	return nil
}

func (s *recordingTradeStore) ListSettledBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.SettledTransaction, error) {
	return nil, nil
}

func (s *recordingTradeStore) DeleteSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *recordingTradeStore) records() []domain.SettledTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SettledTransaction(nil), s.settled...)
}

// recordingBus captures lifecycle events published by the coordinator.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.BusEvent
}

func (b *recordingBus) PublishEvent(ctx context.Context, channel, stream string, ev domain.BusEvent) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *recordingBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *recordingBus) published() []domain.BusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.BusEvent(nil), b.events...)
}

// testRig bundles a coordinator with its scripted venues.
type testRig struct {
	coord  *Coordinator
	hpx    *fakeVenue
	zb     *fakeVenue
	cache  *marketdata.Cache
	trades *recordingTradeStore
	bus    *recordingBus
}

func defaultTestConfig() Config {
	return Config{
		PrimaryVenue:      domain.VenueHPX,
		ArbitrageEnabled:  true,
		MinSize:           0.01,
		MaxSize:           10,
		SizeGranularity:   0.01,
		PriceTick:         0.01,
		ArbitragePoint:    1.0,
		CancelPoint:       0.5,
		StopPoint:         2.0,
		MaxRetryCount:     20,
		StopRetryCount:    10,
		ConfirmRetryCount: 3,
	}
}

// newTestRig builds a coordinator over two scripted venues with generous
// balances, pre-refreshed so the scanner can size immediately. Sleeps are
// disabled.
func newTestRig(t *testing.T, cfg Config) *testRig {
	t.Helper()

	hpx := newFakeVenue(domain.VenueHPX, domain.BrokerBalance{Venue: domain.VenueHPX, Base: 1000, Quote: 100000})
	zb := newFakeVenue(domain.VenueZB, domain.BrokerBalance{Venue: domain.VenueZB, Base: 1000, Quote: 100000})
	router := venue.NewRouter(hpx, zb)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := marketdata.NewCache()
	balances := balance.NewTracker(router, nil, nil, logger)
	trades := &recordingTradeStore{}
	bus := &recordingBus{}

	coord := New(cfg, Deps{
		Router:   router,
		Cache:    cache,
		Balances: balances,
		Trades:   trades,
		Bus:      bus,
		Logger:   logger,
	})
	coord.sleep = func(ctx context.Context, d time.Duration) {}

	ctx := context.Background()
	require.NoError(t, balances.Refresh(ctx, domain.VenueHPX))
	require.NoError(t, balances.Refresh(ctx, domain.VenueZB))

	return &testRig{coord: coord, hpx: hpx, zb: zb, cache: cache, trades: trades, bus: bus}
}

// putBook installs a one-level book for the venue.
func (r *testRig) putBook(v domain.Venue, bidPrice, bidVol, askPrice, askVol, ref float64) {
	r.cache.Put(domain.OrderBookSnapshot{
		Venue: v,
		Quotes: []domain.Quote{
			{Venue: v, Side: domain.QuoteBid, Price: bidPrice, Volume: bidVol, ReferencePrice: ref},
			{Venue: v, Side: domain.QuoteAsk, Price: askPrice, Volume: askVol, ReferencePrice: ref},
		},
		Timestamp: time.Now().UTC(),
	})
}
