package hpx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// Adapter implements venue.Adapter for HPX. It maps the venue's wire replies
// onto domain orders and keeps no cross-order state.
type Adapter struct {
	client     *Client
	symbol     string
	baseAsset  string
	quoteAsset string
	depthSize  int
}

// AdapterConfig configures the HPX adapter.
type AdapterConfig struct {
	Symbol     string // e.g. "hsr_qc"
	BaseAsset  string // e.g. "HSR"
	QuoteAsset string // e.g. "QC"
	DepthSize  int    // levels per side to fetch; 0 means 10
}

// NewAdapter creates the HPX venue adapter over the given REST client.
func NewAdapter(client *Client, cfg AdapterConfig) *Adapter {
	depth := cfg.DepthSize
	if depth <= 0 {
		depth = 10
	}
	return &Adapter{
		client:     client,
		symbol:     cfg.Symbol,
		baseAsset:  strings.ToUpper(cfg.BaseAsset),
		quoteAsset: strings.ToUpper(cfg.QuoteAsset),
		depthSize:  depth,
	}
}

// Venue returns the venue identifier.
func (a *Adapter) Venue() domain.Venue {
	return domain.VenueHPX
}

// Send submits the order and maps the reply code onto a typed outcome.
func (a *Adapter) Send(ctx context.Context, o *domain.Order) (venue.SendResult, error) {
	reply, err := a.client.PlaceOrder(ctx, a.symbol, string(o.Side), o.Price, o.Size)
	if err != nil {
		return venue.SendResult{}, err
	}

	now := time.Now().UTC()
	switch reply.Code {
	case codeOK:
		o.BrokerOrderID = reply.Data.ID
		o.Status = domain.OrderStatusNew
		o.SentTime = now
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendAccepted, BrokerOrderID: reply.Data.ID}, nil
	case codeInsufficientBalance:
		o.Status = domain.OrderStatusRejected
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendInsufficientBalance, Reason: reply.Msg}, nil
	default:
		o.Status = domain.OrderStatusRejected
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendRejected, Reason: reply.Msg}, nil
	}
}

// Refresh updates the order from the venue's current record.
func (a *Adapter) Refresh(ctx context.Context, o *domain.Order) error {
	reply, err := a.client.OrderState(ctx, a.symbol, o.BrokerOrderID)
	if err != nil {
		return err
	}
	if reply.Code != codeOK {
		return fmt.Errorf("hpx: order state %s: code %s: %s", o.BrokerOrderID, reply.Code, reply.Msg)
	}

	filled, err := strconv.ParseFloat(reply.Data.DealAmount, 64)
	if err != nil {
		return fmt.Errorf("hpx: parse deal amount %q: %w", reply.Data.DealAmount, err)
	}
	o.ApplyFill(filled, mapState(reply.Data.State), time.Now().UTC())
	return nil
}

// Cancel requests cancellation. The caller is expected to Refresh afterwards;
// the venue may have filled the order concurrently.
func (a *Adapter) Cancel(ctx context.Context, o *domain.Order) error {
	if err := a.client.CancelOrder(ctx, a.symbol, o.BrokerOrderID); err != nil {
		return err
	}
	o.Status = domain.OrderStatusCanceled
	o.LastUpdated = time.Now().UTC()
	return nil
}

// FetchQuotes returns the current depth as a snapshot. Every quote carries
// the venue's last-trade price as its reference anchor.
func (a *Adapter) FetchQuotes(ctx context.Context) (domain.OrderBookSnapshot, error) {
	reply, err := a.client.Depth(ctx, a.symbol, a.depthSize)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	if reply.Code != codeOK {
		return domain.OrderBookSnapshot{}, fmt.Errorf("hpx: depth: code %s: %s", reply.Code, reply.Msg)
	}
	if len(reply.Data.Bids) == 0 && len(reply.Data.Asks) == 0 {
		return domain.OrderBookSnapshot{}, fmt.Errorf("hpx: depth %s: %w", a.symbol, domain.ErrNoQuote)
	}

	last, err := strconv.ParseFloat(reply.Data.Last, 64)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("hpx: parse last price %q: %w", reply.Data.Last, err)
	}

	snap := domain.OrderBookSnapshot{
		Venue:     domain.VenueHPX,
		Timestamp: time.Now().UTC(),
	}
	for _, lvl := range reply.Data.Bids {
		q, err := parseLevel(domain.VenueHPX, domain.QuoteBid, lvl, last)
		if err != nil {
			return domain.OrderBookSnapshot{}, err
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	for _, lvl := range reply.Data.Asks {
		q, err := parseLevel(domain.VenueHPX, domain.QuoteAsk, lvl, last)
		if err != nil {
			return domain.OrderBookSnapshot{}, err
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	return snap, nil
}

// GetBalance returns the available base and quote asset balances.
func (a *Adapter) GetBalance(ctx context.Context) (domain.BrokerBalance, error) {
	reply, err := a.client.Account(ctx)
	if err != nil {
		return domain.BrokerBalance{}, err
	}
	if reply.Code != codeOK {
		return domain.BrokerBalance{}, fmt.Errorf("hpx: account: code %s: %s", reply.Code, reply.Msg)
	}

	bal := domain.BrokerBalance{Venue: domain.VenueHPX}
	for _, b := range reply.Data.Balances {
		avail, err := strconv.ParseFloat(b.Available, 64)
		if err != nil {
			return domain.BrokerBalance{}, fmt.Errorf("hpx: parse balance %q: %w", b.Available, err)
		}
		switch strings.ToUpper(b.Currency) {
		case a.baseAsset:
			bal.Base = avail
		case a.quoteAsset:
			bal.Quote = avail
		}
	}
	return bal, nil
}

// OpenOrders lists resting orders for one side, mapped to domain orders. The
// local ID is left empty; callers match on BrokerOrderID.
func (a *Adapter) OpenOrders(ctx context.Context, page int, side domain.OrderSide) ([]domain.Order, error) {
	reply, err := a.client.OpenOrders(ctx, a.symbol, string(side), page)
	if err != nil {
		return nil, err
	}
	if reply.Code != codeOK {
		return nil, fmt.Errorf("hpx: open orders: code %s: %s", reply.Code, reply.Msg)
	}

	orders := make([]domain.Order, 0, len(reply.Data))
	for _, rec := range reply.Data {
		o, err := mapRecord(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func mapRecord(rec orderRecord) (domain.Order, error) {
	price, err := strconv.ParseFloat(rec.Price, 64)
	if err != nil {
		return domain.Order{}, fmt.Errorf("hpx: parse price %q: %w", rec.Price, err)
	}
	amount, err := strconv.ParseFloat(rec.Amount, 64)
	if err != nil {
		return domain.Order{}, fmt.Errorf("hpx: parse amount %q: %w", rec.Amount, err)
	}
	filled, err := strconv.ParseFloat(rec.DealAmount, 64)
	if err != nil {
		return domain.Order{}, fmt.Errorf("hpx: parse deal amount %q: %w", rec.DealAmount, err)
	}

	return domain.Order{
		Venue:         domain.VenueHPX,
		Side:          domain.OrderSide(rec.Side),
		Type:          domain.OrderTypeLimit,
		Size:          amount,
		Price:         price,
		FilledSize:    filled,
		BrokerOrderID: rec.ID,
		Status:        mapState(rec.State),
		CreationTime:  time.UnixMilli(rec.CreatedAt).UTC(),
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func mapState(state int) domain.OrderStatus {
	switch state {
	case stateOpen:
		return domain.OrderStatusNew
	case statePartial:
		return domain.OrderStatusPartiallyFilled
	case stateFilled:
		return domain.OrderStatusFilled
	case stateCanceled:
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusNew
	}
}

func parseLevel(v domain.Venue, side domain.QuoteSide, lvl []string, ref float64) (domain.Quote, error) {
	if len(lvl) < 2 {
		return domain.Quote{}, fmt.Errorf("hpx: malformed depth level %v", lvl)
	}
	price, err := strconv.ParseFloat(lvl[0], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("hpx: parse depth price %q: %w", lvl[0], err)
	}
	vol, err := strconv.ParseFloat(lvl[1], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("hpx: parse depth volume %q: %w", lvl[1], err)
	}
	return domain.Quote{
		Venue:          v,
		Side:           side,
		Price:          price,
		ReferencePrice: ref,
		Volume:         vol,
	}, nil
}

var _ venue.Adapter = (*Adapter)(nil)
