package zb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/venue"
)

// Adapter implements venue.Adapter for ZB. It maps the venue's wire replies
// onto domain orders and keeps no cross-order state.
type Adapter struct {
	client     *Client
	market     string
	baseAsset  string
	quoteAsset string
	depthSize  int
}

// AdapterConfig configures the ZB adapter.
type AdapterConfig struct {
	Market     string // e.g. "hsr_qc"
	BaseAsset  string // e.g. "HSR"
	QuoteAsset string // e.g. "QC"
	DepthSize  int    // levels per side to fetch; 0 means 10
}

// NewAdapter creates the ZB venue adapter over the given REST client.
func NewAdapter(client *Client, cfg AdapterConfig) *Adapter {
	depth := cfg.DepthSize
	if depth <= 0 {
		depth = 10
	}
	return &Adapter{
		client:     client,
		market:     cfg.Market,
		baseAsset:  strings.ToUpper(cfg.BaseAsset),
		quoteAsset: strings.ToUpper(cfg.QuoteAsset),
		depthSize:  depth,
	}
}

// Venue returns the venue identifier.
func (a *Adapter) Venue() domain.Venue {
	return domain.VenueZB
}

// Send submits the order and maps the reply code onto a typed outcome.
func (a *Adapter) Send(ctx context.Context, o *domain.Order) (venue.SendResult, error) {
	reply, err := a.client.PlaceOrder(ctx, a.market, o.Price, o.Size, tradeType(o.Side))
	if err != nil {
		return venue.SendResult{}, err
	}

	now := time.Now().UTC()
	switch reply.Code {
	case codeOK:
		o.BrokerOrderID = reply.ID
		o.Status = domain.OrderStatusNew
		o.SentTime = now
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendAccepted, BrokerOrderID: reply.ID}, nil
	case codeInsufficientFunds:
		o.Status = domain.OrderStatusRejected
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendInsufficientBalance, Reason: reply.Message}, nil
	default:
		o.Status = domain.OrderStatusRejected
		o.LastUpdated = now
		return venue.SendResult{Outcome: venue.SendRejected, Reason: reply.Message}, nil
	}
}

// Refresh updates the order from the venue's current record.
func (a *Adapter) Refresh(ctx context.Context, o *domain.Order) error {
	rec, err := a.client.GetOrder(ctx, a.market, o.BrokerOrderID)
	if err != nil {
		return err
	}

	filled, err := rec.TradeAmount.Float64()
	if err != nil {
		return fmt.Errorf("zb: parse trade amount %q: %w", rec.TradeAmount, err)
	}
	o.ApplyFill(filled, mapStatus(rec.Status, filled), time.Now().UTC())
	return nil
}

// Cancel requests cancellation. The caller is expected to Refresh afterwards;
// the venue may have filled the order concurrently.
func (a *Adapter) Cancel(ctx context.Context, o *domain.Order) error {
	if err := a.client.CancelOrder(ctx, a.market, o.BrokerOrderID); err != nil {
		return err
	}
	o.Status = domain.OrderStatusCanceled
	o.LastUpdated = time.Now().UTC()
	return nil
}

// FetchQuotes returns the current depth as a snapshot. Every quote carries
// the venue's last-trade price as its reference anchor.
func (a *Adapter) FetchQuotes(ctx context.Context) (domain.OrderBookSnapshot, error) {
	depth, err := a.client.Depth(ctx, a.market, a.depthSize)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	if len(depth.Bids) == 0 && len(depth.Asks) == 0 {
		return domain.OrderBookSnapshot{}, fmt.Errorf("zb: depth %s: %w", a.market, domain.ErrNoQuote)
	}
	ticker, err := a.client.Ticker(ctx, a.market)
	if err != nil {
		return domain.OrderBookSnapshot{}, err
	}
	last, err := strconv.ParseFloat(ticker.Ticker.Last, 64)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("zb: parse last price %q: %w", ticker.Ticker.Last, err)
	}

	snap := domain.OrderBookSnapshot{
		Venue:     domain.VenueZB,
		Timestamp: time.Now().UTC(),
	}
	for _, lvl := range depth.Bids {
		q, err := parseLevel(domain.VenueZB, domain.QuoteBid, lvl, last)
		if err != nil {
			return domain.OrderBookSnapshot{}, err
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	for _, lvl := range depth.Asks {
		q, err := parseLevel(domain.VenueZB, domain.QuoteAsk, lvl, last)
		if err != nil {
			return domain.OrderBookSnapshot{}, err
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	return snap, nil
}

// GetBalance returns the available base and quote asset balances.
func (a *Adapter) GetBalance(ctx context.Context) (domain.BrokerBalance, error) {
	reply, err := a.client.AccountInfo(ctx)
	if err != nil {
		return domain.BrokerBalance{}, err
	}

	bal := domain.BrokerBalance{Venue: domain.VenueZB}
	for _, coin := range reply.Result.Coins {
		avail, err := strconv.ParseFloat(coin.Available, 64)
		if err != nil {
			return domain.BrokerBalance{}, fmt.Errorf("zb: parse balance %q: %w", coin.Available, err)
		}
		switch strings.ToUpper(coin.EnName) {
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
	records, err := a.client.UnfinishedOrders(ctx, a.market, page, tradeType(side))
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		o, err := mapRecord(rec)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func mapRecord(rec orderRecord) (domain.Order, error) {
	price, err := rec.Price.Float64()
	if err != nil {
		return domain.Order{}, fmt.Errorf("zb: parse price %q: %w", rec.Price, err)
	}
	total, err := rec.TotalAmount.Float64()
	if err != nil {
		return domain.Order{}, fmt.Errorf("zb: parse total amount %q: %w", rec.TotalAmount, err)
	}
	filled, err := rec.TradeAmount.Float64()
	if err != nil {
		return domain.Order{}, fmt.Errorf("zb: parse trade amount %q: %w", rec.TradeAmount, err)
	}

	return domain.Order{
		Venue:         domain.VenueZB,
		Side:          orderSide(rec.Type),
		Type:          domain.OrderTypeLimit,
		Size:          total,
		Price:         price,
		FilledSize:    filled,
		BrokerOrderID: rec.ID,
		Status:        mapStatus(rec.Status, filled),
		CreationTime:  time.UnixMilli(rec.TradeDate).UTC(),
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func tradeType(side domain.OrderSide) int {
	if side == domain.OrderSideBuy {
		return tradeTypeBuy
	}
	return tradeTypeSell
}

func orderSide(t int) domain.OrderSide {
	if t == tradeTypeBuy {
		return domain.OrderSideBuy
	}
	return domain.OrderSideSell
}

func mapStatus(status int, filled float64) domain.OrderStatus {
	switch status {
	case statusFilled:
		return domain.OrderStatusFilled
	case statusCanceled:
		return domain.OrderStatusCanceled
	case statusPartial:
		if filled > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusNew
	case statusPending:
		return domain.OrderStatusNew
	default:
		return domain.OrderStatusNew
	}
}

func parseLevel(v domain.Venue, side domain.QuoteSide, lvl []json.Number, ref float64) (domain.Quote, error) {
	if len(lvl) < 2 {
		return domain.Quote{}, fmt.Errorf("zb: malformed depth level %v", lvl)
	}
	price, err := lvl[0].Float64()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("zb: parse depth price %q: %w", lvl[0], err)
	}
	vol, err := lvl[1].Float64()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("zb: parse depth volume %q: %w", lvl[1], err)
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
