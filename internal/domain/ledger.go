package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionLedger is the ordered set of orders belonging to one in-flight
// two-leg transaction. Entry 0 is the taker order; entries 1..N are the
// successive hedge (maker) attempts on the other venue, several because of
// re-pricing. At most one ledger is ever in flight; the coordinator enforces
// that before opening a new one.
type TransactionLedger struct {
	ID        string
	Direction Direction
	OpenedAt  time.Time

	orders []*Order
}

// NewTransactionLedger opens a ledger around an accepted taker order.
func NewTransactionLedger(dir Direction, taker *Order) *TransactionLedger {
	return &TransactionLedger{
		ID:        uuid.New().String(),
		Direction: dir,
		OpenedAt:  time.Now().UTC(),
		orders:    []*Order{taker},
	}
}

// Taker returns the leg-1 order.
func (l *TransactionLedger) Taker() *Order {
	return l.orders[0]
}

// Hedges returns every hedge attempt appended so far, oldest first.
func (l *TransactionLedger) Hedges() []*Order {
	return l.orders[1:]
}

// LastHedge returns the most recent hedge order, or nil if none was placed.
func (l *TransactionLedger) LastHedge() *Order {
	if len(l.orders) < 2 {
		return nil
	}
	return l.orders[len(l.orders)-1]
}

// AppendHedge adds a new hedge attempt to the ledger.
func (l *TransactionLedger) AppendHedge(o *Order) {
	l.orders = append(l.orders, o)
}

// HedgeFilled is the cumulative filled size across all hedge entries.
func (l *TransactionLedger) HedgeFilled() float64 {
	var total float64
	for _, o := range l.orders[1:] {
		total += o.FilledSize
	}
	return total
}

// HedgeNotional is the cash spent (or received) across all hedge fills.
func (l *TransactionLedger) HedgeNotional() float64 {
	var total float64
	for _, o := range l.orders[1:] {
		total += o.FilledSize * o.Price
	}
	return total
}

// HedgeVWAP is the volume-weighted average fill price across all hedge
// entries. Zero when nothing has filled.
func (l *TransactionLedger) HedgeVWAP() float64 {
	filled := l.HedgeFilled()
	if filled == 0 {
		return 0
	}
	return l.HedgeNotional() / filled
}

// Profit is the realized profit of the transaction given the fills recorded
// so far. For a taker buy the hedge sells: profit is hedge proceeds minus
// taker cost; for a taker sell the sign flips.
func (l *TransactionLedger) Profit() float64 {
	taker := l.Taker()
	takerNotional := taker.FilledSize * taker.Price
	if taker.Side == OrderSideBuy {
		return l.HedgeNotional() - takerNotional
	}
	return takerNotional - l.HedgeNotional()
}

// Settled converts the ledger into its persistent record. forced marks a
// degraded settlement where the retry budget ran out before the hedge fully
// matched the taker fill.
func (l *TransactionLedger) Settled(forced bool, now time.Time) SettledTransaction {
	st := SettledTransaction{
		ID:        l.ID,
		Direction: l.Direction,
		Taker:     settledLeg(l.Taker()),
		HedgeVWAP: l.HedgeVWAP(),
		Profit:    l.Profit(),
		Forced:    forced,
		OpenedAt:  l.OpenedAt,
		SettledAt: now,
	}
	for _, o := range l.Hedges() {
		st.Hedges = append(st.Hedges, settledLeg(o))
	}
	return st
}

func settledLeg(o *Order) SettledLeg {
	return SettledLeg{
		OrderID:       o.ID,
		BrokerOrderID: o.BrokerOrderID,
		Venue:         o.Venue,
		Side:          o.Side,
		Price:         o.Price,
		FilledSize:    o.FilledSize,
		CreatedAt:     o.CreationTime,
	}
}
