package domain

import "time"

// Event names published to the signal bus and routed through the notifier's
// event filter.
const (
	EventArbDetected      = "arb_detected"
	EventLegFilled        = "leg_filled"
	EventSettled          = "transaction_settled"
	EventLowBalance       = "low_balance"
	EventCoordinatorFatal = "coordinator_fatal"
)

// BusEvent is the JSON shape published to the "coordinator" channel and
// stream for every state transition worth observing externally.
type BusEvent struct {
	Event          string    `json:"event"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Venue          Venue     `json:"venue,omitempty"`
	Direction      Direction `json:"direction,omitempty"`
	Price          float64   `json:"price,omitempty"`
	Size           float64   `json:"size,omitempty"`
	InvertedSpread float64   `json:"inverted_spread,omitempty"`
	Profit         float64   `json:"profit,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
