package domain

// BrokerBalance is the available balance on one venue. Base is the traded
// asset, Quote the cash asset it trades against. Read-mostly: refreshed on a
// timer, decremented optimistically on fills, reconciled on the next fetch.
type BrokerBalance struct {
	Venue Venue
	Base  float64
	Quote float64
}
