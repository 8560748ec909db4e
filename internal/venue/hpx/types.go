package hpx

// Reply codes returned by the HPX REST API.
const (
	codeOK                  = "0000"
	codeInsufficientBalance = "1011"
)

// depthReply is the wire shape of GET /api/v1/depth.
type depthReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Bids [][]string `json:"bids"` // [price, volume], best first
		Asks [][]string `json:"asks"`
		Last string     `json:"last"` // last trade price
	} `json:"data"`
}

// sendReply is the wire shape of POST /api/v1/order.
type sendReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HPX order states.
const (
	stateOpen     = 1
	statePartial  = 2
	stateFilled   = 3
	stateCanceled = 4
)

// orderStateReply is the wire shape of GET /api/v1/order.
type orderStateReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data orderRecord `json:"data"`
}

// orderRecord is one order in HPX order queries.
type orderRecord struct {
	ID         string `json:"id"`
	Side       string `json:"side"` // "buy" or "sell"
	State      int    `json:"state"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
	DealAmount string `json:"deal_amount"`
	CreatedAt  int64  `json:"created_at"` // unix ms
}

// openOrdersReply is the wire shape of GET /api/v1/order/open.
type openOrdersReply struct {
	Code string        `json:"code"`
	Msg  string        `json:"msg"`
	Data []orderRecord `json:"data"`
}

// accountReply is the wire shape of GET /api/v1/account.
type accountReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Balances []struct {
			Currency  string `json:"currency"`
			Available string `json:"available"`
		} `json:"balances"`
	} `json:"data"`
}

// cancelReply is the wire shape of POST /api/v1/order/cancel.
type cancelReply struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
