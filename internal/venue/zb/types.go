package zb

import "encoding/json"

// ZB reply codes.
const (
	codeOK                = 1000
	codeInsufficientFunds = 2009
)

// ZB trade types: 1 = buy, 0 = sell.
const (
	tradeTypeBuy  = 1
	tradeTypeSell = 0
)

// ZB order status values as returned by getOrder:
// 0 pending, 1 canceled, 2 filled, 3 partially filled / open.
const (
	statusPending  = 0
	statusCanceled = 1
	statusFilled   = 2
	statusPartial  = 3
)

// depthReply is the wire shape of GET /data/v1/depth.
type depthReply struct {
	Asks      [][]json.Number `json:"asks"` // [price, volume], ascending
	Bids      [][]json.Number `json:"bids"` // descending
	Timestamp int64           `json:"timestamp"`
}

// tickerReply is the wire shape of GET /data/v1/ticker.
type tickerReply struct {
	Ticker struct {
		Last string `json:"last"`
	} `json:"ticker"`
}

// sendReply is the wire shape of GET /api/order.
type sendReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// orderRecord is one order in getOrder/getUnfinishedOrders replies.
type orderRecord struct {
	ID          string      `json:"id"`
	Currency    string      `json:"currency"`
	Price       json.Number `json:"price"`
	TotalAmount json.Number `json:"total_amount"`
	TradeAmount json.Number `json:"trade_amount"`
	TradeMoney  json.Number `json:"trade_money"`
	Type        int         `json:"type"` // 1 buy, 0 sell
	Status      int         `json:"status"`
	TradeDate   int64       `json:"trade_date"` // unix ms
}

// accountReply is the wire shape of GET /api/getAccountInfo.
type accountReply struct {
	Result struct {
		Coins []struct {
			EnName    string `json:"enName"`
			Available string `json:"available"`
		} `json:"coins"`
	} `json:"result"`
}

// cancelReply is the wire shape of GET /api/cancelOrder.
type cancelReply struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
