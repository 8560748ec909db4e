// Package zb implements the venue adapter for the ZB exchange REST API.
//
// ZB splits its API across two roots: an unauthenticated market-data root and
// a signed trade root. Trade calls are signed with HMAC-MD5 where the MAC key
// is the SHA-1 digest of the secret key, per the venue's scheme.
package zb

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Client is the low-level REST client for the ZB API.
type Client struct {
	marketURL  string
	tradeURL   string
	accessKey  string
	secretHash string // SHA-1 hex of the secret key, the HMAC-MD5 key
	httpClient *http.Client
}

// NewClient creates a ZB REST client. marketURL and tradeURL are the two API
// roots, e.g. "http://api.zb.com" and "https://trade.zb.com".
func NewClient(marketURL, tradeURL, accessKey, secretKey string) *Client {
	sum := sha1.Sum([]byte(secretKey))
	return &Client{
		marketURL:  strings.TrimRight(marketURL, "/"),
		tradeURL:   strings.TrimRight(tradeURL, "/"),
		accessKey:  accessKey,
		secretHash: hex.EncodeToString(sum[:]),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Depth returns the order book for the market, size levels per side.
func (c *Client) Depth(ctx context.Context, market string, size int) (depthReply, error) {
	u := fmt.Sprintf("%s/data/v1/depth?market=%s&size=%d", c.marketURL, url.QueryEscape(market), size)

	var reply depthReply
	if err := c.get(ctx, u, &reply); err != nil {
		return depthReply{}, fmt.Errorf("zb: depth %s: %w", market, err)
	}
	return reply, nil
}

// Ticker returns the market ticker; its last price anchors maker pricing.
func (c *Client) Ticker(ctx context.Context, market string) (tickerReply, error) {
	u := fmt.Sprintf("%s/data/v1/ticker?market=%s", c.marketURL, url.QueryEscape(market))

	var reply tickerReply
	if err := c.get(ctx, u, &reply); err != nil {
		return tickerReply{}, fmt.Errorf("zb: ticker %s: %w", market, err)
	}
	return reply, nil
}

// PlaceOrder submits a limit order. tradeType is 1 for buy, 0 for sell.
func (c *Client) PlaceOrder(ctx context.Context, currency string, price, amount float64, tradeType int) (sendReply, error) {
	params := map[string]string{
		"method":    "order",
		"currency":  currency,
		"price":     strconv.FormatFloat(price, 'f', -1, 64),
		"amount":    strconv.FormatFloat(amount, 'f', -1, 64),
		"tradeType": strconv.Itoa(tradeType),
	}

	var reply sendReply
	if err := c.doSigned(ctx, "/api/order", params, &reply); err != nil {
		return sendReply{}, fmt.Errorf("zb: place order: %w", err)
	}
	return reply, nil
}

// GetOrder fetches the venue's current record of an order.
func (c *Client) GetOrder(ctx context.Context, currency, orderID string) (orderRecord, error) {
	params := map[string]string{
		"method":   "getOrder",
		"currency": currency,
		"id":       orderID,
	}

	var rec orderRecord
	if err := c.doSigned(ctx, "/api/getOrder", params, &rec); err != nil {
		return orderRecord{}, fmt.Errorf("zb: get order %s: %w", orderID, err)
	}
	if rec.ID == "" {
		// Trade calls report failures through an error envelope instead of
		// the record shape.
		return orderRecord{}, fmt.Errorf("zb: get order %s: empty record", orderID)
	}
	return rec, nil
}

// CancelOrder asks the venue to cancel an order. As with every venue, a
// cancel acknowledgement can race a concurrent fill; callers re-fetch the
// order before trusting it.
func (c *Client) CancelOrder(ctx context.Context, currency, orderID string) error {
	params := map[string]string{
		"method":   "cancelOrder",
		"currency": currency,
		"id":       orderID,
	}

	var reply cancelReply
	if err := c.doSigned(ctx, "/api/cancelOrder", params, &reply); err != nil {
		return fmt.Errorf("zb: cancel order %s: %w", orderID, err)
	}
	if reply.Code != codeOK {
		return fmt.Errorf("zb: cancel order %s: code %d: %s", orderID, reply.Code, reply.Message)
	}
	return nil
}

// UnfinishedOrders lists resting orders for one trade type, paginated from 1.
func (c *Client) UnfinishedOrders(ctx context.Context, currency string, page, tradeType int) ([]orderRecord, error) {
	params := map[string]string{
		"method":    "getUnfinishedOrdersIgnoreTradeType",
		"currency":  currency,
		"pageIndex": strconv.Itoa(page),
		"pageSize":  "50",
		"tradeType": strconv.Itoa(tradeType),
	}

	var records []orderRecord
	if err := c.doSigned(ctx, "/api/getUnfinishedOrdersIgnoreTradeType", params, &records); err != nil {
		return nil, fmt.Errorf("zb: unfinished orders: %w", err)
	}
	return records, nil
}

// AccountInfo returns the account's coin balances.
func (c *Client) AccountInfo(ctx context.Context) (accountReply, error) {
	params := map[string]string{
		"method": "getAccountInfo",
	}

	var reply accountReply
	if err := c.doSigned(ctx, "/api/getAccountInfo", params, &reply); err != nil {
		return accountReply{}, fmt.Errorf("zb: account info: %w", err)
	}
	return reply, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSigned builds the signed query string (accesskey + params, HMAC-MD5
// signature, millisecond reqTime) and executes the request against the trade
// root.
func (c *Client) doSigned(ctx context.Context, path string, params map[string]string, out any) error {
	params["accesskey"] = c.accessKey

	// ZB signs the plain (unescaped) key=value string in insertion-agnostic
	// sorted order.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var plain strings.Builder
	var query strings.Builder
	for i, k := range keys {
		if i > 0 {
			plain.WriteByte('&')
			query.WriteByte('&')
		}
		plain.WriteString(k + "=" + params[k])
		query.WriteString(k + "=" + url.QueryEscape(params[k]))
	}

	mac := hmac.New(md5.New, []byte(c.secretHash))
	mac.Write([]byte(plain.String()))
	sign := hex.EncodeToString(mac.Sum(nil))

	fullURL := fmt.Sprintf("%s%s?%s&sign=%s&reqTime=%d",
		c.tradeURL, path, query.String(), sign, time.Now().UnixMilli())

	return c.get(ctx, fullURL, out)
}

func (c *Client) get(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
