// Package hpx implements the venue adapter for the HPX exchange REST API.
package hpx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
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

// Client is the low-level REST client for the HPX API. Authenticated calls
// are signed with HMAC-SHA256 over the sorted query string plus a millisecond
// timestamp.
type Client struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates an HPX REST client. baseURL is the API root, e.g.
// "https://api.hpx.com".
func NewClient(baseURL, accessKey, secretKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Depth returns the order book for the given symbol, limited to size levels
// per side.
func (c *Client) Depth(ctx context.Context, symbol string, size int) (depthReply, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("size", strconv.Itoa(size))

	var reply depthReply
	if err := c.doPublic(ctx, "/api/v1/depth", params, &reply); err != nil {
		return depthReply{}, fmt.Errorf("hpx: depth %s: %w", symbol, err)
	}
	return reply, nil
}

// PlaceOrder submits a limit order and returns the raw reply; callers map the
// reply code to an outcome.
func (c *Client) PlaceOrder(ctx context.Context, symbol, side string, price, amount float64) (sendReply, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	var reply sendReply
	if err := c.doSigned(ctx, http.MethodPost, "/api/v1/order", params, &reply); err != nil {
		return sendReply{}, fmt.Errorf("hpx: place order: %w", err)
	}
	return reply, nil
}

// OrderState fetches the venue's current record of an order.
func (c *Client) OrderState(ctx context.Context, symbol, orderID string) (orderStateReply, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("id", orderID)

	var reply orderStateReply
	if err := c.doSigned(ctx, http.MethodGet, "/api/v1/order", params, &reply); err != nil {
		return orderStateReply{}, fmt.Errorf("hpx: order state %s: %w", orderID, err)
	}
	return reply, nil
}

// CancelOrder asks the venue to cancel an order. A cancel acknowledgement
// does not imply the order wasn't filled concurrently; callers must fetch the
// order state again before trusting it.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("id", orderID)

	var reply cancelReply
	if err := c.doSigned(ctx, http.MethodPost, "/api/v1/order/cancel", params, &reply); err != nil {
		return fmt.Errorf("hpx: cancel order %s: %w", orderID, err)
	}
	if reply.Code != codeOK {
		return fmt.Errorf("hpx: cancel order %s: code %s: %s", orderID, reply.Code, reply.Msg)
	}
	return nil
}

// OpenOrders lists resting orders for one side of a symbol, paginated from 1.
func (c *Client) OpenOrders(ctx context.Context, symbol, side string, page int) (openOrdersReply, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("page", strconv.Itoa(page))

	var reply openOrdersReply
	if err := c.doSigned(ctx, http.MethodGet, "/api/v1/order/open", params, &reply); err != nil {
		return openOrdersReply{}, fmt.Errorf("hpx: open orders: %w", err)
	}
	return reply, nil
}

// Account returns the account's available balances.
func (c *Client) Account(ctx context.Context) (accountReply, error) {
	var reply accountReply
	if err := c.doSigned(ctx, http.MethodGet, "/api/v1/account", url.Values{}, &reply); err != nil {
		return accountReply{}, fmt.Errorf("hpx: account: %w", err)
	}
	return reply, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doPublic(ctx context.Context, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.execute(req, out)
}

// doSigned signs params with HMAC-SHA256 and sends the request. The signature
// covers the canonical (sorted) query string with the access key and a
// millisecond timestamp folded in.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("access_key", c.accessKey)
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("sign", c.sign(params))

	var (
		fullURL string
		body    io.Reader
	)
	if method == http.MethodGet {
		fullURL = c.baseURL + path + "?" + params.Encode()
	} else {
		fullURL = c.baseURL + path
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	return c.execute(req, out)
}

// sign computes the lowercase hex HMAC-SHA256 of the sorted key=value pairs.
func (c *Client) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) execute(req *http.Request, out any) error {
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
