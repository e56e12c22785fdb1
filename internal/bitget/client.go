// Package bitget is the REST client for Bitget's v2 spot API: the public
// ticker endpoint and the signed private order endpoint.
package bitget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/config"
	"github.com/ceotaagc-lang/Arbitage/internal/market"
	"github.com/ceotaagc-lang/Arbitage/internal/order"

	"go.uber.org/zap"
)

const (
	tickerPath     = "/api/v2/spot/market/tickers"
	placeOrderPath = "/api/v2/spot/trade/place-order"
)

// ErrMissingCredentials marks an order attempt without a complete API
// credential set. The public endpoints remain usable.
var ErrMissingCredentials = errors.New("bitget credentials are not configured")

type Client struct {
	baseURL      string
	http         *http.Client
	creds        config.Credentials
	recvWindowMS int64
	log          *zap.Logger
	now          func() time.Time
}

func New(cfg config.BitgetConfig, creds config.Credentials, log *zap.Logger) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		http:         &http.Client{Timeout: cfg.Timeout},
		creds:        creds,
		recvWindowMS: cfg.ReceiveWindowMS,
		log:          log,
		now:          time.Now,
	}
}

func (c *Client) Name() string {
	return market.ExchangeBitget
}

// FetchTicker fetches the public spot ticker for one symbol and returns the
// decoded payload after validating the envelope. Transport failures and
// non-success envelopes are errors; price extraction is the normalizer's
// job.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (any, error) {
	endpoint := c.baseURL + tickerPath + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	payload, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// orderPayload is the exact wire body for a spot market order. Field order
// is fixed because the serialized bytes are what gets signed.
type orderPayload struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Size      string `json:"size"`
	ClientOid string `json:"clientOid"`
}

// OrderBody serializes the wire body for a spot market order.
func OrderBody(req order.Request) ([]byte, error) {
	return json.Marshal(orderPayload{
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		Type:      req.OrderType,
		Size:      req.WireSize(),
		ClientOid: req.ClientOrderID,
	})
}

// PlaceOrder signs and submits a market order, returning the exchange order
// id. The body is marshaled once and the same bytes are signed and sent;
// re-serializing would invalidate the signature.
func (c *Client) PlaceOrder(ctx context.Context, req order.Request) (string, error) {
	if !c.creds.Complete() {
		return "", ErrMissingCredentials
	}
	body, err := OrderBody(req)
	if err != nil {
		return "", err
	}
	signed := NewSignedRequest(c.creds.APISecret, c.now().UnixMilli(), http.MethodPost, placeOrderPath, string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+placeOrderPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("ACCESS-KEY", c.creds.APIKey)
	httpReq.Header.Set("ACCESS-SIGN", signed.Signature)
	httpReq.Header.Set("ACCESS-TIMESTAMP", strconv.FormatInt(signed.TimestampMillis, 10))
	httpReq.Header.Set("ACCESS-PASSPHRASE", c.creds.Passphrase)
	httpReq.Header.Set("x-bg-rec-window", strconv.FormatInt(c.recvWindowMS, 10))

	payload, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if err := checkEnvelope(payload); err != nil {
		return "", err
	}
	orderID := OrderIDFromResponse(payload)
	if orderID == "" {
		return "", errors.New("order acknowledged without an order id")
	}
	if c.log != nil {
		c.log.Info("order placed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.String("order_id", orderID),
			zap.String("client_order_id", req.ClientOrderID),
		)
	}
	return orderID, nil
}

func (c *Client) do(req *http.Request) (any, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
