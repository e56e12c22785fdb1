// Package coingecko is a read-only price source backed by CoinGecko's
// public /coins/{id}/tickers endpoint. It only ever serves the second leg
// of a comparison; orders never go here.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/market"
)

// coinIDs maps common base symbols to CoinGecko coin ids. Symbols outside
// the table fall back to their lowercase form, which matches ids like
// "ethereum" when callers pass the id directly.
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"BNB":  "binancecoin",
	"LTC":  "litecoin",
	"DOT":  "polkadot",
	"AVAX": "avalanche-2",
}

var quoteSuffixes = []string{"USDT", "USDC", "USD"}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return market.ExchangeCoinGecko
}

// FetchTicker resolves the pair to a coin id and returns the decoded
// tickers payload. The normalizer picks the USDT-quoted entry out of it.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (any, error) {
	endpoint := c.baseURL + "/coins/" + url.PathEscape(coinID(symbol)) + "/tickers"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
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

// coinID strips a known quote suffix from a spot pair and maps the base
// symbol to its CoinGecko id.
func coinID(symbol string) string {
	base := strings.ToUpper(symbol)
	for _, quote := range quoteSuffixes {
		if len(base) > len(quote) && strings.HasSuffix(base, quote) {
			base = strings.TrimSuffix(base, quote)
			break
		}
	}
	if id, ok := coinIDs[base]; ok {
		return id
	}
	return strings.ToLower(base)
}
