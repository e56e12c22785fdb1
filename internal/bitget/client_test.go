package bitget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/config"
	"github.com/ceotaagc-lang/Arbitage/internal/order"

	"go.uber.org/zap"
)

func testCreds() config.Credentials {
	return config.Credentials{APIKey: "key", APISecret: "secret", Passphrase: "pass"}
}

func newTestClient(baseURL string, creds config.Credentials) *Client {
	return New(config.BitgetConfig{BaseURL: baseURL, Timeout: 5 * time.Second, ReceiveWindowMS: 5000}, creds, zap.NewNop())
}

func TestFetchTickerSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickerPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "ETHUSDT" {
			t.Fatalf("unexpected symbol %s", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"code":"00000","msg":"success","data":[{"lastPr":"3400.5"}]}`))
	}))
	defer server.Close()

	payload, err := newTestClient(server.URL, config.Credentials{}).FetchTicker(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload == nil {
		t.Fatal("expected payload")
	}
}

func TestFetchTickerEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"40034","msg":"Parameter ETHUSD does not exist"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, config.Credentials{}).FetchTicker(context.Background(), "ETHUSD")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "40034" || apiErr.Message == "" {
		t.Fatalf("expected upstream code and message preserved, got %+v", apiErr)
	}
}

func TestFetchTickerTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL, config.Credentials{}).FetchTicker(context.Background(), "ETHUSDT"); err == nil {
		t.Fatal("expected error for http 500")
	}
}

func TestPlaceOrderSignsExactBody(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != placeOrderPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"code":"00000","data":{"orderId":"123456","clientOid":"arb-000001-1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, testCreds())
	client.now = func() time.Time { return time.UnixMilli(1700000000000) }

	req := order.Request{
		Symbol:        "ETHUSDT",
		Side:          order.SideBuy,
		OrderType:     "market",
		BaseQuantity:  "0.0029",
		Notional:      "10",
		ClientOrderID: "arb-000001-1",
	}
	orderID, err := client.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "123456" {
		t.Fatalf("expected order id 123456, got %s", orderID)
	}

	var sent map[string]string
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("body is not valid json: %v", err)
	}
	if sent["type"] != "market" || sent["size"] != "10" || sent["clientOid"] != "arb-000001-1" {
		t.Fatalf("unexpected wire body: %s", gotBody)
	}

	ts, err := strconv.ParseInt(gotHeaders.Get("ACCESS-TIMESTAMP"), 10, 64)
	if err != nil {
		t.Fatalf("missing timestamp header: %v", err)
	}
	want := Sign("secret", ts, http.MethodPost, placeOrderPath, string(gotBody))
	if gotHeaders.Get("ACCESS-SIGN") != want {
		t.Fatalf("signature does not verify against the transmitted body")
	}
	if gotHeaders.Get("ACCESS-KEY") != "key" || gotHeaders.Get("ACCESS-PASSPHRASE") != "pass" {
		t.Fatal("credential headers missing")
	}
	if gotHeaders.Get("X-Bg-Rec-Window") != "5000" {
		t.Fatalf("expected receive window header 5000, got %q", gotHeaders.Get("X-Bg-Rec-Window"))
	}
}

func TestPlaceOrderMissingCredentials(t *testing.T) {
	client := newTestClient("http://unused", config.Credentials{APIKey: "key"})
	_, err := client.PlaceOrder(context.Background(), order.Request{Symbol: "ETHUSDT", Side: order.SideBuy, OrderType: "market", Notional: "10"})
	if err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestPlaceOrderUpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"43012","msg":"Insufficient balance"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, testCreds())
	_, err := client.PlaceOrder(context.Background(), order.Request{Symbol: "ETHUSDT", Side: order.SideBuy, OrderType: "market", Notional: "10"})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Insufficient balance" {
		t.Fatalf("expected exchange message preserved, got %q", apiErr.Message)
	}
}
