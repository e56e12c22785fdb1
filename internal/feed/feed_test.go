package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/market"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

func TestHandleMessageUpdatesCache(t *testing.T) {
	cache := market.NewCache()
	client := New("ws://unused", time.Second, time.Second, cache, zap.NewNop())

	msg := []byte(`{"action":"snapshot","arg":{"instType":"SPOT","channel":"ticker","instId":"ETHUSDT"},"data":[{"instId":"ETHUSDT","lastPr":"3402.11","ts":"1700000000000"}]}`)
	client.handleMessage(msg)

	r, ok := cache.Get(market.ExchangeBitget, "ETHUSDT", 0)
	if !ok || r.Price != 3402.11 {
		t.Fatalf("expected cached 3402.11, got %v %v", r, ok)
	}
}

func TestHandleMessageIgnoresNoise(t *testing.T) {
	cache := market.NewCache()
	client := New("ws://unused", time.Second, time.Second, cache, zap.NewNop())

	client.handleMessage([]byte("pong"))
	client.handleMessage([]byte(`{"event":"subscribe","arg":{"channel":"ticker","instId":"ETHUSDT"}}`))
	client.handleMessage([]byte(`not json`))
	client.handleMessage([]byte(`{"arg":{"instId":"ETHUSDT"},"data":[{"lastPr":"0"}]}`))

	if _, ok := cache.Get(market.ExchangeBitget, "ETHUSDT", 0); ok {
		t.Fatal("noise messages must not populate the cache")
	}
}

func TestRunSubscribesAndPings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	subCh := make(chan map[string]any, 1)
	pingCh := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept ws: %v", err)
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if string(data) == "ping" {
				select {
				case pingCh <- "ping":
				default:
				}
				continue
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			select {
			case subCh <- msg:
			default:
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client := New(wsURL, 10*time.Millisecond, 20*time.Millisecond, market.NewCache(), zap.NewNop())
	client.Watch("ETHUSDT")

	go func() { _ = client.Run(ctx) }()

	select {
	case msg := <-subCh:
		if msg["op"] != "subscribe" {
			t.Fatalf("expected subscribe op, got %v", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for subscription")
	}
	select {
	case <-pingCh:
	case <-ctx.Done():
		t.Fatal("timed out waiting for ping frame")
	}
}
