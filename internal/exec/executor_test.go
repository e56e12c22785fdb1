package exec

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ceotaagc-lang/Arbitage/internal/order"

	"go.uber.org/zap"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

type mockPlacer struct {
	mu       sync.Mutex
	calls    int
	orderID  string
	failures int
}

func (m *mockPlacer) PlaceOrder(ctx context.Context, req order.Request) (string, error) {
	_ = ctx
	_ = req
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return "", errors.New("transient upstream failure")
	}
	return m.orderID, nil
}

func testRequest(cloid string) order.Request {
	return order.Request{Symbol: "ETHUSDT", Side: order.SideBuy, OrderType: "market", Notional: "10", ClientOrderID: cloid}
}

func TestPlaceOrderReturnsExchangeID(t *testing.T) {
	placer := &mockPlacer{orderID: "42"}
	e := New(placer, newMemoryStore(), zap.NewNop())
	oid, err := e.PlaceOrder(context.Background(), testRequest("arb-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oid != "42" {
		t.Fatalf("expected order id 42, got %s", oid)
	}
}

func TestPlaceOrderIdempotentPerClientOrderID(t *testing.T) {
	placer := &mockPlacer{orderID: "42"}
	e := New(placer, newMemoryStore(), zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, err := e.PlaceOrder(context.Background(), testRequest("arb-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if placer.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", placer.calls)
	}
}

func TestPlaceOrderIdempotencySurvivesRestartViaStore(t *testing.T) {
	store := newMemoryStore()
	placer := &mockPlacer{orderID: "42"}
	e1 := New(placer, store, zap.NewNop())
	if _, err := e1.PlaceOrder(context.Background(), testRequest("arb-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fresh executor, same store: the in-memory cache is gone.
	e2 := New(placer, store, zap.NewNop())
	oid, err := e2.PlaceOrder(context.Background(), testRequest("arb-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oid != "42" || placer.calls != 1 {
		t.Fatalf("expected replay from store, got oid=%s calls=%d", oid, placer.calls)
	}
}

func TestPlaceOrderRetriesTransientFailures(t *testing.T) {
	placer := &mockPlacer{orderID: "42", failures: 2}
	e := New(placer, nil, zap.NewNop())
	oid, err := e.PlaceOrder(context.Background(), testRequest(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oid != "42" || placer.calls != 3 {
		t.Fatalf("expected success on third attempt, got oid=%s calls=%d", oid, placer.calls)
	}
}

func TestPlaceOrderGivesUpAfterMaxAttempts(t *testing.T) {
	placer := &mockPlacer{orderID: "42", failures: maxAttempts}
	e := New(placer, nil, zap.NewNop())
	if _, err := e.PlaceOrder(context.Background(), testRequest("")); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if placer.calls != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, placer.calls)
	}
}

func TestPlaceOrderDistinctIDsAreDistinctOrders(t *testing.T) {
	placer := &mockPlacer{orderID: "42"}
	e := New(placer, newMemoryStore(), zap.NewNop())
	_, _ = e.PlaceOrder(context.Background(), testRequest("arb-1"))
	_, _ = e.PlaceOrder(context.Background(), testRequest("arb-2"))
	if placer.calls != 2 {
		t.Fatalf("distinct client order ids must reach the exchange, got %d calls", placer.calls)
	}
}
