// Package exec places orders with retry and client-order-id idempotency.
// The exchange remains the source of idempotency truth; the local cache
// only stops a retried tick from resubmitting an already-acknowledged
// client order id.
package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/order"
	"github.com/ceotaagc-lang/Arbitage/internal/state"

	"go.uber.org/zap"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// Placer is the private-endpoint surface the executor needs.
type Placer interface {
	PlaceOrder(ctx context.Context, req order.Request) (string, error)
}

type Executor struct {
	placer Placer
	store  state.Store
	log    *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

func New(placer Placer, store state.Store, log *zap.Logger) *Executor {
	return &Executor{
		placer: placer,
		store:  store,
		log:    log,
		cache:  make(map[string]string),
	}
}

func (e *Executor) PlaceOrder(ctx context.Context, req order.Request) (string, error) {
	if req.ClientOrderID == "" {
		return e.placeWithRetry(ctx, req)
	}
	cacheKey := "cloid:" + req.ClientOrderID
	e.mu.Lock()
	if oid, ok := e.cache[cacheKey]; ok {
		e.mu.Unlock()
		return oid, nil
	}
	e.mu.Unlock()
	if e.store != nil {
		if oid, ok, err := e.store.Get(ctx, cacheKey); err != nil {
			return "", err
		} else if ok {
			e.remember(cacheKey, oid)
			return oid, nil
		}
	}
	orderID, err := e.placeWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	if e.store != nil {
		if err := e.store.Set(ctx, cacheKey, orderID); err != nil {
			e.log.Warn("failed to persist order id", zap.Error(err))
		}
	}
	e.remember(cacheKey, orderID)
	return orderID, nil
}

func (e *Executor) remember(key, orderID string) {
	e.mu.Lock()
	e.cache[key] = orderID
	e.mu.Unlock()
}

func (e *Executor) placeWithRetry(ctx context.Context, req order.Request) (string, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		orderID, err := e.placer.PlaceOrder(ctx, req)
		if err == nil {
			if orderID == "" {
				return "", errors.New("empty order id")
			}
			return orderID, nil
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return "", fmt.Errorf("order placement failed after %d attempts: %w", maxAttempts, lastErr)
}
