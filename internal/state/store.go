// Package state is the durable KV surface behind the executor's
// idempotency cache and the last-signal snapshot.
package state

import "context"

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
