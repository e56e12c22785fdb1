package state

import (
	"context"
	"encoding/json"
	"strings"
)

const LastSignalKey = "signal:last"

// LastSignal is the most recent completed evaluation cycle, persisted so an
// operator (or the health endpoint) can see what the bot last decided after
// a restart. It is diagnostic state, not an order journal.
type LastSignal struct {
	Token            string  `json:"token"`
	BuyExchange      string  `json:"buy_exchange,omitempty"`
	SellExchange     string  `json:"sell_exchange,omitempty"`
	NetProfitPercent float64 `json:"net_profit_percent"`
	MeetsThreshold   bool    `json:"meets_threshold"`
	Executed         bool    `json:"executed"`
	OrderID          string  `json:"order_id,omitempty"`
	Error            string  `json:"error,omitempty"`
	UpdatedAtMS      int64   `json:"updated_at_ms"`
}

func LoadLastSignal(ctx context.Context, store Store) (LastSignal, bool, error) {
	if store == nil {
		return LastSignal{}, false, nil
	}
	raw, ok, err := store.Get(ctx, LastSignalKey)
	if err != nil {
		return LastSignal{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return LastSignal{}, false, nil
	}
	var signal LastSignal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		return LastSignal{}, false, err
	}
	return signal, true, nil
}

func SaveLastSignal(ctx context.Context, store Store, signal LastSignal) error {
	if store == nil {
		return nil
	}
	payload, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	return store.Set(ctx, LastSignalKey, string(payload))
}
