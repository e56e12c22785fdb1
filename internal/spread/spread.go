// Package spread computes the fee-adjusted arbitrage signal between two
// price readings of the same symbol.
package spread

import (
	"github.com/ceotaagc-lang/Arbitage/internal/market"
)

// Result is the outcome of one spread evaluation. It is recomputed every
// cycle and never persisted by the evaluator itself.
type Result struct {
	Symbol           string  `json:"tokenSymbol"`
	BuyExchange      string  `json:"buyExchange"`
	SellExchange     string  `json:"sellExchange"`
	BuyPrice         float64 `json:"buyPrice"`
	SellPrice        float64 `json:"sellPrice"`
	RawProfitPercent float64 `json:"rawProfitPercent"`
	NetProfitPercent float64 `json:"netProfitPercent"`
	MeetsThreshold   bool    `json:"meetsThreshold"`
}

// Evaluate compares two readings and returns the spread result. The second
// return is false (no opportunity) when either reading is absent or invalid,
// or when the prices are equal. A result is returned even when the net
// profit misses the threshold; callers decide whether to act.
//
// feeA and feeB are per-leg taker fee percentages for a's and b's exchange
// respectively; a round trip always pays both. MeetsThreshold is true when
// the net profit is greater than or equal to thresholdPercent (equality
// counts).
func Evaluate(a, b market.Reading, feeA, feeB, thresholdPercent float64) (Result, bool) {
	if !a.Valid() || !b.Valid() {
		return Result{}, false
	}
	if a.Price == b.Price {
		return Result{}, false
	}
	low, high := a, b
	if b.Price < a.Price {
		low, high = b, a
	}
	// Guarded even though Valid excludes zero prices.
	if low.Price <= 0 {
		return Result{}, false
	}
	raw := (high.Price - low.Price) / low.Price * 100
	net := raw - (feeA + feeB)
	return Result{
		Symbol:           low.Symbol,
		BuyExchange:      low.Exchange,
		SellExchange:     high.Exchange,
		BuyPrice:         low.Price,
		SellPrice:        high.Price,
		RawProfitPercent: raw,
		NetProfitPercent: net,
		MeetsThreshold:   net >= thresholdPercent,
	}, true
}
