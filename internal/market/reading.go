package market

import "time"

// Exchange identifiers used across the bot. ExchangeSimulated matches the
// label the UI shows for the synthetic second leg.
const (
	ExchangeBitget    = "Bitget"
	ExchangeBinance   = "Binance"
	ExchangeOKX       = "OKX"
	ExchangeCoinGecko = "CoinGecko"
	ExchangeSimulated = "SimulatedExch"
)

// Reading is a single normalized last-trade price observation. A Reading is
// immutable once produced; a zero or negative price never leaves the
// normalizer.
type Reading struct {
	Exchange   string
	Symbol     string
	Price      float64
	ObservedAt int64 // unix milliseconds
}

func (r Reading) Valid() bool {
	return r.Price > 0
}

func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.ObservedAt))
}
