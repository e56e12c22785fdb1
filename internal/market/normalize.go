package market

import (
	"math"
	"time"
)

// priceSynonyms is the known set of field names exchanges use for the last
// trade price, probed in order.
var priceSynonyms = []string{"lastPr", "last", "lastPrice", "price", "close", "c"}

// extractor pulls a last-trade price out of one exchange's payload shape.
type extractor func(payload any) (float64, bool)

// variants maps an exchange id to its envelope-specific extractor. Unknown
// exchanges fall straight through to the generic probe.
var variants = map[string]extractor{
	ExchangeBitget:    extractBitget,
	ExchangeBinance:   extractBinance,
	ExchangeOKX:       extractOKX,
	ExchangeCoinGecko: extractCoinGecko,
}

// Normalize parses a raw ticker payload into a Reading. The second return is
// false when no strategy yields a finite positive price; that is a
// data-quality outcome, not an error, and callers skip the cycle. Malformed
// payloads of any shape degrade to an absent reading, never a panic.
func Normalize(payload any, exchangeID, symbol string) (Reading, bool) {
	price, ok := extractPrice(payload, exchangeID)
	if !ok {
		return Reading{}, false
	}
	return Reading{
		Exchange:   exchangeID,
		Symbol:     symbol,
		Price:      price,
		ObservedAt: time.Now().UnixMilli(),
	}, true
}

func extractPrice(payload any, exchangeID string) (float64, bool) {
	if payload == nil {
		return 0, false
	}
	if variant, ok := variants[exchangeID]; ok {
		if price, ok := variant(payload); ok {
			return price, true
		}
	}
	if m, ok := toMap(payload); ok {
		if price, ok := probeSynonyms(m); ok {
			return price, true
		}
		return scanNumeric(m)
	}
	return 0, false
}

// extractBitget handles the v2 spot ticker envelope:
// {"code":"00000","data":[{"lastPr":"..."}]} with the single-object data
// variant some gateway versions return.
func extractBitget(payload any) (float64, bool) {
	env, ok := toMap(payload)
	if !ok {
		return 0, false
	}
	data := env["data"]
	if items, ok := toSlice(data); ok && len(items) > 0 {
		data = items[0]
	}
	inner, ok := toMap(data)
	if !ok {
		return 0, false
	}
	return positivePrice(floatFromMap(inner, "lastPr", "last", "close"))
}

// extractBinance handles both /api/v3/ticker/price {"price":"..."} and the
// 24hr statistics shape {"lastPrice":"..."}.
func extractBinance(payload any) (float64, bool) {
	m, ok := toMap(payload)
	if !ok {
		return 0, false
	}
	return positivePrice(floatFromMap(m, "price", "lastPrice"))
}

// extractOKX handles {"code":"0","data":[{"last":"..."}]}.
func extractOKX(payload any) (float64, bool) {
	env, ok := toMap(payload)
	if !ok {
		return 0, false
	}
	items, ok := toSlice(env["data"])
	if !ok || len(items) == 0 {
		return 0, false
	}
	inner, ok := toMap(items[0])
	if !ok {
		return 0, false
	}
	return positivePrice(floatFromMap(inner, "last"))
}

// extractCoinGecko handles /coins/<id>/tickers, preferring USDT-quoted
// entries the way the dashboard did.
func extractCoinGecko(payload any) (float64, bool) {
	env, ok := toMap(payload)
	if !ok {
		return 0, false
	}
	tickers, ok := toSlice(env["tickers"])
	if !ok || len(tickers) == 0 {
		return 0, false
	}
	var fallback float64
	for _, item := range tickers {
		entry, ok := toMap(item)
		if !ok {
			continue
		}
		last := floatFromMap(entry, "last")
		if last <= 0 {
			continue
		}
		if stringFromMap(entry, "target") == "USDT" {
			return last, true
		}
		if fallback == 0 {
			fallback = last
		}
	}
	return positivePrice(fallback)
}

// Field probes a payload for the first of the given keys holding a finite
// positive number, unwrapping one data envelope level the way the price
// probe does. It serves callers that need non-price ticker fields such as
// 24h highs and lows.
func Field(payload any, keys ...string) (float64, bool) {
	m, ok := toMap(payload)
	if !ok {
		return 0, false
	}
	data := m["data"]
	if items, ok := toSlice(data); ok && len(items) > 0 {
		data = items[0]
	}
	if inner, ok := toMap(data); ok {
		if v, ok := positivePrice(floatFromMap(inner, keys...)); ok {
			return v, true
		}
	}
	return positivePrice(floatFromMap(m, keys...))
}

func probeSynonyms(m map[string]any) (float64, bool) {
	// Unwrap one level of envelope before probing.
	for _, key := range []string{"data", "result"} {
		nested := m[key]
		if items, ok := toSlice(nested); ok && len(items) > 0 {
			nested = items[0]
		}
		if inner, ok := toMap(nested); ok {
			if price, ok := positivePrice(floatFromMap(inner, priceSynonyms...)); ok {
				return price, true
			}
		}
	}
	return positivePrice(floatFromMap(m, priceSynonyms...))
}

// nonPriceKeys are fields that hold numbers which are never prices.
var nonPriceKeys = map[string]struct{}{
	"code": {}, "status": {}, "ts": {}, "time": {}, "timestamp": {}, "seq": {}, "id": {},
}

// scanNumeric is the last resort: the first parseable positive number among
// the payload's own fields, probed in deterministic key order.
func scanNumeric(m map[string]any) (float64, bool) {
	for _, key := range sortedKeys(m) {
		if _, skip := nonPriceKeys[key]; skip {
			continue
		}
		if f, ok := floatFromAny(m[key]); ok {
			if price, ok := positivePrice(f); ok {
				return price, true
			}
		}
	}
	return 0, false
}

func positivePrice(f float64) (float64, bool) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
