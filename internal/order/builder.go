// Package order turns trade directives into exchange order requests.
package order

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return "", fmt.Errorf("side %q is not buy or sell", s)
	}
}

// Directive is the intent to trade, produced by the orchestrator when the
// threshold gate passes or supplied directly by a manual request.
type Directive struct {
	Symbol       string
	Side         Side
	NotionalUSDT float64
	Token        string
}

// Request is a market order ready for signing and submission. Market orders
// carry no price; BaseQuantity is the truncated base-asset amount and
// Notional the quote amount actually committed.
type Request struct {
	Symbol        string
	Side          Side
	OrderType     string
	BaseQuantity  string
	Notional      string
	ClientOrderID string
}

// WireSize is the value Bitget expects in the spot order "size" field:
// quote notional for market buys, base quantity for market sells.
func (r Request) WireSize() string {
	if r.Side == SideBuy {
		return r.Notional
	}
	return r.BaseQuantity
}

// Builder sizes orders and hands out client order ids that are unique for
// the process lifetime. The id embeds a monotonic counter so rapid
// successive ticks cannot collide the way bare timestamps can, and the
// prefix keeps automated ids apart from manually issued orders.
type Builder struct {
	prefix    string
	decimals  int32
	overrides map[string]int32
	counter   atomic.Uint64
	now       func() time.Time
}

func NewBuilder(decimals int32, overrides map[string]int32) *Builder {
	if decimals < 0 {
		decimals = 6
	}
	return &Builder{
		prefix:    "arb",
		decimals:  decimals,
		overrides: overrides,
		now:       time.Now,
	}
}

// Build sizes the order from a freshly observed price. The effective
// notional never drops below the exchange minimum, and the base quantity is
// truncated, not rounded, to the symbol's lot precision.
func (b *Builder) Build(d Directive, currentPrice, minNotional float64) (Request, error) {
	if currentPrice <= 0 {
		return Request{}, errors.New("current price must be positive")
	}
	if d.Symbol == "" {
		return Request{}, errors.New("symbol is required")
	}
	side := d.Side
	if side == "" {
		side = SideBuy
	}
	notional := d.NotionalUSDT
	if notional < minNotional {
		notional = minNotional
	}
	qty := decimal.NewFromFloat(notional).
		Div(decimal.NewFromFloat(currentPrice)).
		Truncate(b.sizeDecimals(d.Symbol))
	if qty.IsZero() {
		return Request{}, fmt.Errorf("notional %.2f truncates to zero base quantity at price %.8f", notional, currentPrice)
	}
	return Request{
		Symbol:        d.Symbol,
		Side:          side,
		OrderType:     "market",
		BaseQuantity:  qty.String(),
		Notional:      decimal.NewFromFloat(notional).Truncate(2).String(),
		ClientOrderID: b.nextClientOrderID(),
	}, nil
}

func (b *Builder) sizeDecimals(symbol string) int32 {
	if d, ok := b.overrides[symbol]; ok && d >= 0 {
		return d
	}
	return b.decimals
}

func (b *Builder) nextClientOrderID() string {
	return fmt.Sprintf("%s-%06x-%d", b.prefix, b.counter.Add(1), b.now().UnixMilli())
}
