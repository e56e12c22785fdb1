package order

import (
	"testing"
	"time"
)

func TestBuildFloorsNotionalAtMinimum(t *testing.T) {
	b := NewBuilder(6, nil)
	req, err := b.Build(Directive{Symbol: "ETHUSDT", Side: SideBuy, NotionalUSDT: 3}, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Notional != "10" {
		t.Fatalf("expected notional floored to 10, got %s", req.Notional)
	}
	if req.BaseQuantity != "0.1" {
		t.Fatalf("expected base quantity 0.1, got %s", req.BaseQuantity)
	}
}

func TestBuildTruncatesBaseQuantity(t *testing.T) {
	b := NewBuilder(6, nil)
	req, err := b.Build(Directive{Symbol: "ETHUSDT", Side: SideSell, NotionalUSDT: 100}, 3500, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100/3500 = 0.0285714285...; truncated, never rounded up
	if req.BaseQuantity != "0.028571" {
		t.Fatalf("expected 0.028571, got %s", req.BaseQuantity)
	}
}

func TestBuildHonorsSymbolOverride(t *testing.T) {
	b := NewBuilder(6, map[string]int32{"BTCUSDT": 4})
	req, err := b.Build(Directive{Symbol: "BTCUSDT", Side: SideBuy, NotionalUSDT: 100}, 30000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.BaseQuantity != "0.0033" {
		t.Fatalf("expected 0.0033 with 4-decimal override, got %s", req.BaseQuantity)
	}
}

func TestBuildWireSizePerSide(t *testing.T) {
	b := NewBuilder(6, nil)
	buy, _ := b.Build(Directive{Symbol: "ETHUSDT", Side: SideBuy, NotionalUSDT: 25}, 100, 10)
	if buy.WireSize() != buy.Notional {
		t.Fatalf("market buy size must be the quote notional, got %s", buy.WireSize())
	}
	sell, _ := b.Build(Directive{Symbol: "ETHUSDT", Side: SideSell, NotionalUSDT: 25}, 100, 10)
	if sell.WireSize() != sell.BaseQuantity {
		t.Fatalf("market sell size must be the base quantity, got %s", sell.WireSize())
	}
}

func TestBuildRejectsNonPositivePrice(t *testing.T) {
	b := NewBuilder(6, nil)
	if _, err := b.Build(Directive{Symbol: "ETHUSDT", Side: SideBuy, NotionalUSDT: 10}, 0, 10); err == nil {
		t.Fatal("expected error for zero price")
	}
	if _, err := b.Build(Directive{Symbol: "ETHUSDT", Side: SideBuy, NotionalUSDT: 10}, -1, 10); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestClientOrderIDsUniqueUnderRapidBuilds(t *testing.T) {
	b := NewBuilder(6, nil)
	// Freeze time so only the counter distinguishes ids.
	frozen := time.Now()
	b.now = func() time.Time { return frozen }

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		req, err := b.Build(Directive{Symbol: "ETHUSDT", Side: SideBuy, NotionalUSDT: 10}, 100, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[req.ClientOrderID]; dup {
			t.Fatalf("duplicate client order id %s", req.ClientOrderID)
		}
		seen[req.ClientOrderID] = struct{}{}
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide(""); err != nil || s != SideBuy {
		t.Fatalf("empty side should default to buy, got %v %v", s, err)
	}
	if s, err := ParseSide("SELL"); err != nil || s != SideSell {
		t.Fatalf("expected sell, got %v %v", s, err)
	}
	if _, err := ParseSide("hold"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}
