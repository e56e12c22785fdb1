package sqlite

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "cloid:arb-1", "9001"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := store.Get(ctx, "cloid:arb-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "9001" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Set(ctx, "cloid:arb-1", "9002"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	val, _, _ = store.Get(ctx, "cloid:arb-1")
	if val != "9002" {
		t.Fatalf("expected overwrite to win, got %v", val)
	}
	if err := store.Delete(ctx, "cloid:arb-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "cloid:arb-1"); ok {
		t.Fatal("expected key to be deleted")
	}
}
