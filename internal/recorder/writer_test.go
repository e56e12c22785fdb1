package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/config"

	"go.uber.org/zap"
)

func TestDisabledRecorderIsNil(t *testing.T) {
	w, err := New(config.RecorderConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("disabled recorder: %v", err)
	}
	if w != nil {
		t.Fatal("disabled recorder should be nil")
	}
}

func TestEnabledRecorderRequiresDSN(t *testing.T) {
	if _, err := New(config.RecorderConfig{Enabled: true, DSN: "  "}, zap.NewNop()); err == nil {
		t.Fatal("expected an error for a blank dsn")
	}
}

func TestNilWriterMethodsAreSafe(t *testing.T) {
	var w *Writer
	w.Enqueue(Evaluation{Token: "eth", Time: time.Now()})
	w.Start(context.Background())
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	w := &Writer{
		log:         zap.NewNop(),
		evaluations: make(chan Evaluation, 1),
	}
	w.Enqueue(Evaluation{Token: "eth"})
	w.Enqueue(Evaluation{Token: "btc"})
	w.Enqueue(Evaluation{Token: "sol"})
	if got := w.dropped.Load(); got != 2 {
		t.Fatalf("dropped = %d, want 2", got)
	}
	if got := len(w.evaluations); got != 1 {
		t.Fatalf("queued = %d, want 1", got)
	}
	first := <-w.evaluations
	if first.Token != "eth" {
		t.Fatalf("kept %q, want the first enqueued row", first.Token)
	}
}

func TestTableNameQualifiesSchema(t *testing.T) {
	cases := []struct {
		schema string
		want   string
	}{
		{"", "spread_evaluations"},
		{"public", "spread_evaluations"},
		{"arbitage", "arbitage.spread_evaluations"},
	}
	for _, c := range cases {
		w := &Writer{schema: c.schema}
		if got := w.table("spread_evaluations"); got != c.want {
			t.Fatalf("table with schema %q = %q, want %q", c.schema, got, c.want)
		}
	}
}

func TestEnsureSchemaWithoutDB(t *testing.T) {
	w := &Writer{}
	if err := w.ensureSchema(context.Background()); err == nil {
		t.Fatal("expected an error without a database handle")
	}
}
