// Package recorder asynchronously persists spread evaluations to
// Postgres/Timescale for later analysis. It is observability plumbing:
// enqueueing never blocks the trading path, and a full queue drops rows.
package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Evaluation is one completed spread computation, whether or not it
// triggered an order.
type Evaluation struct {
	Time             time.Time
	Token            string
	BuyExchange      string
	SellExchange     string
	BuyPrice         float64
	SellPrice        float64
	RawProfitPercent float64
	NetProfitPercent float64
	MeetsThreshold   bool
	Executed         bool
	Manual           bool
	OrderID          string
}

type Writer struct {
	db          *sql.DB
	log         *zap.Logger
	schema      string
	evaluations chan Evaluation
	started     atomic.Bool
	dropped     atomic.Uint64
}

// New opens the recorder connection. A disabled config returns (nil, nil);
// all Writer methods are nil-safe so callers need no branching.
func New(cfg config.RecorderConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("recorder dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:          db,
		log:         log,
		schema:      cfg.Schema,
		evaluations: make(chan Evaluation, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Enqueue hands an evaluation to the writer goroutine without blocking.
func (w *Writer) Enqueue(eval Evaluation) {
	if w == nil {
		return
	}
	select {
	case w.evaluations <- eval:
	default:
		if w.dropped.Add(1) == 1 && w.log != nil {
			w.log.Warn("recorder queue full, dropping evaluations")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case eval := <-w.evaluations:
			w.write(ctx, eval)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("recorder db not initialized")
	}
	if w.schema != "" && w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		token TEXT NOT NULL,
		buy_exchange TEXT NOT NULL,
		sell_exchange TEXT NOT NULL,
		buy_price DOUBLE PRECISION NOT NULL,
		sell_price DOUBLE PRECISION NOT NULL,
		raw_profit_percent DOUBLE PRECISION NOT NULL,
		net_profit_percent DOUBLE PRECISION NOT NULL,
		meets_threshold BOOLEAN NOT NULL,
		executed BOOLEAN NOT NULL,
		manual BOOLEAN NOT NULL,
		order_id TEXT NOT NULL DEFAULT ''
	)`, w.table("spread_evaluations"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("spread_evaluations"))); err != nil && w.log != nil {
		w.log.Warn("spread_evaluations hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) write(ctx context.Context, eval Evaluation) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, token, buy_exchange, sell_exchange, buy_price, sell_price,
		raw_profit_percent, net_profit_percent, meets_threshold, executed, manual, order_id
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`, w.table("spread_evaluations"))
	if _, err := w.db.ExecContext(ctx, query,
		eval.Time,
		eval.Token,
		eval.BuyExchange,
		eval.SellExchange,
		eval.BuyPrice,
		eval.SellPrice,
		eval.RawProfitPercent,
		eval.NetProfitPercent,
		eval.MeetsThreshold,
		eval.Executed,
		eval.Manual,
		eval.OrderID,
	); err != nil && w.log != nil {
		w.log.Warn("spread evaluation insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	if w.schema == "" || w.schema == "public" {
		return name
	}
	return w.schema + "." + name
}
