package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/alerts"
	"github.com/ceotaagc-lang/Arbitage/internal/binance"
	"github.com/ceotaagc-lang/Arbitage/internal/bitget"
	"github.com/ceotaagc-lang/Arbitage/internal/coingecko"
	"github.com/ceotaagc-lang/Arbitage/internal/config"
	"github.com/ceotaagc-lang/Arbitage/internal/exec"
	"github.com/ceotaagc-lang/Arbitage/internal/feed"
	"github.com/ceotaagc-lang/Arbitage/internal/market"
	"github.com/ceotaagc-lang/Arbitage/internal/metrics"
	"github.com/ceotaagc-lang/Arbitage/internal/order"
	"github.com/ceotaagc-lang/Arbitage/internal/recorder"
	"github.com/ceotaagc-lang/Arbitage/internal/state/sqlite"

	"go.uber.org/zap"
)

// App owns every long-lived component and wires them together.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *sqlite.Store
	cache    *market.Cache
	orch     *Orchestrator
	server   *Server
	feed     *feed.Client
	recorder *recorder.Writer
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	creds := config.CredentialsFromEnv()
	if !creds.Complete() {
		log.Info("bitget credentials not configured; order execution disabled")
	}

	primary := bitget.New(cfg.Bitget, creds, log)
	var secondary PriceSource
	simulated := false
	switch cfg.Second.Name {
	case config.SecondExchangeBinance:
		secondary = binance.New(cfg.Second.BaseURL, cfg.Second.Timeout)
	case config.SecondExchangeCoinGecko:
		secondary = coingecko.New(cfg.Second.BaseURL, cfg.Second.Timeout)
	case config.SecondExchangeSimulated:
		simulated = true
	}

	cache := market.NewCache()
	prom := metrics.NewPrometheus()
	executor := exec.New(primary, store, log)
	builder := order.NewBuilder(cfg.Trade.SizeDecimals, cfg.Trade.SizeDecimalOverrides)

	rec, err := recorder.New(cfg.Recorder, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var feedClient *feed.Client
	if cfg.Feed.Enabled {
		feedClient = feed.New(cfg.Feed.URL, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, cache, log)
	}

	orch := NewOrchestrator(OrchestratorParams{
		Primary:      primary,
		Secondary:    secondary,
		Simulated:    simulated,
		PrimaryFee:   cfg.Bitget.TakerFeePercent,
		SecondaryFee: cfg.Second.TakerFeePercent,
		Threshold:    cfg.Trade.ProfitThresholdPercent,
		QuoteAsset:   cfg.Trade.QuoteAsset,
		MinNotional:  cfg.Trade.MinNotionalUSDT,
		Freshness:    cfg.Trade.PriceFreshness,
		Builder:      builder,
		Placer:       executor,
		Credentials:  creds,
		Cache:        cache,
		Store:        store,
		Recorder:     rec,
		Alerts:       alerts.NewTelegram(cfg.Telegram, log),
		Metrics:      prom.Metrics,
		Log:          log,
	})

	server := NewServer(orch, store, cfg.Trade.TokenSymbol, prom.Handler(), log)
	app := &App{
		cfg:      cfg,
		log:      log,
		store:    store,
		cache:    cache,
		orch:     orch,
		server:   server,
		feed:     feedClient,
		recorder: rec,
	}
	if feedClient != nil {
		feedClient.Watch(orch.Pair(cfg.Trade.TokenSymbol))
	}
	return app, nil
}

// Run starts the recorder, the websocket feed, the HTTP server, and the
// polling loop, then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	if a.recorder != nil {
		a.recorder.Start(ctx)
		defer a.recorder.Close()
	}
	if a.feed != nil {
		go func() {
			if err := a.feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("price feed stopped", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Run(ctx, a.cfg.Server.Addr, a.cfg.Server.ShutdownTimeout)
	}()

	ticker := time.NewTicker(a.cfg.Trade.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return ctx.Err()
		case err := <-serverErr:
			return err
		case <-ticker.C:
			a.pollOnce(ctx)
		}
	}
}

// pollOnce runs one cycle for the configured token. With auto-execution off
// the cycle is read-only and only records what it saw.
func (a *App) pollOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, a.cfg.Trade.PollInterval)
	defer cancel()
	if a.cfg.Trade.AutoExecute {
		a.orch.Tick(cycleCtx, a.cfg.Trade.TokenSymbol)
		return
	}
	a.orch.Evaluate(cycleCtx, a.cfg.Trade.TokenSymbol)
}
