package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/alerts"
	"github.com/ceotaagc-lang/Arbitage/internal/bitget"
	"github.com/ceotaagc-lang/Arbitage/internal/config"
	"github.com/ceotaagc-lang/Arbitage/internal/exec"
	"github.com/ceotaagc-lang/Arbitage/internal/market"
	"github.com/ceotaagc-lang/Arbitage/internal/metrics"
	"github.com/ceotaagc-lang/Arbitage/internal/order"
	"github.com/ceotaagc-lang/Arbitage/internal/recorder"
	"github.com/ceotaagc-lang/Arbitage/internal/spread"
	"github.com/ceotaagc-lang/Arbitage/internal/state"

	"go.uber.org/zap"
)

// simulatedJitterRange is the total width of the simulated exchange's price
// band around the primary price, so +-0.1%.
const simulatedJitterRange = 0.002

// PriceSource is one exchange's ticker endpoint. Implementations return the
// decoded payload as-is; normalization happens in the market package.
type PriceSource interface {
	Name() string
	FetchTicker(ctx context.Context, symbol string) (any, error)
}

// Orchestrator runs the evaluation cycle: fetch prices from both sources,
// normalize, evaluate the spread, and optionally place a market order on the
// primary exchange. Orders never go to the second source.
type Orchestrator struct {
	primary   PriceSource
	secondary PriceSource
	simulated bool

	primaryFee   float64
	secondaryFee float64
	threshold    float64
	quoteAsset   string
	minNotional  float64
	freshness    time.Duration

	builder *order.Builder
	placer  exec.Placer
	creds   config.Credentials

	cache    *market.Cache
	store    state.Store
	recorder *recorder.Writer
	alerts   *alerts.Telegram
	metrics  *metrics.Metrics
	log      *zap.Logger

	rand func() float64
	now  func() time.Time
}

type OrchestratorParams struct {
	Primary      PriceSource
	Secondary    PriceSource
	Simulated    bool
	PrimaryFee   float64
	SecondaryFee float64
	Threshold    float64
	QuoteAsset   string
	MinNotional  float64
	Freshness    time.Duration
	Builder      *order.Builder
	Placer       exec.Placer
	Credentials  config.Credentials
	Cache        *market.Cache
	Store        state.Store
	Recorder     *recorder.Writer
	Alerts       *alerts.Telegram
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	if p.Metrics == nil {
		p.Metrics = metrics.NewNoop()
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Cache == nil {
		p.Cache = market.NewCache()
	}
	if p.Alerts == nil {
		p.Alerts = alerts.NewTelegram(config.TelegramConfig{}, p.Log)
	}
	return &Orchestrator{
		primary:      p.Primary,
		secondary:    p.Secondary,
		simulated:    p.Simulated,
		primaryFee:   p.PrimaryFee,
		secondaryFee: p.SecondaryFee,
		threshold:    p.Threshold,
		quoteAsset:   p.QuoteAsset,
		minNotional:  p.MinNotional,
		freshness:    p.Freshness,
		builder:      p.Builder,
		placer:       p.Placer,
		creds:        p.Credentials,
		cache:        p.Cache,
		store:        p.Store,
		recorder:     p.Recorder,
		alerts:       p.Alerts,
		metrics:      p.Metrics,
		log:          p.Log,
		rand:         rand.Float64,
		now:          time.Now,
	}
}

// Pair maps a token symbol to the primary exchange's spot pair.
func (o *Orchestrator) Pair(token string) string {
	return strings.ToUpper(token) + o.quoteAsset
}

// Evaluate runs one read-only cycle for the token: fetch both prices and
// compute the spread. No order is placed regardless of the threshold.
func (o *Orchestrator) Evaluate(ctx context.Context, token string) Outcome {
	m := NewStateMachine()
	out, _ := o.observe(ctx, m, token)
	if !out.Failed() {
		o.step(m, EventNoOpportunity)
	}
	o.finish(ctx, m, out)
	return out
}

// Tick runs one full automated cycle: evaluate, and when the net profit
// clears the threshold, place a market order on the primary exchange for the
// configured minimum notional.
func (o *Orchestrator) Tick(ctx context.Context, token string) Outcome {
	m := NewStateMachine()
	out, primary := o.observe(ctx, m, token)
	switch {
	case out.Failed():
	case out.Opportunity == nil || !out.Opportunity.MeetsThreshold:
		o.step(m, EventNoOpportunity)
	default:
		o.step(m, EventThresholdMet)
		side := order.SideBuy
		if out.Opportunity.SellExchange == o.primary.Name() {
			side = order.SideSell
		}
		o.execute(ctx, &out, primary.Price, side, o.minNotional, false)
		if out.Failed() {
			o.step(m, EventExecutionFailed)
		} else {
			o.step(m, EventExecuted)
		}
	}
	o.finish(ctx, m, out)
	return out
}

// ExecuteManual places one market order at the current primary price,
// bypassing the profitability gate. The spread is still evaluated so the
// outcome carries context, but its verdict does not block the order.
func (o *Orchestrator) ExecuteManual(ctx context.Context, token string, side order.Side, notionalUSDT float64) Outcome {
	m := NewStateMachine()
	out, primary := o.observe(ctx, m, token)
	if out.Failed() {
		o.finish(ctx, m, out)
		return out
	}
	if !primary.Valid() {
		out.Failure = FailureUpstream
		out.Err = fmt.Errorf("no current %s price for %s", o.primary.Name(), out.Pair)
		o.finish(ctx, m, out)
		return out
	}
	o.log.Info("manual trade requested, bypassing profitability gate",
		zap.String("pair", out.Pair),
		zap.String("side", string(side)),
		zap.Float64("notional_usdt", notionalUSDT))
	o.step(m, EventThresholdMet)
	o.execute(ctx, &out, primary.Price, side, notionalUSDT, true)
	if out.Failed() {
		o.step(m, EventExecutionFailed)
	} else {
		o.step(m, EventExecuted)
	}
	o.finish(ctx, m, out)
	return out
}

// observe fetches both prices and evaluates the spread. It advances the
// machine through Fetching and Evaluating but leaves the threshold decision
// to the caller.
func (o *Orchestrator) observe(ctx context.Context, m *StateMachine, token string) (Outcome, market.Reading) {
	out := Outcome{Token: token, CurrentPrices: map[string]float64{}}
	if !validToken(token) {
		out.Failure = FailureValidation
		out.Err = fmt.Errorf("token symbol %q is not a valid asset code", token)
		return out, market.Reading{}
	}
	out.Pair = o.Pair(token)

	o.metrics.Ticks.Inc()
	o.step(m, EventTick)

	primary, ok, err := o.fetch(ctx, o.primary, out.Pair)
	if err != nil {
		o.metrics.FetchFailed.Inc()
		o.step(m, EventFetchFailed)
		out.Failure = FailureUpstream
		out.Err = fmt.Errorf("fetch %s ticker: %w", o.primary.Name(), err)
		return out, market.Reading{}
	}
	if !ok {
		// The exchange answered but the payload held no usable price. Skip
		// the cycle rather than fail it.
		o.step(m, EventPricesFetched)
		return out, market.Reading{}
	}
	out.CurrentPrices[primary.Exchange] = primary.Price

	second, ok, err := o.secondReading(ctx, out.Pair, primary)
	if err != nil {
		o.metrics.FetchFailed.Inc()
		o.step(m, EventFetchFailed)
		out.Failure = FailureUpstream
		out.Err = fmt.Errorf("fetch %s ticker: %w", o.secondary.Name(), err)
		return out, primary
	}
	o.step(m, EventPricesFetched)
	if !ok {
		return out, primary
	}
	out.CurrentPrices[second.Exchange] = second.Price

	if res, found := spread.Evaluate(primary, second, o.primaryFee, o.secondaryFee, o.threshold); found {
		out.Opportunity = &res
		if res.MeetsThreshold {
			o.metrics.Opportunities.Inc()
		}
	}
	return out, primary
}

// fetch returns the current reading for one source. A cached reading newer
// than the freshness bound, usually pushed by the websocket feed, satisfies
// the cycle without a REST round trip; anything older falls through to the
// ticker endpoint.
func (o *Orchestrator) fetch(ctx context.Context, src PriceSource, pair string) (market.Reading, bool, error) {
	if o.freshness > 0 {
		if reading, ok := o.cache.Get(src.Name(), pair, o.freshness); ok {
			return reading, true, nil
		}
	}
	payload, err := src.FetchTicker(ctx, pair)
	if err != nil {
		return market.Reading{}, false, err
	}
	reading, ok := market.Normalize(payload, src.Name(), pair)
	if !ok {
		o.log.Warn("ticker payload held no usable price",
			zap.String("exchange", src.Name()), zap.String("pair", pair))
		return market.Reading{}, false, nil
	}
	o.cache.Put(reading)
	return reading, true, nil
}

// secondReading produces the second leg's price. The simulated source
// mirrors the primary with a small random offset and never issues a network
// call.
func (o *Orchestrator) secondReading(ctx context.Context, pair string, primary market.Reading) (market.Reading, bool, error) {
	if o.simulated {
		factor := 1 + (o.rand()*simulatedJitterRange - simulatedJitterRange/2)
		reading := market.Reading{
			Exchange:   market.ExchangeSimulated,
			Symbol:     pair,
			Price:      primary.Price * factor,
			ObservedAt: primary.ObservedAt,
		}
		o.cache.Put(reading)
		return reading, true, nil
	}
	if o.secondary == nil {
		return market.Reading{}, false, nil
	}
	return o.fetch(ctx, o.secondary, pair)
}

// execute builds, signs, and submits a market order on the primary exchange.
// The credential check runs before anything is signed or sent.
func (o *Orchestrator) execute(ctx context.Context, out *Outcome, price float64, side order.Side, notionalUSDT float64, manual bool) {
	if !o.creds.Complete() {
		out.Failure = FailureConfiguration
		out.Err = bitget.ErrMissingCredentials
		o.metrics.OrdersFailed.Inc()
		o.log.Warn("order skipped: credentials not configured", zap.String("pair", out.Pair))
		return
	}
	req, err := o.builder.Build(order.Directive{
		Symbol:       out.Pair,
		Side:         side,
		NotionalUSDT: notionalUSDT,
		Token:        out.Token,
	}, price, o.minNotional)
	if err != nil {
		out.Failure = FailureValidation
		out.Err = err
		o.metrics.OrdersFailed.Inc()
		return
	}
	orderID, err := o.placer.PlaceOrder(ctx, req)
	if err != nil {
		out.Failure = FailureUpstream
		out.Err = fmt.Errorf("place order: %w", err)
		o.metrics.OrdersFailed.Inc()
		return
	}
	out.Executed = true
	out.Manual = manual
	out.OrderID = orderID
	o.metrics.OrdersPlaced.Inc()
	if manual {
		o.metrics.ManualTrades.Inc()
	}
	o.notify(ctx, *out, req, manual)
}

// notify sends the trade alert. The Telegram client is a no-op when
// disabled, so this is safe to call unconditionally.
func (o *Orchestrator) notify(ctx context.Context, out Outcome, req order.Request, manual bool) {
	var msg string
	if out.Opportunity != nil {
		msg = alerts.FormatTradeExecuted(*out.Opportunity, out.OrderID, manual)
	} else {
		label := "auto"
		if manual {
			label = "manual"
		}
		msg = fmt.Sprintf("Trade executed (%s): %s %s size %s, order %s",
			label, req.Side, req.Symbol, req.WireSize(), out.OrderID)
	}
	if err := o.alerts.Send(ctx, msg); err != nil {
		o.log.Warn("send trade alert", zap.Error(err))
	}
}

// finish closes out a cycle: walk the machine to Reporting if an
// intermediate terminal state is still pending, persist, and return to Idle.
func (o *Orchestrator) finish(ctx context.Context, m *StateMachine, out Outcome) {
	if m.Current() == StateNoAction {
		o.step(m, EventReported)
	}
	o.report(ctx, out)
	o.step(m, EventReported)
}

// report persists the cycle result and logs a one-line summary. Persistence
// failures are logged and swallowed; they never fail the cycle.
func (o *Orchestrator) report(ctx context.Context, out Outcome) {
	sig := state.LastSignal{
		Token:       out.Token,
		Executed:    out.Executed,
		OrderID:     out.OrderID,
		Error:       out.errorText(),
		UpdatedAtMS: o.now().UnixMilli(),
	}
	if out.Opportunity != nil {
		sig.BuyExchange = out.Opportunity.BuyExchange
		sig.SellExchange = out.Opportunity.SellExchange
		sig.NetProfitPercent = out.Opportunity.NetProfitPercent
		sig.MeetsThreshold = out.Opportunity.MeetsThreshold
	}
	if err := state.SaveLastSignal(ctx, o.store, sig); err != nil {
		o.log.Warn("persist last signal", zap.Error(err))
	}
	if out.Opportunity != nil {
		o.recorder.Enqueue(recorder.Evaluation{
			Time:             o.now(),
			Token:            out.Token,
			BuyExchange:      out.Opportunity.BuyExchange,
			SellExchange:     out.Opportunity.SellExchange,
			BuyPrice:         out.Opportunity.BuyPrice,
			SellPrice:        out.Opportunity.SellPrice,
			RawProfitPercent: out.Opportunity.RawProfitPercent,
			NetProfitPercent: out.Opportunity.NetProfitPercent,
			MeetsThreshold:   out.Opportunity.MeetsThreshold,
			Executed:         out.Executed,
			Manual:           out.Manual,
			OrderID:          out.OrderID,
		})
	}
	switch {
	case out.Failed():
		o.log.Warn("cycle failed",
			zap.String("token", out.Token),
			zap.String("failure", string(out.Failure)),
			zap.Error(out.Err))
	case out.Executed:
		o.log.Info("trade executed",
			zap.String("token", out.Token),
			zap.String("order_id", out.OrderID),
			zap.Bool("manual", out.Manual))
	case out.Opportunity != nil:
		o.log.Info("spread evaluated",
			zap.String("token", out.Token),
			zap.Float64("net_profit_pct", out.Opportunity.NetProfitPercent),
			zap.Bool("meets_threshold", out.Opportunity.MeetsThreshold))
	default:
		o.log.Debug("cycle complete, no comparable prices", zap.String("token", out.Token))
	}
}

func (o *Orchestrator) step(m *StateMachine, event Event) {
	next := m.Apply(event)
	o.log.Debug("cycle state", zap.String("event", string(event)), zap.String("state", string(next)))
}

// validToken accepts short alphanumeric asset codes like "eth" or "btc".
func validToken(token string) bool {
	if len(token) == 0 || len(token) > 12 {
		return false
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
