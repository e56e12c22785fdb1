package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ceotaagc-lang/Arbitage/internal/market"
	"github.com/ceotaagc-lang/Arbitage/internal/order"
	"github.com/ceotaagc-lang/Arbitage/internal/spread"
	"github.com/ceotaagc-lang/Arbitage/internal/state"

	"go.uber.org/zap"
)

// Server is the inbound HTTP surface: spread inspection, manual trades, a
// market snapshot, health, and Prometheus metrics.
type Server struct {
	orch           *Orchestrator
	store          state.Store
	defaultToken   string
	metricsHandler http.Handler
	log            *zap.Logger
}

func NewServer(orch *Orchestrator, store state.Store, defaultToken string, metricsHandler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		orch:           orch,
		store:          store,
		defaultToken:   defaultToken,
		metricsHandler: metricsHandler,
		log:            log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /opportunity", s.handleOpportunity)
	mux.HandleFunc("POST /trade", s.handleTrade)
	mux.HandleFunc("GET /market", s.handleMarket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return mux
}

type opportunityResponse struct {
	Opportunity   *spread.Result     `json:"opportunity"`
	CurrentPrices map[string]float64 `json:"currentPrices"`
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("tokenSymbol")
	if token == "" {
		token = s.defaultToken
	}
	out := s.orch.Evaluate(r.Context(), token)
	if out.Failed() {
		s.writeFailure(w, out)
		return
	}
	writeJSON(w, http.StatusOK, opportunityResponse{
		Opportunity:   out.Opportunity,
		CurrentPrices: out.CurrentPrices,
	})
}

type tradeRequest struct {
	TokenSymbol   string  `json:"tokenSymbol"`
	Side          string  `json:"side"`
	TradeSizeUSDT float64 `json:"tradeSizeUSDT"`
}

type tradeResponse struct {
	Success     bool           `json:"success"`
	OrderID     string         `json:"orderId,omitempty"`
	Message     string         `json:"message"`
	Opportunity *spread.Result `json:"opportunity,omitempty"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}
	if req.TokenSymbol == "" {
		writeError(w, http.StatusBadRequest, "tokenSymbol is required")
		return
	}
	side, err := order.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TradeSizeUSDT < 0 {
		writeError(w, http.StatusBadRequest, "tradeSizeUSDT must be >= 0")
		return
	}
	out := s.orch.ExecuteManual(r.Context(), req.TokenSymbol, side, req.TradeSizeUSDT)
	if out.Failed() {
		s.writeFailure(w, out)
		return
	}
	writeJSON(w, http.StatusOK, tradeResponse{
		Success:     true,
		OrderID:     out.OrderID,
		Message:     "Trade executed successfully.",
		Opportunity: out.Opportunity,
	})
}

type marketResponse struct {
	TokenSymbol          string  `json:"tokenSymbol"`
	Exchange             string  `json:"exchange"`
	LastPrice            float64 `json:"lastPrice"`
	HighPrice24h         float64 `json:"highPrice24h,omitempty"`
	LowPrice24h          float64 `json:"lowPrice24h,omitempty"`
	VolatilityPercentage float64 `json:"volatilityPercentage,omitempty"`
}

// handleMarket returns a 24h snapshot for one token from the primary
// exchange's ticker.
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("tokenSymbol")
	if token == "" {
		token = s.defaultToken
	}
	if !validToken(token) {
		writeError(w, http.StatusBadRequest, "tokenSymbol is not a valid asset code")
		return
	}
	pair := s.orch.Pair(token)
	payload, err := s.orch.primary.FetchTicker(r.Context(), pair)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upstream ticker fetch failed: "+err.Error())
		return
	}
	reading, ok := market.Normalize(payload, s.orch.primary.Name(), pair)
	if !ok {
		writeError(w, http.StatusInternalServerError, "ticker payload held no usable price")
		return
	}
	resp := marketResponse{
		TokenSymbol: token,
		Exchange:    reading.Exchange,
		LastPrice:   reading.Price,
	}
	if high, ok := market.Field(payload, "high24h", "highPrice", "high"); ok {
		resp.HighPrice24h = high
	}
	if low, ok := market.Field(payload, "low24h", "lowPrice", "low"); ok {
		resp.LowPrice24h = low
	}
	if resp.LowPrice24h > 0 && resp.HighPrice24h >= resp.LowPrice24h {
		resp.VolatilityPercentage = (resp.HighPrice24h - resp.LowPrice24h) / resp.LowPrice24h * 100
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status     string            `json:"status"`
	Time       time.Time         `json:"time"`
	LastSignal *state.LastSignal `json:"lastSignal,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
	if sig, ok, err := state.LoadLastSignal(r.Context(), s.store); err == nil && ok {
		resp.LastSignal = &sig
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFailure maps an outcome's failure kind to an HTTP status. Validation
// problems are the caller's fault; everything else is a 500.
func (s *Server) writeFailure(w http.ResponseWriter, out Outcome) {
	status := http.StatusInternalServerError
	if out.Failure == FailureValidation {
		status = http.StatusBadRequest
	}
	writeError(w, status, out.errorText())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("http server listening", zap.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
