// Package server exposes one hop contract over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// APIResponse is the body of every error and of bare status replies.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// InvokeResponse is the body of a successful execute or reply.
type InvokeResponse struct {
	Status   string        `json:"status"`
	Response *hop.Response `json:"response"`
}

// PendingResponse describes the persisted chain.
type PendingResponse struct {
	Status    string           `json:"status"`
	Target    string           `json:"target"`
	Count     int              `json:"count"`
	Remaining []hop.ExecuteMsg `json:"remaining"`
}

// StateResponse describes the contract the server fronts.
type StateResponse struct {
	Status   string `json:"status"`
	Contract string `json:"contract"`
	ChainID  string `json:"chain_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

// ExecuteRequest invokes the contract.
type ExecuteRequest struct {
	Sender string          `json:"sender"`
	Funds  hop.Funds       `json:"funds"`
	Msg    json.RawMessage `json:"msg"`
}

// Server routes HTTP requests to a contract. Invocations are serialised so
// each one runs to completion before the next, as on a chain.
type Server struct {
	contract *hop.Contract
	address  common.Address
	chainID  string
	now      func() time.Time
	logger   *zap.Logger
	metrics  *Metrics

	mu     sync.Mutex
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now as the source of block time.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithMetrics shares a Metrics instance.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New returns a Server fronting contract deployed at address.
func New(contract *hop.Contract, address common.Address, chainID string, opts ...Option) *Server {
	s := &Server{
		contract: contract,
		address:  address,
		chainID:  chainID,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.requestLogger(s.logger))

	r.Post("/execute", s.handleExecute)
	r.Post("/reply", s.handleReply)
	r.Get("/pending", s.handlePending)
	r.Get("/state", s.handleState)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP service started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP service stopped")
	return nil
}

func (s *Server) env() hop.Env {
	return hop.Env{Contract: s.address, BlockTime: s.now().UTC(), ChainID: s.chainID}
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	resp, err := s.contract.ExecuteJSON(r.Context(), s.env(), hop.MessageInfo{Sender: req.Sender, Funds: req.Funds}, req.Msg)
	s.mu.Unlock()

	if err != nil {
		s.fail(w, err)
		return
	}
	s.observe(resp)
	s.responseJSON(w, &InvokeResponse{Status: "ok", Response: resp}, http.StatusOK)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var reply hop.Reply
	if !s.decode(w, r, &reply) {
		return
	}

	outcome := "ok"
	if reply.Result.Failed() {
		outcome = "error"
	}
	s.metrics.replies.WithLabelValues(outcome).Inc()

	s.mu.Lock()
	resp, err := s.contract.Reply(r.Context(), s.env(), reply)
	s.mu.Unlock()

	if err != nil {
		s.fail(w, err)
		return
	}
	s.observe(resp)
	s.responseJSON(w, &InvokeResponse{Status: "ok", Response: resp}, http.StatusOK)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, err := s.contract.Pending(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}

	msgs, err := hop.WrapCommands(p.Remaining)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.responseJSON(w, &PendingResponse{
		Status:    "ok",
		Target:    p.Target.Hex(),
		Count:     p.Len(),
		Remaining: msgs,
	}, http.StatusOK)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.responseJSON(w, &StateResponse{
		Status:   "ok",
		Contract: s.address.Hex(),
		ChainID:  s.chainID,
		Name:     hop.ContractName,
		Version:  hop.ContractVersion,
	}, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.responseJSON(w, &APIResponse{Status: "error", Message: "Error reading request body"}, http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.metrics.errors.WithLabelValues("invalid_request").Inc()
		s.responseJSON(w, &APIResponse{Status: "error", Message: "Cannot unmarshal input JSON"}, http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) observe(resp *hop.Response) {
	for _, m := range resp.Messages {
		s.metrics.dispatches.WithLabelValues(m.Dispatch.Kind.String()).Inc()
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	class, code := classify(err)
	s.metrics.errors.WithLabelValues(class).Inc()

	if code >= http.StatusInternalServerError {
		s.logger.Error("invocation failed", zap.String("class", class), zap.Error(err))
	} else {
		s.logger.Info("invocation rejected", zap.String("class", class), zap.Error(err))
	}

	resp := &APIResponse{Status: "error", Message: err.Error()}
	var addrErr *hop.AddressError
	if errors.As(err, &addrErr) {
		resp.Field = addrErr.Field
	}
	s.responseJSON(w, resp, code)
}

// classify maps a contract error to a metric label and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, hop.ErrUnauthorized):
		return "unauthorized", http.StatusBadRequest
	case errors.Is(err, hop.ErrMissingFunds):
		return "missing_funds", http.StatusBadRequest
	case errors.Is(err, hop.ErrInvalidMessage):
		return "invalid_message", http.StatusBadRequest
	case errors.Is(err, hop.ErrUpstream):
		return "upstream", http.StatusBadGateway
	case errors.Is(err, hop.ErrEncoding):
		return "encoding", http.StatusInternalServerError
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (s *Server) responseJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("writing response failed", zap.Int("status", code), zap.Error(err))
	}
}
