package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetplan/internal/auth"
	"budgetplan/internal/log"
	"budgetplan/internal/middleware/ratelimit"
	"budgetplan/internal/middleware/security"
	"budgetplan/internal/middleware/trace"
	"budgetplan/internal/services"
)

// ReadinessCheck reports whether dependencies can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	planner  *services.Planner
	logger   *log.Logger
	requests *log.RequestLogger
	limiter  *ratelimit.Limiter
	ready    ReadinessCheck

	shutdownOnce sync.Once
}

type ServerOption func(*serverOptions)

type serverOptions struct {
	logger            *log.Logger
	ready             ReadinessCheck
	requestsPerMinute int
}

func WithLogger(l *log.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

func WithReadiness(check ReadinessCheck) ServerOption {
	return func(o *serverOptions) { o.ready = check }
}

// WithRateLimit caps mutating requests per user and minute.
func WithRateLimit(perMinute int) ServerOption {
	return func(o *serverOptions) { o.requestsPerMinute = perMinute }
}

// NewServer wires routes and middleware and returns a ready-to-run server.
func NewServer(addr string, planner *services.Planner, authn *auth.Authenticator, opts ...ServerOption) *Server {
	o := serverOptions{requestsPerMinute: ratelimit.DefaultConfig().RequestsPerMinute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}
	logger := o.logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		planner:  planner,
		logger:   logger,
		requests: log.NewRequestLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: o.requestsPerMinute}),
		ready:    o.ready,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/budget", s.handleGetBudget)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	api.HandleFunc("GET /api/months", s.handleMonths)
	api.HandleFunc("POST /api/items/amount", s.handleUpdateAmount)
	api.HandleFunc("POST /api/items/name", s.handleUpdateName)
	api.HandleFunc("POST /api/items/classification", s.handleUpdateClassification)
	api.HandleFunc("POST /api/items/due-date", s.handleSetDueDate)
	api.HandleFunc("POST /api/items/move", s.handleMoveItem)
	api.HandleFunc("POST /api/items", s.handleAddItem)
	api.HandleFunc("DELETE /api/items", s.handleDeleteItem)
	api.HandleFunc("POST /api/reset", s.handleReset)

	mutating := func(r *http.Request) bool { return r.Method != http.MethodGet && r.Method != http.MethodHead }
	userKey := func(r *http.Request) string { return auth.UserID(r.Context()) }
	protected := authn.Middleware(s.limiter.Middleware(userKey, mutating, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(api))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", protected)

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, detector.ClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
