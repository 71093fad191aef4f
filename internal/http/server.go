// Package http serves the JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API. Verifier, Limiter, Metrics and
// Health may be nil.
type Deps struct {
	Recurring *services.RecurringService
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService
	Team      *services.TeamService
	Verifier  *auth.Verifier
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
	Health    Pinger
	Clock     core.Clock
	Logger    *log.Logger
}

type Server struct {
	http.Server
	deps         Deps
	shutdownOnce sync.Once
}

// NewServer registers the routes and the middleware chain, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	s := &Server{deps: deps}

	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	s.handle(mux, "GET /api/recurring", s.handleListRecurring)
	s.handle(mux, "POST /api/recurring", s.handleCreateRecurring)
	s.handle(mux, "GET /api/expenses", s.handleListExpenses)
	s.handle(mux, "POST /api/expenses", s.handleCreateExpense)
	s.handle(mux, "GET /api/expenses/export", s.handleExportExpenses)
	s.handle(mux, "GET /api/dashboard", s.handleDashboard)
	s.handle(mux, "GET /api/team", s.handleListTeam)
	s.handle(mux, "POST /api/team", s.handleCreateTeamMember)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	var h http.Handler = mux
	if deps.Verifier != nil {
		h = deps.Verifier.Middleware(h)
	}
	if deps.Limiter != nil {
		h = deps.Limiter.Middleware(clientIP, s.onRateLimit)(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(clientIP).Middleware(h)
	h = log.Middleware(deps.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// handle registers fn under pattern and records its latency and status.
func (s *Server) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &trace.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		fn(rw, r)
		s.deps.Metrics.ObserveHTTP(route, r.Method, rw.Status, time.Since(start))
	}))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.deps.Limiter != nil {
			s.deps.Limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// clientIP prefers proxy headers, then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
