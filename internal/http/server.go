package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// TransactionService is the write and listing side of the API.
type TransactionService interface {
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) (core.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]core.Transaction, error)
	ListByFestival(ctx context.Context, userID, festival string) ([]core.Transaction, error)
	Summary(ctx context.Context, userID string) (core.Summary, error)
	FestivalSummary(ctx context.Context, userID, festival string) (core.Summary, error)
}

// AnalyticsService serves the aggregate views.
type AnalyticsService interface {
	CategoryBreakdown(ctx context.Context, userID string, w core.Window) ([]analytics.CategoryBreakdown, error)
	SpendingTrends(ctx context.Context, userID string, w core.Window) ([]analytics.TrendPoint, error)
	TopCategories(ctx context.Context, userID string, w core.Window, limit int) ([]analytics.TopCategory, error)
	MonthlyComparison(ctx context.Context, userID string) (analytics.MonthlyComparison, error)
	Dashboard(ctx context.Context, userID string, w core.Window) (analytics.Dashboard, error)
	Stats() services.CacheStats
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Transactions TransactionService
	Analytics    AnalyticsService
	Store        Pinger
	Logger       *log.Logger

	RateLimitPerMinute int
	CORSAllowedOrigin  string
}

type Server struct {
	http.Server
	transactions TransactionService
	analytics    AnalyticsService
	store        Pinger
	logger       *log.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		transactions: deps.Transactions,
		analytics:    deps.Analytics,
		store:        deps.Store,
		logger:       logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Logger:            logger,
		}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector: detector,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/{userId}", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/summary/{userId}", s.handleSummary)
	mux.HandleFunc("GET /api/transactions/festival/{festival}/{userId}", s.handleListFestival)
	mux.HandleFunc("GET /api/transactions/festival-summary/{festival}/{userId}", s.handleFestivalSummary)

	mux.HandleFunc("GET /api/analytics/dashboard/{userId}", s.handleDashboard)
	mux.HandleFunc("GET /api/analytics/category-breakdown/{userId}", s.handleCategoryBreakdown)
	mux.HandleFunc("GET /api/analytics/trends/{userId}", s.handleSpendingTrends)
	mux.HandleFunc("GET /api/analytics/top-categories/{userId}", s.handleTopCategories)
	mux.HandleFunc("GET /api/analytics/monthly-comparison/{userId}", s.handleMonthlyComparison)

	// Outermost first: trace, headers, CORS, probe detection, rate limit.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP)(handler)
	handler = detector.Middleware(handler)
	handler = security.CORSMiddleware(security.DefaultCORSConfig(deps.CORSAllowedOrigin))(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown gracefully shuts down the server and the limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		OK(w, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "Database unavailable").Write(w)
		return
	}
	OK(w, map[string]string{"status": "ready"})
}

// handleMetrics exposes plain-text counters in the Prometheus exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "fintrack_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "fintrack_http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "fintrack_http_response_time_avg_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "fintrack_rate_limit_rejections_total %d\n", rm.TotalHits)
	fmt.Fprintf(w, "fintrack_rate_limit_clients %d\n", rm.ClientCount)
	fmt.Fprintf(w, "fintrack_suspicious_requests_total %d\n", dm.SuspiciousRequests)
	for _, f := range security.Findings {
		fmt.Fprintf(w, "fintrack_suspicious_requests_by_finding_total{finding=%q} %d\n", f, dm.ByFinding[f])
	}
	fmt.Fprintf(w, "fintrack_forwarded_ip_rejections_total %d\n", dm.InvalidIPAttempts)
	if s.analytics != nil {
		cs := s.analytics.Stats()
		fmt.Fprintf(w, "fintrack_analytics_cache_hits_total %d\n", cs.Hits)
		fmt.Fprintf(w, "fintrack_analytics_cache_misses_total %d\n", cs.Misses)
		fmt.Fprintf(w, "fintrack_analytics_cache_entries %d\n", cs.Entries)
	}
}

// requestLogger returns the request-scoped logger set by the trace middleware.
func (s *Server) requestLogger(r *http.Request, component string) *log.Logger {
	if l, ok := r.Context().Value(log.LoggerContextKey).(*log.Logger); ok {
		return l.WithComponent(component)
	}
	return s.logger.WithComponent(component)
}
