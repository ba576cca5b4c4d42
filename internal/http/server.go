package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"receivables/internal/core"
	"receivables/internal/log"
	"receivables/internal/metrics"
	"receivables/internal/middleware/ratelimit"
	"receivables/internal/middleware/security"
	"receivables/internal/middleware/trace"
	"receivables/internal/services"
)

// LedgerAPI is the read/write surface behind the receivable and payment
// routes. *services.LedgerService implements it.
type LedgerAPI interface {
	ListReceivables(ctx context.Context, f core.ReceivableFilter) ([]core.ReceivableBalance, error)
	GetReceivable(ctx context.Context, id string) (core.ReceivableBalance, error)
	CreateReceivable(ctx context.Context, r core.Receivable) (core.Receivable, error)
	UpdateReceivable(ctx context.Context, id string, r core.Receivable) (core.Receivable, error)
	DeleteReceivable(ctx context.Context, id string) error

	ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error)
	ListPaymentsForReceivable(ctx context.Context, receivableID string) ([]core.Payment, error)
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// ReportAPI is the aggregate view surface. *services.ReportService
// implements it.
type ReportAPI interface {
	Customers(ctx context.Context) ([]core.CustomerSummary, error)
	Customer(ctx context.Context, name string) (services.CustomerDetail, error)
	Cities(ctx context.Context) ([]core.CitySummary, error)
	Dashboard(ctx context.Context) (core.Dashboard, error)
	Report(ctx context.Context, q services.ReportQuery) (core.Report, error)
	FilterOptions(ctx context.Context) (services.FilterOptions, error)
}

// Options configures NewServer. A zero RateLimitPerMinute disables rate
// limiting; a nil Metrics disables /metrics and request observation.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	Metrics            *metrics.Metrics
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger  LedgerAPI
	reports ReportAPI
	metrics *metrics.Metrics

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, ledger LedgerAPI, reports ReportAPI) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:   ledger,
		reports:  reports,
		metrics:  opts.Metrics,
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	// A nil *metrics.Metrics must not become a non-nil Observer.
	var observer trace.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, observer)

	if opts.RateLimitPerMinute > 0 {
		cfg := ratelimit.DefaultConfig()
		cfg.RequestsPerMinute = opts.RateLimitPerMinute
		cfg.OnDenied = opts.Metrics.RecordRateLimited
		s.rateLimiter = ratelimit.NewLimiter(cfg)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = trace.RecordRoute(jsonFallback(mux))
	handler = s.limitAPI(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(logger.WithComponent(log.ComponentHTTP))(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/receivables", s.handleListReceivables)
	mux.HandleFunc("POST /api/receivables", s.handleCreateReceivable)
	mux.HandleFunc("GET /api/receivables/{id}", s.handleGetReceivable)
	mux.HandleFunc("PUT /api/receivables/{id}", s.handleUpdateReceivable)
	mux.HandleFunc("DELETE /api/receivables/{id}", s.handleDeleteReceivable)
	mux.HandleFunc("GET /api/receivables/{id}/payments", s.handleListReceivablePayments)

	mux.HandleFunc("GET /api/payments", s.handleListPayments)
	mux.HandleFunc("POST /api/payments", s.handleCreatePayment)
	mux.HandleFunc("GET /api/payments/{id}", s.handleGetPayment)
	mux.HandleFunc("PUT /api/payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)

	mux.HandleFunc("GET /api/customers", s.handleCustomers)
	mux.HandleFunc("GET /api/customers/{name}", s.handleCustomer)
	mux.HandleFunc("GET /api/cities", s.handleCities)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/reports/customers.csv", s.handleCustomersCSV)
	mux.HandleFunc("GET /api/reports/cities.csv", s.handleCitiesCSV)
	mux.HandleFunc("GET /api/filters", s.handleFilters)
}

// limitAPI applies the rate limiter to /api/ only; probes and scrapes are
// never throttled.
func (s *Server) limitAPI(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jsonFallback replaces the mux's plain-text 404 and 405 replies with JSON
// errors.
func jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(&fallbackWriter{ResponseWriter: w}, r)
	})
}

type fallbackWriter struct {
	http.ResponseWriter
	replaced bool
}

func (fw *fallbackWriter) WriteHeader(code int) {
	switch code {
	case http.StatusNotFound:
		fw.replaced = true
		NotFoundError("Not found").Write(fw.ResponseWriter)
	case http.StatusMethodNotAllowed:
		fw.replaced = true
		MethodNotAllowedError(fw.Header().Get("Allow")).Write(fw.ResponseWriter)
	default:
		fw.ResponseWriter.WriteHeader(code)
	}
}

func (fw *fallbackWriter) Write(b []byte) (int, error) {
	if fw.replaced {
		return len(b), nil
	}
	return fw.ResponseWriter.Write(b)
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
