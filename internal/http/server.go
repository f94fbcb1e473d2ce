// Package http serves the budget dashboard: one embedded HTML page and a
// JSON API over the monthly cost aggregator.
//
// Every request runs under one mutex, so a view change and the queries that
// follow it never interleave with another client's change.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"myfinances/internal/costs"
	"myfinances/internal/log"
	"myfinances/internal/middleware/ratelimit"
	"myfinances/internal/middleware/security"
	"myfinances/internal/middleware/trace"
	"myfinances/internal/sheets"
	appweb "myfinances/web"
)

type Server struct {
	http.Server

	mu        sync.Mutex
	costs     *costs.MonthlyCosts
	reports   sheets.ReportWriter
	templates *template.Template
	logger    *log.Logger
	events    *log.StructuredLogger
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

type Option func(*serverOptions)

type serverOptions struct {
	logger    *log.Logger
	reports   sheets.ReportWriter
	rateLimit ratelimit.Config
}

func WithLogger(l *log.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithReportWriter enables POST /api/export.
func WithReportWriter(w sheets.ReportWriter) Option {
	return func(o *serverOptions) { o.reports = w }
}

// WithRateLimit limits view changes per client.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *serverOptions) { o.rateLimit = cfg }
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, mc *costs.MonthlyCosts, opts ...Option) *Server {
	o := serverOptions{rateLimit: ratelimit.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	} else {
		logger = logger.WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		costs:       mc,
		reports:     o.reports,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(o.rateLimit, logger),
		detector:    security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.locked(s.handleIndex))

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(s.locked(h)))
	}
	mutation := func(pattern string, h http.HandlerFunc) {
		limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP)
		mux.Handle(pattern, security.NoStore(limited(s.locked(h))))
	}

	api("GET /api/range", s.handleGetRange)
	api("GET /api/transactions", s.handleTransactions)
	api("GET /api/summary", s.handleSummary)
	api("GET /api/labels", s.handleLabels)
	api("GET /api/labels/{label}", s.handleLabel)
	api("GET /api/income", s.handleIncome)
	api("GET /api/monthly", s.handleMonthly)
	api("GET /api/daily", s.handleDaily)

	mutation("PUT /api/range", s.handleSetRange)
	mutation("PUT /api/split-day", s.handleSetSplitDay)
	mutation("PUT /api/active-labels", s.handleSetActiveLabels)
	mutation("PUT /api/active-sublabels", s.handleSetActiveSublabels)
	mutation("POST /api/drop", s.handleDrop)
	mutation("POST /api/export", s.handleExport)

	var handler http.Handler = mux
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// locked serialises h with every other view request.
func (s *Server) locked(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		h(w, r)
	}
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
