// Package http serves the transaction JSON API, the monthly report downloads
// and the embedded browser client.
package http

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"finansije/internal/core"
	applog "finansije/internal/log"
	"finansije/internal/report"
	"finansije/internal/services"
	appweb "finansije/web"
)

const maxBodyBytes = 1 << 20

// TransactionService is what the handlers need from the service layer.
type TransactionService interface {
	Create(ctx context.Context, in services.CreateInput) (core.Transaction, error)
	List(ctx context.Context, q core.ListQuery) (core.Page[core.Transaction], error)
	Delete(ctx context.Context, id string) error
	MonthlySummary(ctx context.Context, m core.Month) (core.MonthlySummary, error)
	MonthlyReport(ctx context.Context, m core.Month) (report.Document, error)
	Ready(ctx context.Context) error
}

type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

// Server embeds http.Server and owns the rate limiter's cleanup loop.
type Server struct {
	http.Server
	svc         TransactionService
	logger      *applog.Logger
	rateLimiter *rateLimiter
}

func NewServer(addr string, svc TransactionService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:         svc,
		logger:      logger,
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/summary/{month}/{year}", s.handleMonthlySummary)
	mux.HandleFunc("GET /api/transactions/summary/{month}/{year}/pdf", s.handleMonthlySummaryPDF)
	mux.HandleFunc("GET /api/transactions/summary/{month}/{year}/html", s.handleMonthlySummaryHTML)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("GET /", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	go s.rateLimiter.startCleanup(5 * time.Minute)
	return s
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	s.logger.Info("Shutting down HTTP server",
		applog.FieldOperation, applog.OpShutdown,
		"rate_limit_rejections", s.rateLimiter.rejectedCount())
	return s.Server.Shutdown(ctx)
}

// withMiddleware tags the request with an ID and a logger, applies security
// and CORS headers, rate limits writes and logs completion.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	withLogger := applog.Middleware(s.logger, func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w, r)
		setCORSHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		withLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			switch {
			case r.Method == http.MethodOptions:
				w.WriteHeader(http.StatusNoContent)
			case isWrite(r.Method) && !s.rateLimiter.allow(clientIP):
				applog.FromContext(ctx).WithComponent(applog.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
					applog.FieldClientIP, clientIP,
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			default:
				next.ServeHTTP(w, r)
			}
			applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		})).ServeHTTP(rw, r)
	})
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodDelete
}

// responseWriter records the status code for the request log.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ready(ctx); err != nil {
		applog.LogError(r.Context(), "Readiness check failed", err, applog.ComponentHTTP, "ready")
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
