package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/ports"
)

// Options tunes a Server. The zero value is usable.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	ReadHeaderTimeout  time.Duration
}

type Server struct {
	http.Server
	store       ports.RecordStore
	logger      *applog.Logger
	events      *applog.StructuredLogger
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires the record API routes over store, returning a
// ready-to-run http.Server.
func NewServer(addr string, store ports.RecordStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	readHeaderTimeout := opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 5 * time.Second
	}

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		store:       store,
		logger:      logger,
		events:      applog.NewStructuredLogger(logger),
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(limiterConfig),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var err error
	if p, ok := s.store.(ports.Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = s.store.List(ctx)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}
