package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zombiefinance/internal/auth"
	"zombiefinance/internal/core"
	"zombiefinance/internal/ledger"
	"zombiefinance/internal/log"
	"zombiefinance/internal/metrics"
	appweb "zombiefinance/web"
)

// Options configures a Server. Ledger is required; Auth may be nil, in
// which case the account page is not mounted.
type Options struct {
	Addr           string
	Ledger         *ledger.Store
	Auth           *auth.Provider
	Currency       string
	MetricsEnabled bool
	RateLimit      int
	// Ready reports backend readiness for /readyz.
	Ready  func(context.Context) error
	Logger *log.Logger
}

// Server is the web front of one ledger store. All ledger access goes
// through mu, so each request's action completes before the next starts.
type Server struct {
	http.Server

	mu       sync.Mutex
	ledger   *ledger.Store
	auth     *auth.Provider
	currency string
	ready    func(context.Context) error

	templates   *template.Template
	rateLimiter *rateLimiter
	logger      *log.Logger
	events      *log.StructuredLogger
}

// NewServer parses the embedded templates and wires the routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Ledger == nil {
		return nil, errors.New("http: ledger store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ledger:      opts.Ledger,
		auth:        opts.Auth,
		currency:    opts.Currency,
		ready:       opts.Ready,
		templates:   t,
		rateLimiter: newRateLimiter(opts.RateLimit),
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
	}
	if s.currency == "" {
		s.currency = core.DefaultCurrency
	}
	go s.rateLimiter.startCleanup(5 * time.Minute)

	s.Addr = opts.Addr
	s.Handler = s.routes(opts.MetricsEnabled)
	s.ReadHeaderTimeout = 10 * time.Second
	return s, nil
}

func (s *Server) routes(metricsEnabled bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(withRequestID)
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(requestIDHeader) }))
	r.Use(s.withObservability)
	r.Use(s.withSecurityHeaders)
	r.Use(s.withRateLimit)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		})
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/screen/{screen}", s.handleScreen)
	r.Post("/income", s.handleIncome)
	r.Post("/expenses/{category}", s.handleExpense)
	r.Get("/api/summary", s.handleSummary)

	if s.auth != nil {
		r.Get("/auth", s.handleAuthPage)
		r.Post("/auth", s.handleAuthAction)
	}
	return r
}

// Shutdown stops the limiter cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

const requestIDHeader = "X-Request-ID"

// withRequestID keeps a well-formed incoming request id or assigns a new
// uuid, and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// withObservability logs and counts every request by its route pattern.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.ObserveRequest(route, r.Method, status, elapsed)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogHTTPEnd(r.Context(), r, route, status, elapsed.Milliseconds(), extractClientIP(r))
	})
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if detectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, extractClientIP(r), log.FieldPath, r.URL.Path)
		}
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the per-client budget to POST requests.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			clientIP := extractClientIP(r)
			if !s.rateLimiter.allow(clientIP) {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes name into a buffer first so a template error can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentHTTP, log.OpRender,
			log.LogFields{"template": name})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
