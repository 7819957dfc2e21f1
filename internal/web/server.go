// Package web serves the mirrored table to browsers and accepts renames,
// resizes, refresh requests and exports.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/JonMunkholm/tablemirror/internal/core"
	"github.com/JonMunkholm/tablemirror/internal/export"
	"github.com/JonMunkholm/tablemirror/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

const defaultKeepAlive = 15 * time.Second

// Options configures a Server.
type Options struct {
	Orchestrator *core.Orchestrator
	View         *View
	Exporter     *export.Serializer
	Clock        clockwork.Clock // Real clock if nil

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// RequestsPerMinute enables per-IP rate limiting when positive.
	RequestsPerMinute int
	TrustedProxies    []string

	// KeepAlive is the interval of comment frames on the event stream.
	KeepAlive time.Duration
}

// Server is the HTTP front end of the table mirror.
type Server struct {
	opts    Options
	orch    *core.Orchestrator
	view    *View
	export  *export.Serializer
	clock   clockwork.Clock
	limiter *rateLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a server and its routes.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	s := &Server{
		opts:   opts,
		orch:   opts.Orchestrator,
		view:   opts.View,
		export: opts.Exporter,
		clock:  opts.Clock,
		router: chi.NewRouter(),
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = newRateLimiter(opts.Clock, opts.RequestsPerMinute, time.Minute)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.limiter != nil {
		s.router.Use(s.limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	// The event stream is long-lived: no timeout, no compression buffering.
	s.router.Get("/api/events", s.handleEvents)

	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(s.opts.RequestTimeout))

		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

		r.Get("/", s.handlePage)
		r.Get("/partials/table", s.handleTablePartial)

		r.Route("/api", func(r chi.Router) {
			r.Get("/table", s.handleTable)
			r.Get("/status", s.handleStatus)
			r.Get("/export", s.handleExport)

			r.Post("/refresh", s.handleRefresh)
			r.Post("/signals", s.handleSignal)
			r.Post("/layout", s.handleLayout)
			r.Post("/columns/{index}/rename", s.handleRename)
			r.Post("/columns/{index}/width", s.handleResize)
		})
	})
}

// Start listens on addr until Shutdown is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	if s.limiter != nil {
		go s.limiter.run(ctx)
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
