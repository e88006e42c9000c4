package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"lori/internal/log"
	"lori/internal/middleware/security"
	"lori/internal/middleware/trace"
	"lori/internal/view"
	appweb "lori/web"
)

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

type Server struct {
	http.Server
	templates *template.Template
	ctrl      *view.Controller
	ready     map[string]ReadyCheck
	logger    *log.Logger

	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// appMetrics tracks application-specific counters.
type appMetrics struct {
	uptime          time.Time
	itemsAdded      int64
	swipesCommitted int64
	recapsStarted   int64
	resets          int64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentHTTP)
		}
	}
}

// WithReadyCheck adds a named dependency to /readyz.
func WithReadyCheck(name string, check ReadyCheck) ServerOption {
	return func(s *Server) {
		if check != nil {
			s.ready[name] = check
		}
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ctrl *view.Controller, opts ...ServerOption) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		ctrl:       ctrl,
		ready:      make(map[string]ReadyCheck),
		logger:     log.Nop(),
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.traceMiddleware = trace.NewMiddleware(s.logger, "/ui/gesture/", "/ui/recap/summary", "/static/", "/healthz")

	t, err := template.New("lori").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// UI partials
	s.ui(mux, "GET /ui/screen", s.handleScreen)
	s.ui(mux, "POST /ui/items/{id}/open", s.handleOpenItem)
	s.ui(mux, "POST /ui/items/{id}/increment", s.handleIncrement)
	s.ui(mux, "POST /ui/items/{id}/decrement", s.handleDecrement)
	s.ui(mux, "POST /ui/back", s.handleBack)
	s.ui(mux, "POST /ui/price/edit", s.handlePriceEdit)
	s.ui(mux, "POST /ui/price/cancel", s.handlePriceCancel)
	s.ui(mux, "POST /ui/price/save", s.handlePriceSave)
	s.ui(mux, "POST /ui/add", s.handleOpenAdd)
	s.ui(mux, "POST /ui/add/cancel", s.handleCancelAdd)
	s.ui(mux, "POST /ui/add/form", s.handleUpdateForm)
	s.ui(mux, "POST /items", s.handleCreateItem)
	s.ui(mux, "POST /ui/reset", s.handleRequestReset)
	s.ui(mux, "POST /ui/reset/confirm", s.handleConfirmReset)
	s.ui(mux, "POST /ui/recap", s.handleEnterRecap)
	s.ui(mux, "POST /ui/recap/continue", s.handleContinueRecap)
	s.ui(mux, "GET /ui/recap/summary", s.handleRecapSummary)
	s.ui(mux, "POST /ui/gesture/{id}/{phase}", log.ComponentMiddleware(log.ComponentGesture)(http.HandlerFunc(s.handleGesture)).ServeHTTP)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// ui registers a dynamic fragment handler that must never be cached.
func (s *Server) ui(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, security.NoStore(h))
}

// Shutdown gracefully shuts down the server, then applies committed row
// removals and stops background summaries.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		if s.ctrl != nil {
			s.ctrl.Close(ctx)
		}
	})

	return shutdownErr
}
