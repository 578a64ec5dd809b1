// Package api provides the HTTP API the reader UI talks to.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/readup/internal/ratelimit"
	"github.com/listenupapp/readup/internal/sse"
)

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the server's outer surface.
type Options struct {
	AllowedOrigins []string
	Version        string
	// WriteRPS and WriteBurst throttle mutating requests per client. Zero
	// WriteRPS disables throttling.
	WriteRPS   int
	WriteBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	ledger     Pinger
	stateReady func() bool
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, ledger Pinger, stateReady func() bool, sseManager *sse.Manager, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(writeLimiter(ratelimit.New(float64(opts.WriteRPS), opts.WriteBurst), logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("ReadUp Progress API", opts.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		services:   services,
		ledger:     ledger,
		stateReady: stateReady,
		sseManager: sseManager,
		router:     router,
		api:        api,
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerCompletionRoutes()
	s.registerRunRoutes()
	s.registerReactionRoutes()
	s.registerSessionRoutes()
	s.registerStatsRoutes()

	// Streams and scrapes are not JSON operations.
	if s.sseManager != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.sseManager, s.logger).ServeHTTP)
	}
	s.router.Handle("/metrics", promhttp.Handler())
}
