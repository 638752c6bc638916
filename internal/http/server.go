package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

// Options configures a Server.
type Options struct {
	Addr               string
	Version            string
	HideInternalErrors bool

	Credentials *service.Credentials
	Catalog     *service.Catalog
	Tokens      *auth.TokenService
	// DB backs the /status endpoint. It may be nil.
	DB StatusSource
}

// Server represents the HTTP server of the API.
type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	metrics *Metrics
}

// NewServer creates a new HTTP server.
func NewServer(opts Options, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "http").Logger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)

	handlers := NewHandlers(opts.Credentials, opts.Catalog, metrics, opts.HideInternalErrors, logger)
	status := NewStatusHandler(opts.DB, opts.Catalog, metrics, opts.Version)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger, metrics))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, world!")
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/status", status.Status)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/create", handlers.Register)
		authGroup.POST("/login", handlers.Login)
	}

	protected := RequireToken(opts.Tokens)

	providers := router.Group("/providers")
	{
		providers.GET("", handlers.ListProviders)
		providers.POST("", protected, handlers.CreateProvider)
		providers.GET("/:id", handlers.GetProvider)
		providers.PUT("/:id", protected, handlers.UpdateProvider)
		providers.DELETE("/:id", protected, handlers.DeleteProvider)
		providers.GET("/:id/zones", handlers.ListProviderZones)
		providers.POST("/:id/zones", protected, handlers.AddZonesToProvider)
		providers.DELETE("/:id/zones/:zone_id", protected, handlers.RemoveZoneFromProvider)
		providers.GET("/:id/prices", handlers.ListProviderPrices)
		providers.POST("/:id/prices", protected, handlers.CreatePrice)
	}
	router.GET("/providers-with-zones", handlers.ListProvidersWithZones)

	zones := router.Group("/zones")
	{
		zones.GET("", handlers.ListZones)
		zones.POST("", protected, handlers.CreateZone)
		zones.GET("/:id", handlers.GetZone)
		zones.PUT("/:id", protected, handlers.UpdateZone)
		zones.DELETE("/:id", protected, handlers.DeleteZone)
	}

	prices := router.Group("/prices")
	{
		prices.GET("", handlers.ListPrices)
		prices.GET("/:id", handlers.GetPrice)
		prices.DELETE("/:id", protected, handlers.DeletePrice)
	}

	runs := router.Group("/scraping-runs")
	{
		runs.GET("", handlers.ListScrapingRuns)
		runs.POST("", protected, handlers.CreateScrapingRun)
		runs.GET("/last", handlers.LastScrapingRun)
	}

	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Metrics returns the Prometheus metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
