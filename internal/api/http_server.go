package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skirental/internal/config"
	"skirental/internal/export"
	"skirental/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services are the operations the HTTP API exposes.
type Services struct {
	Carts     *service.CartService
	Bookings  *service.BookingService
	Returns   *service.ReturnService
	Customers *service.CustomerService
	Listings  *service.ListingService
	Catalog   *service.CatalogService
	Exporter  *export.Exporter
	// Ping reports whether the record store is reachable; nil skips the check.
	Ping func(ctx context.Context) error
}

type HTTPServer struct {
	cfg     config.APIConfig
	listing config.ListingConfig
	exports config.ExportConfig
	svc     Services
	auth    *HTTPAuth
	engine  *gin.Engine
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, svc Services, logger *zerolog.Logger) *HTTPServer {
	if cfg.API.HTTP.Mode != "" {
		gin.SetMode(cfg.API.HTTP.Mode)
	}

	srv := &HTTPServer{
		cfg:     cfg.API,
		listing: cfg.Listing,
		exports: cfg.Exports,
		svc:     svc,
		logger:  logger,
	}
	srv.auth = NewHTTPAuth(cfg.API, svc.Catalog, logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), loggingMiddleware(logger))
	engine.GET("/healthz", srv.handleHealthz)

	v1 := engine.Group("/api/v1", srv.auth.Middleware())
	srv.registerRoutes(v1)

	srv.engine = engine
	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) registerRoutes(r *gin.RouterGroup) {
	r.GET("/customers", s.handleCustomers)
	r.POST("/customers", s.handleCreateCustomer)
	r.DELETE("/customers/:id", s.handleDeleteCustomer)

	r.GET("/rents", s.handleRents)
	r.GET("/rents/export", s.handleRentsExport)
	r.POST("/rents/:id/return", s.handleReturnRent)
	r.GET("/returns", s.handleReturns)

	r.DELETE("/listing/:name/preferences", s.handleClearPreferences)
	r.GET("/equipment/:id/availability", s.handleAvailability)

	r.POST("/cart", s.handleStartCart)
	r.GET("/cart", s.handleGetCart)
	r.DELETE("/cart", s.handleCancelCart)
	r.POST("/cart/lines", s.handleAddLine)
	r.DELETE("/cart/lines/:equipmentId", s.handleRemoveLine)
	r.POST("/cart/commit", s.handleCommit)
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(c *gin.Context) {
	if s.svc.Ping != nil {
		if err := s.svc.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
