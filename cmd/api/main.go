package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skirental/internal/api"
	"skirental/internal/config"
	"skirental/internal/database"
	"skirental/internal/domain"
	"skirental/internal/events"
	"skirental/internal/export"
	"skirental/internal/logging"
	"skirental/internal/metrics"
	"skirental/internal/notify"
	"skirental/internal/repository"
	"skirental/internal/service"
	"skirental/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := service.NewCatalogService(db, logging.Component(logger, "catalog"))
	seedCatalog(ctx, catalog, logger)

	redisClient, sessions := initSessions(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	publisher, pool, err := initPublisher(cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	notifier := worker.NewNotificationWorker(db, publisher, redisClient,
		worker.RetryPolicyFromConfig(cfg.Notifications.Retry),
		worker.Options{
			QueueSize:    cfg.Notifications.QueueSize,
			PollInterval: config.Duration(cfg.Notifications.PollInterval),
		},
		logger,
	)
	go notifier.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, logging.Component(logger, "audit"))

	svcLogger := logging.Component(logger, "service")
	services := api.Services{
		Carts:     service.NewCartService(sessions, db, db, eventBus, cfg.Booking.DefaultTaxRate, svcLogger),
		Bookings:  service.NewBookingService(sessions, db, db, notifier, eventBus, svcLogger),
		Returns:   service.NewReturnService(db, db, notifier, eventBus, svcLogger),
		Customers: service.NewCustomerService(db, db, sessions, eventBus, svcLogger),
		Listings:  service.NewListingService(db, sessions, svcLogger),
		Catalog:   catalog,
		Exporter:  export.NewExporter(cfg.Exports.Path, logging.Component(logger, "export")),
		Ping:      db.PingContext,
	}

	backup := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backup.Start(ctx)

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg, services, logger)
	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

// seedCatalog imports the catalog file when one is present. A missing file is not an error:
// the catalog may be managed through the seed script instead.
func seedCatalog(ctx context.Context, catalog *service.CatalogService, logger *zerolog.Logger) {
	path := os.Getenv("CATALOG_PATH")
	if path == "" {
		path = "configs/catalog.yaml"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info().Str("catalog_path", path).Msg("no catalog file, skipping import")
		return
	}

	file, err := config.LoadCatalog(path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", path).Msg("load catalog")
		return
	}
	if _, _, err := catalog.ImportEquipment(ctx, file.Equipment); err != nil {
		logger.Error().Err(err).Msg("import equipment")
	}
	if err := catalog.ImportEmployers(ctx, file.Employers); err != nil {
		logger.Error().Err(err).Msg("import employers")
	}
}

// initSessions puts the redis store in front of an in-memory fallback. Without a redis
// address the process keeps sessions in memory only.
func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	opts := repository.SessionOptions{
		CartTTL:  config.Duration(cfg.Booking.CartTTL),
		LockTTL:  config.Duration(cfg.Booking.LockTTL),
		LockWait: config.Duration(cfg.Booking.LockWait),
	}
	fallback := repository.NewMemorySessionRepository(opts)
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis address is empty, sessions are kept in memory")
		return nil, fallback
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, starting on the memory fallback")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisSessionRepository(client, opts)
	return client, repository.NewFailoverSessionRepository(primary, fallback, logging.Component(logger, "sessions"))
}

func initPublisher(cfg *config.Config, logger *zerolog.Logger) (notify.Publisher, *notify.ChannelPool, error) {
	if !cfg.Notifications.Enabled {
		logger.Warn().Msg("notifications are disabled, messages are only logged")
		return notify.NewLogPublisher(logging.Component(logger, "notify")), nil, nil
	}

	pool, err := notify.NewChannelPool(cfg.Notifications.AMQPURL, cfg.Notifications.Queue,
		cfg.Notifications.ChannelPoolSize, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Error().Err(err).Msg("create amqp channel pool")
		return nil, nil, err
	}
	return notify.NewAMQPPublisher(pool), pool, nil
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	rentHandler := func(ev *events.Event) error {
		var payload events.RentEventPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Int64("rental_id", payload.RentalID).
			Str("identifier", payload.IssuedIdentifier).
			Str("return_identifier", payload.ReturnIdentifier).
			Int64("employer_id", payload.EmployerID).
			Int64("total_gross_price", payload.TotalGrossPrice).
			Msg("rental event")
		return nil
	}
	bus.Subscribe(events.EventRentCreated, rentHandler)
	bus.Subscribe(events.EventRentReturned, rentHandler)

	bus.Subscribe(events.EventCustomerDeleted, func(ev *events.Event) error {
		var payload events.CustomerDeletedPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Int64("customer_id", payload.CustomerID).
			Int64("deleted_by", payload.DeletedBy).
			Ints64("deleted_rentals", payload.DeletedRentalIDs).
			Int("detached_rentals", payload.DetachedRentals).
			Int("released_units", payload.ReleasedUnits).
			Msg("customer deleted")
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.API.HTTP.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
