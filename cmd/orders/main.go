package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/labcelsanantonio-byte/LABCEL/internal/catalog"
	"github.com/labcelsanantonio-byte/LABCEL/internal/config"
	"github.com/labcelsanantonio-byte/LABCEL/internal/identity"
	"github.com/labcelsanantonio-byte/LABCEL/internal/messaging"
	"github.com/labcelsanantonio-byte/LABCEL/internal/notify"
	"github.com/labcelsanantonio-byte/LABCEL/internal/orders"
	"github.com/labcelsanantonio-byte/LABCEL/internal/storage"
	"github.com/labcelsanantonio-byte/LABCEL/internal/telemetry"
)

const sessionPurgeInterval = time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("orders", "8081")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := config.Require(map[string]string{
		"POSTGRES_URL":        cfg.PostgresURL,
		"CATALOG_SERVICE_URL": cfg.CatalogServiceURL,
		"AUTH_PROVIDER_URL":   cfg.AuthProviderURL,
	}); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL, cfg.PostgresSchema)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	var publisher orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.OrderTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	var sessionCache identity.SessionCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		sessionCache = identity.NewRedisSessionCache(rdb)
	}

	identitySvc := identity.NewService(
		identity.NewRepository(db),
		identity.NewProvider(cfg.AuthProviderURL, httpClient),
		sessionCache,
		cfg.SessionTTL,
		cfg.SessionCacheTTL,
		logger,
	)
	identitySvc.PromoteOnLogin(cfg.AdminEmails...)

	notificationLog := notify.NewLogRepository(db)
	dispatcher, err := notify.NewDispatcher(notify.ConfiguredSenders(cfg, httpClient, logger), notificationLog, cfg.ChannelTimeout, logger,
		notify.WithPublicBaseURL(cfg.PublicBaseURL))
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(
		orders.NewOrderRepository(db),
		catalog.NewClient(cfg.CatalogServiceURL, httpClient),
		publisher,
		dispatcher,
		logger,
	)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	identityHandler := identity.NewHandler(identitySvc, !cfg.IsDevelopment(), logger)
	orderHandler := orders.NewHandler(orderSvc, identitySvc, logger)
	notificationHandler := notify.NewHandler(notificationLog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", telemetry.HandleHealth)
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /auth/session", telemetry.WithHTTPRoute(identityHandler.HandleSession))
	mux.HandleFunc("GET /auth/me", telemetry.WithHTTPRoute(identityHandler.HandleMe))
	mux.HandleFunc("POST /auth/logout", telemetry.WithHTTPRoute(identityHandler.HandleLogout))
	mux.HandleFunc("GET /users", telemetry.WithHTTPRoute(identityHandler.HandleListUsers))
	mux.HandleFunc("PUT /users/{id}", telemetry.WithHTTPRoute(identityHandler.HandleUpdateUser))
	mux.HandleFunc("PUT /users/{id}/role", telemetry.WithHTTPRoute(identityHandler.HandleSetRole))

	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("GET /orders/track/{id}", telemetry.WithHTTPRoute(orderHandler.HandleTrack))
	mux.HandleFunc("GET /track/{id}", telemetry.WithHTTPRoute(orderHandler.HandleTrack))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("PATCH /orders/{id}/approve-design", telemetry.WithHTTPRoute(orderHandler.HandleApproveDesign))
	mux.HandleFunc("POST /orders/{id}/design-proposal", telemetry.WithHTTPRoute(orderHandler.HandleDesignProposal))

	mux.HandleFunc("GET /admin/stats", telemetry.WithHTTPRoute(orderHandler.HandleStats))
	mux.HandleFunc("GET /admin/notifications", telemetry.WithHTTPRoute(notificationHandler.HandleList))

	if cfg.Storage.Bucket != "" {
		store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			logger.Error("failed to create image store", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Error("failed to prepare image bucket", "error", err)
			os.Exit(1)
		}
		uploadHandler := storage.NewHandler(store, logger)
		mux.HandleFunc("POST /uploads/image", telemetry.WithHTTPRoute(uploadHandler.HandleUpload))
		mux.HandleFunc("GET /uploads/image/{id}", telemetry.WithHTTPRoute(uploadHandler.HandleGet))
	} else {
		logger.Warn("STORAGE_BUCKET not set, image uploads are disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.InstrumentServer(identity.Middleware(identitySvc, logger)(mux), "orders"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go purgeSessions(ctx, identitySvc, logger)

	go func() {
		logger.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func purgeSessions(ctx context.Context, svc *identity.Service, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions purged", "count", n)
			}
		}
	}
}
