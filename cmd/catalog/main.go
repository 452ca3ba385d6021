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

	"github.com/labcelsanantonio-byte/LABCEL/internal/catalog"
	"github.com/labcelsanantonio-byte/LABCEL/internal/config"
	"github.com/labcelsanantonio-byte/LABCEL/internal/identity"
	"github.com/labcelsanantonio-byte/LABCEL/internal/telemetry"
)

const catalogSchema = "catalog"

func main() {
	ctx := context.Background()

	cfg, err := config.Load("catalog", "8082")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := config.Require(map[string]string{
		"POSTGRES_URL":       cfg.PostgresURL,
		"ORDERS_SERVICE_URL": cfg.OrdersServiceURL,
	}); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL, catalogSchema)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Sessions live in the orders service; the catalog only needs to know
	// who is calling for its admin routes.
	sessions := identity.NewClient(cfg.OrdersServiceURL, telemetry.NewHTTPClient(5*time.Second))

	handler := catalog.NewHandler(catalog.NewRepository(db), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", telemetry.HandleHealth)
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleListProducts))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleGetProduct))
	mux.HandleFunc("POST /products", telemetry.WithHTTPRoute(handler.HandleCreateProduct))
	mux.HandleFunc("PUT /products/{id}", telemetry.WithHTTPRoute(handler.HandleUpdateProduct))
	mux.HandleFunc("DELETE /products/{id}", telemetry.WithHTTPRoute(handler.HandleDeleteProduct))
	mux.HandleFunc("GET /phone-brands", telemetry.WithHTTPRoute(handler.HandleListBrands))
	mux.HandleFunc("POST /phone-brands", telemetry.WithHTTPRoute(handler.HandleCreateBrand))
	mux.HandleFunc("GET /phone-models", telemetry.WithHTTPRoute(handler.HandleListModels))
	mux.HandleFunc("POST /phone-models", telemetry.WithHTTPRoute(handler.HandleCreateModel))
	mux.HandleFunc("POST /seed", telemetry.WithHTTPRoute(handler.HandleSeed))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      telemetry.InstrumentServer(identity.Middleware(sessions, logger)(mux), "catalog"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting catalog service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
