package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/visionkart/storefront-backend/api/routes"
	cartsvc "github.com/visionkart/storefront-backend/internal/cart"
	"github.com/visionkart/storefront-backend/internal/cartstore"
	checkoutsvc "github.com/visionkart/storefront-backend/internal/checkout"
	"github.com/visionkart/storefront-backend/internal/commerce"
	"github.com/visionkart/storefront-backend/internal/reconcile"
	"github.com/visionkart/storefront-backend/pkg/config"
	"github.com/visionkart/storefront-backend/pkg/logger"
	"github.com/visionkart/storefront-backend/pkg/metrics"
	"github.com/visionkart/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	commerceClient, err := commerce.NewClient(cfg.Commerce, cfg.Checkout, logg, metrics.NewGatewayMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to create commerce client", err)
		os.Exit(1)
	}

	snapshotStore, err := cartstore.New(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	cartManager, err := cartsvc.NewManager(commerceClient, snapshotStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}
	if err := cartManager.Load(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to restore cart mirror", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(cartManager, commerceClient, snapshotStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	if err := checkoutService.Load(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to restore checkout session", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewService(
		checkoutService,
		commerceClient,
		logg,
		metrics.NewReconcileMetrics(registry),
		cfg.Checkout.SettleDelay,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, commerceClient, registry, routes.Services{
			Cart:       cartManager,
			Checkout:   checkoutService,
			Orders:     commerceClient,
			Addresses:  commerceClient,
			Reconciler: reconciler,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
