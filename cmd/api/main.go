package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ikrcommerce/ikr-backend/api/routes"
	"github.com/ikrcommerce/ikr-backend/internal/cart"
	"github.com/ikrcommerce/ikr-backend/internal/catalog"
	"github.com/ikrcommerce/ikr-backend/internal/checkout"
	"github.com/ikrcommerce/ikr-backend/internal/coupons"
	"github.com/ikrcommerce/ikr-backend/internal/orders"
	"github.com/ikrcommerce/ikr-backend/internal/payments"
	"github.com/ikrcommerce/ikr-backend/internal/pricing"
	mpesawebhook "github.com/ikrcommerce/ikr-backend/internal/webhooks/mpesa"
	"github.com/ikrcommerce/ikr-backend/pkg/config"
	"github.com/ikrcommerce/ikr-backend/pkg/db"
	"github.com/ikrcommerce/ikr-backend/pkg/logger"
	"github.com/ikrcommerce/ikr-backend/pkg/metrics"
	"github.com/ikrcommerce/ikr-backend/pkg/migrate"
	"github.com/ikrcommerce/ikr-backend/pkg/mpesa"
	"github.com/ikrcommerce/ikr-backend/pkg/outbox"
	"github.com/ikrcommerce/ikr-backend/pkg/redis"
)

const callbackClaimTTL = 24 * time.Hour

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	pricingEngine := pricing.NewEngine(cfg.Pricing)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(redisClient, catalogService)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupons service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, pricingEngine, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartService,
		catalogService,
		couponsService,
		ordersRepo,
		pricingEngine,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	gatewayMetrics := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)
	mpesaClient, err := mpesa.NewClient(
		cfg.Mpesa,
		cfg.Mpesa.CallbackURL(cfg.App.SiteDomain),
		mpesa.WithMetrics(gatewayMetrics),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mpesa client", err)
		os.Exit(1)
	}
	gateway, err := payments.NewMpesaGateway(mpesaClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		dbClient,
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		coupons.NewRepository(dbClient.DB()),
		gateway,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	callbackGuard, err := mpesawebhook.NewIdempotencyGuard(redisClient, callbackClaimTTL, "mpesa-callback")
	if err != nil {
		logg.Error(context.Background(), "failed to create callback guard", err)
		os.Exit(1)
	}
	webhookService, err := mpesawebhook.NewService(paymentsService, callbackGuard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			cartService,
			checkoutService,
			couponsService,
			ordersService,
			paymentsService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
