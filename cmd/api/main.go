package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/teakline/storefront-backend/api/controllers"
	"github.com/teakline/storefront-backend/api/routes"
	"github.com/teakline/storefront-backend/internal/cart"
	"github.com/teakline/storefront-backend/internal/checkout"
	"github.com/teakline/storefront-backend/internal/coupons"
	"github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/internal/payments"
	"github.com/teakline/storefront-backend/pkg/config"
	"github.com/teakline/storefront-backend/pkg/db"
	"github.com/teakline/storefront-backend/pkg/logger"
	"github.com/teakline/storefront-backend/pkg/migrate"
	"github.com/teakline/storefront-backend/pkg/outbox"
	"github.com/teakline/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
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
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	gormDB := dbClient.DB()
	cartRepo := cart.NewRepository(gormDB)
	couponRepo := coupons.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)

	cartService, err := cart.NewService(cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to build cart service", err)
		os.Exit(1)
	}
	couponsService, err := coupons.NewService(couponRepo, cartRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to build coupons service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(dbClient, cartRepo, couponRepo, ordersRepo, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, publisher, cfg.Checkout.CancellationWindow)
	if err != nil {
		logg.Error(context.Background(), "failed to build orders service", err)
		os.Exit(1)
	}
	gateway, err := payments.NewHTTPGateway(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment gateway", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(dbClient, ordersRepo, cartRepo, gateway, publisher, logg, payments.Config{
		KeyID:    cfg.Gateway.KeyID,
		Secret:   cfg.Gateway.Secret,
		Currency: cfg.Gateway.Currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build payments service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:           cfg,
		Logger:           logg,
		IdempotencyStore: redisClient,
		ReadyChecks: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		CartService:     cartService,
		CouponsService:  couponsService,
		CheckoutService: checkoutService,
		PaymentsService: paymentsService,
		OrdersService:   ordersService,
	})

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
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
