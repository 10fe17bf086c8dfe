package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/northwest-community/marketplace-backend/api"
	"github.com/northwest-community/marketplace-backend/api/controllers"
	"github.com/northwest-community/marketplace-backend/api/routes"
	"github.com/northwest-community/marketplace-backend/internal/checkout"
	"github.com/northwest-community/marketplace-backend/internal/ledger"
	"github.com/northwest-community/marketplace-backend/internal/listings"
	"github.com/northwest-community/marketplace-backend/internal/members"
	"github.com/northwest-community/marketplace-backend/internal/offers"
	"github.com/northwest-community/marketplace-backend/internal/orders"
	"github.com/northwest-community/marketplace-backend/internal/shipping"
	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/db"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
	"github.com/northwest-community/marketplace-backend/pkg/metrics"
	"github.com/northwest-community/marketplace-backend/pkg/migrate"
	"github.com/northwest-community/marketplace-backend/pkg/outbox"
	"github.com/northwest-community/marketplace-backend/pkg/redis"
	"github.com/northwest-community/marketplace-backend/pkg/shippo"
	"github.com/northwest-community/marketplace-backend/pkg/square"
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	shippoClient, err := shippo.NewClient(cfg.Shippo)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap shippo client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	membersRepo := members.NewRepository(dbClient.DB())
	listingsRepo := listings.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	shipmentsRepo := shipping.NewRepository(dbClient.DB())
	offersRepo := offers.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient, outboxService, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	listingsService, err := listings.NewService(listingsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(listingsRepo, membersRepo, ordersRepo, ledgerService, squareClient, outboxService, dbClient, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, listingsRepo, ledgerService, squareClient, outboxService, dbClient, cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	shippingService, err := shipping.NewService(shipmentsRepo, ordersRepo, membersRepo, shippoClient, outboxService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	offersService, err := offers.NewService(offersRepo, listingsRepo, outboxService, dbClient, cfg.Offers, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create offers service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Redis:    redisClient,
		Limiter:  redisClient,
		Registry: registry,
		HTTP:     httpMetrics,
		Checkout: checkoutService,
		Orders:   ordersService,
		Ledger:   ledgerService,
		Shipping: shippingService,
		Offers:   offersService,
		Listings: listingsService,
	})

	server := api.NewServer(cfg, router, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "api server shutdown failed", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			logg.Error(context.Background(), "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}
