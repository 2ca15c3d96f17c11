package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/valeclub/valeclub-backend/api"
	"github.com/valeclub/valeclub-backend/api/routes"
	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/internal/establishments"
	"github.com/valeclub/valeclub-backend/internal/identity"
	"github.com/valeclub/valeclub-backend/internal/members"
	"github.com/valeclub/valeclub-backend/internal/notifications"
	"github.com/valeclub/valeclub-backend/internal/partners"
	"github.com/valeclub/valeclub-backend/internal/vouchers"
	"github.com/valeclub/valeclub-backend/internal/webhooks"
	squarewebhook "github.com/valeclub/valeclub-backend/internal/webhooks/square"
	stripewebhook "github.com/valeclub/valeclub-backend/internal/webhooks/stripe"
	"github.com/valeclub/valeclub-backend/pkg/cache"
	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/metrics"
	"github.com/valeclub/valeclub-backend/pkg/migrate"
	"github.com/valeclub/valeclub-backend/pkg/outbox"
	"github.com/valeclub/valeclub-backend/pkg/redis"
	pkgsquare "github.com/valeclub/valeclub-backend/pkg/square"
	pkgstripe "github.com/valeclub/valeclub-backend/pkg/stripe"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	squareClient, err := pkgsquare.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap square", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	memberRepo := members.NewRepository(gormDB)
	partnerRepo := partners.NewRepository(gormDB)
	establishmentRepo := establishments.NewRepository(gormDB)
	voucherRepo := vouchers.NewRepository(gormDB)
	subscriptionRepo := entitlements.NewRepository(gormDB)
	parkedRepo := entitlements.NewParkedEventRepository(gormDB)
	planRepo := entitlements.NewPlanRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	resolver, err := identity.NewResolver(memberRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create identity resolver", err)
		os.Exit(1)
	}

	planResolver, err := entitlements.NewPlanResolver(
		planRepo,
		map[enums.PaymentProvider]entitlements.ProviderCatalog{
			enums.PaymentProviderStripe: entitlements.NewStripeCatalog(stripeClient),
		},
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create plan resolver", err)
		os.Exit(1)
	}

	registry := prometheus.DefaultRegisterer

	entitlementService, err := entitlements.NewService(entitlements.ServiceParams{
		Repo:              subscriptionRepo,
		Parked:            parkedRepo,
		Partners:          partnerRepo,
		Members:           memberRepo,
		Resolver:          resolver,
		Plans:             planResolver,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Metrics:           metrics.NewReconcilerMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create entitlement service", err)
		os.Exit(1)
	}

	voucherService, err := vouchers.NewService(vouchers.ServiceParams{
		Repo:              voucherRepo,
		Establishments:    establishmentRepo,
		Partners:          partnerRepo,
		Entitlements:      subscriptionRepo,
		Resolver:          resolver,
		Notifications:     notificationRepo,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Config:            cfg.Vouchers,
		Metrics:           metrics.NewVoucherMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create voucher service", err)
		os.Exit(1)
	}

	listingCache := cache.New(redisClient, logg, cfg.Cache.StaleWindow)
	establishmentService, err := establishments.NewService(establishmentRepo, listingCache, cfg.Cache)
	if err != nil {
		logg.Error(ctx, "failed to create establishments service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reconciler:   entitlementService,
		StripeClient: stripewebhook.NewStripeClient(stripeClient),
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	squareWebhookService, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Reconciler:   entitlementService,
		SquareClient: squareClient,
	})
	if err != nil {
		logg.Error(ctx, "failed to create square webhook service", err)
		os.Exit(1)
	}

	stripeGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Cache.WebhookTTL, "webhooks:stripe")
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook guard", err)
		os.Exit(1)
	}
	squareGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Cache.WebhookTTL, "webhooks:square")
	if err != nil {
		logg.Error(ctx, "failed to create square webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		voucherService,
		establishmentService,
		notificationService,
		entitlementService,
		stripeClient,
		stripeWebhookService,
		stripeGuard,
		squareClient,
		squareWebhookService,
		squareGuard,
	)

	if err := api.NewServer(addr, handler).Run(ctx); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server stopped")
}
