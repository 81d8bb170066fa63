package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kalamandir/kalamandir-backend/api/routes"
	"github.com/kalamandir/kalamandir-backend/internal/orders"
	"github.com/kalamandir/kalamandir-backend/internal/orphans"
	"github.com/kalamandir/kalamandir-backend/internal/reconcile"
	"github.com/kalamandir/kalamandir-backend/internal/sequence"
	"github.com/kalamandir/kalamandir-backend/internal/sweep"
	razorpaywebhook "github.com/kalamandir/kalamandir-backend/internal/webhooks/razorpay"
	"github.com/kalamandir/kalamandir-backend/pkg/config"
	"github.com/kalamandir/kalamandir-backend/pkg/db"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/migrate"
	"github.com/kalamandir/kalamandir-backend/pkg/razorpay"
	"github.com/kalamandir/kalamandir-backend/pkg/redis"
)

// webhookDedupeTTL keeps delivery marks long enough to absorb the gateway's
// full redelivery schedule.
const webhookDedupeTTL = 48 * time.Hour

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

	gateway, err := razorpay.NewClient(cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	orphansRepo := orphans.NewRepository(dbClient.DB())

	counter, err := sequence.NewCounter(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence counter", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, counter, gateway, cfg.Orders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewService(ordersRepo, orphansRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	webhookGuard, err := razorpaywebhook.NewIdempotencyGuard(redisClient, webhookDedupeTTL, "razorpay-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	// Admin-triggered sweeps share the worker's implementation but run
	// without metrics; only the scheduled worker exports them.
	orphanSweeper, err := sweep.NewOrphanSweeper(sweep.OrphanSweeperParams{
		Logger:     logg,
		Orphans:    orphansRepo,
		Reconciler: reconciler,
		Limit:      cfg.Sweep.OrphanLimit,
		MaxRetries: cfg.Sweep.OrphanMaxRetries,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orphan sweeper", err)
		os.Exit(1)
	}
	timeoutSweeper, err := sweep.NewTimeoutSweeper(sweep.TimeoutSweeperParams{
		Logger:  logg,
		Orders:  ordersRepo,
		Timeout: time.Duration(cfg.Sweep.TimeoutMinutes) * time.Minute,
		Limit:   cfg.Sweep.TimeoutLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create timeout sweeper", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Gateway:        gateway,
			Reconciler:     reconciler,
			WebhookGuard:   webhookGuard,
			Orders:         ordersService,
			Orphans:        orphansRepo,
			OrphanSweeper:  orphanSweeper,
			TimeoutSweeper: timeoutSweeper,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
