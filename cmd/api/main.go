package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tablewise-app/tablewise-backend/api/routes"
	"github.com/tablewise-app/tablewise-backend/internal/cart"
	"github.com/tablewise-app/tablewise-backend/internal/engine"
	"github.com/tablewise-app/tablewise-backend/internal/remote"
	"github.com/tablewise-app/tablewise-backend/internal/session"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
	"github.com/tablewise-app/tablewise-backend/pkg/metrics"
	"github.com/tablewise-app/tablewise-backend/pkg/mongo"
	"github.com/tablewise-app/tablewise-backend/pkg/redis"
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

	mongoClient, err := mongo.New(context.Background(), cfg.Mongo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mongo", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing mongo", err)
		}
	}()

	remoteStore, err := remote.NewMongoStore(mongoClient.Collection(cfg.Mongo.CartCollection))
	if err != nil {
		logg.Error(context.Background(), "failed to create remote cart store", err)
		os.Exit(1)
	}

	manager, err := engine.NewManager(engine.ManagerParams{
		Adapters: func(sessionID string) (session.Adapter, error) {
			return session.NewRedisAdapter(redisClient, sessionID, cfg.Session.CartTTL)
		},
		Remote:  remoteStore,
		Catalog: cart.NewCatalog(cfg.Promos.Entries),
		Logger:  logg,
		Metrics: metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
		Session: cfg.Session,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart engine manager", err)
		os.Exit(1)
	}
	defer manager.Close()

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
		Handler: routes.NewRouter(cfg, logg, manager, cart.RatesFromConfig(cfg.Pricing), redisClient, mongoClient),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
