package main

import (
	"context"
	"log"

	"recap-mail/config"
	"recap-mail/internal/app"
	"recap-mail/internal/redis"
	"recap-mail/internal/server"
	"recap-mail/pkg/database"
	"recap-mail/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode, logger.WithLevel(cfg.LogLevel))
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, l)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	subs, drafts, webhooks := a.Handlers()

	srv := server.New(cfg, l).
		AddHealthCheck("database", func(context.Context) error { return database.HealthCheck() }).
		AddHealthCheck("redis", func(ctx context.Context) error { return redis.Ping(ctx, a.Redis) })
	if cfg.MetricsEnabled {
		srv.WithMetrics(a.Registry)
	}
	srv.SetupRoutes(&server.Handlers{
		Subscription: subs,
		Draft:        drafts,
		Webhook:      webhooks,
	}, a.Auth, a.Limiter)

	if err := srv.Start(); err != nil {
		l.Errorf("server stopped with error: %v", err)
	}
}
