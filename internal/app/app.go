// Package app builds the dependency graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"fmt"

	"recap-mail/config"
	"recap-mail/internal/completion"
	"recap-mail/internal/eventsapi"
	"recap-mail/internal/handler"
	"recap-mail/internal/observe"
	"recap-mail/internal/redis"
	"recap-mail/internal/repository"
	"recap-mail/internal/services"
	"recap-mail/internal/storage"
	"recap-mail/pkg/database"
	"recap-mail/pkg/events"
	"recap-mail/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Redis    *goredis.Client
	Broker   *events.RedisBroker
	Limiter  *redis.RateLimiter
	Archive  *storage.Client

	Users         repository.UserRepository
	Auth          *services.AuthService
	Subscriptions *services.SubscriptionService
	Drafts        *services.DraftService
	Webhooks      *services.WebhookService
}

// Build connects to every backing service and wires the services. The S3
// archive is skipped when no bucket is configured.
func Build(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := database.Connect(cfg); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(ctx, rdb); err != nil {
		// publishing and rate limiting degrade; generation still works
		l.Logger.Warn("redis unreachable at startup", zap.Error(err))
	}

	a := &App{
		Config:   cfg,
		Logger:   l,
		Registry: prometheus.NewRegistry(),
		Redis:    rdb,
		Broker:   events.NewRedisBroker(rdb, l.Named("events").Logger),
		Limiter: redis.NewRateLimiter(rdb, redis.RateLimitConfig{
			DraftLimit:  cfg.DraftRateLimit,
			DraftWindow: cfg.DraftRateWindow,
		}),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	observers := []observe.Observer{observe.NewZapObserver(l.Named("pipeline"))}
	if cfg.MetricsEnabled {
		observers = append(observers, observe.NewMetricsObserver(a.Registry))
	}
	observer := observe.Multi(observers...)

	var archiver services.DraftArchiver
	if cfg.S3Enabled() {
		client, err := storage.NewClient(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 archive: %w", err)
		}
		a.Archive = client
		archiver = client
	}

	completer, err := completion.New(ctx, completion.Config{
		Provider: cfg.CompletionProvider,
		APIKey:   cfg.CompletionAPIKey,
		BaseURL:  cfg.CompletionBaseURL,
		Model:    cfg.CompletionModel,
	})
	if err != nil {
		return nil, err
	}

	cipher, err := services.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}

	a.Users = repository.NewUserRepository(database.DB)
	subRepo := repository.NewSubscriptionRepository(database.DB)
	draftRepo := repository.NewDraftRepository(database.DB)

	creds := services.NewOAuthCredentialProvider(
		a.Users,
		services.NewGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
		cipher,
		l.Named("credentials").Logger,
	)
	api := eventsapi.NewClient(eventsapi.Config{Endpoint: cfg.EventsEndpoint, Timeout: cfg.EventsTimeout})

	a.Auth = services.NewAuthService(a.Users, cfg.JWTSecret)
	a.Subscriptions = services.NewSubscriptionService(a.Users, subRepo, creds, api, services.SubscriptionConfig{
		EventTypes: cfg.EventTypes,
		Topic:      cfg.NotificationTopic,
		TTL:        cfg.SubscriptionTTL,
	}, observer)
	a.Drafts = services.NewDraftService(draftRepo, completer, archiver, a.Broker, observer, services.DraftConfig{
		MaxTokens:     cfg.CompletionMaxTokens,
		Timeout:       cfg.CompletionTimeout,
		MaxAttempts:   cfg.CompletionMaxAttempt,
		BaseDelay:     cfg.CompletionBaseDelay,
		RecordTimeout: cfg.DraftRecordTimeout,
	})
	a.Webhooks = services.NewWebhookService(subRepo, a.Broker, observer).
		WithDeduper(redis.NewEventDeduper(rdb, redis.DefaultDedupWindow))

	return a, nil
}

// Handlers builds the HTTP handlers over the app's services.
func (a *App) Handlers() (*handler.SubscriptionHandler, *handler.DraftHandler, *handler.WebhookHandler) {
	var linker handler.ArchiveLinker
	if a.Archive != nil {
		linker = a.Archive
	}
	return handler.NewSubscriptionHandler(a.Subscriptions),
		handler.NewDraftHandler(a.Drafts, linker),
		handler.NewWebhookHandler(a.Webhooks, a.Config.WebhookToken)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	database.Close()
}
