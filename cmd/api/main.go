package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/farzamh/sms-dispatch/internal/config"
	"github.com/farzamh/sms-dispatch/internal/handler"
	infraredis "github.com/farzamh/sms-dispatch/internal/infra/redis"
	"github.com/farzamh/sms-dispatch/internal/observability"
	"github.com/farzamh/sms-dispatch/internal/provider"
	"github.com/farzamh/sms-dispatch/internal/ratelimit"
	"github.com/farzamh/sms-dispatch/internal/service"
	"github.com/farzamh/sms-dispatch/internal/store"
	"github.com/farzamh/sms-dispatch/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	tracking := store.NewTrackingStore()

	smsProvider, err := buildProvider(cfg)
	if err != nil {
		logger.Fatal("provider initialization failed", zap.Error(err))
	}

	var rdb *redis.Client
	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()
		limiter, err = infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("rate limiter initialization failed", zap.Error(err))
		}
	} else {
		limiter = ratelimit.NewLocalRateLimiter(cfg.RateLimitPerSec)
	}

	metrics := observability.NewMetrics()

	outcome := service.LiveOutcome(smsProvider)
	if cfg.SimulationMode || cfg.Provider == config.ProviderSimulated {
		outcome = service.SimulatedOutcome(rand.Float64)
	}

	poller := service.NewPoller(tracking, outcome, logger).
		WithDelay(service.RandomDelay(
			time.Duration(cfg.PollMinDelayMillis)*time.Millisecond,
			time.Duration(cfg.PollMaxDelayMillis)*time.Millisecond,
		))
	poller.SetMetrics(metrics)

	dispatcher, err := service.NewDispatcher(tracking, smsProvider, poller, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	bulk := service.NewBulkSender(dispatcher, limiter, logger).
		WithConcurrency(cfg.BulkConcurrency)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", metrics.FiberHandler())

	handler.RegisterHealthRoutes(app, rdb)
	if err := handler.RegisterMessageRoutes(app, dispatcher, bulk, tracking, smsProvider); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	logger.Info("sms-dispatch api started",
		zap.Int("port", cfg.APIPort),
		zap.String("provider", smsProvider.Name()),
		zap.Bool("simulation", cfg.SimulationMode),
	)

	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	if cfg.SimulationMode || cfg.Provider == config.ProviderSimulated {
		return provider.NewSimulated(), nil
	}

	pcfg := provider.Config{
		AccountID: cfg.AccountID,
		AuthToken: cfg.AuthToken,
		Sender:    cfg.SenderID,
	}

	switch cfg.Provider {
	case config.ProviderTwilio:
		return provider.NewTwilio(pcfg)
	case config.ProviderMessageBird:
		return provider.NewMessageBird(pcfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
