package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lukasmoran/voicebridge/internal/api"
	"github.com/lukasmoran/voicebridge/internal/azure"
	"github.com/lukasmoran/voicebridge/internal/config"
	"github.com/lukasmoran/voicebridge/internal/events"
	"github.com/lukasmoran/voicebridge/internal/lifecycle"
	"github.com/lukasmoran/voicebridge/internal/ws"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	translator := azure.NewTranslatorClient(azure.TranslatorConfig{
		Key:      cfg.Translator.Key,
		Region:   cfg.Translator.Region,
		Endpoint: cfg.Translator.Endpoint,
		Timeout:  cfg.Server.UpstreamTimeout,
	})
	speech := azure.NewSpeechClient(azure.SpeechConfig{
		Key:     cfg.Speech.Key,
		Region:  cfg.Speech.Region,
		Timeout: cfg.Server.UpstreamTimeout,
	})

	// Event publishing is optional; without a Redis address the publisher
	// stays nil and every Publish is a no-op.
	var publisher *events.Publisher
	if cfg.Events.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, event publishing disabled", zap.Error(err))
			rdb.Close()
		} else {
			publisher = events.NewPublisher(rdb, cfg.Events.Channel, logger)
			defer publisher.Close()
		}
	}

	hub := ws.NewHub(logger)
	defer hub.Close()

	router := api.NewRouter(cfg, translator, speech, publisher, hub, logger)

	reclaimer := lifecycle.NewReclaimer(cfg.Server.ReclaimPort, logger)
	manager := lifecycle.NewManager(cfg.Server.Host, cfg.Server.Port, router.Setup(), reclaimer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
