package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/vivekr077/CodePilot/internal/cache"
	"github.com/vivekr077/CodePilot/internal/config"
	"github.com/vivekr077/CodePilot/internal/log"
	"github.com/vivekr077/CodePilot/internal/queue"
	"github.com/vivekr077/CodePilot/internal/storage"
	"github.com/vivekr077/CodePilot/internal/tasks"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger := log.NewWithLevel(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	store, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal().Err(err).Str("bucket", store.Bucket()).Msg("ensure bucket failed")
	}

	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Redis.Stream,
		Group:         cfg.Redis.Group,
		Consumer:      cfg.Redis.Consumer,
		ClaimInterval: cfg.Queues.ClaimInterval,
		BatchSize:     cfg.Queues.BatchSize,
		Block:         cfg.Queues.Block,
	}, logger, tasks.NewArchiver(store, logger))

	logger.Info().
		Str("stream", cfg.Redis.Stream).
		Str("group", cfg.Redis.Group).
		Str("consumer", cfg.Redis.Consumer).
		Msg("worker started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited cleanly")
}
