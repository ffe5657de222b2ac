package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/cache"
	"github.com/vivekr077/CodePilot/internal/completion"
	"github.com/vivekr077/CodePilot/internal/config"
	"github.com/vivekr077/CodePilot/internal/database"
	"github.com/vivekr077/CodePilot/internal/events"
	"github.com/vivekr077/CodePilot/internal/handlers"
	"github.com/vivekr077/CodePilot/internal/jobs"
	"github.com/vivekr077/CodePilot/internal/log"
	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/repository"
	"github.com/vivekr077/CodePilot/internal/security"
	"github.com/vivekr077/CodePilot/internal/server"
	"github.com/vivekr077/CodePilot/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	var (
		dbPool      *pgxpool.Pool
		users       repository.UserStore
		generations repository.GenerationStore
		dbPinger    handlers.Pinger
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		users = repository.NewMemoryUserRepository()
		generations = repository.NewMemoryGenerationRepository()
	default:
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		users = repository.NewUserRepository(dbPool)
		generations = repository.NewGenerationRepository(dbPool)
		dbPinger = dbPool
	}

	var (
		redisClient *redis.Client
		publisher   events.Publisher = events.NopPublisher{}
		trimmer     jobs.StreamTrimmer
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		stream := events.NewStreamPublisher(redisClient, cfg.Redis.Stream)
		publisher = stream
		trimmer = stream
	} else {
		logger.Info().Msg("redis not configured; generation events disabled")
	}

	hasher, err := security.NewPasswordHasher(cfg.Security.PasswordHash, cfg.Security.BcryptCost, security.Argon2Params{
		Time:    cfg.Security.Argon2.Time,
		Memory:  cfg.Security.Argon2.Memory,
		Threads: cfg.Security.Argon2.Threads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid password hash settings")
	}
	tokens := security.NewSessionTokens(cfg.Security.SessionSecret, cfg.Security.SessionTTL)

	if cfg.Model.APIKey == "" {
		logger.Warn().Msg("model.apikey is empty; generation requests will fail")
	}
	completer := completion.NewGeminiCompleter(cfg.Model.APIKey, cfg.Model.Name)

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Deps{
		Auth:        service.NewAuthService(users, hasher, tokens, logger),
		Generations: service.NewGenerationService(generations, completer, publisher, cfg.Model.Timeout, logger),
		History:     service.NewHistoryService(generations, cfg.History.MaxLimit),
		Gate:        middleware.NewSessionGate(tokens, cfg.Security.Cookie.Name, logger),
		DB:          dbPinger,
		Cache:       handlers.RedisPinger(redisClient),
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(trimmer, cfg.Jobs.StreamTrimSchedule, cfg.Redis.StreamMaxLen, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
