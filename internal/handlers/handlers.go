package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/config"
	"github.com/vivekr077/CodePilot/internal/middleware"
	"github.com/vivekr077/CodePilot/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// RedisPinger adapts a go-redis client for the health check. A nil client
// yields a nil Pinger, reported as disabled.
func RedisPinger(client *redis.Client) Pinger {
	if client == nil {
		return nil
	}
	return redisPinger{client: client}
}

type Deps struct {
	Auth        *service.AuthService
	Generations *service.GenerationService
	History     *service.HistoryService
	Gate        *middleware.SessionGate
	DB          Pinger
	Cache       Pinger
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	auth        *service.AuthService
	generations *service.GenerationService
	history     *service.HistoryService
	gate        *middleware.SessionGate
	db          Pinger
	cache       Pinger
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		auth:        deps.Auth,
		generations: deps.Generations,
		history:     deps.History,
		gate:        deps.Gate,
		db:          deps.DB,
		cache:       deps.Cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/signUp", h.SignUp)
		v1.POST("/logIn", h.LogIn)
		v1.POST("/logOut", h.LogOut)

		gated := v1.Group("")
		gated.Use(h.gate.Handler())
		gated.GET("/session", h.Session)
		gated.POST("/generate", h.Generate)
		gated.GET("/history", h.History)
	}
}
