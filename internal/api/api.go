package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
	"github.com/victornm/jackpot/internal/leaderboard"
	"github.com/victornm/jackpot/internal/payout"
	"github.com/victornm/jackpot/internal/session"
	"github.com/victornm/jackpot/internal/webhook"
)

type Config struct {
	// HTTP and GRPC are optional, routes and services are only registered on the ones given.
	HTTP gin.IRouter
	GRPC *grpc.Server

	EventBus    *event.Bus
	Generator   *payout.Generator
	Session     *session.Service
	Leaderboard *leaderboard.Service
	Webhook     *webhook.Service

	// Redis is optional, leaderboard notifications are not published without it.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	gen *payout.Generator
	ss  *session.Service
	ls  *leaderboard.Service
	ws  *webhook.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		gen:    c.Generator,
		ss:     c.Session,
		ls:     c.Leaderboard,
		ws:     c.Webhook,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	if c.HTTP != nil {
		a.registerRoutes(c.HTTP)
	}

	// gRPC APIs
	if c.GRPC != nil {
		RegisterGameServiceServer(c.GRPC, a)
	}

	// Register event handlers
	if c.Redis != nil && c.EventBus != nil {
		c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		})
	}

	return a
}
