package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/jackpot/internal/api"
	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
	"github.com/victornm/jackpot/internal/leaderboard"
	"github.com/victornm/jackpot/internal/payout"
	"github.com/victornm/jackpot/internal/session"
	"github.com/victornm/jackpot/internal/telemetry"
	"github.com/victornm/jackpot/internal/webhook"
)

// Leaderboard stores.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type RedisConfig struct {
	Addrs  []string
	Pass   string
	Prefix string
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
}

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log telemetry.LogConfig

	Payout struct {
		// Table replaces the default payout table when not empty.
		Table []domain.PayoutEntry
	}

	Leaderboard struct {
		// Store is one of memory, redis, postgres.
		Store           string
		DefaultLimit    int
		MaxScore        int64
		PublishInterval time.Duration
	}

	Session struct {
		TTL         time.Duration
		MaxSessions int
		MaxPlayers  int
	}

	Redis struct {
		Leaderboard RedisConfig
		// Pubsub is optional, leaderboard notifications are not published without addresses.
		Pubsub RedisConfig
	}

	Postgres struct {
		Leaderboard PostgresConfig
	}
}

func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Leaderboard.Store = StoreMemory
	c.Leaderboard.DefaultLimit = leaderboard.DefaultLimit
	c.Leaderboard.MaxScore = leaderboard.DefaultMaxScore
	c.Leaderboard.PublishInterval = 200 * time.Millisecond
	c.Session.TTL = 24 * time.Hour
	c.Session.MaxSessions = 10000
	c.Session.MaxPlayers = 10000
	c.Redis.Leaderboard.Prefix = "jackpot"
	c.Redis.Pubsub.Prefix = "jackpot"
	return c
}

type Server struct {
	c Config

	eb      *event.Bus
	metrics *telemetry.Metrics
	reg     *prometheus.Registry

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			leaderboard *pgxpool.Pool
		}
	}

	service struct {
		generator   *payout.Generator
		session     *session.Service
		leaderboard *leaderboard.Service
		webhook     *webhook.Service
	}

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if err := s.initTelemetry(); err != nil {
		return nil, fmt.Errorf("server: init telemetry: %w", err)
	}

	s.eb = event.NewBus()
	s.metrics.Subscribe(s.eb)

	if err := s.initInfra(); err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		s.closeInfra()
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initTelemetry() error {
	l, err := telemetry.NewLogger(os.Stderr, s.c.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(l)

	s.reg = prometheus.NewRegistry()
	s.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = telemetry.NewMetrics(s.reg)

	return nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c RedisConfig) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			r.Close()
			return nil, err
		}

		return r, nil
	}

	var err error
	if s.c.Leaderboard.Store == StoreRedis {
		s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
		if err != nil {
			return fmt.Errorf("leaderboard: %w", err)
		}
	}

	if len(s.c.Redis.Pubsub.Addrs) > 0 {
		s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	if s.c.Leaderboard.Store != StorePostgres {
		return nil
	}

	connect := func(c PostgresConfig) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}

		if err := leaderboard.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}

		return db, nil
	}

	s.infra.postgres.leaderboard, err = connect(s.c.Postgres.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	return nil
}

func (s *Server) closeInfra() {
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.Error("server: close redis failed", "error", err)
		}
	}

	if s.infra.postgres.leaderboard != nil {
		s.infra.postgres.leaderboard.Close()
	}
}

func (s *Server) initService() error {
	table := payout.Table(s.c.Payout.Table)
	if len(table) == 0 {
		table = payout.DefaultTable()
	}

	var err error
	s.service.generator, err = payout.NewGenerator(payout.Config{Table: table})
	if err != nil {
		return fmt.Errorf("payout: %w", err)
	}

	s.service.session, err = session.NewService(session.Config{
		Generator:   s.service.generator,
		EventBus:    s.eb,
		MaxSessions: s.c.Session.MaxSessions,
		TTL:         s.c.Session.TTL,
		MaxPlayers:  s.c.Session.MaxPlayers,
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	store, err := s.leaderboardStore()
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		Store:           store,
		EventBus:        s.eb,
		PublishInterval: s.c.Leaderboard.PublishInterval,
		DefaultLimit:    s.c.Leaderboard.DefaultLimit,
		MaxScore:        s.c.Leaderboard.MaxScore,
	})

	s.service.webhook = webhook.NewService(webhook.Config{
		EventBus: s.eb,
	})

	return nil
}

func (s *Server) leaderboardStore() (leaderboard.Store, error) {
	switch s.c.Leaderboard.Store {
	case "", StoreMemory:
		return leaderboard.NewMemoryStore(), nil
	case StoreRedis:
		return leaderboard.NewRedisStore(leaderboard.RedisStoreConfig{
			Redis:  s.infra.redis.leaderboard,
			Prefix: s.c.Redis.Leaderboard.Prefix,
		}), nil
	case StorePostgres:
		return leaderboard.NewPostgresStore(s.infra.postgres.leaderboard), nil
	default:
		return nil, fmt.Errorf("unknown store %q", s.c.Leaderboard.Store)
	}
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg})))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.GinMiddleware(s.metrics))

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())

	cfg := api.Config{
		HTTP:         e,
		GRPC:         s.grpc,
		EventBus:     s.eb,
		Generator:    s.service.generator,
		Session:      s.service.session,
		Leaderboard:  s.service.leaderboard,
		Webhook:      s.service.webhook,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	// A nil client must not end up as a non-nil interface.
	if s.infra.redis.pubsub != nil {
		cfg.Redis = s.infra.redis.pubsub
	}
	api.New(cfg)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Handler serves the HTTP API.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port),
			"store", s.c.Leaderboard.Store)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// Pending handlers may still publish to Redis, so the bus stops before the clients close.
	s.eb.Stop()
	s.closeInfra()

	slog.InfoContext(ctx, "server: shutdown completed")
}
