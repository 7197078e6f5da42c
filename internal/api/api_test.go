package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/victornm/jackpot/internal/api"
	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
	"github.com/victornm/jackpot/internal/leaderboard"
	"github.com/victornm/jackpot/internal/payout"
	"github.com/victornm/jackpot/internal/session"
	"github.com/victornm/jackpot/internal/webhook"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// 2025-03-01T12:00:00Z in Unix milliseconds.
const nowMilli = 1740830400000

type constRand int64

func (r constRand) Int64N(int64) int64 { return int64(r) }

type failingStore struct{}

func (failingStore) Upsert(context.Context, int64, leaderboard.UpdateFunc) (domain.LeaderboardEntry, error) {
	return domain.LeaderboardEntry{}, context.DeadlineExceeded
}

func (failingStore) Entries(context.Context) ([]domain.LeaderboardEntry, error) {
	return nil, context.DeadlineExceeded
}

type testAPI struct {
	http *gin.Engine
	grpc *grpc.Server
	eb   *event.Bus
	api  *api.API
}

type options struct {
	rand  payout.Rand
	store leaderboard.Store
	redis api.Redis
	grpc  bool
}

type option func(o *options)

func withRand(v int64) option {
	return func(o *options) { o.rand = constRand(v) }
}

func withStore(s leaderboard.Store) option {
	return func(o *options) { o.store = s }
}

func withRedis(r api.Redis) option {
	return func(o *options) { o.redis = r }
}

func withGRPC() option {
	return func(o *options) { o.grpc = true }
}

func makeAPI(t *testing.T, opts ...option) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &options{rand: constRand(99)}
	for _, opt := range opts {
		opt(o)
	}

	gen, err := payout.NewGenerator(payout.Config{Table: payout.DefaultTable(), Rand: o.rand})
	require.NoError(t, err)

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	ss, err := session.NewService(session.Config{
		Generator: gen,
		EventBus:  eb,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	ta := &testAPI{http: gin.New(), eb: eb}
	if o.grpc {
		ta.grpc = grpc.NewServer()
	}

	ta.api = api.New(api.Config{
		HTTP:      ta.http,
		GRPC:      ta.grpc,
		EventBus:  eb,
		Generator: gen,
		Session:   ss,
		Leaderboard: leaderboard.NewService(leaderboard.Config{
			Store:    o.store,
			EventBus: eb,
			Now:      func() time.Time { return now },
		}),
		Webhook: webhook.NewService(webhook.Config{
			EventBus: eb,
			Now:      func() time.Time { return now },
		}),
		Redis:        o.redis,
		PubsubPrefix: "test",
	})

	return ta
}

func (ta *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	ta.http.ServeHTTP(w, req)
	return w
}
