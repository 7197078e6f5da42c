package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/jackpot/internal/domain"
)

const maxConcurrent = 100

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishLeaderboardUpdated broadcasts the leaderboard to the shared channel and to the channel of every listed
// player.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := toLeaderboard(&e.Leaderboard)

	b, err := json.Marshal(Notification{Event: e.Name(), Data: data})
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %w", e.Name(), err)
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	eg.Go(func() error {
		return a.publish(ctx, a.LeaderboardChannel(), b)
	})
	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publish(ctx, a.PlayerChannel(entry.FID), b)
		})
	}

	return eg.Wait()
}

func (a *API) LeaderboardChannel() string {
	return fmt.Sprintf("%s:leaderboard", a.prefix)
}

func (a *API) PlayerChannel(fid int64) string {
	return fmt.Sprintf("%s:player:%d", a.prefix, fid)
}

func (a *API) publish(ctx context.Context, channel string, b []byte) error {
	if err := a.redis.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("pubsub: publish to %s: %w", channel, err)
	}
	return nil
}
