package leaderboard_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/leaderboard"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, func(t *testing.T) leaderboard.Store {
		return leaderboard.NewMemoryStore()
	})
}

func TestRedisStore(t *testing.T) {
	testStore(t, func(t *testing.T) leaderboard.Store {
		return leaderboard.NewRedisStore(leaderboard.RedisStoreConfig{
			Redis:  makeRedis(t),
			Prefix: "test",
		})
	})
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	rc := makeRedis(t)
	s := leaderboard.NewRedisStore(leaderboard.RedisStoreConfig{Redis: rc, Prefix: "test"})

	ctx := context.Background()
	require.NoError(t, rc.HSet(ctx, "test:{leaderboard}:player:1", "high", "abc").Err())

	_, err := s.Upsert(ctx, 1, func(cur *domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
		return domain.LeaderboardEntry{}, nil
	})
	require.Error(t, err)
}

func TestRedisStore_Entries_UsesPlayerKeys(t *testing.T) {
	rc := makeRedis(t)
	s := leaderboard.NewRedisStore(leaderboard.RedisStoreConfig{Redis: rc, Prefix: "test"})
	ctx := context.Background()

	want, err := s.Upsert(ctx, 42, func(*domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
		return domain.LeaderboardEntry{HighScore: 10, TotalScore: 10, GamesPlayed: 1, LastPlayedAt: time.Unix(0, 0).UTC()}, nil
	})
	require.NoError(t, err)

	n, err := rc.Exists(ctx, "test:{leaderboard}:player:42").Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "player hash should live under the player key")

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.LeaderboardEntry{want}, entries)

	t.Run("member that is not a player id", func(t *testing.T) {
		require.NoError(t, rc.ZAdd(ctx, "test:{leaderboard}:players", redis.Z{Score: 99, Member: "abc"}).Err())

		_, err := s.Entries(ctx)
		assert.Error(t, err)
	})
}

// testStore checks the contract every Store implementation must satisfy.
func testStore(t *testing.T, newStore func(t *testing.T) leaderboard.Store) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	set := func(e domain.LeaderboardEntry) leaderboard.UpdateFunc {
		return func(*domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
			return e, nil
		}
	}

	t.Run("empty store has no entries", func(t *testing.T) {
		s := newStore(t)

		entries, err := s.Entries(context.Background())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("upsert creates then updates an entry", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		var seen []*domain.LeaderboardEntry
		record := func(e domain.LeaderboardEntry) leaderboard.UpdateFunc {
			return func(cur *domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
				seen = append(seen, cur)
				return e, nil
			}
		}

		created, err := s.Upsert(ctx, 7, record(domain.LeaderboardEntry{
			DisplayName: "alice", HighScore: 250, TotalScore: 250, GamesPlayed: 1, LastPlayedAt: at,
		}))
		require.NoError(t, err)
		assert.Equal(t, int64(7), created.PlayerID)
		assert.Positive(t, created.Seq)
		require.Len(t, seen, 1)
		assert.Nil(t, seen[0], "first update should see no entry")

		updated, err := s.Upsert(ctx, 7, record(domain.LeaderboardEntry{
			DisplayName: "alice", HighScore: 250, TotalScore: 350, GamesPlayed: 2, LastPlayedAt: at.Add(time.Minute),
		}))
		require.NoError(t, err)
		assert.Equal(t, created.Seq, updated.Seq, "seq must not change on update")
		require.Len(t, seen, 2)
		require.NotNil(t, seen[1])
		assert.Equal(t, created, *seen[1])

		entries, err := s.Entries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.LeaderboardEntry{updated}, entries)
	})

	t.Run("seq follows creation order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		var seqs []int64
		for _, id := range []int64{30, 10, 20} {
			e, err := s.Upsert(ctx, id, set(domain.LeaderboardEntry{GamesPlayed: 1, LastPlayedAt: at}))
			require.NoError(t, err)
			seqs = append(seqs, e.Seq)
		}

		assert.Less(t, seqs[0], seqs[1])
		assert.Less(t, seqs[1], seqs[2])

		entries, err := s.Entries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("failed update leaves the entry untouched", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		want, err := s.Upsert(ctx, 1, set(domain.LeaderboardEntry{HighScore: 10, TotalScore: 10, GamesPlayed: 1, LastPlayedAt: at}))
		require.NoError(t, err)

		boom := stderrors.New("boom")
		_, err = s.Upsert(ctx, 1, func(*domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
			return domain.LeaderboardEntry{}, boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Upsert(ctx, 2, func(*domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
			return domain.LeaderboardEntry{}, boom
		})
		require.ErrorIs(t, err, boom)

		entries, err := s.Entries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.LeaderboardEntry{want}, entries)
	})

	t.Run("concurrent updates of a player are serialized", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		const n = 20
		var wg sync.WaitGroup
		for i := 1; i <= n; i++ {
			wg.Add(1)
			go func(score int64) {
				defer wg.Done()
				_, err := s.Upsert(ctx, 1, func(cur *domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
					if cur == nil {
						return domain.LeaderboardEntry{HighScore: score, TotalScore: score, GamesPlayed: 1, LastPlayedAt: at}, nil
					}
					e := *cur
					e.HighScore = max(e.HighScore, score)
					e.TotalScore += score
					e.GamesPlayed++
					return e, nil
				})
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()

		entries, err := s.Entries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(n), entries[0].GamesPlayed)
		assert.Equal(t, int64(n), entries[0].HighScore)
		assert.Equal(t, int64(n*(n+1)/2), entries[0].TotalScore)
	})
}

func makeRedis(t *testing.T) redis.UniversalClient {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return rc
}
