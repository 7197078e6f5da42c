package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/jackpot/internal/domain"
)

const defaultMaxRetries = 100

// ErrConflict is returned when an update keeps losing optimistic transactions to concurrent writers.
var ErrConflict = stderrors.New("leaderboard: too many concurrent updates")

// RedisStore keeps one hash per player and a sorted set of players scored by insertion sequence.
// All keys share a hash tag so that transactions work on Redis Cluster.
type RedisStore struct {
	redis      redis.UniversalClient
	prefix     string
	maxRetries int
}

type RedisStoreConfig struct {
	Redis  redis.UniversalClient
	Prefix string
	// MaxRetries bounds the optimistic transaction attempts of a single update.
	MaxRetries int
}

func NewRedisStore(c RedisStoreConfig) *RedisStore {
	s := &RedisStore{
		redis:      c.Redis,
		prefix:     c.Prefix,
		maxRetries: c.MaxRetries,
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	return s
}

func (s *RedisStore) Upsert(ctx context.Context, playerID int64, fn UpdateFunc) (domain.LeaderboardEntry, error) {
	key := s.getPlayerKey(playerID)

	var out domain.LeaderboardEntry
	txf := func(tx *redis.Tx) error {
		m, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("hgetall: %w", err)
		}

		var cur *domain.LeaderboardEntry
		if len(m) > 0 {
			e, err := decodeEntry(m)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			cur = &e
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}

		next.PlayerID = playerID
		if cur == nil {
			seq, err := tx.Incr(ctx, s.getSeqKey()).Result()
			if err != nil {
				return fmt.Errorf("incr seq: %w", err)
			}
			next.Seq = seq
		} else {
			next.Seq = cur.Seq
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeEntry(next))
			pipe.ZAddNX(ctx, s.getPlayersKey(), redis.Z{
				Score:  float64(next.Seq),
				Member: strconv.FormatInt(playerID, 10),
			})
			return nil
		})
		if err != nil {
			return err
		}

		out = next
		return nil
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.LeaderboardEntry{}, fmt.Errorf("upsert player %d: %w", playerID, err)
		}

		return out, nil
	}

	return domain.LeaderboardEntry{}, fmt.Errorf("upsert player %d: %w", playerID, ErrConflict)
}

func (s *RedisStore) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	ids, err := s.redis.ZRange(ctx, s.getPlayersKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	if len(ids) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	playerIDs := make([]int64, 0, len(ids))
	for _, id := range ids {
		playerID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse player id %q: %w", id, err)
		}
		playerIDs = append(playerIDs, playerID)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(playerIDs))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, playerID := range playerIDs {
			cmds = append(cmds, pipe.HGetAll(ctx, s.getPlayerKey(playerID)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(cmds))
	for i, cmd := range cmds {
		m := cmd.Val()
		if len(m) == 0 {
			continue
		}

		e, err := decodeEntry(m)
		if err != nil {
			return nil, fmt.Errorf("decode player %s: %w", ids[i], err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func encodeEntry(e domain.LeaderboardEntry) map[string]any {
	return map[string]any{
		"player_id": e.PlayerID,
		"name":      e.DisplayName,
		"high":      e.HighScore,
		"total":     e.TotalScore,
		"games":     e.GamesPlayed,
		"last":      e.LastPlayedAt.UnixMilli(),
		"seq":       e.Seq,
	}
}

func decodeEntry(m map[string]string) (domain.LeaderboardEntry, error) {
	e := domain.LeaderboardEntry{DisplayName: m["name"]}

	var last int64
	for field, dst := range map[string]*int64{
		"player_id": &e.PlayerID,
		"high":      &e.HighScore,
		"total":     &e.TotalScore,
		"games":     &e.GamesPlayed,
		"last":      &last,
		"seq":       &e.Seq,
	} {
		v, err := strconv.ParseInt(m[field], 10, 64)
		if err != nil {
			return domain.LeaderboardEntry{}, fmt.Errorf("field %s: %w", field, err)
		}
		*dst = v
	}

	e.LastPlayedAt = time.UnixMilli(last).UTC()
	return e, nil
}

func (s *RedisStore) getPlayerKey(playerID int64) string {
	return fmt.Sprintf("%s:{leaderboard}:player:%d", s.prefix, playerID)
}

func (s *RedisStore) getPlayersKey() string {
	return fmt.Sprintf("%s:{leaderboard}:players", s.prefix)
}

func (s *RedisStore) getSeqKey() string {
	return fmt.Sprintf("%s:{leaderboard}:seq", s.prefix)
}
