package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/errors"
	"github.com/victornm/jackpot/internal/event"
)

const (
	// DefaultLimit is used when neither the listing nor the config asks for a positive limit.
	DefaultLimit = 100

	// DefaultMaxScore keeps scores exactly representable as JSON numbers.
	DefaultMaxScore = 1 << 53

	OnChainMessage = "On-chain leaderboard coming soon!"

	defaultPublishInterval = 200 * time.Millisecond
)

type Config struct {
	Store    Store
	EventBus *event.Bus
	// PublishInterval is the minimum delay between two leaderboard.updated events.
	PublishInterval time.Duration
	// DefaultLimit bounds listings that ask for no positive limit.
	DefaultLimit int
	// MaxScore bounds submitted scores, it is capped at DefaultMaxScore.
	MaxScore int64
	Now      func() time.Time
}

type Service struct {
	store    Store
	eb       *event.Bus
	interval time.Duration
	limit    int
	maxScore int64
	now      func() time.Time

	mu          sync.Mutex
	lastPublish time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		eb:       c.EventBus,
		interval: c.PublishInterval,
		limit:    c.DefaultLimit,
		maxScore: c.MaxScore,
		now:      c.Now,
	}

	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.interval <= 0 {
		s.interval = defaultPublishInterval
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}
	// Scores arrive as float64, bounds above 2^53 would admit values that do not convert exactly.
	if s.maxScore <= 0 || s.maxScore > DefaultMaxScore {
		s.maxScore = DefaultMaxScore
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type SubmitScoreRequest struct {
	PlayerID int64
	// DisplayName replaces the stored name only when it is not empty.
	DisplayName string
	Score       float64
}

type SubmitScoreResponse struct {
	Entry domain.LeaderboardEntry
	Rank  int
}

// SubmitScore records a session score for a player and returns the player's entry with its rank among all players.
// Invalid requests are rejected before the store is touched.
func (s *Service) SubmitScore(ctx context.Context, req SubmitScoreRequest) (*SubmitScoreResponse, error) {
	score, err := s.validateScore(req)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.DisplayName)
	now := s.now().UTC().Truncate(time.Millisecond)

	stored, err := s.store.Upsert(ctx, req.PlayerID, func(cur *domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
		return merge(cur, req.PlayerID, name, score, now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}

	ranked, err := s.rankAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}

	// Report the entry from the same snapshot as the rank, it may include a concurrent submission of the same player.
	i := slices.IndexFunc(ranked, func(e domain.RankedEntry) bool { return e.PlayerID == stored.PlayerID })
	if i < 0 {
		return nil, errors.Internal(fmt.Errorf("submit score: player %d missing after update", stored.PlayerID))
	}

	resp := &SubmitScoreResponse{
		Entry: ranked[i].LeaderboardEntry,
		Rank:  ranked[i].Rank,
	}

	s.eb.Publish(ctx, domain.EventScoreSubmitted{
		Entry: resp.Entry,
		Rank:  resp.Rank,
	})
	s.schedulePublishLeaderboard(ctx, ranked)

	return resp, nil
}

func (s *Service) validateScore(req SubmitScoreRequest) (int64, error) {
	if req.PlayerID <= 0 {
		return 0, errors.InvalidRequest("invalid player id: %d", req.PlayerID)
	}

	switch sc := req.Score; {
	case math.IsNaN(sc) || math.IsInf(sc, 0):
		return 0, errors.InvalidRequest("score is not a number")
	case sc != math.Trunc(sc):
		return 0, errors.InvalidRequest("score must be a whole number: %v", sc)
	case sc < 0 || sc > float64(s.maxScore):
		return 0, errors.InvalidRequest("score out of range [0, %d]: %v", s.maxScore, sc)
	}

	return int64(req.Score), nil
}

func merge(cur *domain.LeaderboardEntry, playerID int64, name string, score int64, now time.Time) domain.LeaderboardEntry {
	if cur == nil {
		return domain.LeaderboardEntry{
			PlayerID:     playerID,
			DisplayName:  name,
			HighScore:    score,
			TotalScore:   score,
			GamesPlayed:  1,
			LastPlayedAt: now,
		}
	}

	e := *cur
	e.HighScore = max(e.HighScore, score)
	if e.TotalScore > math.MaxInt64-score {
		e.TotalScore = math.MaxInt64
	} else {
		e.TotalScore += score
	}
	e.GamesPlayed++
	e.LastPlayedAt = now
	if name != "" {
		e.DisplayName = name
	}

	return e
}

type ListTopEntriesRequest struct {
	// Limit bounds the number of entries, the configured default is used when it is not positive.
	Limit int
}

// ListTopEntries returns the best players by high score, each with its 1-based rank.
func (s *Service) ListTopEntries(ctx context.Context, req ListTopEntriesRequest) ([]domain.RankedEntry, error) {
	ranked, err := s.rankAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list top entries: %w", err)
	}

	return s.top(ranked, req.Limit), nil
}

type GetLeaderboardRequest struct {
	Mode  string
	Limit int
}

// GetLeaderboard returns the leaderboard of a game mode. The on-chain leaderboard is not recorded yet and
// is always empty.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	if req.Mode == domain.ModeOnChain {
		return &domain.Leaderboard{
			Mode:    domain.ModeOnChain,
			Entries: []domain.RankedEntry{},
			Message: OnChainMessage,
		}, nil
	}

	entries, err := s.ListTopEntries(ctx, ListTopEntriesRequest{Limit: req.Limit})
	if err != nil {
		return nil, err
	}

	return &domain.Leaderboard{
		Mode:    domain.ModeFree,
		Entries: entries,
	}, nil
}

func (s *Service) rankAll(ctx context.Context) ([]domain.RankedEntry, error) {
	entries, err := s.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	return Rank(entries), nil
}

// Rank sorts entries by high score, descending. Players sharing a high score keep the order in which they
// first joined the leaderboard.
func Rank(entries []domain.LeaderboardEntry) []domain.RankedEntry {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(b.HighScore, a.HighScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	ranked := make([]domain.RankedEntry, 0, len(sorted))
	for i, e := range sorted {
		ranked = append(ranked, domain.RankedEntry{LeaderboardEntry: e, Rank: i + 1})
	}

	return ranked
}

func (s *Service) top(ranked []domain.RankedEntry, limit int) []domain.RankedEntry {
	if limit <= 0 {
		limit = s.limit
	}

	return ranked[:min(limit, len(ranked))]
}

// schedulePublishLeaderboard publishes at most one leaderboard.updated event per interval. Scores land in bursts
// at the end of play sessions, so updates within an interval are folded into the one already published.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, ranked []domain.RankedEntry) {
	s.mu.Lock()
	now := s.now()
	if !s.lastPublish.IsZero() && now.Sub(s.lastPublish) < s.interval {
		s.mu.Unlock()
		return
	}
	s.lastPublish = now
	s.mu.Unlock()

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: domain.Leaderboard{
			Mode:    domain.ModeFree,
			Entries: s.top(ranked, s.limit),
		},
	})
}
