package leaderboard

import (
	"context"
	"sync"

	"github.com/victornm/jackpot/internal/domain"
)

// UpdateFunc computes the next state of a player's entry. cur is nil when the player has no entry yet.
// It may be called more than once per update by stores that retry on conflicts, so it must be pure.
type UpdateFunc func(cur *domain.LeaderboardEntry) (domain.LeaderboardEntry, error)

// Store persists leaderboard entries keyed by player.
type Store interface {
	// Upsert applies fn to the player's entry atomically and returns the stored entry. Stores assign Seq when
	// the entry is created and keep it afterwards.
	Upsert(ctx context.Context, playerID int64, fn UpdateFunc) (domain.LeaderboardEntry, error)

	// Entries returns every entry, in no particular order.
	Entries(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// MemoryStore keeps entries for the lifetime of the process. It starts empty and needs no teardown.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[int64]domain.LeaderboardEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]domain.LeaderboardEntry),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, playerID int64, fn UpdateFunc) (domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *domain.LeaderboardEntry
	if e, ok := s.entries[playerID]; ok {
		cur = &e
	}

	next, err := fn(cur)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}

	next.PlayerID = playerID
	if cur == nil {
		s.seq++
		next.Seq = s.seq
	} else {
		next.Seq = cur.Seq
	}

	s.entries[playerID] = next
	return next, nil
}

func (s *MemoryStore) Entries(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}

	return entries, nil
}
