package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/errors"
	"github.com/victornm/jackpot/internal/event"
	"github.com/victornm/jackpot/internal/payout"
)

const (
	defaultMaxSessions = 10000
	defaultTTL         = 24 * time.Hour
	defaultMaxPlayers  = 10000
	// maxHistory caps the spins remembered per player, oldest first out.
	maxHistory = 1000
)

type Config struct {
	Generator *payout.Generator
	EventBus  *event.Bus
	// MaxSessions and TTL bound the open play sessions kept in memory.
	MaxSessions int
	TTL         time.Duration
	// MaxPlayers bounds the players whose spin history is kept.
	MaxPlayers int
	Now        func() time.Time
}

// Service runs play sessions and keeps the spin history of free-play players. State lives in memory for the
// lifetime of the process.
type Service struct {
	gen *payout.Generator
	eb  *event.Bus
	now func() time.Time

	mu       sync.Mutex
	sessions *expirable.LRU[string, *domain.Session]
	history  *lru.Cache[int64, *spins]
	points   map[int64]bool
}

type spins struct {
	records []domain.SpinRecord
	total   int
}

func NewService(c Config) (*Service, error) {
	if c.Generator == nil {
		return nil, fmt.Errorf("session: generator is required")
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = defaultMaxSessions
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = defaultMaxPlayers
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	history, err := lru.New[int64, *spins](c.MaxPlayers)
	if err != nil {
		return nil, fmt.Errorf("session: history cache: %w", err)
	}

	points := make(map[int64]bool)
	for _, e := range c.Generator.Table() {
		points[e.Points] = true
	}

	return &Service{
		gen:      c.Generator,
		eb:       c.EventBus,
		now:      c.Now,
		sessions: expirable.NewLRU[string, *domain.Session](c.MaxSessions, nil, c.TTL),
		history:  history,
		points:   points,
	}, nil
}

type DrawRequest struct {
	PlayerID int64
	Mode     string
}

// Draw spins once outside of any session.
func (s *Service) Draw(ctx context.Context, req DrawRequest) (*domain.Outcome, error) {
	mode, err := parseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	o := s.draw(ctx, req.PlayerID, mode)
	return &o, nil
}

type CreateSessionRequest struct {
	// PlayerID is optional, anonymous sessions keep no spin history.
	PlayerID int64
	Mode     string
}

// CreateSession opens a play session.
func (s *Service) CreateSession(_ context.Context, req CreateSessionRequest) (*domain.Session, error) {
	if req.PlayerID < 0 {
		return nil, errors.InvalidRequest("invalid player id: %d", req.PlayerID)
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ss := &domain.Session{
		SessionID:  id.String(),
		PlayerID:   req.PlayerID,
		Mode:       mode,
		CreateTime: s.now(),
	}

	s.mu.Lock()
	s.sessions.Add(ss.SessionID, ss)
	s.mu.Unlock()

	cp := *ss
	return &cp, nil
}

type SpinRequest struct {
	SessionID string
}

type SpinResponse struct {
	Outcome domain.Outcome
	Session domain.Session
}

// Spin draws an outcome within a session and adds its score to the session total. Free-play spins of known
// players are also recorded in their history.
func (s *Service) Spin(ctx context.Context, req SpinRequest) (*SpinResponse, error) {
	s.mu.Lock()
	ss, ok := s.sessions.Get(req.SessionID)
	if !ok {
		s.mu.Unlock()
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("session not found: %s", req.SessionID))
	}

	o := s.draw(ctx, ss.PlayerID, ss.Mode)
	ss.TotalScore += o.Score
	ss.Spins++
	ss.LastSpin = &o
	// Re-adding refreshes the expiry of an active session.
	s.sessions.Add(ss.SessionID, ss)

	resp := &SpinResponse{Outcome: o, Session: *ss}
	s.mu.Unlock()

	if ss.Mode == domain.ModeFree && ss.PlayerID > 0 {
		s.appendHistory(ss.PlayerID, o.Score)
	}

	return resp, nil
}

type GetSessionRequest struct {
	SessionID string
}

func (s *Service) GetSession(_ context.Context, req GetSessionRequest) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions.Get(req.SessionID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("session not found: %s", req.SessionID))
	}

	cp := *ss
	return &cp, nil
}

type RecordSpinRequest struct {
	PlayerID int64
	Mode     string
	Score    float64
}

type RecordSpinResponse struct {
	Score      int64
	TotalGames int
}

// RecordSpin stores a free-play spin reported by the client. Only free play is recorded here.
func (s *Service) RecordSpin(_ context.Context, req RecordSpinRequest) (*RecordSpinResponse, error) {
	if req.PlayerID <= 0 {
		return nil, errors.InvalidRequest("invalid player id: %d", req.PlayerID)
	}
	if req.Mode != domain.ModeFree {
		return nil, errors.InvalidRequest("spins can only be recorded in %s mode: %q", domain.ModeFree, req.Mode)
	}
	if math.IsNaN(req.Score) || math.IsInf(req.Score, 0) || req.Score != math.Trunc(req.Score) {
		return nil, errors.InvalidRequest("score is not a whole number: %v", req.Score)
	}
	score := int64(req.Score)
	if !s.points[score] {
		return nil, errors.InvalidRequest("score is not a possible spin outcome: %v", req.Score)
	}

	n := s.appendHistory(req.PlayerID, score)

	return &RecordSpinResponse{Score: score, TotalGames: n}, nil
}

type ListSpinsRequest struct {
	PlayerID int64
}

// ListSpins returns the remembered spins of a player, oldest first.
func (s *Service) ListSpins(_ context.Context, req ListSpinsRequest) ([]domain.SpinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history.Get(req.PlayerID)
	if !ok {
		return []domain.SpinRecord{}, nil
	}
	return append([]domain.SpinRecord{}, h.records...), nil
}

func (s *Service) draw(ctx context.Context, playerID int64, mode string) domain.Outcome {
	e, o := s.gen.DrawEntry()

	s.eb.Publish(ctx, domain.EventSpinDrawn{
		PlayerID: playerID,
		Mode:     mode,
		Label:    e.Label,
		Outcome:  o,
	})

	return o
}

func (s *Service) appendHistory(playerID, score int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history.Get(playerID)
	if !ok {
		h = &spins{}
		s.history.Add(playerID, h)
	}

	h.records = append(h.records, domain.SpinRecord{PlayerID: playerID, Score: score, Time: s.now()})
	if len(h.records) > maxHistory {
		h.records = append([]domain.SpinRecord(nil), h.records[len(h.records)-maxHistory:]...)
	}
	h.total++

	return h.total
}

func parseMode(mode string) (string, error) {
	switch mode {
	case "":
		return domain.ModeFree, nil
	case domain.ModeFree, domain.ModeOnChain:
		return mode, nil
	default:
		return "", errors.InvalidRequest("unknown mode: %q", mode)
	}
}
