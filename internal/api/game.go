package api

import (
	"context"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/leaderboard"
	"github.com/victornm/jackpot/internal/session"
)

// SubmitScore, ListLeaderboard and Draw are served over both HTTP and gRPC with the same JSON shapes.

func (a *API) SubmitScore(ctx context.Context, req SubmitScoreRequest) (*SubmitScoreResponse, error) {
	var score float64
	if req.Score != nil {
		score = *req.Score
	}

	resp, err := a.ls.SubmitScore(ctx, leaderboard.SubmitScoreRequest{
		PlayerID:    req.FID,
		DisplayName: req.Username,
		Score:       score,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitScoreResponse{
		Success: true,
		Rank:    resp.Rank,
		Entry:   toLeaderboardEntry(resp.Entry, 0),
	}, nil
}

func (a *API) ListLeaderboard(ctx context.Context, req ListLeaderboardRequest) (*Leaderboard, error) {
	l, err := a.ls.GetLeaderboard(ctx, leaderboard.GetLeaderboardRequest{
		Mode:  req.Mode,
		Limit: req.Limit,
	})
	if err != nil {
		return nil, err
	}

	resp := toLeaderboard(l)
	return &resp, nil
}

func (a *API) Draw(ctx context.Context, req PlayRequest) (*domain.Outcome, error) {
	return a.ss.Draw(ctx, session.DrawRequest{
		PlayerID: req.FID,
		Mode:     req.Mode,
	})
}
