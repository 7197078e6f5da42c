package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/payout"
	"github.com/victornm/jackpot/internal/session"
)

// JSON shapes shared by the HTTP routes, the gRPC service and the pub/sub notifications.
type (
	SubmitScoreRequest struct {
		FID      int64    `json:"fid" binding:"required"`
		Username string   `json:"username"`
		Score    *float64 `json:"score" binding:"required"`
	}

	SubmitScoreResponse struct {
		Success bool             `json:"success"`
		Rank    int              `json:"rank"`
		Entry   LeaderboardEntry `json:"entry"`
	}

	ListLeaderboardRequest struct {
		Mode  string `json:"mode" form:"mode"`
		Limit int    `json:"limit" form:"limit"`
	}

	Leaderboard struct {
		Mode    string             `json:"mode"`
		Entries []LeaderboardEntry `json:"entries"`
		Total   *int               `json:"total,omitempty"`
		Message string             `json:"message,omitempty"`
	}

	LeaderboardEntry struct {
		FID         int64  `json:"fid"`
		Username    string `json:"username,omitempty"`
		HighScore   int64  `json:"highScore"`
		TotalScore  int64  `json:"totalScore"`
		GamesPlayed int64  `json:"gamesPlayed"`
		// LastPlayed is in Unix milliseconds.
		LastPlayed int64 `json:"lastPlayed"`
		Rank       int   `json:"rank,omitempty"`
	}

	PlayRequest struct {
		FID  int64  `json:"fid"`
		Mode string `json:"mode"`
	}

	Session struct {
		SessionID  string          `json:"sessionId"`
		FID        int64           `json:"fid,omitempty"`
		Mode       string          `json:"mode"`
		TotalScore int64           `json:"totalScore"`
		Spins      int64           `json:"spins"`
		LastSpin   *domain.Outcome `json:"lastSpin,omitempty"`
		CreateTime time.Time       `json:"createTime"`
	}

	SpinResponse struct {
		Outcome domain.Outcome `json:"outcome"`
		Session Session        `json:"session"`
	}

	RecordSpinRequest struct {
		FID   int64    `json:"fid" binding:"required"`
		Mode  string   `json:"mode"`
		Score *float64 `json:"score" binding:"required"`
	}

	RecordSpinResponse struct {
		Success    bool  `json:"success"`
		Score      int64 `json:"score"`
		TotalGames int   `json:"totalGames"`
	}

	SpinRecord struct {
		Score int64 `json:"score"`
		// Timestamp is in Unix milliseconds.
		Timestamp int64 `json:"timestamp"`
	}

	PayoutTable struct {
		Entries        []PayoutEntry   `json:"entries"`
		ExpectedPoints decimal.Decimal `json:"expectedPoints"`
		JackpotOdds    decimal.Decimal `json:"jackpotOdds"`
	}

	PayoutEntry struct {
		Label       string          `json:"label"`
		Points      int64           `json:"points"`
		Weight      int64           `json:"weight"`
		IsJackpot   bool            `json:"isJackpot"`
		Probability decimal.Decimal `json:"probability"`
	}

	WebhookResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func toLeaderboardEntry(e domain.LeaderboardEntry, rank int) LeaderboardEntry {
	return LeaderboardEntry{
		FID:         e.PlayerID,
		Username:    e.DisplayName,
		HighScore:   e.HighScore,
		TotalScore:  e.TotalScore,
		GamesPlayed: e.GamesPlayed,
		LastPlayed:  e.LastPlayedAt.UnixMilli(),
		Rank:        rank,
	}
}

func toLeaderboard(l *domain.Leaderboard) Leaderboard {
	resp := Leaderboard{
		Mode:    l.Mode,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
		Message: l.Message,
	}

	for _, e := range l.Entries {
		resp.Entries = append(resp.Entries, toLeaderboardEntry(e.LeaderboardEntry, e.Rank))
	}

	if l.Mode == domain.ModeFree {
		total := len(resp.Entries)
		resp.Total = &total
	}

	return resp
}

func toSession(ss *domain.Session) Session {
	return Session{
		SessionID:  ss.SessionID,
		FID:        ss.PlayerID,
		Mode:       ss.Mode,
		TotalScore: ss.TotalScore,
		Spins:      ss.Spins,
		LastSpin:   ss.LastSpin,
		CreateTime: ss.CreateTime,
	}
}

func toSpinResponse(resp *session.SpinResponse) SpinResponse {
	return SpinResponse{
		Outcome: resp.Outcome,
		Session: toSession(&resp.Session),
	}
}

func toPayoutTable(s payout.Stats) PayoutTable {
	t := PayoutTable{
		Entries:        make([]PayoutEntry, 0, len(s.Entries)),
		ExpectedPoints: s.ExpectedPoints,
		JackpotOdds:    s.JackpotOdds,
	}

	for _, e := range s.Entries {
		t.Entries = append(t.Entries, PayoutEntry{
			Label:       e.Entry.Label,
			Points:      e.Entry.Points,
			Weight:      e.Entry.Weight,
			IsJackpot:   e.Entry.IsJackpot,
			Probability: e.Probability,
		})
	}

	return t
}
