package domain

import (
	"time"
)

// Game modes. On-chain play is a placeholder until sessions are recorded by a contract.
const (
	ModeFree    = "free"
	ModeOnChain = "onchain"
)

// Badge names and the score thresholds that earn them.
const (
	BadgeGold   = "Gold"
	BadgeSilver = "Silver"

	GoldThreshold   = 500
	SilverThreshold = 100
)

// Badge classifies a score. It returns an empty string when the score earns no badge.
func Badge(score int64) string {
	switch {
	case score >= GoldThreshold:
		return BadgeGold
	case score >= SilverThreshold:
		return BadgeSilver
	default:
		return ""
	}
}

// Outcome is the result of one spin.
type Outcome struct {
	Score     int64  `json:"score"`
	IsJackpot bool   `json:"isJackpot"`
	Badge     string `json:"badge,omitempty"`
}

// PayoutEntry is one row of the payout table.
type PayoutEntry struct {
	Label     string `mapstructure:"label" validate:"max=32"`
	Points    int64  `mapstructure:"points" validate:"gte=0"`
	Weight    int64  `mapstructure:"weight" validate:"gt=0,lte=1000000000"`
	IsJackpot bool   `mapstructure:"jackpot"`
}

// LeaderboardEntry is the aggregate record of a player.
type LeaderboardEntry struct {
	PlayerID     int64
	DisplayName  string
	HighScore    int64
	TotalScore   int64
	GamesPlayed  int64
	LastPlayedAt time.Time
	// Seq is assigned by the store when the entry is created and orders players that share a high score.
	Seq int64
}

type RankedEntry struct {
	LeaderboardEntry
	Rank int
}

// Leaderboard is a ranked view of the players, sorted by high score in descending order.
type Leaderboard struct {
	Mode    string
	Entries []RankedEntry
	Message string
}

// Session is a play session accumulating the scores of its spins.
type Session struct {
	SessionID  string
	PlayerID   int64
	Mode       string
	TotalScore int64
	Spins      int64
	LastSpin   *Outcome
	CreateTime time.Time
}

// SpinRecord is a recorded free-play spin.
type SpinRecord struct {
	PlayerID int64
	Score    int64
	Time     time.Time
}
