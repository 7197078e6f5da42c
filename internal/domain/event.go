package domain

const (
	EventNameSpinDrawn          = "spin.drawn"
	EventNameScoreSubmitted     = "score.submitted"
	EventNameLeaderboardUpdated = "leaderboard.updated"
	EventNameMiniApp            = "miniapp.event"
)

type EventSpinDrawn struct {
	PlayerID int64
	Mode     string
	Label    string
	Outcome  Outcome
}

func (EventSpinDrawn) Name() string { return EventNameSpinDrawn }

type EventScoreSubmitted struct {
	Entry LeaderboardEntry
	Rank  int
}

func (EventScoreSubmitted) Name() string { return EventNameScoreSubmitted }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }

// EventMiniApp is a lifecycle notification received from the mini-app host.
type EventMiniApp struct {
	Type     string
	PlayerID int64
}

func (EventMiniApp) Name() string { return EventNameMiniApp }
