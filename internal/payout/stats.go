package payout

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/jackpot/internal/domain"
)

const probabilityPrecision = 6

type EntryStats struct {
	Entry       domain.PayoutEntry
	Probability decimal.Decimal
}

type Stats struct {
	Entries []EntryStats
	// ExpectedPoints is the mean score of a single spin.
	ExpectedPoints decimal.Decimal
	// JackpotOdds is the probability of hitting the jackpot on a single spin.
	JackpotOdds decimal.Decimal
}

// Stats computes the exact probability of every entry and the expected points per spin.
func (g *Generator) Stats() Stats {
	total := decimal.NewFromInt(g.total)

	s := Stats{
		Entries:        make([]EntryStats, 0, len(g.table)),
		ExpectedPoints: decimal.Zero,
		JackpotOdds:    decimal.Zero,
	}

	for _, e := range g.table {
		w := decimal.NewFromInt(e.Weight)
		p := w.DivRound(total, probabilityPrecision)

		s.Entries = append(s.Entries, EntryStats{Entry: e, Probability: p})
		s.ExpectedPoints = s.ExpectedPoints.Add(decimal.NewFromInt(e.Points).Mul(w))
		if e.IsJackpot {
			s.JackpotOdds = p
		}
	}

	s.ExpectedPoints = s.ExpectedPoints.DivRound(total, probabilityPrecision)
	return s
}
