package payout

import (
	"github.com/go-playground/validator/v10"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/errors"
)

// Table is the ordered list of payout entries. Draws scan it in order, so reordering a table changes which
// random values map to which entry but not the probabilities.
type Table []domain.PayoutEntry

// DefaultTable returns the wheel ranked by crypto market cap, BTC being the jackpot.
func DefaultTable() Table {
	return Table{
		{Label: "BTC", Points: 1000, Weight: 2, IsJackpot: true},
		{Label: "ETH", Points: 500, Weight: 5},
		{Label: "XRP", Points: 250, Weight: 8},
		{Label: "BNB", Points: 100, Weight: 12},
		{Label: "SOL", Points: 50, Weight: 15},
		{Label: "CELO", Points: 25, Weight: 18},
		{Label: "OP", Points: 10, Weight: 20},
		{Label: "MISS", Points: 0, Weight: 20},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects tables that cannot be drawn from. The returned error has code FailedPrecondition.
func Validate(t Table) error {
	if len(t) == 0 {
		return errors.Configuration("payout table is empty")
	}

	jackpot := -1
	for i, e := range t {
		if err := validate.Struct(e); err != nil {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("payout table: entry %d (%s) is invalid", i, e.Label),
				errors.WithCause(err),
			)
		}

		if !e.IsJackpot {
			continue
		}
		if jackpot >= 0 {
			return errors.Configuration("payout table: entries %d and %d are both marked as jackpot", jackpot, i)
		}
		jackpot = i
	}

	if jackpot < 0 {
		return errors.Configuration("payout table: no jackpot entry")
	}

	for i, e := range t {
		if i != jackpot && e.Points >= t[jackpot].Points {
			return errors.Configuration("payout table: entry %d (%s) pays %d, not less than the jackpot %d",
				i, e.Label, e.Points, t[jackpot].Points)
		}
	}

	return nil
}

// TotalWeight returns the sum of all weights.
func (t Table) TotalWeight() int64 {
	var total int64
	for _, e := range t {
		total += e.Weight
	}
	return total
}

// Jackpot returns the jackpot entry.
func (t Table) Jackpot() (domain.PayoutEntry, bool) {
	for _, e := range t {
		if e.IsJackpot {
			return e, true
		}
	}
	return domain.PayoutEntry{}, false
}

// MaxPoints returns the highest single-spin payout.
func (t Table) MaxPoints() int64 {
	var m int64
	for _, e := range t {
		m = max(m, e.Points)
	}
	return m
}
