package payout_test

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/errors"
	"github.com/victornm/jackpot/internal/payout"
)

// fixedRand returns its values in order and remembers the bounds it was asked for.
type fixedRand struct {
	values []int64
	bounds []int64
}

func (r *fixedRand) Int64N(n int64) int64 {
	r.bounds = append(r.bounds, n)
	v := r.values[0]
	r.values = r.values[1:]
	return v
}

func TestGenerator_Draw(t *testing.T) {
	tests := map[string]struct {
		r    int64
		want domain.Outcome
	}{
		"lowest value selects the first entry": {
			r:    0,
			want: domain.Outcome{Score: 1000, IsJackpot: true, Badge: domain.BadgeGold},
		},
		"last value of the first bucket still selects the first entry": {
			r:    1,
			want: domain.Outcome{Score: 1000, IsJackpot: true, Badge: domain.BadgeGold},
		},
		"first value of the second bucket selects the second entry": {
			r:    2,
			want: domain.Outcome{Score: 500, Badge: domain.BadgeGold},
		},
		"silver bucket": {
			r:    15,
			want: domain.Outcome{Score: 100, Badge: domain.BadgeSilver},
		},
		"no badge below silver": {
			r:    27,
			want: domain.Outcome{Score: 50},
		},
		"highest value selects the last entry": {
			r:    99,
			want: domain.Outcome{Score: 0},
		},
		"out of range value falls back to a losing outcome": {
			r:    100,
			want: domain.Outcome{Score: 0, IsJackpot: false},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := &fixedRand{values: []int64{tt.r}}
			g, err := payout.NewGenerator(payout.Config{Table: payout.DefaultTable(), Rand: r})
			require.NoError(t, err)

			got := g.Draw()
			require.Equal(t, tt.want, got)
			require.Equal(t, []int64{100}, r.bounds, "should draw within the total weight")
		})
	}
}

func TestGenerator_DrawEntry_Fallback(t *testing.T) {
	g, err := payout.NewGenerator(payout.Config{
		Table: payout.DefaultTable(),
		Rand:  &fixedRand{values: []int64{1 << 40}},
	})
	require.NoError(t, err)

	e, o := g.DrawEntry()
	assert.Equal(t, domain.PayoutEntry{}, e)
	assert.Equal(t, domain.Outcome{}, o)
}

func TestGenerator_Draw_Distribution(t *testing.T) {
	table := payout.DefaultTable()
	g, err := payout.NewGenerator(payout.Config{
		Table: table,
		Rand:  rand.New(rand.NewPCG(42, 1024)),
	})
	require.NoError(t, err)

	const rounds = 200_000
	count := make(map[int64]int)
	jackpot, _ := table.Jackpot()

	for i := 0; i < rounds; i++ {
		o := g.Draw()
		count[o.Score]++

		require.Equal(t, o.Score == jackpot.Points, o.IsJackpot, "jackpot flag must follow the jackpot entry")
		require.Equal(t, domain.Badge(o.Score), o.Badge)
	}

	total := float64(table.TotalWeight())
	for _, e := range table {
		want := float64(e.Weight) / total
		got := float64(count[e.Points]) / rounds
		assert.InDelta(t, want, got, 0.01, "frequency of %s", e.Label)
	}

	var seen int
	for _, c := range count {
		seen += c
	}
	assert.Equal(t, rounds, seen, "every score must belong to a table entry")
	assert.Len(t, count, len(table))
}

func TestGenerator_DefaultRand(t *testing.T) {
	table := payout.DefaultTable()
	g, err := payout.NewGenerator(payout.Config{Table: table})
	require.NoError(t, err)

	points := make(map[int64]bool)
	for _, e := range table {
		points[e.Points] = true
	}

	for i := 0; i < 100; i++ {
		assert.True(t, points[g.Draw().Score])
	}
}

func TestGenerator_Table_IsCopied(t *testing.T) {
	table := payout.DefaultTable()
	g, err := payout.NewGenerator(payout.Config{Table: table})
	require.NoError(t, err)

	table[0].Points = 1
	got := g.Table()
	assert.Equal(t, int64(1000), got[0].Points)

	got[0].Points = 2
	assert.Equal(t, int64(1000), g.Table()[0].Points)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		table   payout.Table
		wantErr bool
	}{
		"default table is valid": {
			table: payout.DefaultTable(),
		},
		"single jackpot entry is valid": {
			table: payout.Table{{Label: "ALL", Points: 10, Weight: 1, IsJackpot: true}},
		},
		"empty table": {
			table:   payout.Table{},
			wantErr: true,
		},
		"zero weight": {
			table: payout.Table{
				{Points: 10, Weight: 1, IsJackpot: true},
				{Points: 0, Weight: 0},
			},
			wantErr: true,
		},
		"negative points": {
			table: payout.Table{
				{Points: 10, Weight: 1, IsJackpot: true},
				{Points: -5, Weight: 3},
			},
			wantErr: true,
		},
		"no jackpot": {
			table: payout.Table{
				{Points: 10, Weight: 1},
				{Points: 0, Weight: 3},
			},
			wantErr: true,
		},
		"two jackpots": {
			table: payout.Table{
				{Points: 10, Weight: 1, IsJackpot: true},
				{Points: 10, Weight: 3, IsJackpot: true},
			},
			wantErr: true,
		},
		"jackpot is not the top prize": {
			table: payout.Table{
				{Points: 10, Weight: 1, IsJackpot: true},
				{Points: 20, Weight: 3},
			},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := payout.Validate(tt.table)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeFailedPrecondition), "should be a configuration error: %v", err)

			_, err = payout.NewGenerator(payout.Config{Table: tt.table})
			assert.Error(t, err, "generator must reject the table at construction")
		})
	}
}

func TestGenerator_Stats(t *testing.T) {
	g, err := payout.NewGenerator(payout.Config{Table: payout.DefaultTable()})
	require.NoError(t, err)

	s := g.Stats()
	require.Len(t, s.Entries, 8)
	assert.True(t, decimal.NewFromInt(91).Equal(s.ExpectedPoints), "got %s", s.ExpectedPoints)
	assert.True(t, decimal.RequireFromString("0.02").Equal(s.JackpotOdds), "got %s", s.JackpotOdds)
	assert.True(t, decimal.RequireFromString("0.2").Equal(s.Entries[7].Probability), "got %s", s.Entries[7].Probability)

	sum := decimal.Zero
	for _, e := range s.Entries {
		sum = sum.Add(e.Probability)
	}
	assert.True(t, decimal.NewFromInt(1).Equal(sum), "got %s", sum)
}
