package payout

import (
	"crypto/rand"
	"math/big"

	"github.com/victornm/jackpot/internal/domain"
)

// Rand draws a uniform integer in [0, n).
type Rand interface {
	Int64N(n int64) int64
}

// CryptoRand is a Rand backed by crypto/rand.
type CryptoRand struct{}

func (CryptoRand) Int64N(n int64) int64 {
	r, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return r.Int64()
}

type Config struct {
	Table Table
	// Rand defaults to CryptoRand.
	Rand Rand
}

// Generator draws weighted random outcomes from a validated payout table. It is safe for concurrent use as
// long as its Rand is.
type Generator struct {
	table Table
	total int64
	rand  Rand
}

// NewGenerator validates the table once, so draws never see a degenerate table.
func NewGenerator(c Config) (*Generator, error) {
	if err := Validate(c.Table); err != nil {
		return nil, err
	}

	g := &Generator{
		table: append(Table(nil), c.Table...),
		total: c.Table.TotalWeight(),
		rand:  c.Rand,
	}
	if g.rand == nil {
		g.rand = CryptoRand{}
	}

	return g, nil
}

// Table returns a copy of the payout table.
func (g *Generator) Table() Table {
	return append(Table(nil), g.table...)
}

// Draw spins once and returns the outcome.
func (g *Generator) Draw() domain.Outcome {
	_, o := g.DrawEntry()
	return o
}

// DrawEntry spins once and returns the selected entry along with the outcome. When no entry is selected,
// which only a misbehaving Rand can cause, it returns a zero entry and a losing outcome.
func (g *Generator) DrawEntry() (domain.PayoutEntry, domain.Outcome) {
	r := g.rand.Int64N(g.total)

	for _, e := range g.table {
		r -= e.Weight
		if r < 0 {
			return e, domain.Outcome{
				Score:     e.Points,
				IsJackpot: e.IsJackpot,
				Badge:     domain.Badge(e.Points),
			}
		}
	}

	return domain.PayoutEntry{}, domain.Outcome{Score: 0, IsJackpot: false}
}
