// Package hints implements the hint economy: a per-session budget counted in
// hints, and a flat point cost per hint type that the engine deducts from
// the score.
package hints

import (
	"errors"
	"sort"
)

// Type names a kind of hint. Games decide which types they support.
type Type string

const (
	FirstLetter Type = "first_letter"
	Definition  Type = "definition"
	LetterCount Type = "letter_count"
	Reveal      Type = "reveal"
)

var (
	// ErrNoHintsRemaining is returned when the budget is spent.
	ErrNoHintsRemaining = errors.New("no hints remaining")
	// ErrUnknownHint is returned for a type missing from the cost table.
	ErrUnknownHint = errors.New("unknown hint type")
)

// Ledger is the cost table plus the budget. It holds no per-session state;
// the caller passes in how many hints were already used.
type Ledger struct {
	Costs    map[Type]int `yaml:"costs"`
	MaxHints int          `yaml:"max_hints"`
}

// DefaultLedger matches the word games' schedule.
func DefaultLedger() Ledger {
	return Ledger{
		Costs: map[Type]int{
			FirstLetter: 10,
			Definition:  20,
			LetterCount: 5,
			Reveal:      15,
		},
		MaxHints: 3,
	}
}

// Charge is the outcome of a successful Consume.
type Charge struct {
	Type      Type `json:"type"`
	Cost      int  `json:"cost"`
	Remaining int  `json:"remaining"`
}

// Consume charges one hint of type t against a budget of max with used
// hints already taken.
func (l Ledger) Consume(used, max int, t Type) (Charge, error) {
	cost, ok := l.Costs[t]
	if !ok {
		return Charge{}, ErrUnknownHint
	}
	if used >= max {
		return Charge{Type: t, Remaining: 0}, ErrNoHintsRemaining
	}
	return Charge{Type: t, Cost: cost, Remaining: max - used - 1}, nil
}

// Cost looks up a hint's price without touching any budget.
func (l Ledger) Cost(t Type) (int, bool) {
	c, ok := l.Costs[t]
	return c, ok
}

// Types lists the supported hint types, sorted.
func (l Ledger) Types() []Type {
	out := make([]Type, 0, len(l.Costs))
	for t := range l.Costs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deduct subtracts cost from score, clamping at zero.
func Deduct(score, cost int) int {
	if cost <= 0 {
		return score
	}
	if cost >= score {
		return 0
	}
	return score - cost
}
