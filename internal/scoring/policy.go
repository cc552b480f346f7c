// internal/scoring/policy.go
//
// Point calculation for a single attempt.
// A Policy is a pure function of its inputs; the engine owns all state.
//
// Order of operations:
//   1. Failures score 0 (a miss is penalized only by the absence of bonus).
//   2. Base = points-per-unit for the difficulty × target value.
//   3. Streak bonus every StreakEvery consecutive successes.
//   4. Speed bonus for reactions strictly under SpeedThresholdMs.
//   5. Modifiers (power-ups) folded strictly in list order.
//   6. Clamp to 0..MaxDelta.

package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Difficulty is the coarse tuning knob every game shares.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty normalizes s; empty means Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Medium, nil
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// ModifierOp selects how a modifier combines with the running total.
type ModifierOp string

const (
	OpMultiply ModifierOp = "multiply"
	OpAdd      ModifierOp = "add"
)

// Bounds on one attempt's delta, a session's running score and power-up values.
const (
	MaxDelta      = 1_000_000
	MaxScore      = math.MaxInt32
	MaxMultiplier = 10.0
	MaxAddend     = 1000.0
)

// Modifier is an active power-up.
type Modifier struct {
	Name  string     `json:"name" yaml:"name"`
	Op    ModifierOp `json:"op" yaml:"op"`
	Value float64    `json:"value" yaml:"value"`
}

// Validate rejects unknown ops and values outside the accepted range.
func (m Modifier) Validate() error {
	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return fmt.Errorf("power-up %q has a non-finite value", m.Name)
	}
	switch m.Op {
	case OpMultiply:
		if m.Value < 0 || m.Value > MaxMultiplier {
			return fmt.Errorf("power-up %q multiplier must be 0..%g, got %g", m.Name, MaxMultiplier, m.Value)
		}
	case OpAdd:
		if math.Abs(m.Value) > MaxAddend {
			return fmt.Errorf("power-up %q addend must be within ±%g, got %g", m.Name, MaxAddend, m.Value)
		}
	default:
		return fmt.Errorf("power-up %q has unknown op %q", m.Name, m.Op)
	}
	return nil
}

// AddScore adds delta to score, saturating at 0 and MaxScore.
func AddScore(score, delta int) int {
	sum := int64(score) + int64(delta)
	switch {
	case sum < 0:
		return 0
	case sum > MaxScore:
		return MaxScore
	}
	return int(sum)
}

// Policy holds the per-game scoring constants.
type Policy struct {
	PointsPerUnit    map[Difficulty]int `yaml:"points_per_unit"`
	StreakEvery      int                `yaml:"streak_every"`
	StreakBonus      int                `yaml:"streak_bonus"`
	SpeedThresholdMs int64              `yaml:"speed_threshold_ms"`
	SpeedBonus       int                `yaml:"speed_bonus"`
}

// DefaultPolicy is used when a game does not override scoring.
func DefaultPolicy() Policy {
	return Policy{
		PointsPerUnit:    map[Difficulty]int{Easy: 10, Medium: 15, Hard: 20},
		StreakEvery:      3,
		StreakBonus:      50,
		SpeedThresholdMs: 1000,
		SpeedBonus:       25,
	}
}

// Input is everything Score needs to know about one attempt.
type Input struct {
	Success    bool
	Difficulty Difficulty
	// Value is the target's intrinsic worth (word length, mole count, ...).
	Value      int
	// Streak is the streak length including this attempt.
	Streak     int
	ReactionMs int64
	Modifiers  []Modifier
}

// Breakdown itemizes a score so clients can show where points came from.
type Breakdown struct {
	Base   int `json:"base"`
	Streak int `json:"streak"`
	Speed  int `json:"speed"`
	Total  int `json:"total"`
}

// Score returns the non-negative point delta for in.
func (p Policy) Score(in Input) int {
	return p.Explain(in).Total
}

// Explain is Score with the intermediate terms exposed.
func (p Policy) Explain(in Input) Breakdown {
	if !in.Success {
		return Breakdown{}
	}
	var b Breakdown

	unit := p.PointsPerUnit[in.Difficulty]
	if unit == 0 {
		unit = DefaultPolicy().PointsPerUnit[Medium]
	}
	b.Base = unit * max(in.Value, 1)

	if p.StreakEvery > 0 && in.Streak > 0 && in.Streak%p.StreakEvery == 0 {
		b.Streak = p.StreakBonus
	}
	if in.ReactionMs > 0 && in.ReactionMs < p.SpeedThresholdMs {
		b.Speed = p.SpeedBonus
	}

	total := decimal.NewFromInt(int64(b.Base + b.Streak + b.Speed))
	total = ApplyModifiers(total, in.Modifiers)
	switch ceiling := decimal.NewFromInt(MaxDelta); {
	case total.IsNegative():
		return b
	case total.GreaterThan(ceiling):
		total = ceiling
	}
	b.Total = int(total.IntPart())
	return b
}

// ApplyModifiers folds mods into v in order. Unknown ops and non-finite
// values are ignored.
func ApplyModifiers(v decimal.Decimal, mods []Modifier) decimal.Decimal {
	for _, m := range mods {
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			continue
		}
		switch m.Op {
		case OpMultiply:
			v = v.Mul(decimal.NewFromFloat(m.Value))
		case OpAdd:
			v = v.Add(decimal.NewFromFloat(m.Value))
		}
	}
	return v
}
