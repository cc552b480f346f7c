package games

import (
	"strconv"
	"strings"

	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/scoring"
)

// MoleClassifier judges a whack: the submitted value is a hole index.
type MoleClassifier struct {
	Holes int
}

// Classify implements Classifier.
func (m MoleClassifier) Classify(t content.Target, value string, _ []string) Classification {
	v := strings.TrimSpace(value)
	c := Classification{Normalized: v}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (m.Holes > 0 && n >= m.Holes) {
		c.Outcome = OutcomeInvalid
		return c
	}
	c.Normalized = strconv.Itoa(n)
	if c.Normalized == t.Answer {
		c.Outcome = OutcomeExact
	} else {
		c.Outcome = OutcomeNoMatch
	}
	return c
}

// TileClassifier judges a drop: the submitted value is a column offset.
// Landing one column off still stacks, for half the worth.
type TileClassifier struct {
	Width int
}

// Classify implements Classifier.
func (tc TileClassifier) Classify(t content.Target, value string, _ []string) Classification {
	v := strings.TrimSpace(value)
	c := Classification{Normalized: v}
	x, err := strconv.Atoi(v)
	if err != nil || x < 0 || (tc.Width > 0 && x >= tc.Width) {
		c.Outcome = OutcomeInvalid
		return c
	}
	c.Normalized = strconv.Itoa(x)
	want, err := strconv.Atoi(t.Answer)
	if err != nil {
		c.Outcome = OutcomeNoMatch
		return c
	}
	switch d := abs(x - want); {
	case d == 0:
		c.Outcome = OutcomeExact
	case d == 1:
		c.Outcome = OutcomeClose
		c.Worth = max(t.Worth/2, 1)
	default:
		c.Outcome = OutcomeNoMatch
	}
	return c
}

// TargetHints serves hints straight from the target's precomputed map.
type TargetHints struct{}

// Hint implements HintGenerator.
func (TargetHints) Hint(t content.Target, ht hints.Type) (string, error) {
	if h, ok := t.Hints[ht]; ok && h != "" {
		return h, nil
	}
	return "", ErrHintUnavailable
}

// ModeModifiers returns the modifiers configured for the session's mode,
// followed by any power-ups attached at start.
type ModeModifiers struct {
	Modes map[string][]scoring.Modifier
}

// Modifiers implements ModifierProvider.
func (m ModeModifiers) Modifiers(ctx ModifierContext) []scoring.Modifier {
	var out []scoring.Modifier
	out = append(out, m.Modes[ctx.Mode]...)
	out = append(out, ctx.PowerUps...)
	return out
}

// FrenzyModifiers adds a multiplier once the streak reaches Threshold, on
// top of the mode modifiers.
type FrenzyModifiers struct {
	ModeModifiers
	Threshold int
	Factor    float64
}

// Modifiers implements ModifierProvider.
func (f FrenzyModifiers) Modifiers(ctx ModifierContext) []scoring.Modifier {
	out := f.ModeModifiers.Modifiers(ctx)
	if f.Threshold > 0 && ctx.Streak >= f.Threshold {
		out = append(out, scoring.Modifier{Name: "frenzy", Op: scoring.OpMultiply, Value: f.Factor})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }
