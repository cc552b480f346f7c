// internal/games/types.go
//
// Strategy interfaces the session engine plugs each game into, plus the
// closed outcome taxonomy every game classifies into.
//
// Defines:
//   - Outcome:          per-attempt classification (exact, no_match, ...).
//   - Tally:            fixed-key counters indexed by Outcome.
//   - Classifier:       submitted value → Classification.
//   - HintGenerator:    target + hint type → hint text.
//   - ModifierProvider: session context → active score modifiers.
//   - Finalizer:        end-of-session history → result.Result.

package games

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/result"
	"github.com/robalobadob/arcade/internal/scoring"
)

// Outcome classifies one attempt. The set is closed.
type Outcome int

const (
	OutcomeExact       Outcome = iota // the target, exactly
	OutcomeClose                      // close enough to count (tiles within one column)
	OutcomeAlreadyUsed                // repeated a value already tried for this target
	OutcomeTooShort                   // shorter than the target
	OutcomeInvalid                    // characters or format the game rejects
	OutcomeNoMatch                    // well-formed but wrong
	NumOutcomes
)

var outcomeNames = [NumOutcomes]string{
	OutcomeExact:       "exact",
	OutcomeClose:       "close",
	OutcomeAlreadyUsed: "already_used",
	OutcomeTooShort:    "too_short",
	OutcomeInvalid:     "invalid_characters",
	OutcomeNoMatch:     "no_match",
}

func (o Outcome) String() string {
	if o < 0 || o >= NumOutcomes {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Success reports whether the outcome advances the session.
func (o Outcome) Success() bool {
	return o == OutcomeExact || o == OutcomeClose
}

// ParseOutcome is the inverse of String.
func ParseOutcome(s string) (Outcome, error) {
	for i, n := range outcomeNames {
		if n == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if o < 0 || o >= NumOutcomes {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Tally counts attempts per outcome.
type Tally [NumOutcomes]int

// Add bumps the counter for o.
func (t *Tally) Add(o Outcome) {
	if o >= 0 && o < NumOutcomes {
		t[o]++
	}
}

// MarshalJSON encodes the tally as {"exact": 3, ...}.
func (t Tally) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, NumOutcomes)
	for i, n := range t {
		m[Outcome(i).String()] = n
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the map form; unknown keys are an error.
func (t *Tally) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Tally
	for k, v := range m {
		o, err := ParseOutcome(k)
		if err != nil {
			return err
		}
		out[o] = v
	}
	*t = out
	return nil
}

// Mark is per-letter feedback for word games.
type Mark string

const (
	MarkHit     Mark = "hit"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
)

// Classification is what a Classifier says about one submitted value.
type Classification struct {
	Outcome Outcome
	// Worth is the value fed to the scoring policy; zero means the target's worth.
	Worth    int
	Feedback []Mark
	// Normalized is the value as the game understood it (trimmed, lowercased, ...).
	Normalized string
}

// Classifier judges a submitted value against the current target. prior
// holds the normalized values already tried for this target.
type Classifier interface {
	Classify(t content.Target, value string, prior []string) Classification
}

// ErrHintUnavailable is returned when a target has no hint of that type.
var ErrHintUnavailable = errors.New("hint unavailable for target")

// HintGenerator produces hint text for the current target.
type HintGenerator interface {
	Hint(t content.Target, ht hints.Type) (string, error)
}

// ModifierContext is what a ModifierProvider may look at.
type ModifierContext struct {
	Mode       string
	Difficulty scoring.Difficulty
	Streak     int
	// PowerUps are modifiers the caller attached to the session at start.
	PowerUps []scoring.Modifier
}

// ModifierProvider returns the modifiers active for the next scored attempt.
type ModifierProvider interface {
	Modifiers(ctx ModifierContext) []scoring.Modifier
}

// Finalizer turns a finished session's history into its Result.
// *result.Finalizer is the only production implementation.
type Finalizer interface {
	Finalize(in result.Input) result.Result
	Rating(score int) string
}
