// internal/games/wordguess.go
//
// Word Sprint: guess each hidden word in turn.
//
// Classification order:
//   1. anything outside a–z                 → invalid_characters
//   2. empty or shorter than the answer     → too_short
//   3. already tried for this word          → already_used
//   4. equal to the answer                  → exact
//   5. otherwise                            → no_match (with per-letter marks when lengths agree)

package games

import (
	"strings"

	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/hints"
)

// WordClassifier implements Classifier for word games.
type WordClassifier struct{}

// Classify implements Classifier.
func (WordClassifier) Classify(t content.Target, value string, prior []string) Classification {
	guess := strings.ToLower(strings.TrimSpace(value))
	c := Classification{Normalized: guess}

	switch {
	case !isAlpha(guess) && guess != "":
		c.Outcome = OutcomeInvalid
	case len(guess) < len(t.Answer):
		c.Outcome = OutcomeTooShort
	case contains(prior, guess):
		c.Outcome = OutcomeAlreadyUsed
	case guess == t.Answer:
		c.Outcome = OutcomeExact
	default:
		c.Outcome = OutcomeNoMatch
		if len(guess) == len(t.Answer) {
			c.Feedback = scoreGuess(t.Answer, guess)
		}
	}
	return c
}

// WordHints derives first-letter and letter-count hints from the answer and
// reads everything else from the target's precomputed hints.
type WordHints struct{}

// Hint implements HintGenerator.
func (WordHints) Hint(t content.Target, ht hints.Type) (string, error) {
	switch ht {
	case hints.FirstLetter:
		if t.Answer == "" {
			return "", ErrHintUnavailable
		}
		return t.Answer[:1], nil
	case hints.LetterCount:
		if t.Answer == "" {
			return "", ErrHintUnavailable
		}
		return itoa(len(t.Answer)), nil
	}
	return TargetHints{}.Hint(t, ht)
}

// scoreGuess implements the standard two-pass Wordle marking.
//
// Pass 1: mark exact matches as Hit and count remaining answer letters.
// Pass 2: for each non-hit guess letter, mark Present if a remaining count
// exists (and decrement it), otherwise Miss.
//
// Inputs must be equal-length lowercase a–z.
func scoreGuess(answer, guess string) []Mark {
	n := len(guess)
	res := make([]Mark, n)

	var counts [26]int
	for i := 0; i < n; i++ {
		if guess[i] == answer[i] {
			res[i] = MarkHit
		} else {
			counts[answer[i]-'a']++
		}
	}
	for i := 0; i < n; i++ {
		if res[i] == MarkHit {
			continue
		}
		j := guess[i] - 'a'
		if counts[j] > 0 {
			res[i] = MarkPresent
			counts[j]--
		} else {
			res[i] = MarkMiss
		}
	}
	return res
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
