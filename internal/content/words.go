// internal/content/words.go
//
// Word bank for the word-guessing games.
//
// Loading (LoadWordBank):
//   1. If path is set, read "word<TAB>definition" lines from that file.
//   2. Otherwise fall back to the embedded assets/words.txt.
//
// Constraints:
//   • Words are lowercase a–z only; anything else is dropped.
//   • Duplicate words keep the first definition seen.

package content

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/robalobadob/arcade/assets"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/scoring"
)

// WordBank holds words grouped by length.
type WordBank struct {
	byLen   map[int][]assets.WordLine
	allowed map[string]struct{}
}

// LoadWordBank reads path, or the embedded list when path is empty.
func LoadWordBank(path string) (*WordBank, error) {
	var (
		lines []assets.WordLine
		err   error
	)
	if path != "" {
		lines, err = assets.WordsFile(path)
	} else {
		lines, err = assets.Words()
	}
	if err != nil {
		return nil, fmt.Errorf("read word list %q: %w", path, err)
	}
	wb := NewWordBank(lines)
	if len(wb.allowed) == 0 {
		return nil, fmt.Errorf("word bank is empty")
	}
	return wb, nil
}

// NewWordBank builds a bank from already-parsed lines.
func NewWordBank(lines []assets.WordLine) *WordBank {
	wb := &WordBank{
		byLen:   make(map[int][]assets.WordLine),
		allowed: make(map[string]struct{}),
	}
	for _, l := range lines {
		if !isAlpha(l.Word) {
			continue
		}
		if _, dup := wb.allowed[l.Word]; dup {
			continue
		}
		wb.allowed[l.Word] = struct{}{}
		wb.byLen[len(l.Word)] = append(wb.byLen[len(l.Word)], l)
	}
	return wb
}

// isAlpha reports whether s is non-empty and all lowercase ASCII letters.
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsWord reports whether w is in the bank.
func (wb *WordBank) IsWord(w string) bool {
	_, ok := wb.allowed[strings.ToLower(w)]
	return ok
}

// Stats returns total words and the available lengths.
func (wb *WordBank) Stats() (total int, lengths []int) {
	for n := range wb.byLen {
		lengths = append(lengths, n)
	}
	sort.Ints(lengths)
	return len(wb.allowed), lengths
}

// LengthFor maps a difficulty to a default word length.
func LengthFor(d scoring.Difficulty) int {
	switch d {
	case scoring.Easy:
		return 4
	case scoring.Hard:
		return 6
	default:
		return 5
	}
}

// Targets implements Provider: Count distinct words of the requested length.
func (wb *WordBank) Targets(_ context.Context, req Request) ([]Target, error) {
	n := req.WordLength
	if n <= 0 {
		n = LengthFor(req.Difficulty)
	}
	pool := wb.byLen[n]
	if req.Count <= 0 || req.Count > len(pool) {
		return nil, fmt.Errorf("%w: want %d words of length %d, have %d", ErrNotEnoughContent, req.Count, n, len(pool))
	}

	r := rng(req.Seed)
	order := r.Perm(len(pool))
	out := make([]Target, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		w := pool[order[i]]
		h := map[hints.Type]string{
			hints.FirstLetter: w.Word[:1],
			hints.LetterCount: strconv.Itoa(len(w.Word)),
		}
		if w.Definition != "" {
			h[hints.Definition] = w.Definition
		}
		out = append(out, Target{
			ID:     "w" + strconv.Itoa(i+1),
			Answer: w.Word,
			Worth:  len(w.Word),
			Hints:  h,
		})
	}
	return out, nil
}
