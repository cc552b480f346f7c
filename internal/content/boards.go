package content

import (
	"context"
	"fmt"
	"strconv"

	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/scoring"
)

// Moles generates whack-a-mole pop-ups: each target is a hole index on a
// GridSize×GridSize board. The same hole never pops twice in a row.
type Moles struct{}

// Targets implements Provider.
func (Moles) Targets(_ context.Context, req Request) ([]Target, error) {
	size := req.GridSize
	if size < 2 {
		return nil, fmt.Errorf("%w: grid size %d too small", ErrNotEnoughContent, size)
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrNotEnoughContent)
	}
	holes := size * size
	worth := 1
	if req.Difficulty == scoring.Hard {
		worth = 2
	}

	r := rng(req.Seed)
	out := make([]Target, 0, req.Count)
	prev := -1
	for i := 0; i < req.Count; i++ {
		h := r.IntN(holes)
		if h == prev {
			h = (h + 1 + r.IntN(holes-1)) % holes
		}
		prev = h
		out = append(out, Target{
			ID:     "m" + strconv.Itoa(i+1),
			Answer: strconv.Itoa(h),
			Worth:  worth,
			Hints: map[hints.Type]string{
				hints.Reveal: fmt.Sprintf("row %d, column %d", h/size+1, h%size+1),
			},
		})
	}
	return out, nil
}

// Tiles generates a tower: each target is the column offset the next tile
// has to land on. Higher floors are worth more.
type Tiles struct{}

// Targets implements Provider.
func (Tiles) Targets(_ context.Context, req Request) ([]Target, error) {
	width := req.GridSize
	if width < 3 {
		return nil, fmt.Errorf("%w: width %d too small", ErrNotEnoughContent, width)
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrNotEnoughContent)
	}
	r := rng(req.Seed)
	out := make([]Target, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		x := r.IntN(width)
		out = append(out, Target{
			ID:     "t" + strconv.Itoa(i+1),
			Answer: strconv.Itoa(x),
			Worth:  1 + i/5,
			Hints: map[hints.Type]string{
				hints.Reveal: "column " + strconv.Itoa(x),
			},
		})
	}
	return out, nil
}
