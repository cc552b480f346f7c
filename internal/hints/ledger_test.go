package hints

import (
	"errors"
	"testing"
)

func TestConsumeBudget(t *testing.T) {
	l := DefaultLedger()

	c, err := l.Consume(0, 2, FirstLetter)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if c.Cost != 10 || c.Remaining != 1 {
		t.Fatalf("unexpected charge %+v", c)
	}

	c, err = l.Consume(1, 2, Definition)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if c.Cost != 20 || c.Remaining != 0 {
		t.Fatalf("unexpected charge %+v", c)
	}

	if _, err := l.Consume(2, 2, FirstLetter); !errors.Is(err, ErrNoHintsRemaining) {
		t.Fatalf("expected ErrNoHintsRemaining, got %v", err)
	}
}

func TestConsumeUnknownType(t *testing.T) {
	l := DefaultLedger()
	if _, err := l.Consume(0, 3, Type("anagram")); !errors.Is(err, ErrUnknownHint) {
		t.Fatalf("expected ErrUnknownHint, got %v", err)
	}
}

func TestDeductClampsAtZero(t *testing.T) {
	cases := []struct{ score, cost, want int }{
		{100, 10, 90},
		{5, 10, 0},
		{10, 10, 0},
		{0, 20, 0},
		{7, 0, 7},
	}
	for _, c := range cases {
		if got := Deduct(c.score, c.cost); got != c.want {
			t.Errorf("Deduct(%d, %d) = %d, want %d", c.score, c.cost, got, c.want)
		}
	}
}

func TestTypesSorted(t *testing.T) {
	got := DefaultLedger().Types()
	want := []Type{Definition, FirstLetter, LetterCount, Reveal}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
