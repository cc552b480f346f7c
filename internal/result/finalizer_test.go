package result

import (
	"testing"
	"time"
)

func TestAccuracy(t *testing.T) {
	if got := Accuracy(0, 0); got != 1 {
		t.Errorf("zero attempts: expected 1, got %v", got)
	}
	if got := Accuracy(4, 5); got != 0.8 {
		t.Errorf("expected 0.8, got %v", got)
	}
	if got := Accuracy(0, 3); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		name    string
		samples []int64
		want    float64
	}{
		{"empty", nil, 1},
		{"single sample", []int64{1234}, 1},
		{"identical", []int64{500, 500, 500}, 1},
		{"all zero guarded mean", []int64{0, 0, 0}, 1},
		// mean 1150, population stddev ~536.19
		{"spread", []int64{1200, 800, 600, 2000}, 0.534},
		// mean 0.5, stddev 0.5, divided by max(0.5,1)=1
		{"tiny mean", []int64{0, 1}, 0.5},
		// stddev larger than mean clamps to zero
		{"wild", []int64{1, 1, 1, 10000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consistency(tt.samples)
			if got != tt.want {
				t.Errorf("Consistency(%v) = %v, want %v", tt.samples, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("out of bounds: %v", got)
			}
		})
	}
}

func TestCompletionPct(t *testing.T) {
	cases := []struct{ done, total, want int }{
		{4, 5, 80},
		{5, 5, 100},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{7, 5, 100},
		{1, 0, 0},
	}
	for _, c := range cases {
		if got := CompletionPct(c.done, c.total); got != c.want {
			t.Errorf("CompletionPct(%d, %d) = %d, want %d", c.done, c.total, got, c.want)
		}
	}
}

func TestRatingBuckets(t *testing.T) {
	f := NewFinalizer(nil)
	cases := map[int]string{
		1500: "Genius",
		1000: "Genius",
		999:  "Excellent",
		800:  "Excellent",
		650:  "Great",
		400:  "Good",
		200:  "Fair",
		0:    "Beginner",
	}
	for score, want := range cases {
		if got := f.Rating(score); got != want {
			t.Errorf("Rating(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestCustomBucketsAreSorted(t *testing.T) {
	f := NewFinalizer([]Bucket{
		{MinScore: 0, Label: "Mole Novice"},
		{MinScore: 300, Label: "Mole Master"},
		{MinScore: 100, Label: "Mole Hunter"},
	})
	if got := f.Rating(150); got != "Mole Hunter" {
		t.Fatalf("expected Mole Hunter, got %q", got)
	}
}

func TestFinalize(t *testing.T) {
	end := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	f := NewFinalizer(nil)
	r := f.Finalize(Input{
		Score:       850,
		Successes:   4,
		Attempts:    5,
		Completed:   4,
		Total:       5,
		ReactionsMs: []int64{1200, 800, 600, 2000},
		Reason:      ReasonForced,
		EndedAt:     end,
	})
	if r.Accuracy != 0.8 || r.CompletionPct != 80 || r.Rating != "Excellent" || r.Consistency != 0.534 {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.Reason != ReasonForced || !r.EndedAt.Equal(end) {
		t.Fatalf("unexpected reason/end %+v", r)
	}
}
