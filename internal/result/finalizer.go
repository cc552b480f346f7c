// internal/result/finalizer.go
//
// Aggregate metrics computed once, when a session reaches a terminal state.
//
//   accuracy    = successes / attempts            (1.0 when there are no attempts)
//   consistency = 1 - stddev / max(mean, 1)       (population stddev, clamped to [0,1], 3 decimals)
//   completion  = round(100 * completed / total)  (clamped to [0,100])
//   rating      = first bucket whose MinScore <= score, buckets sorted high → low

package result

import (
	"math"
	"sort"
	"time"
)

// Reason records why a session ended.
type Reason string

const (
	ReasonCompleted Reason = "completed" // target count reached
	ReasonExpired   Reason = "expired"   // time budget exhausted
	ReasonForced    Reason = "forced"    // explicit forceComplete
)

// Bucket is one tier of the rating step function.
type Bucket struct {
	MinScore int    `json:"minScore" yaml:"min_score"`
	Label    string `json:"label" yaml:"label"`
}

// DefaultBuckets are the breakpoints used unless a game supplies its own.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{MinScore: 1000, Label: "Genius"},
		{MinScore: 800, Label: "Excellent"},
		{MinScore: 600, Label: "Great"},
		{MinScore: 400, Label: "Good"},
		{MinScore: 200, Label: "Fair"},
		{MinScore: 0, Label: "Beginner"},
	}
}

// Input is the full history the finalizer needs.
type Input struct {
	Score       int
	Successes   int
	Attempts    int
	Completed   int
	Total       int
	ReactionsMs []int64
	Reason      Reason
	EndedAt     time.Time
}

// Result is the immutable outcome of a session.
type Result struct {
	Score         int       `json:"score"`
	Accuracy      float64   `json:"accuracy"`
	Consistency   float64   `json:"consistency"`
	Rating        string    `json:"rating"`
	CompletionPct int       `json:"completionPct"`
	Completed     int       `json:"completed"`
	Total         int       `json:"total"`
	Reason        Reason    `json:"reason"`
	EndedAt       time.Time `json:"endedAt"`
}

// Finalizer turns a history into a Result.
type Finalizer struct {
	buckets []Bucket
}

// NewFinalizer sorts buckets high → low. An empty table uses DefaultBuckets.
func NewFinalizer(buckets []Bucket) *Finalizer {
	if len(buckets) == 0 {
		buckets = DefaultBuckets()
	}
	b := append([]Bucket(nil), buckets...)
	sort.SliceStable(b, func(i, j int) bool { return b[i].MinScore > b[j].MinScore })
	return &Finalizer{buckets: b}
}

// Finalize computes the Result for in.
func (f *Finalizer) Finalize(in Input) Result {
	return Result{
		Score:         in.Score,
		Accuracy:      Accuracy(in.Successes, in.Attempts),
		Consistency:   Consistency(in.ReactionsMs),
		Rating:        f.Rating(in.Score),
		CompletionPct: CompletionPct(in.Completed, in.Total),
		Completed:     in.Completed,
		Total:         in.Total,
		Reason:        in.Reason,
		EndedAt:       in.EndedAt,
	}
}

// Rating returns the label for score, or "" if no bucket matches.
func (f *Finalizer) Rating(score int) string {
	for _, b := range f.buckets {
		if score >= b.MinScore {
			return b.Label
		}
	}
	return ""
}

// Accuracy is successes/attempts; an untouched session is fully accurate.
func Accuracy(successes, attempts int) float64 {
	if attempts <= 0 {
		return 1
	}
	a := float64(successes) / float64(attempts)
	return clamp01(a)
}

// Consistency rates how even the samples are. Empty or single-sample
// histories are perfectly consistent.
func Consistency(samples []int64) float64 {
	if len(samples) < 2 {
		return 1
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v)
	}
	n := float64(len(samples))
	mean := sum / n

	var sq float64
	for _, v := range samples {
		d := float64(v) - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / n)

	c := 1 - stddev/math.Max(mean, 1)
	return round3(clamp01(c))
}

// CompletionPct is round(100*done/total) clamped to [0,100].
func CompletionPct(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(done) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
