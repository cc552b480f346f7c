// Package achievements evaluates unlockable goals against a read-only view
// of a session. Predicates never see scoring internals and never mutate.
package achievements

// Snapshot is the subset of session state predicates may inspect.
type Snapshot struct {
	Score         int
	Attempts      int
	Successes     int
	Failures      int
	Streak        int
	BestStreak    int
	HintsUsed     int
	Accuracy      float64
	CompletionPct int
	// FastestMs is the quickest successful reaction time, 0 if none.
	FastestMs int64
	Completed bool
}

// Achievement is a named predicate.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Condition   func(Snapshot) bool `json:"-"`
}

// Evaluator holds an ordered registry. Evaluation order is insertion order.
type Evaluator struct {
	registry []Achievement
}

// New returns an evaluator over the given achievements. With none given the
// standard set is used.
func New(list ...Achievement) *Evaluator {
	if len(list) == 0 {
		list = Standard()
	}
	return &Evaluator{registry: list}
}

// Registry returns a copy of the registered achievements.
func (e *Evaluator) Registry() []Achievement {
	out := make([]Achievement, len(e.registry))
	copy(out, e.registry)
	return out
}

// Evaluate returns ids whose predicate holds for s and that are not already
// in unlocked. Duplicate ids in the registry are emitted at most once.
func (e *Evaluator) Evaluate(s Snapshot, unlocked []string) []string {
	seen := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		seen[id] = struct{}{}
	}
	var out []string
	for _, a := range e.registry {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		if a.Condition != nil && a.Condition(s) {
			seen[a.ID] = struct{}{}
			out = append(out, a.ID)
		}
	}
	return out
}

// Merge appends fresh ids to unlocked, skipping any already present.
func Merge(unlocked, fresh []string) []string {
	seen := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		seen[id] = struct{}{}
	}
	for _, id := range fresh {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unlocked = append(unlocked, id)
	}
	return unlocked
}

// Standard is the achievement set shared by every game.
func Standard() []Achievement {
	return []Achievement{
		{
			ID: "first_success", Name: "Off the Mark",
			Description: "Land your first successful attempt",
			Condition:   func(s Snapshot) bool { return s.Successes >= 1 },
		},
		{
			ID: "streak_3", Name: "Warming Up",
			Description: "Reach a streak of 3",
			Condition:   func(s Snapshot) bool { return s.BestStreak >= 3 },
		},
		{
			ID: "streak_5", Name: "On Fire",
			Description: "Reach a streak of 5",
			Condition:   func(s Snapshot) bool { return s.BestStreak >= 5 },
		},
		{
			ID: "streak_10", Name: "Unstoppable",
			Description: "Reach a streak of 10",
			Condition:   func(s Snapshot) bool { return s.BestStreak >= 10 },
		},
		{
			ID: "high_scorer", Name: "High Scorer",
			Description: "Score 1000 points in one session",
			Condition:   func(s Snapshot) bool { return s.Score >= 1000 },
		},
		{
			ID: "sharpshooter", Name: "Sharpshooter",
			Description: "Keep accuracy at 90% or better over at least 5 attempts",
			Condition:   func(s Snapshot) bool { return s.Attempts >= 5 && s.Accuracy >= 0.9 },
		},
		{
			ID: "lightning", Name: "Lightning Reflexes",
			Description: "Succeed in under half a second",
			Condition:   func(s Snapshot) bool { return s.FastestMs > 0 && s.FastestMs < 500 },
		},
		{
			ID: "completionist", Name: "Completionist",
			Description: "Clear every target",
			Condition:   func(s Snapshot) bool { return s.CompletionPct >= 100 },
		},
		{
			ID: "flawless", Name: "Flawless",
			Description: "Finish a session without a single miss",
			Condition: func(s Snapshot) bool {
				return s.Completed && s.CompletionPct >= 100 && s.Failures == 0
			},
		},
		{
			ID: "no_hints", Name: "Unassisted",
			Description: "Clear every target without using a hint",
			Condition: func(s Snapshot) bool {
				return s.Completed && s.CompletionPct >= 100 && s.HintsUsed == 0
			},
		},
	}
}
