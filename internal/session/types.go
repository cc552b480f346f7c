// internal/session/types.go
//
// Data model for one player's play session.
// Defines:
//   - Status:      active → paused ⇄ active → completed | expired.
//   - Config:      difficulty, mode, target count, time/hint budgets.
//   - Session:     the aggregate root the engine loads, mutates and saves.
//   - Attempt:     immutable record of one submitted value.
//   - HintRecord:  audit entry for every hint handed out (forced or not).
//   - View:        what callers see (no unsolved answers).

package session

import (
	"time"

	"github.com/robalobadob/arcade/internal/clock"
	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/games"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/result"
	"github.com/robalobadob/arcade/internal/scoring"
)

// Status is the lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	// StatusExpired is completion reached by running out of time. Views of
	// expired sessions still report Completed.
	StatusExpired Status = "expired"
)

// Terminal reports whether no further mutation is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Config is fixed at start.
type Config struct {
	Difficulty  scoring.Difficulty `json:"difficulty"`
	Mode        string             `json:"mode"`
	TargetCount int                `json:"targetCount"`
	GridSize    int                `json:"gridSize,omitempty"`
	WordLength  int                `json:"wordLength,omitempty"`
	// Duration is the time budget; zero means untimed.
	Duration time.Duration      `json:"duration"`
	MaxHints int                `json:"maxHints"`
	PowerUps []scoring.Modifier `json:"powerUps,omitempty"`
	Seed     string             `json:"seed,omitempty"`
}

// Attempt is never mutated after it is appended.
type Attempt struct {
	TargetID   string        `json:"targetId"`
	Value      string        `json:"value"`
	Outcome    games.Outcome `json:"outcome"`
	Feedback   []games.Mark  `json:"feedback,omitempty"`
	ReactionMs int64         `json:"reactionMs"`
	HintsUsed  int           `json:"hintsUsed"`
	Delta      int           `json:"delta"`
	At         time.Time     `json:"at"`
}

// HintRecord is the audit trail of handed-out hints.
type HintRecord struct {
	TargetID string     `json:"targetId"`
	Type     hints.Type `json:"type"`
	Cost     int        `json:"cost"`
	Forced   bool       `json:"forced"`
	At       time.Time  `json:"at"`
}

// Session is the aggregate root.
type Session struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId,omitempty"`
	Kind     string `json:"kind"`
	Config   Config `json:"config"`
	Status   Status `json:"status"`

	StartedAt   time.Time     `json:"startedAt"`
	EndedAt     *time.Time    `json:"endedAt,omitempty"`
	PausedAt    *time.Time    `json:"pausedAt,omitempty"`
	PausedTotal time.Duration `json:"pausedTotal"`

	Targets    []content.Target `json:"targets"`
	Cursor     int              `json:"cursor"`
	Attempts   []Attempt        `json:"attempts"`
	Successes  int              `json:"successes"`
	Failures   int              `json:"failures"`
	Streak     int              `json:"streak"`
	BestStreak int              `json:"bestStreak"`
	Tally      games.Tally      `json:"tally"`

	Score       int          `json:"score"`
	HintsUsed   int          `json:"hintsUsed"`
	ForcedHints int          `json:"forcedHints"`
	Hints       []HintRecord `json:"hints,omitempty"`

	Achievements []string       `json:"achievements"`
	Result       *result.Result `json:"result,omitempty"`
	EndNote      string         `json:"endNote,omitempty"`

	// Version is bumped by the store on every successful save.
	Version int64 `json:"version"`
}

// Clone returns a deep copy safe to mutate.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Config.PowerUps = append([]scoring.Modifier(nil), s.Config.PowerUps...)
	cp.Targets = append([]content.Target(nil), s.Targets...)
	cp.Attempts = append([]Attempt(nil), s.Attempts...)
	cp.Hints = append([]HintRecord(nil), s.Hints...)
	cp.Achievements = append([]string(nil), s.Achievements...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	if s.PausedAt != nil {
		t := *s.PausedAt
		cp.PausedAt = &t
	}
	if s.Result != nil {
		r := *s.Result
		cp.Result = &r
	}
	return &cp
}

// Elapsed is active play time at now.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.EndedAt != nil {
		now = *s.EndedAt
	}
	return clock.Elapsed(s.StartedAt, now, s.PausedTotal, s.PausedAt)
}

// OutOfTime reports whether a timed session has exceeded its budget at now.
func (s *Session) OutOfTime(now time.Time) bool {
	return s.Config.Duration > 0 && s.Elapsed(now) > s.Config.Duration
}

// Current returns the target being played, if any.
func (s *Session) Current() (content.Target, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Targets) {
		return content.Target{}, false
	}
	return s.Targets[s.Cursor], true
}

// priorValues lists the normalized values already tried for targetID.
func (s *Session) priorValues(targetID string) []string {
	var out []string
	for _, a := range s.Attempts {
		if a.TargetID == targetID {
			out = append(out, a.Value)
		}
	}
	return out
}

// reactions returns the reaction-time samples used for consistency.
func (s *Session) reactions() []int64 {
	out := make([]int64, 0, len(s.Attempts))
	for _, a := range s.Attempts {
		if a.ReactionMs > 0 {
			out = append(out, a.ReactionMs)
		}
	}
	return out
}

// fastestSuccess is the quickest successful reaction, 0 if none.
func (s *Session) fastestSuccess() int64 {
	var best int64
	for _, a := range s.Attempts {
		if !a.Outcome.Success() || a.ReactionMs <= 0 {
			continue
		}
		if best == 0 || a.ReactionMs < best {
			best = a.ReactionMs
		}
	}
	return best
}

// View is the caller-facing snapshot.
type View struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"playerId,omitempty"`
	Kind        string     `json:"kind"`
	Status      Status     `json:"status"`
	Terminal    bool       `json:"terminal"`
	Completed   bool       `json:"completed"`
	Config      Config     `json:"config"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	ElapsedMs   int64      `json:"elapsedMs"`
	RemainingMs int64      `json:"remainingMs,omitempty"`
	// OutOfTime is set when the budget is spent but no command has finalized
	// the session yet.
	OutOfTime      bool           `json:"outOfTime,omitempty"`
	CurrentTarget  string         `json:"currentTarget,omitempty"`
	TargetsDone    int            `json:"targetsDone"`
	TargetsTotal   int            `json:"targetsTotal"`
	CompletionPct  int            `json:"completionPct"`
	Accuracy       float64        `json:"accuracy"`
	Score          int            `json:"score"`
	Streak         int            `json:"streak"`
	BestStreak     int            `json:"bestStreak"`
	Successes      int            `json:"successes"`
	Failures       int            `json:"failures"`
	Tally          games.Tally    `json:"tally"`
	HintsUsed      int            `json:"hintsUsed"`
	HintsRemaining int            `json:"hintsRemaining"`
	ForcedHints    int            `json:"forcedHints,omitempty"`
	Attempts       []Attempt      `json:"attempts"`
	Achievements   []string       `json:"achievements"`
	Result         *result.Result `json:"result,omitempty"`
}

// ViewAt builds a View of s as seen at now.
func (s *Session) ViewAt(now time.Time) View {
	v := View{
		ID:             s.ID,
		PlayerID:       s.PlayerID,
		Kind:           s.Kind,
		Status:         s.Status,
		Terminal:       s.Status.Terminal(),
		Completed:      s.Status.Terminal(),
		Config:         s.Config,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		ElapsedMs:      s.Elapsed(now).Milliseconds(),
		TargetsDone:    s.Cursor,
		TargetsTotal:   len(s.Targets),
		CompletionPct:  result.CompletionPct(s.Cursor, len(s.Targets)),
		Accuracy:       result.Accuracy(s.Successes, len(s.Attempts)),
		Score:          s.Score,
		Streak:         s.Streak,
		BestStreak:     s.BestStreak,
		Successes:      s.Successes,
		Failures:       s.Failures,
		Tally:          s.Tally,
		HintsUsed:      s.HintsUsed,
		HintsRemaining: max(s.Config.MaxHints-s.HintsUsed, 0),
		ForcedHints:    s.ForcedHints,
		Attempts:       append([]Attempt(nil), s.Attempts...),
		Achievements:   append([]string(nil), s.Achievements...),
		Result:         s.Result,
	}
	if s.Config.Duration > 0 && !v.Terminal {
		rem := s.Config.Duration - s.Elapsed(now)
		if rem > 0 {
			v.RemainingMs = rem.Milliseconds()
		} else {
			v.OutOfTime = s.OutOfTime(now)
		}
	}
	if t, ok := s.Current(); ok && !v.Terminal {
		v.CurrentTarget = t.ID
	}
	if v.Achievements == nil {
		v.Achievements = []string{}
	}
	return v
}

// StartRequest is the input to Engine.Start. Zero values take the game's
// defaults.
type StartRequest struct {
	Kind        string             `json:"kind"`
	PlayerID    string             `json:"-"`
	Difficulty  string             `json:"difficulty"`
	Mode        string             `json:"mode"`
	TargetCount int                `json:"targetCount"`
	// DurationSeconds < 0 forces untimed; 0 takes the game default.
	DurationSeconds int                `json:"durationSeconds"`
	MaxHints        *int               `json:"maxHints,omitempty"`
	PowerUps        []scoring.Modifier `json:"powerUps,omitempty"`
	Seed            string             `json:"seed,omitempty"`
}

// AttemptResult is returned by SubmitAttempt.
type AttemptResult struct {
	Outcome         games.Outcome  `json:"outcome"`
	Success         bool           `json:"success"`
	Feedback        []games.Mark   `json:"feedback,omitempty"`
	Delta           int            `json:"delta"`
	Score           int            `json:"score"`
	Streak          int            `json:"streak"`
	BestStreak      int            `json:"bestStreak"`
	NewAchievements []string       `json:"newAchievements"`
	Status          Status         `json:"status"`
	CurrentTarget   string         `json:"currentTarget,omitempty"`
	Result          *result.Result `json:"result,omitempty"`
}

// HintOutcome classifies a hint request.
type HintOutcome string

const (
	HintGranted       HintOutcome = "granted"
	HintNoneRemaining HintOutcome = "no_hints_remaining"
	HintUnavailable   HintOutcome = "hint_unavailable"
	HintUnknownType   HintOutcome = "unknown_hint"
)

// HintResult is returned by RequestHint.
type HintResult struct {
	Outcome   HintOutcome    `json:"outcome"`
	Type      hints.Type     `json:"type"`
	Text      string         `json:"text,omitempty"`
	Cost      int            `json:"cost"`
	Score     int            `json:"score"`
	Remaining int            `json:"remaining"`
	Forced    bool           `json:"forced,omitempty"`
	Status    Status         `json:"status"`
	Result    *result.Result `json:"result,omitempty"`
}
