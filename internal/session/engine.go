// internal/session/engine.go
//
// Session engine: the only writer of Session state.
// Responsibilities:
//   - Start sessions from a game's rules plus caller overrides.
//   - Apply commands (attempt, hint, pause, resume, forceComplete) serially
//     per session id.
//   - Expire timed sessions lazily, at the start of each mutating command.
//   - Finalize every session exactly once.
//
// Every command runs load → clone → mutate → save. Save is a version
// compare-and-swap; ErrConflict reloads and replays the command with
// exponential backoff (go-retry), so writers in other processes are safe too.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/robalobadob/arcade/internal/achievements"
	"github.com/robalobadob/arcade/internal/clock"
	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/games"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/result"
	"github.com/robalobadob/arcade/internal/scoring"
)

const (
	maxTargets       = 100
	defaultRetries   = 5
	defaultRetryBase = 10 * time.Millisecond
)

// CompletionHook observes a session right after its terminal transition was
// saved. It runs once per session, outside the session lock.
type CompletionHook func(ctx context.Context, v View)

// Engine applies commands to sessions.
type Engine struct {
	store        Store
	games        Games
	clock        clock.Clock
	achievements *achievements.Evaluator
	log          zerolog.Logger
	locks        *keyedMutex
	retries      uint64
	retryBase    time.Duration
	onComplete   []CompletionHook
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger sets the engine's logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithAchievements replaces the standard achievement registry.
func WithAchievements(a *achievements.Evaluator) Option {
	return func(e *Engine) { e.achievements = a }
}

// WithRetry bounds conflict retries.
func WithRetry(n int, base time.Duration) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = uint64(n)
		}
		if base > 0 {
			e.retryBase = base
		}
	}
}

// OnComplete registers h to observe finalized sessions.
func OnComplete(h CompletionHook) Option {
	return func(e *Engine) { e.onComplete = append(e.onComplete, h) }
}

// NewEngine wires an engine over store and the game catalog.
func NewEngine(store Store, catalog Games, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		games:        catalog,
		clock:        clock.System{},
		achievements: achievements.New(),
		log:          log.Logger,
		locks:        newKeyedMutex(),
		retries:      defaultRetries,
		retryBase:    defaultRetryBase,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With().Str("component", "session").Logger()
	return e
}

// Achievements exposes the registry the engine evaluates.
func (e *Engine) Achievements() *achievements.Evaluator { return e.achievements }

// Start creates a new active session.
func (e *Engine) Start(ctx context.Context, req StartRequest) (View, error) {
	g, err := e.games.Lookup(req.Kind)
	if err != nil {
		return View{}, err
	}
	cfg, err := configFor(g, req)
	if err != nil {
		return View{}, err
	}
	targets, err := g.Content.Targets(ctx, content.Request{
		Kind:       g.Kind,
		Difficulty: cfg.Difficulty,
		Count:      cfg.TargetCount,
		GridSize:   cfg.GridSize,
		WordLength: cfg.WordLength,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(targets) == 0 {
		return View{}, fmt.Errorf("%w: no targets generated", ErrInvalidConfig)
	}
	cfg.TargetCount = len(targets)

	now := e.clock.Now()
	s := &Session{
		ID:           uuid.NewString(),
		PlayerID:     req.PlayerID,
		Kind:         g.Kind,
		Config:       cfg,
		Status:       StatusActive,
		StartedAt:    now,
		Targets:      targets,
		Attempts:     []Attempt{},
		Achievements: []string{},
	}
	if err := e.store.Save(ctx, s); err != nil {
		return View{}, fmt.Errorf("save new session: %w", err)
	}
	e.log.Info().
		Str("session", s.ID).
		Str("kind", s.Kind).
		Str("difficulty", string(cfg.Difficulty)).
		Int("targets", cfg.TargetCount).
		Dur("duration", cfg.Duration).
		Msg("session started")
	return s.ViewAt(now), nil
}

func configFor(g *games.Game, req StartRequest) (Config, error) {
	d, err := scoring.ParseDifficulty(req.Difficulty)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg := Config{
		Difficulty:  d,
		Mode:        req.Mode,
		TargetCount: g.Rules.TargetCount,
		GridSize:    g.Rules.GridSize,
		WordLength:  g.Rules.WordLength,
		Duration:    g.Duration(),
		MaxHints:    g.Ledger.MaxHints,
		PowerUps:    req.PowerUps,
		Seed:        req.Seed,
	}
	if req.Mode != "" {
		if _, ok := g.Rules.Modes[req.Mode]; !ok {
			return Config{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, req.Mode)
		}
	}
	switch {
	case req.TargetCount < 0 || req.TargetCount > maxTargets:
		return Config{}, fmt.Errorf("%w: targetCount must be 1..%d", ErrInvalidConfig, maxTargets)
	case req.TargetCount > 0:
		cfg.TargetCount = req.TargetCount
	}
	switch {
	case req.DurationSeconds < 0:
		cfg.Duration = 0
	case req.DurationSeconds > 0:
		cfg.Duration = time.Duration(req.DurationSeconds) * time.Second
	}
	if req.MaxHints != nil {
		if *req.MaxHints < 0 {
			return Config{}, fmt.Errorf("%w: maxHints must be >= 0", ErrInvalidConfig)
		}
		cfg.MaxHints = *req.MaxHints
	}
	for _, m := range req.PowerUps {
		if err := m.Validate(); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if cfg.Seed == "" {
		cfg.Seed = content.NewSeed()
	}
	return cfg, nil
}

// State returns the current view. It never mutates: a session whose time
// ran out is reported with OutOfTime set until the next command expires it.
func (e *Engine) State(ctx context.Context, id string) (View, error) {
	s, err := e.store.Load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.ViewAt(e.clock.Now()), nil
}

// SubmitAttempt classifies value against the current target and scores it.
// When the time budget is already spent the session is finalized as
// expired and the result comes back alongside ErrTimeExpired.
func (e *Engine) SubmitAttempt(ctx context.Context, id, value string, reactionMs int64) (AttemptResult, error) {
	var out AttemptResult
	_, err := e.update(ctx, id, func(s *Session, g *games.Game, now time.Time) (bool, error) {
		out = AttemptResult{}
		if err := terminalErr(s); err != nil {
			fill(&out, s)
			return false, err
		}
		if s.Status == StatusPaused {
			fill(&out, s)
			return false, ErrNotActive
		}
		if e.expireIfDue(s, g, now) {
			fill(&out, s)
			return true, ErrTimeExpired
		}
		target, ok := s.Current()
		if !ok {
			// Cursor past the end without a result; finish it now.
			e.finalize(s, g, result.ReasonCompleted, now)
			fill(&out, s)
			return true, ErrCompleted
		}
		if reactionMs < 0 {
			reactionMs = 0
		}

		cls := g.Classifier.Classify(target, value, s.priorValues(target.ID))
		a := Attempt{
			TargetID:   target.ID,
			Value:      cls.Normalized,
			Outcome:    cls.Outcome,
			Feedback:   cls.Feedback,
			ReactionMs: reactionMs,
			HintsUsed:  s.HintsUsed,
			At:         now,
		}
		s.Tally.Add(cls.Outcome)

		if cls.Outcome.Success() {
			s.Streak++
			s.BestStreak = max(s.BestStreak, s.Streak)
			worth := cls.Worth
			if worth <= 0 {
				worth = target.Worth
			}
			a.Delta = g.Policy.Score(scoring.Input{
				Success:    true,
				Difficulty: s.Config.Difficulty,
				Value:      worth,
				Streak:     s.Streak,
				ReactionMs: reactionMs,
				Modifiers: g.Modifiers.Modifiers(games.ModifierContext{
					Mode:       s.Config.Mode,
					Difficulty: s.Config.Difficulty,
					Streak:     s.Streak,
					PowerUps:   s.Config.PowerUps,
				}),
			})
			s.Score = scoring.AddScore(s.Score, a.Delta)
			s.Successes++
			s.Cursor++
		} else {
			s.Streak = 0
			s.Failures++
		}
		s.Attempts = append(s.Attempts, a)

		fresh := e.unlock(s)
		if s.Cursor >= len(s.Targets) {
			fresh = append(fresh, e.finalize(s, g, result.ReasonCompleted, now)...)
		}

		fill(&out, s)
		out.Outcome = cls.Outcome
		out.Success = cls.Outcome.Success()
		out.Feedback = cls.Feedback
		out.Delta = a.Delta
		out.NewAchievements = fresh
		return true, nil
	})
	if out.NewAchievements == nil {
		out.NewAchievements = []string{}
	}
	return out, err
}

// RequestHint charges a hint against the budget and returns its text.
// force bypasses both budget and cost; forced hints are tallied separately
// and logged so they never count toward HintsUsed.
func (e *Engine) RequestHint(ctx context.Context, id string, ht hints.Type, force bool) (HintResult, error) {
	var out HintResult
	_, err := e.update(ctx, id, func(s *Session, g *games.Game, now time.Time) (bool, error) {
		out = HintResult{Type: ht, Forced: force}
		if err := terminalErr(s); err != nil {
			hintFill(&out, s)
			return false, err
		}
		if s.Status == StatusPaused {
			hintFill(&out, s)
			return false, ErrNotActive
		}
		if e.expireIfDue(s, g, now) {
			hintFill(&out, s)
			return true, ErrTimeExpired
		}
		target, ok := s.Current()
		if !ok {
			return false, ErrCompleted
		}
		cost, known := g.Ledger.Cost(ht)
		if !known {
			out.Outcome = HintUnknownType
			hintFill(&out, s)
			return false, nil
		}
		text, err := g.Hints.Hint(target, ht)
		if err != nil {
			if errors.Is(err, games.ErrHintUnavailable) {
				out.Outcome = HintUnavailable
				hintFill(&out, s)
				return false, nil
			}
			return false, err
		}

		if force {
			s.ForcedHints++
			s.Hints = append(s.Hints, HintRecord{TargetID: target.ID, Type: ht, Forced: true, At: now})
			e.log.Warn().
				Str("session", s.ID).
				Str("target", target.ID).
				Str("hint", string(ht)).
				Bool("forced", true).
				Msg("forced hint granted outside budget")
			out.Outcome = HintGranted
			out.Text = text
			hintFill(&out, s)
			return true, nil
		}

		charge, err := g.Ledger.Consume(s.HintsUsed, s.Config.MaxHints, ht)
		if errors.Is(err, hints.ErrNoHintsRemaining) {
			out.Outcome = HintNoneRemaining
			hintFill(&out, s)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		before := s.Score
		s.Score = hints.Deduct(s.Score, cost)
		s.HintsUsed++
		s.Hints = append(s.Hints, HintRecord{TargetID: target.ID, Type: ht, Cost: before - s.Score, At: now})
		out.Outcome = HintGranted
		out.Text = text
		out.Cost = charge.Cost
		hintFill(&out, s)
		return true, nil
	})
	return out, err
}

// Pause freezes the clock. Pausing a paused session is a no-op.
func (e *Engine) Pause(ctx context.Context, id string) (View, error) {
	return e.update(ctx, id, func(s *Session, g *games.Game, now time.Time) (bool, error) {
		if err := terminalErr(s); err != nil {
			return false, err
		}
		if s.Status == StatusPaused {
			return false, nil
		}
		if e.expireIfDue(s, g, now) {
			return true, ErrTimeExpired
		}
		s.Status = StatusPaused
		s.PausedAt = &now
		return true, nil
	})
}

// Resume restarts the clock. Resuming an active session is a no-op.
func (e *Engine) Resume(ctx context.Context, id string) (View, error) {
	return e.update(ctx, id, func(s *Session, _ *games.Game, now time.Time) (bool, error) {
		if err := terminalErr(s); err != nil {
			return false, err
		}
		if s.Status == StatusActive {
			return false, nil
		}
		closePause(s, now)
		s.Status = StatusActive
		return true, nil
	})
}

// ForceComplete ends the session now. On an already finished session it
// returns the existing result unchanged.
func (e *Engine) ForceComplete(ctx context.Context, id, note string) (View, error) {
	return e.update(ctx, id, func(s *Session, g *games.Game, now time.Time) (bool, error) {
		if s.Status.Terminal() {
			return false, nil
		}
		if e.expireIfDue(s, g, now) {
			return true, nil
		}
		s.EndNote = note
		e.finalize(s, g, result.ReasonForced, now)
		return true, nil
	})
}

type mutation func(s *Session, g *games.Game, now time.Time) (changed bool, err error)

// update runs fn under the session lock and persists the result when fn
// reports a change. The command error from fn is returned after a
// successful save.
func (e *Engine) update(ctx context.Context, id string, fn mutation) (View, error) {
	unlock := e.locks.Lock(id)

	var (
		view     View
		cmdErr   error
		finished bool
	)
	backoff := retry.WithMaxRetries(e.retries, retry.NewExponential(e.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		cur, err := e.store.Load(ctx, id)
		if err != nil {
			return err
		}
		g, err := e.games.Lookup(cur.Kind)
		if err != nil {
			return err
		}
		s := cur.Clone()
		now := e.clock.Now()
		changed, cerr := fn(s, g, now)
		cmdErr = cerr
		finished = changed && !cur.Status.Terminal() && s.Status.Terminal()
		if changed {
			if err := e.store.Save(ctx, s); err != nil {
				if errors.Is(err, ErrConflict) {
					e.log.Debug().Str("session", id).Int64("version", cur.Version).Msg("save conflict, retrying")
					return retry.RetryableError(err)
				}
				return fmt.Errorf("save session: %w", err)
			}
		}
		view = s.ViewAt(now)
		return nil
	})
	unlock()
	if err != nil {
		return View{}, err
	}
	if finished {
		e.log.Info().
			Str("session", view.ID).
			Str("status", string(view.Status)).
			Int("score", view.Score).
			Msg("session finalized")
		for _, h := range e.onComplete {
			h(ctx, view)
		}
	}
	return view, cmdErr
}

// expireIfDue finalizes s as expired when its time budget is spent.
func (e *Engine) expireIfDue(s *Session, g *games.Game, now time.Time) bool {
	if s.Status.Terminal() || !s.OutOfTime(now) {
		return false
	}
	e.finalize(s, g, result.ReasonExpired, now)
	return true
}

// finalize moves s into its terminal state and attaches the Result. It is
// a no-op when a result already exists. Returns achievements unlocked by
// completion.
func (e *Engine) finalize(s *Session, g *games.Game, reason result.Reason, now time.Time) []string {
	if s.Result != nil {
		return nil
	}
	closePause(s, now)
	s.EndedAt = &now
	if reason == result.ReasonExpired {
		s.Status = StatusExpired
	} else {
		s.Status = StatusCompleted
	}
	r := g.Finalizer.Finalize(result.Input{
		Score:       s.Score,
		Successes:   s.Successes,
		Attempts:    len(s.Attempts),
		Completed:   s.Cursor,
		Total:       len(s.Targets),
		ReactionsMs: s.reactions(),
		Reason:      reason,
		EndedAt:     now,
	})
	s.Result = &r
	return e.unlock(s)
}

// unlock evaluates achievements and merges new ones into s.
func (e *Engine) unlock(s *Session) []string {
	fresh := e.achievements.Evaluate(snapshot(s), s.Achievements)
	s.Achievements = achievements.Merge(s.Achievements, fresh)
	return fresh
}

func snapshot(s *Session) achievements.Snapshot {
	return achievements.Snapshot{
		Score:         s.Score,
		Attempts:      len(s.Attempts),
		Successes:     s.Successes,
		Failures:      s.Failures,
		Streak:        s.Streak,
		BestStreak:    s.BestStreak,
		HintsUsed:     s.HintsUsed,
		Accuracy:      result.Accuracy(s.Successes, len(s.Attempts)),
		CompletionPct: result.CompletionPct(s.Cursor, len(s.Targets)),
		FastestMs:     s.fastestSuccess(),
		Completed:     s.Result != nil,
	}
}

func closePause(s *Session, now time.Time) {
	if s.PausedAt == nil {
		return
	}
	if d := now.Sub(*s.PausedAt); d > 0 {
		s.PausedTotal += d
	}
	s.PausedAt = nil
}

func terminalErr(s *Session) error {
	switch s.Status {
	case StatusCompleted:
		return ErrCompleted
	case StatusExpired:
		return ErrTimeExpired
	}
	return nil
}

func fill(out *AttemptResult, s *Session) {
	out.Score = s.Score
	out.Streak = s.Streak
	out.BestStreak = s.BestStreak
	out.Status = s.Status
	out.Result = s.Result
	if t, ok := s.Current(); ok && !s.Status.Terminal() {
		out.CurrentTarget = t.ID
	}
}

func hintFill(out *HintResult, s *Session) {
	out.Score = s.Score
	out.Remaining = max(s.Config.MaxHints-s.HintsUsed, 0)
	out.Status = s.Status
	out.Result = s.Result
}
