package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/arcade/internal/clock"
	"github.com/robalobadob/arcade/internal/content"
	"github.com/robalobadob/arcade/internal/games"
	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/result"
	"github.com/robalobadob/arcade/internal/scoring"
	"github.com/robalobadob/arcade/internal/session"
	"github.com/robalobadob/arcade/internal/store"
)

var words = []string{"crane", "slate", "plumb", "gizmo", "fjord"}

func testTargets() content.Static {
	out := make(content.Static, len(words))
	for i, w := range words {
		out[i] = content.Target{
			ID:     "w" + string(rune('1'+i)),
			Answer: w,
			Worth:  len(w),
			Hints:  map[hints.Type]string{hints.Definition: "definition of " + w},
		}
	}
	return out
}

type countingFinalizer struct {
	*result.Finalizer
	calls atomic.Int64
}

func (c *countingFinalizer) Finalize(in result.Input) result.Result {
	c.calls.Add(1)
	return c.Finalizer.Finalize(in)
}

type harness struct {
	engine *session.Engine
	clock  *clock.Manual
	fin    *countingFinalizer
	store  session.Store
}

func newHarness(t *testing.T, st session.Store, opts ...session.Option) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	h := &harness{
		clock: clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		fin:   &countingFinalizer{Finalizer: result.NewFinalizer(nil)},
		store: st,
	}
	g := &games.Game{
		Kind:       games.KindWordGuess,
		Rules:      games.Rules{Name: "Test Words", TargetCount: len(words)},
		Policy:     scoring.DefaultPolicy(),
		Ledger:     hints.DefaultLedger(),
		Content:    testTargets(),
		Classifier: games.WordClassifier{},
		Hints:      games.WordHints{},
		Modifiers:  games.ModeModifiers{},
		Finalizer:  h.fin,
	}
	base := []session.Option{
		session.WithClock(h.clock),
		session.WithLogger(zerolog.Nop()),
		session.WithRetry(3, time.Millisecond),
	}
	h.engine = session.NewEngine(st, games.NewCatalog(g), append(base, opts...)...)
	return h
}

func (h *harness) start(t *testing.T, req session.StartRequest) session.View {
	t.Helper()
	if req.Kind == "" {
		req.Kind = games.KindWordGuess
	}
	v, err := h.engine.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return v
}

func (h *harness) submit(t *testing.T, id, value string, ms int64) session.AttemptResult {
	t.Helper()
	res, err := h.engine.SubmitAttempt(context.Background(), id, value, ms)
	if err != nil {
		t.Fatalf("SubmitAttempt(%q): %v", value, err)
	}
	return res
}

func intPtr(n int) *int { return &n }

func TestMediumFiveWordSession(t *testing.T) {
	h := newHarness(t, nil)
	v := h.start(t, session.StartRequest{Difficulty: "medium"})
	if v.TargetsTotal != 5 || v.Status != session.StatusActive {
		t.Fatalf("unexpected start view: %+v", v)
	}

	steps := []struct {
		value  string
		ms     int64
		ok     bool
		streak int
		delta  int
	}{
		{"crane", 1200, true, 1, 75},
		{"slate", 800, true, 2, 100}, // speed bonus
		{"zzzzz", 900, false, 0, 0},
		{"plumb", 600, true, 1, 100},
		{"gizmo", 2000, true, 2, 75},
	}

	for i, st := range steps {
		res := h.submit(t, v.ID, st.value, st.ms)
		if res.Success != st.ok || res.Streak != st.streak || res.Delta != st.delta {
			t.Fatalf("step %d: got success=%v streak=%d delta=%d, want %v/%d/%d",
				i+1, res.Success, res.Streak, res.Delta, st.ok, st.streak, st.delta)
		}
	}

	got, err := h.engine.State(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got.TargetsDone != 4 || got.CompletionPct != 80 {
		t.Fatalf("progress = %d (%d%%), want 4 (80%%)", got.TargetsDone, got.CompletionPct)
	}
	if got.Status != session.StatusActive || got.Result != nil {
		t.Fatalf("session must not auto-complete at 4/5: %+v", got)
	}
	if got.Score != 350 || got.BestStreak != 2 || len(got.Attempts) != 5 {
		t.Fatalf("score=%d best=%d attempts=%d", got.Score, got.BestStreak, len(got.Attempts))
	}
	if h.fin.calls.Load() != 0 {
		t.Fatalf("finalizer ran early")
	}

	last := h.submit(t, v.ID, "fjord", 700)
	if last.Status != session.StatusCompleted || last.Result == nil {
		t.Fatalf("fifth success must complete: %+v", last)
	}
	if last.Result.CompletionPct != 100 || last.Result.Reason != result.ReasonCompleted {
		t.Fatalf("unexpected result %+v", last.Result)
	}
	if last.Result.Accuracy < 0.833 || last.Result.Accuracy > 0.834 {
		t.Fatalf("accuracy = %v, want 5/6", last.Result.Accuracy)
	}
	if !contains(last.NewAchievements, "completionist") {
		t.Fatalf("completionist not unlocked: %v", last.NewAchievements)
	}
	if h.fin.calls.Load() != 1 {
		t.Fatalf("finalizer calls = %d, want 1", h.fin.calls.Load())
	}
}

func TestFailedGuessesCarryFeedbackAndRepeatDetection(t *testing.T) {
	h := newHarness(t, nil)
	v := h.start(t, session.StartRequest{})

	res := h.submit(t, v.ID, "trace", 0)
	if res.Outcome != games.OutcomeNoMatch || len(res.Feedback) != 5 {
		t.Fatalf("unexpected first miss: %+v", res)
	}
	res = h.submit(t, v.ID, "TRACE", 0)
	if res.Outcome != games.OutcomeAlreadyUsed {
		t.Fatalf("repeat outcome = %v, want already_used", res.Outcome)
	}
	res = h.submit(t, v.ID, "cr", 0)
	if res.Outcome != games.OutcomeTooShort {
		t.Fatalf("short outcome = %v", res.Outcome)
	}
	res = h.submit(t, v.ID, "cr4ne", 0)
	if res.Outcome != games.OutcomeInvalid {
		t.Fatalf("invalid outcome = %v", res.Outcome)
	}

	got, _ := h.engine.State(context.Background(), v.ID)
	if got.Failures != 4 || got.Score != 0 || got.Streak != 0 {
		t.Fatalf("failures=%d score=%d streak=%d", got.Failures, got.Score, got.Streak)
	}
	if got.Tally[games.OutcomeNoMatch] != 1 || got.Tally[games.OutcomeAlreadyUsed] != 1 {
		t.Fatalf("tally = %v", got.Tally)
	}
}

func TestHintBudget(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{MaxHints: intPtr(2)})
	h.submit(t, v.ID, "crane", 0) // 75 points

	first, err := h.engine.RequestHint(ctx, v.ID, hints.FirstLetter, false)
	if err != nil || first.Outcome != session.HintGranted || first.Text != "s" || first.Score != 65 {
		t.Fatalf("first hint: %+v, %v", first, err)
	}
	second, err := h.engine.RequestHint(ctx, v.ID, hints.Definition, false)
	if err != nil || second.Outcome != session.HintGranted || second.Score != 45 || second.Remaining != 0 {
		t.Fatalf("second hint: %+v, %v", second, err)
	}
	third, err := h.engine.RequestHint(ctx, v.ID, hints.LetterCount, false)
	if err != nil || third.Outcome != session.HintNoneRemaining {
		t.Fatalf("third hint: %+v, %v", third, err)
	}

	got, _ := h.engine.State(ctx, v.ID)
	if got.Score != 45 || got.HintsUsed != 2 {
		t.Fatalf("exhausted budget changed state: score=%d hints=%d", got.Score, got.HintsUsed)
	}

	forced, err := h.engine.RequestHint(ctx, v.ID, hints.LetterCount, true)
	if err != nil || forced.Outcome != session.HintGranted || !forced.Forced || forced.Text != "5" {
		t.Fatalf("forced hint: %+v, %v", forced, err)
	}
	got, _ = h.engine.State(ctx, v.ID)
	if got.Score != 45 || got.HintsUsed != 2 || got.ForcedHints != 1 {
		t.Fatalf("forced hint must bypass budget and cost: %+v", got)
	}
}

func TestHintCostClampsAtZero(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{})

	res, err := h.engine.RequestHint(ctx, v.ID, hints.Definition, false)
	if err != nil || res.Outcome != session.HintGranted {
		t.Fatalf("hint: %+v, %v", res, err)
	}
	if res.Score != 0 || res.Text != "definition of crane" {
		t.Fatalf("unexpected hint result %+v", res)
	}

	res, err = h.engine.RequestHint(ctx, v.ID, hints.Type("telepathy"), false)
	if err != nil || res.Outcome != session.HintUnknownType {
		t.Fatalf("unknown hint: %+v, %v", res, err)
	}
	res, err = h.engine.RequestHint(ctx, v.ID, hints.Reveal, false)
	if err != nil || res.Outcome != session.HintUnavailable {
		t.Fatalf("unavailable hint: %+v, %v", res, err)
	}
	got, _ := h.engine.State(ctx, v.ID)
	if got.HintsUsed != 1 {
		t.Fatalf("rejected hints consumed budget: %d", got.HintsUsed)
	}
}

func TestExpiryOnNextCommand(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{DurationSeconds: 60})
	h.submit(t, v.ID, "crane", 0)

	h.clock.Advance(61 * time.Second)

	peek, err := h.engine.State(ctx, v.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !peek.OutOfTime || peek.Status != session.StatusActive || peek.Result != nil {
		t.Fatalf("State must report lazily without finalizing: %+v", peek)
	}

	res, err := h.engine.SubmitAttempt(ctx, v.ID, "slate", 100)
	if !errors.Is(err, session.ErrTimeExpired) || session.CodeOf(err) != session.CodeTimeExpired {
		t.Fatalf("err = %v, want time expired", err)
	}
	if res.Status != session.StatusExpired || res.Result == nil || res.Result.Reason != result.ReasonExpired {
		t.Fatalf("expired attempt result: %+v", res)
	}

	got, err := h.engine.State(ctx, v.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !got.Terminal || !got.Completed || got.Result == nil || got.Result.Completed != 1 || got.Result.CompletionPct != 20 {
		t.Fatalf("partial result missing: %+v", got)
	}
	if len(got.Attempts) != 1 {
		t.Fatalf("expired attempt was recorded: %d attempts", len(got.Attempts))
	}

	if _, err := h.engine.SubmitAttempt(ctx, v.ID, "slate", 100); !errors.Is(err, session.ErrTimeExpired) {
		t.Fatalf("second submit err = %v", err)
	}
	if n := h.fin.calls.Load(); n != 1 {
		t.Fatalf("finalizer calls = %d, want 1", n)
	}
}

func TestPauseExcludesTime(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{DurationSeconds: 60})

	h.clock.Advance(30 * time.Second)
	if _, err := h.engine.Pause(ctx, v.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := h.engine.Pause(ctx, v.ID); err != nil {
		t.Fatalf("second Pause must be a no-op: %v", err)
	}
	paused, err := h.engine.SubmitAttempt(ctx, v.ID, "crane", 0)
	if !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("submit while paused err = %v", err)
	}
	if paused.Status != session.StatusPaused || paused.CurrentTarget != "w1" {
		t.Fatalf("paused attempt result carries no state: %+v", paused)
	}
	hint, err := h.engine.RequestHint(ctx, v.ID, hints.Definition, false)
	if !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("hint while paused err = %v", err)
	}
	if hint.Status != session.StatusPaused || hint.Remaining != 3 {
		t.Fatalf("paused hint result carries no state: %+v", hint)
	}

	h.clock.Advance(10 * time.Minute)
	if _, err := h.engine.Resume(ctx, v.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := h.engine.Resume(ctx, v.ID); err != nil {
		t.Fatalf("second Resume must be a no-op: %v", err)
	}
	h.clock.Advance(20 * time.Second)

	got, _ := h.engine.State(ctx, v.ID)
	if got.ElapsedMs != 50_000 || got.OutOfTime || got.RemainingMs != 10_000 {
		t.Fatalf("elapsed=%dms remaining=%dms outOfTime=%v", got.ElapsedMs, got.RemainingMs, got.OutOfTime)
	}
	h.submit(t, v.ID, "crane", 0)
}

func TestForceCompleteRunsFinalizerOnce(t *testing.T) {
	var hooked atomic.Int64
	h := newHarness(t, nil, session.OnComplete(func(context.Context, session.View) { hooked.Add(1) }))
	ctx := context.Background()
	v := h.start(t, session.StartRequest{})
	h.submit(t, v.ID, "crane", 0)

	var (
		mu      sync.Mutex
		results []*result.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			got, err := h.engine.ForceComplete(gctx, v.ID, "player quit")
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, got.Result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}

	if n := h.fin.calls.Load(); n != 1 {
		t.Fatalf("finalizer calls = %d, want 1", n)
	}
	if n := hooked.Load(); n != 1 {
		t.Fatalf("completion hook calls = %d, want 1", n)
	}
	for _, r := range results {
		if r == nil || *r != *results[0] {
			t.Fatalf("results differ: %+v vs %+v", r, results[0])
		}
	}
	if results[0].Reason != result.ReasonForced || results[0].Completed != 1 {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestTerminalSessionRejectsMutation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{})
	if _, err := h.engine.ForceComplete(ctx, v.ID, ""); err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}
	before, _ := h.engine.State(ctx, v.ID)

	if _, err := h.engine.SubmitAttempt(ctx, v.ID, "crane", 0); !errors.Is(err, session.ErrCompleted) {
		t.Fatalf("submit err = %v", err)
	}
	if _, err := h.engine.RequestHint(ctx, v.ID, hints.FirstLetter, true); !errors.Is(err, session.ErrCompleted) {
		t.Fatalf("hint err = %v", err)
	}
	if _, err := h.engine.Pause(ctx, v.ID); session.CodeOf(err) != session.CodeCompleted {
		t.Fatalf("pause err = %v", err)
	}
	if _, err := h.engine.Resume(ctx, v.ID); session.CodeOf(err) != session.CodeCompleted {
		t.Fatalf("resume err = %v", err)
	}

	after, _ := h.engine.State(ctx, v.ID)
	if len(after.Attempts) != len(before.Attempts) || after.Score != before.Score || after.ForcedHints != 0 {
		t.Fatalf("terminal session mutated: %+v", after)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{
		PowerUps: []scoring.Modifier{{Name: "curse", Op: scoring.OpAdd, Value: -scoring.MaxAddend}},
	})
	for _, w := range []string{"crane", "nopes", "slate"} {
		res := h.submit(t, v.ID, w, 0)
		if res.Score < 0 || res.Delta < 0 {
			t.Fatalf("negative score after %q: %+v", w, res)
		}
	}
	for i := 0; i < 3; i++ {
		res, err := h.engine.RequestHint(ctx, v.ID, hints.Definition, false)
		if err != nil {
			t.Fatalf("RequestHint: %v", err)
		}
		if res.Score < 0 {
			t.Fatalf("negative score after hint: %+v", res)
		}
	}
}

func TestStackedMultipliersStayBounded(t *testing.T) {
	h := newHarness(t, nil)
	ten := scoring.Modifier{Name: "x10", Op: scoring.OpMultiply, Value: scoring.MaxMultiplier}
	v := h.start(t, session.StartRequest{PowerUps: []scoring.Modifier{ten, ten, ten, ten, ten}})

	prev := 0
	for _, w := range words {
		res := h.submit(t, v.ID, w, 0)
		if res.Delta != scoring.MaxDelta {
			t.Fatalf("delta for %q = %d, want clamp at %d", w, res.Delta, scoring.MaxDelta)
		}
		if res.Score <= prev {
			t.Fatalf("score went from %d to %d", prev, res.Score)
		}
		prev = res.Score
	}
	if prev != 5*scoring.MaxDelta {
		t.Fatalf("final score = %d", prev)
	}
}

func TestStreakAndAchievements(t *testing.T) {
	h := newHarness(t, nil)
	v := h.start(t, session.StartRequest{})

	seq := []string{"crane", "slate", "plumb", "wrong", "gizmo"}
	best := 0
	seen := map[string]int{}
	for _, w := range seq {
		res := h.submit(t, v.ID, w, 300)
		if res.BestStreak < best {
			t.Fatalf("best streak decreased: %d → %d", best, res.BestStreak)
		}
		best = res.BestStreak
		for _, id := range res.NewAchievements {
			seen[id]++
		}
	}
	if best != 3 {
		t.Fatalf("best streak = %d, want 3", best)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("achievement %s announced %d times", id, n)
		}
	}
	for _, id := range []string{"first_success", "streak_3", "lightning"} {
		if seen[id] != 1 {
			t.Fatalf("missing %s in %v", id, seen)
		}
	}

	got, _ := h.engine.State(context.Background(), v.ID)
	uniq := map[string]bool{}
	for _, id := range got.Achievements {
		if uniq[id] {
			t.Fatalf("duplicate achievement %s in %v", id, got.Achievements)
		}
		uniq[id] = true
	}
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  session.StartRequest
		code session.Code
	}{
		{"unknown kind", session.StartRequest{Kind: "chess"}, session.CodeUnknownKind},
		{"bad difficulty", session.StartRequest{Kind: games.KindWordGuess, Difficulty: "nightmare"}, session.CodeInvalidConfig},
		{"too many targets", session.StartRequest{Kind: games.KindWordGuess, TargetCount: 1000}, session.CodeInvalidConfig},
		{"negative hints", session.StartRequest{Kind: games.KindWordGuess, MaxHints: intPtr(-1)}, session.CodeInvalidConfig},
		{"unknown mode", session.StartRequest{Kind: games.KindWordGuess, Mode: "turbo"}, session.CodeInvalidConfig},
		{"huge multiplier", session.StartRequest{Kind: games.KindWordGuess, PowerUps: []scoring.Modifier{{Name: "x", Op: scoring.OpMultiply, Value: 1e18}}}, session.CodeInvalidConfig},
		{"negative multiplier", session.StartRequest{Kind: games.KindWordGuess, PowerUps: []scoring.Modifier{{Name: "x", Op: scoring.OpMultiply, Value: -2}}}, session.CodeInvalidConfig},
		{"unknown power-up op", session.StartRequest{Kind: games.KindWordGuess, PowerUps: []scoring.Modifier{{Name: "x", Op: "pow", Value: 2}}}, session.CodeInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.Start(ctx, tc.req)
			if got := session.CodeOf(err); got != tc.code {
				t.Fatalf("code = %s (%v), want %s", got, err, tc.code)
			}
		})
	}

	if _, err := h.engine.State(ctx, "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("State(missing) err = %v", err)
	}
	if _, err := h.engine.ForceComplete(ctx, "missing", ""); session.CodeOf(err) != session.CodeNotFound {
		t.Fatalf("ForceComplete(missing) err = %v", err)
	}
}

// flakyStore fails the next n saves with a version conflict.
type flakyStore struct {
	session.Store
	n atomic.Int64
}

func (f *flakyStore) Save(ctx context.Context, s *session.Session) error {
	if s.Version > 0 && f.n.Add(-1) >= 0 {
		return session.ErrConflict
	}
	return f.Store.Save(ctx, s)
}

func TestConflictRetry(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory()}
	h := newHarness(t, fs)
	ctx := context.Background()
	v := h.start(t, session.StartRequest{})

	fs.n.Store(2)
	res, err := h.engine.SubmitAttempt(ctx, v.ID, "crane", 0)
	if err != nil || !res.Success {
		t.Fatalf("retry did not recover: %+v, %v", res, err)
	}
	got, _ := h.engine.State(ctx, v.ID)
	if len(got.Attempts) != 1 || got.Score != 75 {
		t.Fatalf("retried attempt applied wrongly: attempts=%d score=%d", len(got.Attempts), got.Score)
	}

	fs.n.Store(100)
	_, err = h.engine.SubmitAttempt(ctx, v.ID, "slate", 0)
	if !errors.Is(err, session.ErrConflict) || session.CodeOf(err) != session.CodeConflict {
		t.Fatalf("exhausted retries err = %v", err)
	}
	fs.n.Store(0)
	got, _ = h.engine.State(ctx, v.ID)
	if len(got.Attempts) != 1 {
		t.Fatalf("failed command leaked state: %d attempts", len(got.Attempts))
	}
}

func TestDistinctSessionsRunInParallel(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = h.start(t, session.StartRequest{}).ID
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		for _, w := range words {
			id, w := id, w
			g.Go(func() error {
				_, err := h.engine.SubmitAttempt(gctx, id, w, 0)
				if errors.Is(err, session.ErrCompleted) {
					return nil
				}
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("parallel submits: %v", err)
	}
	for _, id := range ids {
		got, _ := h.engine.State(ctx, id)
		if len(got.Attempts) != len(words) {
			t.Fatalf("session %s has %d attempts, want %d", id, len(got.Attempts), len(words))
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
