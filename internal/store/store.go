// internal/store/store.go
//
// Session persistence.
// Two implementations share one contract:
//   - Memory: map of deep copies, for development and tests.
//   - SQLite: sessions as JSON blobs plus queryable columns.
//
// Both implement session.Store with version compare-and-swap, and the
// read-only analytics the transport needs (leaderboards, player summaries).

package store

import (
	"context"
	"sort"
	"time"

	"github.com/robalobadob/arcade/internal/session"
)

// Re-exported so callers can match store errors without importing session.
var (
	ErrNotFound = session.ErrNotFound
	ErrConflict = session.ErrConflict
)

const defaultLimit = 20

// LeaderRow is one finished session on a leaderboard.
type LeaderRow struct {
	SessionID  string    `json:"sessionId"`
	PlayerID   string    `json:"playerId,omitempty"`
	Username   string    `json:"username,omitempty"`
	Kind       string    `json:"kind"`
	Score      int       `json:"score"`
	Rating     string    `json:"rating"`
	Accuracy   float64   `json:"accuracy"`
	BestStreak int       `json:"bestStreak"`
	EndedAt    time.Time `json:"endedAt"`
}

// Summary aggregates one player's sessions.
type Summary struct {
	PlayerID    string  `json:"playerId"`
	Started     int     `json:"started"`
	Finished    int     `json:"finished"`
	BestScore   int     `json:"bestScore"`
	TotalScore  int     `json:"totalScore"`
	BestStreak  int     `json:"bestStreak"`
	AvgAccuracy float64 `json:"avgAccuracy"`
}

// Sessions is a session.Store with analytics.
type Sessions interface {
	session.Store
	// Leaderboard lists finished sessions by score; kind "" means all kinds.
	Leaderboard(ctx context.Context, kind string, limit int) ([]LeaderRow, error)
	Summary(ctx context.Context, playerID string) (Summary, error)
	// Claim moves every session owned by from to to and returns how many moved.
	Claim(ctx context.Context, from, to string) (int, error)
}

func rowOf(s *session.Session) LeaderRow {
	r := LeaderRow{
		SessionID:  s.ID,
		PlayerID:   s.PlayerID,
		Kind:       s.Kind,
		Score:      s.Score,
		BestStreak: s.BestStreak,
	}
	if s.Result != nil {
		r.Rating = s.Result.Rating
		r.Accuracy = s.Result.Accuracy
		r.EndedAt = s.Result.EndedAt
	}
	return r
}

// rank orders rows best first: score desc, then earliest finish.
func rank(rows []LeaderRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].EndedAt.Before(rows[j].EndedAt)
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultLimit
	}
	return limit
}
