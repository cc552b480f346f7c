package daily

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Entry is a player's daily attempt at one game.
type Entry struct {
	PlayerID  string  `json:"playerId"`
	Kind      string  `json:"kind"`
	Date      string  `json:"date"`
	SessionID string  `json:"sessionId"`
	Finished  bool    `json:"finished"`
	Score     int     `json:"score"`
	Accuracy  float64 `json:"accuracy"`
	ElapsedMs int64   `json:"elapsedMs"`
}

// LBRow is one line of a daily leaderboard.
type LBRow struct {
	PlayerID  string  `json:"playerId"`
	Username  string  `json:"username,omitempty"`
	Score     int     `json:"score"`
	Accuracy  float64 `json:"accuracy"`
	ElapsedMs int64   `json:"elapsedMs"`
}

// Store is the daily_results table. UNIQUE(player_id, kind, date) makes the
// first session a player starts on a day the only one that counts.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Lookup returns the player's entry for kind on date.
func (s *Store) Lookup(ctx context.Context, playerID, kind, date string) (Entry, bool, error) {
	e := Entry{PlayerID: playerID, Kind: kind, Date: date}
	var finished int
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, finished, score, accuracy, elapsed_ms
		FROM daily_results WHERE player_id=? AND kind=? AND date=?`,
		playerID, kind, date,
	).Scan(&e.SessionID, &finished, &e.Score, &e.Accuracy, &e.ElapsedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.Finished = finished == 1
	return e, true, nil
}

// Begin records sessionID as the player's entry unless one already exists,
// and returns whichever entry won.
func (s *Store) Begin(ctx context.Context, playerID, kind, date, sessionID string) (Entry, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO daily_results (player_id, kind, date, session_id)
		VALUES (?,?,?,?)`, playerID, kind, date, sessionID,
	); err != nil {
		return Entry{}, fmt.Errorf("begin daily: %w", err)
	}
	e, ok, err := s.Lookup(ctx, playerID, kind, date)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("begin daily: entry vanished for %s/%s/%s", playerID, kind, date)
	}
	return e, nil
}

// Replace points an unfinished entry at a new session.
func (s *Store) Replace(ctx context.Context, playerID, kind, date, sessionID string) (Entry, error) {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE daily_results SET session_id=?
		WHERE player_id=? AND kind=? AND date=? AND finished=0`,
		sessionID, playerID, kind, date,
	); err != nil {
		return Entry{}, fmt.Errorf("replace daily: %w", err)
	}
	e, _, err := s.Lookup(ctx, playerID, kind, date)
	return e, err
}

// Finish stores the outcome for sessionID. It reports false when the
// session is not a daily entry or was already finished.
func (s *Store) Finish(ctx context.Context, sessionID string, score int, accuracy float64, elapsedMs int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE daily_results SET finished=1, score=?, accuracy=?, elapsed_ms=?
		WHERE session_id=? AND finished=0`, score, accuracy, elapsedMs, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Leaderboard returns the top finished entries for kind on date.
func (s *Store) Leaderboard(ctx context.Context, kind, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.player_id, COALESCE(u.username,''), d.score, d.accuracy, d.elapsed_ms
		FROM daily_results d
		LEFT JOIN users u ON u.id = d.player_id
		WHERE d.kind=? AND d.date=? AND d.finished=1
		ORDER BY d.score DESC, d.elapsed_ms ASC, d.created_at ASC
		LIMIT ?`, kind, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Username, &r.Score, &r.Accuracy, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Claim moves an anonymous player's entries to a registered account. Days
// the account already played keep the account's entry.
func (s *Store) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET player_id=? WHERE player_id=?`, to, from)
	return err
}
