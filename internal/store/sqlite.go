// internal/store/sqlite.go
//
// SQLite-backed Sessions. Each row keeps the whole session as JSON in
// `data` plus projected columns (status, score, rating, ...) that the
// leaderboard and summary queries read directly.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/robalobadob/arcade/internal/session"
)

// tsLayout is fixed-width so text ordering matches time ordering.
const tsLayout = "2006-01-02T15:04:05.000Z"

// SQLite stores sessions in a sessions table created by Migrate.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open, migrated database.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Save inserts when s.Version is 0, otherwise updates only if the stored
// version still matches.
func (q *SQLite) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	p := projectionOf(s)

	if s.Version == 0 {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO sessions
			    (id, player_id, kind, status, score, best_streak, rating, accuracy, started_at, ended_at, version, data)
			VALUES (?,?,?,?,?,?,?,?,?,?,1,?)`,
			s.ID, p.player, s.Kind, string(s.Status), s.Score, s.BestStreak, p.rating, p.accuracy,
			s.StartedAt.UTC().Format(tsLayout), p.endedAt, string(data),
		)
		if err != nil {
			var se sqlite3.Error
			if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
				return fmt.Errorf("insert %s: %w", s.ID, ErrConflict)
			}
			return fmt.Errorf("insert %s: %w", s.ID, err)
		}
		s.Version = 1
		return nil
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE sessions
		SET player_id=?, status=?, score=?, best_streak=?, rating=?, accuracy=?, ended_at=?,
		    data=?, version=version+1
		WHERE id=? AND version=?`,
		p.player, string(s.Status), s.Score, s.BestStreak, p.rating, p.accuracy, p.endedAt,
		string(data), s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", s.ID, err)
	}
	if n == 0 {
		var v int64
		err := q.db.QueryRowContext(ctx, `SELECT version FROM sessions WHERE id=?`, s.ID).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update %s: %w", s.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", s.ID, err)
		}
		return fmt.Errorf("update %s at v%d (stored v%d): %w", s.ID, s.Version, v, ErrConflict)
	}
	s.Version++
	return nil
}

// Load reads a session. The player_id and version columns win over the
// blob, since Claim only touches the columns.
func (q *SQLite) Load(ctx context.Context, id string) (*session.Session, error) {
	var (
		player  sql.NullString
		version int64
		data    string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT player_id, version, data FROM sessions WHERE id=?`, id,
	).Scan(&player, &version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	s.PlayerID = player.String
	s.Version = version
	return &s, nil
}

// Leaderboard ranks finished sessions; usernames are joined in for
// registered players.
func (q *SQLite) Leaderboard(ctx context.Context, kind string, limit int) ([]LeaderRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT s.id, COALESCE(s.player_id,''), COALESCE(u.username,''), s.kind,
		       s.score, s.rating, s.accuracy, s.best_streak, COALESCE(s.ended_at,'')
		FROM sessions s
		LEFT JOIN users u ON u.id = s.player_id
		WHERE s.status IN (?, ?) AND (? = '' OR s.kind = ?)
		ORDER BY s.score DESC, s.ended_at ASC
		LIMIT ?`,
		string(session.StatusCompleted), string(session.StatusExpired), kind, kind, clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LeaderRow{}
	for rows.Next() {
		var (
			r     LeaderRow
			ended string
		)
		if err := rows.Scan(&r.SessionID, &r.PlayerID, &r.Username, &r.Kind,
			&r.Score, &r.Rating, &r.Accuracy, &r.BestStreak, &ended); err != nil {
			return nil, err
		}
		r.EndedAt, _ = time.Parse(tsLayout, ended)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates playerID's sessions in one query.
func (q *SQLite) Summary(ctx context.Context, playerID string) (Summary, error) {
	sum := Summary{PlayerID: playerID}
	if playerID == "" {
		return sum, nil
	}
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(1),
		       COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
		       COALESCE(MAX(CASE WHEN status IN (?, ?) THEN score END), 0),
		       COALESCE(SUM(CASE WHEN status IN (?, ?) THEN score ELSE 0 END), 0),
		       COALESCE(MAX(best_streak), 0),
		       COALESCE(AVG(CASE WHEN status IN (?, ?) THEN accuracy END), 0)
		FROM sessions WHERE player_id=?`,
		done1, done2, done1, done2, done1, done2, done1, done2, playerID,
	).Scan(&sum.Started, &sum.Finished, &sum.BestScore, &sum.TotalScore, &sum.BestStreak, &sum.AvgAccuracy)
	if err != nil {
		return Summary{}, fmt.Errorf("summary %s: %w", playerID, err)
	}
	return sum, nil
}

var (
	done1 = string(session.StatusCompleted)
	done2 = string(session.StatusExpired)
)

// Claim re-owns from's sessions and bumps their versions.
func (q *SQLite) Claim(ctx context.Context, from, to string) (int, error) {
	if from == "" || to == "" {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE sessions SET player_id=?, version=version+1 WHERE player_id=?`, to, from)
	if err != nil {
		return 0, fmt.Errorf("claim sessions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type projection struct {
	player   sql.NullString
	rating   string
	accuracy float64
	endedAt  sql.NullString
}

func projectionOf(s *session.Session) projection {
	p := projection{player: sql.NullString{String: s.PlayerID, Valid: s.PlayerID != ""}}
	if s.Result != nil {
		p.rating = s.Result.Rating
		p.accuracy = s.Result.Accuracy
	}
	if s.EndedAt != nil {
		p.endedAt = sql.NullString{String: s.EndedAt.UTC().Format(tsLayout), Valid: true}
	}
	return p
}
