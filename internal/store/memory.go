// internal/store/memory.go
//
// In-memory session store.
// Characteristics:
//   - Sessions are deep-copied on the way in and out, so callers never share
//     state with the map.
//   - Concurrency-safe via RWMutex (concurrent reads, exclusive writes).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/robalobadob/arcade/internal/session"
)

// Memory is a map-backed Sessions implementation.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*session.Session)}
}

// Save inserts (Version 0) or updates (matching Version) a session.
func (m *Memory) Save(_ context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	switch {
	case s.Version == 0 && ok:
		return fmt.Errorf("insert %s: %w", s.ID, ErrConflict)
	case s.Version != 0 && !ok:
		return fmt.Errorf("update %s: %w", s.ID, ErrNotFound)
	case ok && cur.Version != s.Version:
		return fmt.Errorf("update %s at v%d (stored v%d): %w", s.ID, s.Version, cur.Version, ErrConflict)
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Load returns a private copy of the session.
func (m *Memory) Load(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.Clone(), nil
	}
	return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
}

// Leaderboard ranks finished sessions.
func (m *Memory) Leaderboard(_ context.Context, kind string, limit int) ([]LeaderRow, error) {
	m.mu.RLock()
	out := []LeaderRow{}
	for _, s := range m.sessions {
		if !s.Status.Terminal() || (kind != "" && s.Kind != kind) {
			continue
		}
		out = append(out, rowOf(s))
	}
	m.mu.RUnlock()

	rank(out)
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Summary aggregates playerID's sessions.
func (m *Memory) Summary(_ context.Context, playerID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := Summary{PlayerID: playerID}
	var acc float64
	for _, s := range m.sessions {
		if s.PlayerID != playerID || playerID == "" {
			continue
		}
		sum.Started++
		sum.BestStreak = max(sum.BestStreak, s.BestStreak)
		if s.Result == nil {
			continue
		}
		sum.Finished++
		sum.TotalScore += s.Score
		sum.BestScore = max(sum.BestScore, s.Score)
		acc += s.Result.Accuracy
	}
	if sum.Finished > 0 {
		sum.AvgAccuracy = acc / float64(sum.Finished)
	}
	return sum, nil
}

// Claim re-owns from's sessions. Each moved session gets a new version so
// in-flight writers holding the old one conflict and reload.
func (m *Memory) Claim(_ context.Context, from, to string) (int, error) {
	if from == "" || to == "" {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.PlayerID != from {
			continue
		}
		cp := s.Clone()
		cp.PlayerID = to
		cp.Version++
		m.sessions[id] = cp
		n++
	}
	return n, nil
}
