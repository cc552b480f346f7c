package session

import (
	"context"

	"github.com/robalobadob/arcade/internal/games"
)

// Store persists sessions. Save must be a compare-and-swap on Version:
// a new session is saved with Version 0, and an update only succeeds when
// the stored Version still equals s.Version. On success the store bumps
// s.Version. A lost race returns ErrConflict; a missing id returns
// ErrNotFound.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Games resolves a kind to its bundled rules and strategies.
type Games interface {
	Lookup(kind string) (*games.Game, error)
}
