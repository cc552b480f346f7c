package session

import (
	"errors"

	"github.com/robalobadob/arcade/internal/games"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrNotActive     = errors.New("session is not active")
	ErrCompleted     = errors.New("session already completed")
	ErrTimeExpired   = errors.New("session time expired")
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrConflict is returned by a Store when the saved version moved under us.
	ErrConflict = errors.New("session version conflict")
)

// Code is the stable, machine-readable form of a command error.
type Code string

const (
	CodeOK            Code = "ok"
	CodeNotFound      Code = "not_found"
	CodeNotActive     Code = "not_active"
	CodeCompleted     Code = "completed"
	CodeTimeExpired   Code = "time_expired"
	CodeInvalidConfig Code = "invalid_config"
	CodeUnknownKind   Code = "unknown_game"
	CodeConflict      Code = "conflict"
	CodeInternal      Code = "internal_error"
)

// CodeOf maps err (possibly wrapped) to its Code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotActive):
		return CodeNotActive
	case errors.Is(err, ErrCompleted):
		return CodeCompleted
	case errors.Is(err, ErrTimeExpired):
		return CodeTimeExpired
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, games.ErrUnknownKind):
		return CodeUnknownKind
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}
