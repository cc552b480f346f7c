// Package content produces the ordered target sequence a session plays
// through. The engine treats targets as opaque beyond ID, answer and worth.
package content

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	mrand "math/rand/v2"

	"github.com/robalobadob/arcade/internal/hints"
	"github.com/robalobadob/arcade/internal/scoring"
)

// ErrNotEnoughContent is returned when a provider cannot fill Count targets.
var ErrNotEnoughContent = errors.New("not enough content for request")

// Target is one thing to guess, hit or stack.
type Target struct {
	ID     string                `json:"id"`
	Answer string                `json:"answer"`
	Worth  int                   `json:"worth"`
	Hints  map[hints.Type]string `json:"hints,omitempty"`
}

// Request describes the content a new session needs.
type Request struct {
	Kind       string
	Difficulty scoring.Difficulty
	Count      int
	GridSize   int
	WordLength int
	// Seed makes generation deterministic; empty means random.
	Seed string
}

// Provider generates targets for a request.
type Provider interface {
	Targets(ctx context.Context, req Request) ([]Target, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) ([]Target, error)

// Targets implements Provider.
func (f ProviderFunc) Targets(ctx context.Context, req Request) ([]Target, error) {
	return f(ctx, req)
}

// Static always returns the same targets, truncated to Count when set.
type Static []Target

// Targets implements Provider.
func (s Static) Targets(_ context.Context, req Request) ([]Target, error) {
	if req.Count > 0 && req.Count < len(s) {
		return append([]Target(nil), s[:req.Count]...), nil
	}
	return append([]Target(nil), s...), nil
}

// NewSeed returns a random seed string (16 hex chars).
func NewSeed() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// rng derives a deterministic PRNG from seed.
func rng(seed string) *mrand.Rand {
	if seed == "" {
		seed = NewSeed()
	}
	sum := sha256.Sum256([]byte(seed))
	a := binary.BigEndian.Uint64(sum[:8])
	b := binary.BigEndian.Uint64(sum[8:16])
	return mrand.New(mrand.NewPCG(a, b))
}
