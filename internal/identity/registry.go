package identity

import (
	"fmt"

	"Nottingham/internal/game"
)

// Registry is the explicit index↔handle table of one game.
// It is built once at setup and never changes.
type Registry struct {
	handles []Handle       // handles is indexed by player
	index   map[Handle]int // index maps a handle back to its player
}

// NewRegistry verifies one salt per program and builds the table.
// A salt whose handle does not encode its program's index is a setup error.
func NewRegistry(codes [][]byte, salts []uint64) (*Registry, error) {
	n := len(codes)
	if n < game.MinPlayers || n > game.MaxPlayers {
		return nil, fmt.Errorf("%w: %d programs, want %d to %d", game.ErrSetup, n, game.MinPlayers, game.MaxPlayers)
	}

	if len(salts) != n {
		return nil, fmt.Errorf("%w: %d programs but %d salts", game.ErrSetup, n, len(salts))
	}

	r := &Registry{
		handles: make([]Handle, n),
		index:   make(map[Handle]int, n),
	}

	for i, code := range codes {
		h := Derive(code, salts[i])

		if got := IndexField(h, n); got != i {
			return nil, fmt.Errorf("%w: salt %d gives player %d index %d", game.ErrSetup, salts[i], i, got)
		}

		if prev, dup := r.index[h]; dup {
			return nil, fmt.Errorf("%w: players %d and %d share handle %s", game.ErrSetup, prev, i, h.Short())
		}

		r.handles[i] = h
		r.index[h] = i
	}

	return r, nil
}

// FromAssignments builds a registry directly from mined assignments.
func FromAssignments(codes [][]byte, as []Assignment) (*Registry, error) {
	if len(as) != len(codes) {
		return nil, fmt.Errorf("%w: %d programs but %d assignments", game.ErrSetup, len(codes), len(as))
	}

	return NewRegistry(codes, Salts(as))
}

// Len returns the number of players.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Handle returns the handle of player i.
func (r *Registry) Handle(i int) (Handle, error) {
	if i < 0 || i >= len(r.handles) {
		return Handle{}, fmt.Errorf("%w: %d", game.ErrInvalidIdentity, i)
	}
	return r.handles[i], nil
}

// Lookup returns the player a handle belongs to.
func (r *Registry) Lookup(h Handle) (int, bool) {
	i, ok := r.index[h]
	return i, ok
}

// Handles returns a copy of the table in index order.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, len(r.handles))
	copy(out, r.handles)
	return out
}
