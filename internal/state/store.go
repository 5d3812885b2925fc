package state

import (
	"fmt"

	"Nottingham/internal/game"
)

// Hash is a 32-byte commitment.
type Hash [32]byte

// commitStore holds the settlement commitments of the current round.
// A commitment, once recorded, cannot be replaced until the store is cleared.
type commitStore struct {
	entries map[int]Hash // entries maps a player to its bundle commitment
}

// newCommitStore creates an empty commitment store.
func newCommitStore() *commitStore {
	return &commitStore{entries: make(map[int]Hash)}
}

// get returns the commitment recorded for player.
func (c *commitStore) get(player int) (Hash, bool) {
	h, ok := c.entries[player]
	return h, ok
}

// set records a commitment. It fails if one already exists.
func (c *commitStore) set(player int, h Hash) error {
	if _, ok := c.entries[player]; ok {
		return fmt.Errorf("%w: player %d", game.ErrBundleAlreadySettled, player)
	}

	c.entries[player] = h
	return nil
}

// clear drops every commitment.
func (c *commitStore) clear() {
	clear(c.entries)
}

// clone returns an independent copy.
func (c *commitStore) clone() *commitStore {
	out := &commitStore{entries: make(map[int]Hash, len(c.entries))}
	for k, v := range c.entries {
		out.entries[k] = v
	}
	return out
}
