// Package identity assigns every player program a self-describing handle.
//
// A handle is derived from the program bytes and a salt. Its low-order
// field (the last eight bytes, big-endian, modulo the player count) equals
// the player's index, so anyone can tell which player a handle belongs to
// without a side channel, and the handle says nothing about ordering
// beyond that index.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"Nottingham/internal/game"
)

const (
	// MaxSaltTrials bounds the salts tried per player before giving up.
	MaxSaltTrials = 4096

	// handleDomain separates handle derivation from other blake3 uses.
	handleDomain = "nottingham-identity"
)

// Handle is the 32-byte identifier of one player program.
type Handle [32]byte

// String returns the lowercase hex encoding of h.
func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters of h for logging.
func (h Handle) Short() string {
	return hex.EncodeToString(h[:4])
}

// Assignment binds a player index to its salt and handle.
type Assignment struct {
	Index  int    // Index is the player's position in the game
	Salt   uint64 // Salt is the mined deployment parameter
	Handle Handle // Handle is blake3(domain || blake3(code) || salt)
}

// Derive computes the handle of code deployed with salt.
func Derive(code []byte, salt uint64) Handle {
	codeHash := blake3.Sum256(code)
	return deriveFromHash(codeHash, salt)
}

// deriveFromHash computes a handle from a precomputed program hash.
func deriveFromHash(codeHash [32]byte, salt uint64) Handle {
	var saltBuf [8]byte
	binary.BigEndian.PutUint64(saltBuf[:], salt)

	h := blake3.New()
	h.Write([]byte(handleDomain))
	h.Write(codeHash[:])
	h.Write(saltBuf[:])

	var out Handle
	h.Sum(out[:0])

	return out
}

// IndexField returns the low-order field of h for a game of n players.
func IndexField(h Handle, n int) int {
	return int(binary.BigEndian.Uint64(h[24:]) % uint64(n))
}

// Mine finds a salt for every program such that its handle's low-order
// field equals the program's index. Salts are tried in increasing order
// from zero, so mining is deterministic.
func Mine(codes [][]byte) ([]Assignment, error) {
	n := len(codes)
	if n < game.MinPlayers || n > game.MaxPlayers {
		return nil, fmt.Errorf("%w: %d programs, want %d to %d", game.ErrSetup, n, game.MinPlayers, game.MaxPlayers)
	}

	out := make([]Assignment, n)
	for i, code := range codes {
		a, err := mineOne(code, i, n)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}

	return out, nil
}

// mineOne searches salts for a single program.
func mineOne(code []byte, index, n int) (Assignment, error) {
	codeHash := blake3.Sum256(code)

	for salt := uint64(0); salt < MaxSaltTrials; salt++ {
		h := deriveFromHash(codeHash, salt)
		if IndexField(h, n) == index {
			return Assignment{Index: index, Salt: salt, Handle: h}, nil
		}
	}

	return Assignment{}, fmt.Errorf("%w: player %d after %d trials", game.ErrSaltExhausted, index, MaxSaltTrials)
}

// Salts extracts the salts of a mined assignment set, in index order.
func Salts(as []Assignment) []uint64 {
	out := make([]uint64, len(as))
	for _, a := range as {
		out[a.Index] = a.Salt
	}
	return out
}
