package identity

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/zeebo/blake3"

	"Nottingham/internal/game"
)

// testCodes returns n distinct fake programs.
func testCodes(n int) [][]byte {
	codes := make([][]byte, n)
	for i := range codes {
		codes[i] = []byte(fmt.Sprintf("player-program-%d", i))
	}
	return codes
}

// TestDeriveMatchesManualComputation pins the handle derivation layout.
func TestDeriveMatchesManualComputation(t *testing.T) {
	code := []byte("code")
	codeHash := blake3.Sum256(code)

	var buf []byte
	buf = append(buf, handleDomain...)
	buf = append(buf, codeHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, 7)

	want := Handle(blake3.Sum256(buf))
	if got := Derive(code, 7); got != want {
		t.Errorf("Derive mismatch: got %s, want %s", got, want)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	if Derive([]byte("a"), 1) != Derive([]byte("a"), 1) {
		t.Error("same inputs should produce same handle")
	}

	if Derive([]byte("a"), 1) == Derive([]byte("a"), 2) {
		t.Error("different salts should produce different handles")
	}
}

// TestMineRecoversIndex checks every mined handle encodes its index.
func TestMineRecoversIndex(t *testing.T) {
	for n := game.MinPlayers; n <= game.MaxPlayers; n++ {
		codes := testCodes(n)

		as, err := Mine(codes)
		if err != nil {
			t.Fatalf("n=%d: mine: %v", n, err)
		}

		for i, a := range as {
			if a.Index != i {
				t.Errorf("n=%d: assignment %d has index %d", n, i, a.Index)
			}

			if got := IndexField(a.Handle, n); got != i {
				t.Errorf("n=%d: handle of %d encodes %d", n, i, got)
			}

			if a.Handle != Derive(codes[i], a.Salt) {
				t.Errorf("n=%d: handle of %d does not match its salt", n, i)
			}
		}
	}
}

// TestMineIdenticalPrograms checks identical code still yields distinct handles.
func TestMineIdenticalPrograms(t *testing.T) {
	code := []byte("same")
	codes := [][]byte{code, code, code}

	as, err := Mine(codes)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	r, err := FromAssignments(codes, as)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	for i := 0; i < r.Len(); i++ {
		h, _ := r.Handle(i)
		if got, ok := r.Lookup(h); !ok || got != i {
			t.Errorf("lookup of %d returned %d, %v", i, got, ok)
		}
	}
}

func TestMineRejectsPlayerCount(t *testing.T) {
	for _, n := range []int{0, 1, 9} {
		if _, err := Mine(testCodes(n)); !errors.Is(err, game.ErrSetup) {
			t.Errorf("n=%d: expected ErrSetup, got %v", n, err)
		}
	}
}

func TestNewRegistryRejectsBadSalt(t *testing.T) {
	codes := testCodes(4)

	as, err := Mine(codes)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	salts := Salts(as)

	// Find a salt that maps player 0 elsewhere
	bad := salts[0] + 1
	for IndexField(Derive(codes[0], bad), 4) == 0 {
		bad++
	}
	salts[0] = bad

	if _, err := NewRegistry(codes, salts); !errors.Is(err, game.ErrSetup) {
		t.Errorf("expected ErrSetup, got %v", err)
	}
}

func TestNewRegistryRejectsMismatchedInputs(t *testing.T) {
	if _, err := NewRegistry(testCodes(3), []uint64{0, 1}); !errors.Is(err, game.ErrSetup) {
		t.Errorf("expected ErrSetup, got %v", err)
	}
}

func TestRegistryBijection(t *testing.T) {
	codes := testCodes(6)

	as, err := Mine(codes)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	r, err := NewRegistry(codes, Salts(as))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	seen := make(map[Handle]bool)
	for i, h := range r.Handles() {
		if seen[h] {
			t.Errorf("duplicate handle at %d", i)
		}
		seen[h] = true

		if got, ok := r.Lookup(h); !ok || got != i {
			t.Errorf("lookup(%s) = %d, %v; want %d", h.Short(), got, ok, i)
		}
	}

	if _, ok := r.Lookup(Handle{0xff}); ok {
		t.Error("unknown handle should not resolve")
	}

	if _, err := r.Handle(6); !errors.Is(err, game.ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
}
