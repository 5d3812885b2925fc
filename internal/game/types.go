// Package game holds the types shared by every part of the arena: assets,
// bundles, the rule set, the error taxonomy and the capability interfaces
// that untrusted player programs are given.
package game

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Asset indexes the market's reserve vector.
// Asset 0 is the currency, every other asset is a good.
type Asset int

// Currency is the scarce asset used only for bids and tips.
const Currency Asset = 0

// IsGood reports whether a is a non-currency asset.
func (a Asset) IsGood() bool {
	return a > Currency
}

// Valid reports whether a is an asset of a game with n assets.
func (a Asset) Valid(n int) bool {
	return a >= 0 && int(a) < n
}

// SwapIntent is one leg of a bundle: sell Amount of From for at least
// MinOutput of To.
type SwapIntent struct {
	From      Asset       // From is the asset given to the market
	To        Asset       // To is the asset received from the market
	Amount    uint256.Int // Amount is the quantity of From sold
	MinOutput uint256.Int // MinOutput is the smallest acceptable quantity of To
}

// Bundle is the ordered list of swaps a player wants executed this round,
// plus an optional currency tip paid to the builder on success.
type Bundle struct {
	Swaps []SwapIntent // Swaps are executed in order, all or nothing
	Tip   uint256.Int  // Tip is paid in currency; zero means no tip
}

// NewSwap builds a SwapIntent from plain amounts.
func NewSwap(from, to Asset, amount, minOutput *uint256.Int) SwapIntent {
	s := SwapIntent{From: from, To: to}
	if amount != nil {
		s.Amount.Set(amount)
	}
	if minOutput != nil {
		s.MinOutput.Set(minOutput)
	}
	return s
}

// Empty reports whether the bundle trades nothing and tips nothing.
func (b *Bundle) Empty() bool {
	return b == nil || (len(b.Swaps) == 0 && b.Tip.IsZero())
}

// Clone returns a deep copy of b. A nil bundle clones to an empty one.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return &Bundle{}
	}

	out := &Bundle{Tip: b.Tip}
	if len(b.Swaps) > 0 {
		out.Swaps = make([]SwapIntent, len(b.Swaps))
		copy(out.Swaps, b.Swaps)
	}

	return out
}

// Equal reports whether a and b carry identical content.
// A nil bundle equals an empty one.
func (b *Bundle) Equal(other *Bundle) bool {
	x, y := b.Clone(), other.Clone()
	if len(x.Swaps) != len(y.Swaps) || !x.Tip.Eq(&y.Tip) {
		return false
	}

	for i := range x.Swaps {
		l, r := x.Swaps[i], y.Swaps[i]
		if l.From != r.From || l.To != r.To || !l.Amount.Eq(&r.Amount) || !l.MinOutput.Eq(&r.MinOutput) {
			return false
		}
	}

	return true
}

// CheckSize rejects bundles with more than maxSwaps legs.
func (b *Bundle) CheckSize(maxSwaps int) error {
	if b == nil {
		return nil
	}

	if len(b.Swaps) > maxSwaps {
		return fmt.Errorf("%w: %d > %d", ErrTooManySwaps, len(b.Swaps), maxSwaps)
	}

	return nil
}

// CheckAssets rejects bundles with a leg outside [0, assets).
func (b *Bundle) CheckAssets(assets int) error {
	if b == nil {
		return nil
	}

	for i, s := range b.Swaps {
		if !s.From.Valid(assets) || !s.To.Valid(assets) {
			return fmt.Errorf("%w: leg %d trades %d for %d", ErrInvalidAsset, i, s.From, s.To)
		}
	}

	return nil
}

// Outcome is the record emitted for every settlement attempt.
type Outcome struct {
	Round   uint64 // Round is the round the settlement happened in
	Builder int    // Builder is the identity that settled the bundle
	Target  int    // Target is the identity whose bundle was settled
	Success bool   // Success is false when any leg or the tip failed
	Reason  string // Reason describes the failure, empty on success
	Bundle  Bundle // Bundle is the content that was settled
}

// OutcomeSink receives settlement outcome records.
type OutcomeSink interface {
	RecordOutcome(o Outcome)
}

// RoundSummary is the externally visible record of one finished round.
type RoundSummary struct {
	Round   uint64      // Round is the round number after the round completed
	Builder int         // Builder is the auction winner, -1 when the round was empty
	Bid     uint256.Int // Bid is the burned winning bid
	Empty   bool        // Empty is true when no trades occurred
	Failure string      // Failure describes a discarded committed build
	Winner  int         // Winner is the game winner, -1 while undecided
}
