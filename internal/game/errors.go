package game

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	// ErrInvalidConfig is returned when a rule set fails validation.
	ErrInvalidConfig = errors.New("invalid game config")

	// ErrSetup is returned when players, programs or salts do not line up.
	ErrSetup = errors.New("setup failed")

	// ErrSaltExhausted is returned when no salt maps a program to its index.
	ErrSaltExhausted = errors.New("salt mining exhausted")

	// ErrAccess is returned when a privileged call is made by anyone but the active builder.
	ErrAccess = errors.New("caller is not the active builder")

	// ErrAlreadyInRound is returned when a round is started while one is running.
	ErrAlreadyInRound = errors.New("round already in progress")

	// ErrGameOver is returned when a round is started after the game ended.
	ErrGameOver = errors.New("game is over")

	// ErrInvalidAsset is returned for asset indices outside the market.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrInvalidIdentity is returned for player indices outside the game.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInsufficientBalance is returned when a debit exceeds a balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientLiquidity is returned when a trade would break the reserve bounds.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippage is returned when a swap yields less than its minimum output.
	ErrSlippage = errors.New("slippage exceeded")

	// ErrBundleAlreadySettled is returned for a second settlement of the same player in a round.
	ErrBundleAlreadySettled = errors.New("bundle already settled")

	// ErrBundleNotSettled is returned when a build skipped or altered a player's bundle.
	ErrBundleNotSettled = errors.New("bundle not settled")

	// ErrBuildFailed is returned when the builder's own build logic failed.
	ErrBuildFailed = errors.New("build failed")

	// ErrBudgetExceeded is returned when a call into player code runs out of gas or time.
	ErrBudgetExceeded = errors.New("execution budget exceeded")

	// ErrBidMismatch is returned when the committed bid differs from the dry-run bid.
	ErrBidMismatch = errors.New("committed bid differs from dry-run bid")

	// ErrTooManySwaps is returned for bundles above the swap leg cap.
	ErrTooManySwaps = errors.New("too many swaps")

	// ErrResponseTooLarge is returned when player output exceeds the response cap.
	ErrResponseTooLarge = errors.New("response too large")
)

// SlippageError reports the leg whose realized output fell below its minimum.
type SlippageError struct {
	Leg       int         // Leg is the index of the failing swap
	Output    uint256.Int // Output is what the market would pay
	MinOutput uint256.Int // MinOutput is what the bundle demanded
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("slippage exceeded on leg %d: output %s < min %s", e.Leg, e.Output.Dec(), e.MinOutput.Dec())
}

// Unwrap lets errors.Is match ErrSlippage.
func (e *SlippageError) Unwrap() error {
	return ErrSlippage
}

// BundleNotSettledError names the player whose bundle was missed or tampered with.
type BundleNotSettledError struct {
	Player   int  // Player is the offending identity
	Tampered bool // Tampered is true when a commitment exists but does not match
}

func (e *BundleNotSettledError) Error() string {
	if e.Tampered {
		return fmt.Sprintf("bundle of player %d settled with altered content", e.Player)
	}
	return fmt.Sprintf("bundle of player %d was not settled", e.Player)
}

// Unwrap lets errors.Is match ErrBundleNotSettled.
func (e *BundleNotSettledError) Unwrap() error {
	return ErrBundleNotSettled
}

// BuildFailedError wraps the failure of a builder's own build logic.
type BuildFailedError struct {
	Builder int   // Builder is the identity whose build failed
	Err     error // Err is the underlying failure
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build by player %d failed: %v", e.Builder, e.Err)
}

// Unwrap exposes both ErrBuildFailed and the underlying failure.
func (e *BuildFailedError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

// InvariantError reports a committed bid that differs from the measured dry-run bid.
type InvariantError struct {
	Round     uint64      // Round is the round that was rolled back
	Builder   int         // Builder is the auction winner
	DryRun    uint256.Int // DryRun is the bid measured during the auction
	Committed uint256.Int // Committed is the bid returned by the real build
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("round %d: builder %d bid %s in dry run but %s when committed",
		e.Round, e.Builder, e.DryRun.Dec(), e.Committed.Dec())
}

// Unwrap lets errors.Is match ErrBidMismatch.
func (e *InvariantError) Unwrap() error {
	return ErrBidMismatch
}
