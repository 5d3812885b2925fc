package game

import (
	"context"

	"github.com/holiman/uint256"
)

// View is the read-only game surface every player may query.
// A View is bound to the player it was handed to.
type View interface {
	// Self returns the index of the player holding this view.
	Self() int

	// PlayerCount returns the number of identities.
	PlayerCount() int

	// AssetCount returns the number of assets.
	AssetCount() int

	// Round returns the number of completed rounds.
	Round() uint64

	// IsGameOver reports whether a winner has been declared.
	IsGameOver() bool

	// BalanceOf returns a player's balance of one asset.
	BalanceOf(player int, asset Asset) (*uint256.Int, error)

	// QuoteSell prices selling amount of from for to.
	QuoteSell(from, to Asset, amount *uint256.Int) (*uint256.Int, error)

	// QuoteBuy prices buying output of to with from.
	QuoteBuy(from, to Asset, output *uint256.Int) (*uint256.Int, error)

	// SpotPrice returns the price of one Unit of from in to, scaled by Unit.
	SpotPrice(from, to Asset) (*uint256.Int, error)

	// MarketState returns the reserve vector.
	MarketState() []*uint256.Int

	// ScorePlayers returns every player's largest goods balance.
	ScorePlayers() []*uint256.Int

	// FindWinner returns the winner the current balances would produce.
	FindWinner() (int, bool)
}

// Builder is the privileged surface handed to the round's auction winner.
// Every method fails with ErrAccess once the builder's turn is over.
type Builder interface {
	View

	// Sell trades amount of from for to on the builder's own account.
	Sell(from, to Asset, amount *uint256.Int) (*uint256.Int, error)

	// Buy trades from for exactly output of to on the builder's own account.
	// It returns the amount of from paid.
	Buy(from, to Asset, output *uint256.Int) (*uint256.Int, error)

	// Settle executes another player's bundle. A bundle whose legs fail
	// reports false without an error; errors are reserved for rejected calls.
	Settle(target int, bundle *Bundle) (bool, error)
}

// Player is the capability every untrusted identity program exposes.
type Player interface {
	// CreateBundle returns the trades the player wants in a round built by builder.
	CreateBundle(ctx context.Context, v View, builder int) (*Bundle, error)

	// BuildBlock settles every other player's bundle and returns the bid.
	// bundles is indexed by player; the builder's own slot is nil.
	BuildBlock(ctx context.Context, b Builder, bundles []*Bundle) (*uint256.Int, error)
}
