// Package state holds the mutable game state of one arena: per-player
// balances, the market reserves, the round's settlement commitments and
// the single-slot builder guard.
//
// Balances and reserves can be checkpointed with Snapshot and restored with
// RevertToSnapshot. Commitments are deliberately outside snapshots: a
// settlement records its commitment before executing and must keep it even
// when its legs are rolled back.
package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/market"
)

// NoBuilder is the builder slot value when nobody is building.
const NoBuilder = -1

// snapshot is a saved copy of the balances and the market.
type snapshot struct {
	balances [][]uint256.Int
	market   *market.Market
}

// State is the balance, market and commitment state of one game.
// It is not safe for concurrent use.
type State struct {
	balances  [][]uint256.Int // balances is indexed by [player][asset]
	market    *market.Market  // market is the shared reserve vector
	commits   *commitStore    // commits holds this round's settlement commitments
	builder   int             // builder is the active builder or NoBuilder
	snapshots []snapshot      // snapshots is the checkpoint stack
}

// New creates the starting state of a game: zero balances and the
// configured initial reserves.
func New(cfg *game.Config) (*State, error) {
	m, err := market.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create market:\n%w", err)
	}

	return FromMarket(cfg.Players, m), nil
}

// FromMarket creates a state with zero balances around an existing market.
func FromMarket(players int, m *market.Market) *State {
	s := &State{
		balances: make([][]uint256.Int, players),
		market:   m,
		commits:  newCommitStore(),
		builder:  NoBuilder,
	}

	for i := range s.balances {
		s.balances[i] = make([]uint256.Int, m.Assets())
	}

	return s
}

// Clone returns an independent deep copy, including commitments and the
// builder slot. The snapshot stack is not copied.
func (s *State) Clone() *State {
	return &State{
		balances: copyBalances(s.balances),
		market:   s.market.Clone(),
		commits:  s.commits.clone(),
		builder:  s.builder,
	}
}

// Players returns the number of players.
func (s *State) Players() int {
	return len(s.balances)
}

// Assets returns the number of assets.
func (s *State) Assets() int {
	return s.market.Assets()
}

// Market exposes the reserve vector for quoting.
func (s *State) Market() *market.Market {
	return s.market
}

// Balance returns a copy of player's balance of asset.
func (s *State) Balance(player int, asset game.Asset) (*uint256.Int, error) {
	b, err := s.slot(player, asset)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(b), nil
}

// Balances returns a copy of player's balance vector.
func (s *State) Balances(player int) ([]*uint256.Int, error) {
	if err := s.CheckPlayer(player); err != nil {
		return nil, err
	}

	out := make([]*uint256.Int, len(s.balances[player]))
	for i := range s.balances[player] {
		out[i] = new(uint256.Int).Set(&s.balances[player][i])
	}

	return out, nil
}

// Credit adds amount to a balance.
func (s *State) Credit(player int, asset game.Asset, amount *uint256.Int) error {
	b, err := s.slot(player, asset)
	if err != nil {
		return err
	}

	sum, overflow := new(uint256.Int).AddOverflow(b, amount)
	if overflow {
		return fmt.Errorf("credit of %s overflows balance of player %d", amount.Dec(), player)
	}

	b.Set(sum)
	return nil
}

// Debit subtracts amount from a balance. The balance is unchanged on error.
func (s *State) Debit(player int, asset game.Asset, amount *uint256.Int) error {
	b, err := s.slot(player, asset)
	if err != nil {
		return err
	}

	if b.Lt(amount) {
		return fmt.Errorf("%w: player %d holds %s of asset %d, needs %s",
			game.ErrInsufficientBalance, player, b.Dec(), asset, amount.Dec())
	}

	b.Sub(b, amount)
	return nil
}

// Transfer moves amount of asset between two players.
func (s *State) Transfer(from, to int, asset game.Asset, amount *uint256.Int) error {
	if err := s.CheckPlayer(to); err != nil {
		return err
	}

	if err := s.Debit(from, asset, amount); err != nil {
		return err
	}

	// Credit cannot fail on a valid slot short of a 2^256 balance
	if err := s.Credit(to, asset, amount); err != nil {
		_ = s.Credit(from, asset, amount)
		return err
	}

	return nil
}

// Sell sells amount of from for to on player's account and returns the output.
// Nothing changes on error.
func (s *State) Sell(player int, from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	if err := s.CheckPlayer(player); err != nil {
		return nil, err
	}

	if err := s.requireBalance(player, from, amount); err != nil {
		return nil, err
	}

	output, err := s.market.Sell(from, to, amount)
	if err != nil {
		return nil, err
	}

	s.balances[player][from].Sub(&s.balances[player][from], amount)
	s.balances[player][to].Add(&s.balances[player][to], output)

	return output, nil
}

// Buy buys exactly output of to with from on player's account and returns
// the amount paid. Nothing changes on error.
func (s *State) Buy(player int, from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	if err := s.CheckPlayer(player); err != nil {
		return nil, err
	}

	amount, err := s.market.QuoteBuy(from, to, output)
	if err != nil {
		return nil, err
	}

	if err := s.requireBalance(player, from, amount); err != nil {
		return nil, err
	}

	if _, err := s.market.Buy(from, to, output); err != nil {
		return nil, err
	}

	s.balances[player][from].Sub(&s.balances[player][from], amount)
	s.balances[player][to].Add(&s.balances[player][to], output)

	return amount, nil
}

// Commitment returns the commitment recorded for player this round.
func (s *State) Commitment(player int) (Hash, bool) {
	return s.commits.get(player)
}

// RecordCommitment stores player's commitment for this round.
// A second commitment for the same player fails with ErrBundleAlreadySettled.
func (s *State) RecordCommitment(player int, h Hash) error {
	if err := s.CheckPlayer(player); err != nil {
		return err
	}
	return s.commits.set(player, h)
}

// ClearCommitments drops every commitment. It is called between rounds.
func (s *State) ClearCommitments() {
	s.commits.clear()
}

// Builder returns the active builder or NoBuilder.
func (s *State) Builder() int {
	return s.builder
}

// SetBuilder fills the builder slot. It fails if the slot is taken.
func (s *State) SetBuilder(player int) error {
	if err := s.CheckPlayer(player); err != nil {
		return err
	}

	if s.builder != NoBuilder {
		return fmt.Errorf("%w: player %d is already building", game.ErrAccess, s.builder)
	}

	s.builder = player
	return nil
}

// ClearBuilder empties the builder slot.
func (s *State) ClearBuilder() {
	s.builder = NoBuilder
}

// RequireBuilder fails with ErrAccess unless player holds the builder slot.
func (s *State) RequireBuilder(player int) error {
	if s.builder == NoBuilder || s.builder != player {
		return fmt.Errorf("%w: player %d", game.ErrAccess, player)
	}
	return nil
}

// Snapshot saves the balances and reserves and returns a snapshot ID.
func (s *State) Snapshot() int {
	s.snapshots = append(s.snapshots, snapshot{
		balances: copyBalances(s.balances),
		market:   s.market.Clone(),
	})
	return len(s.snapshots) - 1
}

// RevertToSnapshot restores the balances and reserves saved by snapshot id
// and drops it along with every later snapshot.
func (s *State) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}

	snap := s.snapshots[id]
	s.balances = copyBalances(snap.balances)
	s.market.Restore(snap.market)
	s.snapshots = s.snapshots[:id]

	return nil
}

// DiscardSnapshot drops snapshot id and every later one, keeping the
// current balances and reserves.
func (s *State) DiscardSnapshot(id int) {
	if id >= 0 && id < len(s.snapshots) {
		s.snapshots = s.snapshots[:id]
	}
}

// CheckPlayer fails with ErrInvalidIdentity for indices outside the game.
func (s *State) CheckPlayer(player int) error {
	if player < 0 || player >= len(s.balances) {
		return fmt.Errorf("%w: %d", game.ErrInvalidIdentity, player)
	}
	return nil
}

// requireBalance fails unless player holds at least amount of asset.
func (s *State) requireBalance(player int, asset game.Asset, amount *uint256.Int) error {
	b, err := s.slot(player, asset)
	if err != nil {
		return err
	}

	if b.Lt(amount) {
		return fmt.Errorf("%w: player %d holds %s of asset %d, needs %s",
			game.ErrInsufficientBalance, player, b.Dec(), asset, amount.Dec())
	}

	return nil
}

// slot returns the live balance cell of player and asset.
func (s *State) slot(player int, asset game.Asset) (*uint256.Int, error) {
	if err := s.CheckPlayer(player); err != nil {
		return nil, err
	}

	if !asset.Valid(s.market.Assets()) {
		return nil, fmt.Errorf("%w: %d", game.ErrInvalidAsset, asset)
	}

	return &s.balances[player][asset], nil
}

// copyBalances deep copies a balance matrix.
func copyBalances(src [][]uint256.Int) [][]uint256.Int {
	out := make([][]uint256.Int, len(src))
	for i := range src {
		out[i] = make([]uint256.Int, len(src[i]))
		copy(out[i], src[i])
	}
	return out
}
