package engine

import (
	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/identity"
)

// Status is a point-in-time summary of the game.
type Status struct {
	Round   uint64 // Round is the number of completed rounds
	Ended   bool   // Ended is true once a winner is declared
	Winner  int    // Winner is the declared winner or NoPlayer
	Players int    // Players is the number of identities
}

// publish copies the live state for concurrent readers.
func (e *Engine) publish() {
	snap := e.st.Clone()

	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	e.published = snap
	e.pubRound = e.round
	e.pubEnded = e.ended
	e.pubWinner = e.winner
}

// Config returns the rule set.
func (e *Engine) Config() *game.Config {
	return e.cfg
}

// Handles returns the identity handles in index order.
func (e *Engine) Handles() []identity.Handle {
	return e.registry.Handles()
}

// Status returns the state of the last completed round.
func (e *Engine) Status() Status {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return Status{
		Round:   e.pubRound,
		Ended:   e.pubEnded,
		Winner:  e.pubWinner,
		Players: e.cfg.Players,
	}
}

// Reserves returns the market reserves after the last completed round.
func (e *Engine) Reserves() []*uint256.Int {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return e.published.Market().Reserves()
}

// Balances returns a player's balances after the last completed round.
func (e *Engine) Balances(player int) ([]*uint256.Int, error) {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return e.published.Balances(player)
}

// Scores returns every player's largest goods balance after the last completed round.
func (e *Engine) Scores() []*uint256.Int {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return Scores(e.published)
}

// SpotPrice returns the last completed round's spot price of from in to.
func (e *Engine) SpotPrice(from, to game.Asset) (*uint256.Int, error) {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return e.published.Market().Price(from, to)
}

// QuoteSell prices a sell against the last completed round's market.
func (e *Engine) QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return e.published.Market().QuoteSell(from, to, amount)
}

// QuoteBuy prices a buy against the last completed round's market.
func (e *Engine) QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()

	return e.published.Market().QuoteBuy(from, to, output)
}
