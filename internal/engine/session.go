package engine

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/settlement"
	"Nottingham/internal/state"
)

const (
	// viewGas is charged for every read through a View.
	viewGas = 100

	// tradeGas is charged for every builder Sell or Buy.
	tradeGas = 1_000
)

// viewSession is the View handed to one player for one call.
// It stops answering once closed.
type viewSession struct {
	mu     sync.Mutex     // mu serializes calls and close
	closed bool           // closed is set when the call into the player returns
	cfg    *game.Config   // cfg is the rule set
	st     *state.State   // st is the state the player reads
	self   int            // self is the player holding the session
	round  uint64         // round is the number of completed rounds
	ended  bool           // ended mirrors the game-over flag
	meter  *game.GasMeter // meter is the call's gas budget
}

// newViewSession creates a view over st for player self.
func newViewSession(e *Engine, st *state.State, self int, gas uint64) *viewSession {
	return &viewSession{
		cfg:   e.cfg,
		st:    st,
		self:  self,
		round: e.round,
		ended: e.ended,
		meter: game.NewGasMeter(gas),
	}
}

// close revokes the session. It waits for an in-flight call to finish.
func (s *viewSession) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// charge fails once the session is closed or out of gas. Callers hold mu.
func (s *viewSession) charge(cost uint64) error {
	if s.closed {
		return fmt.Errorf("%w: player %d used a revoked session", game.ErrAccess, s.self)
	}
	return s.meter.Consume(cost)
}

func (s *viewSession) Self() int {
	return s.self
}

func (s *viewSession) PlayerCount() int {
	return s.cfg.Players
}

func (s *viewSession) AssetCount() int {
	return s.cfg.Assets()
}

func (s *viewSession) Round() uint64 {
	return s.round
}

func (s *viewSession) IsGameOver() bool {
	return s.ended
}

func (s *viewSession) BalanceOf(player int, asset game.Asset) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.charge(viewGas); err != nil {
		return nil, err
	}

	return s.st.Balance(player, asset)
}

func (s *viewSession) QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.charge(viewGas); err != nil {
		return nil, err
	}

	return s.st.Market().QuoteSell(from, to, amount)
}

func (s *viewSession) QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.charge(viewGas); err != nil {
		return nil, err
	}

	return s.st.Market().QuoteBuy(from, to, output)
}

func (s *viewSession) SpotPrice(from, to game.Asset) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.charge(viewGas); err != nil {
		return nil, err
	}

	return s.st.Market().Price(from, to)
}

// MarketState returns nil once the session is closed or out of gas.
func (s *viewSession) MarketState() []*uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.charge(viewGas) != nil {
		return nil
	}

	return s.st.Market().Reserves()
}

// ScorePlayers returns nil once the session is closed or out of gas.
func (s *viewSession) ScorePlayers() []*uint256.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.charge(viewGas) != nil {
		return nil
	}

	return Scores(s.st)
}

// FindWinner reports no winner once the session is closed or out of gas.
func (s *viewSession) FindWinner() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.charge(viewGas) != nil {
		return -1, false
	}

	return FindWinner(s.st, s.round, s.cfg.RoundCap, &s.cfg.WinThreshold)
}

// buildSession is the Builder handed to the auction candidate or winner.
type buildSession struct {
	*viewSession
	playing uint64              // playing is the round being built
	settler *settlement.Settler // settler executes bundles against the session state
}

// newBuildSession creates a builder over st for player self.
func newBuildSession(e *Engine, st *state.State, self int, playing uint64, sink game.OutcomeSink) *buildSession {
	return &buildSession{
		viewSession: newViewSession(e, st, self, e.cfg.BuildGasLimit()),
		playing:     playing,
		settler:     settlement.New(st, e.cfg.Budget.SettleGasPerLeg, sink),
	}
}

// privileged charges cost and checks the builder slot. Callers hold mu.
func (b *buildSession) privileged(cost uint64) error {
	if err := b.charge(cost); err != nil {
		return err
	}
	return b.st.RequireBuilder(b.self)
}

func (b *buildSession) Sell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.privileged(tradeGas); err != nil {
		return nil, err
	}

	return b.st.Sell(b.self, from, to, amount)
}

func (b *buildSession) Buy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.privileged(tradeGas); err != nil {
		return nil, err
	}

	return b.st.Buy(b.self, from, to, output)
}

func (b *buildSession) Settle(target int, bundle *game.Bundle) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.privileged(0); err != nil {
		return false, err
	}

	return b.settler.Settle(b.playing, b.self, target, bundle, b.meter)
}
