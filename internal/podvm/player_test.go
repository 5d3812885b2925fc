package podvm

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/types"
)

// fakeBuilder answers every read with fixed values and records settlements.
type fakeBuilder struct {
	self      int
	settled   map[int]*game.Bundle
	settleErr error
}

func (f *fakeBuilder) Self() int        { return f.self }
func (f *fakeBuilder) PlayerCount() int { return 2 }
func (f *fakeBuilder) AssetCount() int  { return 2 }
func (f *fakeBuilder) Round() uint64    { return 4 }
func (f *fakeBuilder) IsGameOver() bool { return false }

func (f *fakeBuilder) BalanceOf(player int, asset game.Asset) (*uint256.Int, error) {
	return uint256.NewInt(uint64(10*player + int(asset))), nil
}

func (f *fakeBuilder) QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	return new(uint256.Int).Set(amount), nil
}

func (f *fakeBuilder) QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	return new(uint256.Int).Set(output), nil
}

func (f *fakeBuilder) SpotPrice(from, to game.Asset) (*uint256.Int, error) {
	return new(uint256.Int).Set(game.Unit), nil
}

func (f *fakeBuilder) MarketState() []*uint256.Int {
	return []*uint256.Int{uint256.NewInt(1000), uint256.NewInt(2000)}
}

func (f *fakeBuilder) ScorePlayers() []*uint256.Int { return nil }
func (f *fakeBuilder) FindWinner() (int, bool)      { return -1, false }

func (f *fakeBuilder) Sell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	return nil, game.ErrInsufficientBalance
}

func (f *fakeBuilder) Buy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	return nil, game.ErrInsufficientBalance
}

func (f *fakeBuilder) Settle(target int, bundle *game.Bundle) (bool, error) {
	if f.settleErr != nil {
		return false, f.settleErr
	}
	if f.settled == nil {
		f.settled = make(map[int]*game.Bundle)
	}
	f.settled[target] = bundle
	return true, nil
}

func newTestPlayer(t *testing.T, bid uint64) *Player {
	t.Helper()

	pool := newTestPool(t)

	id, err := pool.Load(testProgram(bid, types.EncodeBundle(testBundle())))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	return NewPlayer(pool, id, game.DefaultConfig(2))
}

// TestPlayer_CreateBundle tests that the program's output becomes its bundle.
func TestPlayer_CreateBundle(t *testing.T) {
	p := newTestPlayer(t, 0)

	got, err := p.CreateBundle(context.Background(), &fakeBuilder{self: 1}, 0)
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}

	if !got.Equal(testBundle()) {
		t.Errorf("bundle = %+v", got)
	}
}

// TestPlayer_BuildBlock tests settlement through the host import and the bid answer.
func TestPlayer_BuildBlock(t *testing.T) {
	p := newTestPlayer(t, 5)
	b := &fakeBuilder{self: 0}

	bid, err := p.BuildBlock(context.Background(), b, []*game.Bundle{nil, testBundle()})
	if err != nil {
		t.Fatalf("build block: %v", err)
	}

	if bid.Uint64() != 5 {
		t.Errorf("bid = %s, want 5", bid.Dec())
	}

	if got := b.settled[1]; !got.Equal(testBundle()) {
		t.Errorf("settled bundle = %+v", got)
	}
}

// TestPlayer_BuilderBudgetAbortsProgram tests that an exhausted builder meter stops the program.
func TestPlayer_BuilderBudgetAbortsProgram(t *testing.T) {
	p := newTestPlayer(t, 5)
	b := &fakeBuilder{self: 0, settleErr: game.ErrBudgetExceeded}

	_, err := p.BuildBlock(context.Background(), b, []*game.Bundle{nil, testBundle()})
	if !errors.Is(err, game.ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
}

// TestPlayer_RejectedSettleKeepsRunning tests that a refused settlement is a status, not an abort.
func TestPlayer_RejectedSettleKeepsRunning(t *testing.T) {
	p := newTestPlayer(t, 3)
	b := &fakeBuilder{self: 0, settleErr: game.ErrAccess}

	bid, err := p.BuildBlock(context.Background(), b, []*game.Bundle{nil, testBundle()})
	if err != nil {
		t.Fatalf("build block: %v", err)
	}

	if bid.Uint64() != 3 {
		t.Errorf("bid = %s, want 3", bid.Dec())
	}
}
