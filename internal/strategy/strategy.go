// Package strategy holds the built-in player programs. Each one is pure
// decision logic over a state snapshot, offered both in-process as a
// game.Player and out-of-process as a remote.Strategy.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/remote"
	"Nottingham/internal/types"
)

// Built-in strategy names.
const (
	NameIdle   = "idle"
	NameGreedy = "greedy"
)

// ErrUnknown is returned for names that are not built in.
var ErrUnknown = errors.New("unknown strategy")

// decider decides bundles and builds from a snapshot.
type decider interface {
	bundle(self, builder int, s *types.Snapshot) *game.Bundle
	plan(self int, bundles []*game.Bundle, s *types.Snapshot) *types.Plan
}

var deciders = map[string]decider{
	NameIdle:   idle{},
	NameGreedy: greedy{},
}

// Names returns the built-in strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(deciders))
	for name := range deciders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Local returns the named strategy as an in-process player.
func Local(name string) (game.Player, error) {
	d, ok := deciders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	return &localPlayer{d: d}, nil
}

// Remote returns the named strategy for serving over the network.
func Remote(name string) (remote.Strategy, error) {
	d, ok := deciders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	return &remoteStrategy{d: d}, nil
}

// localPlayer runs a decider against the live surfaces.
type localPlayer struct {
	d decider
}

func (p *localPlayer) CreateBundle(_ context.Context, v game.View, builder int) (*game.Bundle, error) {
	snap := types.Capture(v)
	return p.d.bundle(v.Self(), builder, &snap), nil
}

func (p *localPlayer) BuildBlock(ctx context.Context, b game.Builder, bundles []*game.Bundle) (*uint256.Int, error) {
	snap := types.Capture(b)
	plan := p.d.plan(b.Self(), bundles, &snap)

	if err := remote.Replay(ctx, b, plan); err != nil {
		return nil, err
	}

	return &plan.Bid, nil
}

// remoteStrategy runs a decider on shipped snapshots.
type remoteStrategy struct {
	d decider
}

func (s *remoteStrategy) CreateBundle(_ context.Context, call *types.BundleCall) (*game.Bundle, error) {
	return s.d.bundle(call.Self, call.Builder, &call.State), nil
}

func (s *remoteStrategy) BuildBlock(_ context.Context, call *types.BuildCall) (*types.Plan, error) {
	return s.d.plan(call.Self, call.Bundles, &call.State), nil
}

// idle never trades and bids nothing.
type idle struct{}

func (idle) bundle(int, int, *types.Snapshot) *game.Bundle { return &game.Bundle{} }

func (idle) plan(int, []*game.Bundle, *types.Snapshot) *types.Plan { return &types.Plan{} }

// greedy funnels every good into the one it holds most of. As builder it
// settles all bundles in index order, consolidates its own goods and bids
// half of its currency.
type greedy struct{}

func (greedy) bundle(self, _ int, s *types.Snapshot) *game.Bundle {
	return &game.Bundle{Swaps: consolidate(self, s)}
}

func (greedy) plan(self int, bundles []*game.Bundle, s *types.Snapshot) *types.Plan {
	plan := &types.Plan{}

	for i, b := range bundles {
		if b == nil || i == self {
			continue
		}
		plan.Actions = append(plan.Actions, types.PlanAction{Kind: types.ActionKindSettle, Target: i, Bundle: b})
	}

	for _, leg := range consolidate(self, s) {
		plan.Actions = append(plan.Actions, types.PlanAction{
			Kind:   types.ActionKindSell,
			From:   leg.From,
			To:     leg.To,
			Amount: leg.Amount,
		})
	}

	if row := balances(self, s); len(row) > 0 {
		plan.Bid.Rsh(row[game.Currency], 1)
	}

	return plan
}

// consolidate returns the swaps selling every other good into the target good.
func consolidate(self int, s *types.Snapshot) []game.SwapIntent {
	row := balances(self, s)
	if len(row) < 2 {
		return nil
	}

	target := targetGood(self, row)

	var swaps []game.SwapIntent
	for a := 1; a < len(row); a++ {
		if game.Asset(a) == target || row[a].IsZero() {
			continue
		}
		swaps = append(swaps, game.NewSwap(game.Asset(a), target, row[a], uint256.NewInt(1)))
	}

	return swaps
}

// targetGood picks the largest goods balance, lowest index on ties.
// With no goods at all each player aims at a different good.
func targetGood(self int, row []*uint256.Int) game.Asset {
	best := game.Asset(1)
	for a := 2; a < len(row); a++ {
		if row[a].Gt(row[best]) {
			best = game.Asset(a)
		}
	}

	if row[best].IsZero() {
		return game.Asset(1 + self%(len(row)-1))
	}

	return best
}

func balances(self int, s *types.Snapshot) []*uint256.Int {
	if self < 0 || self >= len(s.Balances) {
		return nil
	}
	return s.Balances[self]
}
