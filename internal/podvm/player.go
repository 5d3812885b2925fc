package podvm

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/types"
)

// Player runs one loaded program as a game participant.
type Player struct {
	pool       *Pool    // pool holds the compiled program
	id         [32]byte // id is the program's module ID
	requestGas uint64   // requestGas is the gas for create_bundle
	buildGas   uint64   // buildGas is the gas for build_block
	maxOutput  int      // maxOutput caps a single answer
}

// NewPlayer binds program id in pool to the budgets of cfg.
func NewPlayer(pool *Pool, id [32]byte, cfg *game.Config) *Player {
	return &Player{
		pool:       pool,
		id:         id,
		requestGas: cfg.RequestGasLimit(),
		buildGas:   cfg.BuildGasLimit(),
		maxOutput:  cfg.Budget.MaxResponseSize,
	}
}

// ID returns the program's module ID.
func (p *Player) ID() [32]byte {
	return p.id
}

// CreateBundle calls create_bundle with a BundleRequest. No output means an
// empty bundle.
func (p *Player) CreateBundle(ctx context.Context, v game.View, builder int) (*game.Bundle, error) {
	input := types.EncodeBundleRequest(&types.BundleCall{
		Self:    v.Self(),
		Builder: builder,
		State:   types.Capture(v),
	})

	out, _, err := p.pool.Execute(ctx, p.id, EntryCreateBundle, input, Call{
		Gas:       p.requestGas,
		MaxOutput: p.maxOutput,
		View:      v,
	})
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return &game.Bundle{}, nil
	}

	return types.DecodeBundle(out)
}

// BuildBlock calls build_block with a BuildRequest. The program settles
// through the host imports and answers its bid as a 32-byte word.
func (p *Player) BuildBlock(ctx context.Context, b game.Builder, bundles []*game.Bundle) (*uint256.Int, error) {
	input := types.EncodeBuildRequest(&types.BuildCall{
		Self:    b.Self(),
		Bundles: bundles,
		State:   types.Capture(b),
	})

	out, _, err := p.pool.Execute(ctx, p.id, EntryBuildBlock, input, Call{
		Gas:       p.buildGas,
		MaxOutput: p.maxOutput,
		View:      b,
		Builder:   b,
	})
	if err != nil {
		return nil, err
	}

	if len(out) > wordSize {
		return nil, fmt.Errorf("%w: %d byte bid", types.ErrMalformed, len(out))
	}

	return new(uint256.Int).SetBytes(out), nil
}
