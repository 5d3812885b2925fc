// Package remote runs player programs that live in another process and talk
// to the arena over the QUIC transport.
package remote

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/logger"
	"Nottingham/internal/network"
	"Nottingham/internal/types"
)

// Frame kinds. Every request is [1B kind][FlatBuffers body].
const (
	KindCreateBundle byte = 1 // KindCreateBundle carries a BundleRequest, answered by a Bundle
	KindBuildBlock   byte = 2 // KindBuildBlock carries a BuildRequest, answered by a BuildPlan
)

var (
	// ErrPeerUnavailable is returned when the program is not connected.
	ErrPeerUnavailable = errors.New("remote program not connected")

	// ErrUnknownKind is returned for frames of an unknown kind.
	ErrUnknownKind = errors.New("unknown frame kind")
)

// Player forwards calls to the remote program holding key.
type Player struct {
	node        *network.Node     // node is the host's listening node
	key         ed25519.PublicKey // key identifies the program's connection
	maxResponse int               // maxResponse caps a single answer
}

// NewPlayer binds the program authenticated by key on node.
func NewPlayer(node *network.Node, key ed25519.PublicKey, cfg *game.Config) *Player {
	return &Player{node: node, key: key, maxResponse: cfg.Budget.MaxResponseSize}
}

// CreateBundle sends a BundleRequest and decodes the Bundle answer.
func (p *Player) CreateBundle(ctx context.Context, v game.View, builder int) (*game.Bundle, error) {
	body := types.EncodeBundleRequest(&types.BundleCall{
		Self:    v.Self(),
		Builder: builder,
		State:   types.Capture(v),
	})

	resp, err := p.request(ctx, KindCreateBundle, body)
	if err != nil {
		return nil, err
	}

	return types.DecodeBundle(resp)
}

// BuildBlock sends a BuildRequest and replays the returned plan against b.
// Failed actions are skipped; running out of budget stops the replay.
func (p *Player) BuildBlock(ctx context.Context, b game.Builder, bundles []*game.Bundle) (*uint256.Int, error) {
	body := types.EncodeBuildRequest(&types.BuildCall{
		Self:    b.Self(),
		Bundles: bundles,
		State:   types.Capture(b),
	})

	resp, err := p.request(ctx, KindBuildBlock, body)
	if err != nil {
		return nil, err
	}

	plan, err := types.DecodeBuildPlan(resp)
	if err != nil {
		return nil, err
	}

	if err := Replay(ctx, b, plan); err != nil {
		return nil, err
	}

	return new(uint256.Int).Set(&plan.Bid), nil
}

// Replay executes plan's actions in order against b.
func Replay(ctx context.Context, b game.Builder, plan *types.Plan) error {
	log := logger.With("builder", b.Self())

	for i := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}

		act := &plan.Actions[i]

		var err error
		switch act.Kind {
		case types.ActionKindSettle:
			_, err = b.Settle(act.Target, act.Bundle)
		case types.ActionKindSell:
			_, err = b.Sell(act.From, act.To, &act.Amount)
		case types.ActionKindBuy:
			_, err = b.Buy(act.From, act.To, &act.Amount)
		}

		if errors.Is(err, game.ErrBudgetExceeded) {
			return err
		}

		if err != nil {
			log.Debug("plan action skipped", "index", i, "kind", act.Kind.String(), "error", err)
		}
	}

	return nil
}

// request sends one frame to the program and enforces the response cap.
func (p *Player) request(ctx context.Context, kind byte, body []byte) ([]byte, error) {
	peer := p.node.GetPeer(p.key)
	if peer == nil {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnavailable, hex.EncodeToString(p.key[:8]))
	}

	resp, err := peer.Request(ctx, append([]byte{kind}, body...))
	switch {
	case errors.Is(err, network.ErrMessageTooLarge):
		return nil, fmt.Errorf("%w: %v", game.ErrResponseTooLarge, err)
	case err != nil:
		return nil, err
	case len(resp) > p.maxResponse:
		return nil, fmt.Errorf("%w: %d bytes", game.ErrResponseTooLarge, len(resp))
	}

	return resp, nil
}
