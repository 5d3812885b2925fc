package remote

import (
	"context"
	"fmt"

	"Nottingham/internal/game"
	"Nottingham/internal/logger"
	"Nottingham/internal/network"
	"Nottingham/internal/types"
)

// Strategy is the decision logic of a remote program. It sees a snapshot
// of the state instead of a live view.
type Strategy interface {
	// CreateBundle answers a bundle request.
	CreateBundle(ctx context.Context, call *types.BundleCall) (*game.Bundle, error)

	// BuildBlock answers a build request with the actions to replay and the bid.
	BuildBlock(ctx context.Context, call *types.BuildCall) (*types.Plan, error)
}

// Handler adapts s to the node's request handler.
func Handler(s Strategy) func(context.Context, *network.Peer, []byte) ([]byte, error) {
	return func(ctx context.Context, _ *network.Peer, frame []byte) ([]byte, error) {
		if len(frame) == 0 {
			return nil, fmt.Errorf("%w: empty frame", ErrUnknownKind)
		}

		switch frame[0] {
		case KindCreateBundle:
			call, err := types.DecodeBundleRequest(frame[1:])
			if err != nil {
				return nil, err
			}

			b, err := s.CreateBundle(ctx, call)
			if err != nil {
				return nil, err
			}

			return types.EncodeBundle(b), nil

		case KindBuildBlock:
			call, err := types.DecodeBuildRequest(frame[1:])
			if err != nil {
				return nil, err
			}

			plan, err := s.BuildBlock(ctx, call)
			if err != nil {
				return nil, err
			}
			if plan == nil {
				plan = &types.Plan{}
			}

			return types.EncodeBuildPlan(plan), nil
		}

		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, frame[0])
	}
}

// Serve dials the arena at hostAddr and answers its requests with s until
// ctx is done. The node re-dials if the link drops.
func Serve(ctx context.Context, node *network.Node, hostAddr string, s Strategy) error {
	node.OnRequest(Handler(s))

	if _, err := node.Connect(hostAddr); err != nil {
		return fmt.Errorf("connect to arena:\n%w", err)
	}

	logger.Info("serving arena", "host", hostAddr)

	<-ctx.Done()

	return node.Close()
}
