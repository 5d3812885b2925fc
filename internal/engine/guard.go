package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/settlement"
)

// errPanicked marks a call into player code that panicked.
var errPanicked = errors.New("player code panicked")

// callResult carries the return values of a guarded call.
type callResult[T any] struct {
	value T
	err   error
}

// guarded runs fn in its own goroutine with a deadline and panic recovery.
// The session is revoked when the call returns or the deadline passes, so
// player code left running after a timeout can no longer touch the state.
func guarded[T any](ctx context.Context, timeout time.Duration, sess *viewSession, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult[T]{err: fmt.Errorf("%w: %v", errPanicked, r)}
			}
		}()

		v, err := fn(ctx)
		done <- callResult[T]{value: v, err: err}
	}()

	var zero T

	select {
	case r := <-done:
		sess.close()
		return r.value, r.err
	case <-ctx.Done():
		sess.close()
		return zero, fmt.Errorf("%w: %v", game.ErrBudgetExceeded, ctx.Err())
	}
}

// requestBundle asks player for its bundle in a round built by builder.
// Any failure degrades to an empty bundle.
func (e *Engine) requestBundle(ctx context.Context, sess *viewSession, player, builder int) *game.Bundle {
	b, err := guarded(ctx, e.cfg.RequestDeadline(), sess, func(ctx context.Context) (*game.Bundle, error) {
		return e.players[player].CreateBundle(ctx, sess, builder)
	})

	if err == nil && sess.meter.Exhausted() {
		err = game.ErrBudgetExceeded
	}

	if err == nil {
		err = e.checkBundle(b)
	}

	if err != nil {
		e.log.Debug("bundle request failed", "player", player, "builder", builder, "error", err)
		return &game.Bundle{}
	}

	return b.Clone()
}

// checkBundle enforces the swap leg cap, the asset range and the response
// size cap.
func (e *Engine) checkBundle(b *game.Bundle) error {
	if b == nil {
		return nil
	}

	if err := b.CheckSize(e.cfg.MaxSwaps()); err != nil {
		return err
	}

	if err := b.CheckAssets(e.cfg.Assets()); err != nil {
		return err
	}

	if size := len(settlement.Encode(0, b)); size > e.cfg.Budget.MaxResponseSize {
		return fmt.Errorf("%w: %d bytes", game.ErrResponseTooLarge, size)
	}

	return nil
}

// callBuild runs the builder's build logic and returns its bid.
// The builder's own failures are wrapped in a BuildFailedError; running
// out of gas or time fails with ErrBudgetExceeded.
func (e *Engine) callBuild(ctx context.Context, sess *buildSession, bundles []*game.Bundle) (*uint256.Int, error) {
	// The builder gets copies so the originals stay comparable to commitments
	view := make([]*game.Bundle, len(bundles))
	for i, b := range bundles {
		if b != nil {
			view[i] = b.Clone()
		}
	}

	bid, err := guarded(ctx, e.cfg.BuildDeadline(), sess.viewSession, func(ctx context.Context) (*uint256.Int, error) {
		return e.players[sess.self].BuildBlock(ctx, sess, view)
	})

	switch {
	case sess.meter.Exhausted():
		return nil, fmt.Errorf("build by player %d: %w", sess.self, game.ErrBudgetExceeded)
	case errors.Is(err, game.ErrBudgetExceeded):
		return nil, fmt.Errorf("build by player %d: %w", sess.self, err)
	case err != nil:
		return nil, &game.BuildFailedError{Builder: sess.self, Err: err}
	case bid == nil:
		return new(uint256.Int), nil
	}

	return new(uint256.Int).Set(bid), nil
}
