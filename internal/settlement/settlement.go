// Package settlement executes one player's bundle on behalf of the active
// builder: exactly once per round, atomically, with the commitment recorded
// before any leg runs.
package settlement

import (
	"fmt"

	"Nottingham/internal/game"
	"Nottingham/internal/logger"
	"Nottingham/internal/state"
)

// Meter is the budget a settlement is charged against.
type Meter interface {
	Remaining() uint64
	Consume(cost uint64) error
}

// Settler settles bundles against one state.
type Settler struct {
	st        *state.State     // st is the state bundles execute against
	gasPerLeg uint64           // gasPerLeg is the settlement floor per swap leg
	sink      game.OutcomeSink // sink receives every outcome record, may be nil
}

// New creates a settler over st. A nil sink drops outcome records.
func New(st *state.State, gasPerLeg uint64, sink game.OutcomeSink) *Settler {
	return &Settler{st: st, gasPerLeg: gasPerLeg, sink: sink}
}

// Cost returns the gas a builder must hold to settle bundle.
// An empty bundle still costs one leg.
func (s *Settler) Cost(bundle *game.Bundle) uint64 {
	legs := uint64(1)
	if bundle != nil && len(bundle.Swaps) > 1 {
		legs = uint64(len(bundle.Swaps))
	}
	return s.gasPerLeg * legs
}

// Settle executes target's bundle for builder in round.
//
// Rejected calls (bad target, duplicate settlement, insufficient gas) return
// an error and change nothing. Otherwise the commitment is recorded first and
// the bundle runs atomically: a failing leg or tip rolls back every leg and
// reports false with a nil error.
func (s *Settler) Settle(round uint64, builder, target int, bundle *game.Bundle, meter Meter) (bool, error) {
	// 1. Validate the caller and the target
	if err := s.st.RequireBuilder(builder); err != nil {
		return false, err
	}

	if err := s.st.CheckPlayer(target); err != nil {
		return false, err
	}

	if target == builder {
		return false, fmt.Errorf("%w: builder %d cannot settle its own bundle", game.ErrInvalidIdentity, builder)
	}

	// 2. Replay protection
	if _, ok := s.st.Commitment(target); ok {
		return false, fmt.Errorf("%w: player %d in round %d", game.ErrBundleAlreadySettled, target, round)
	}

	// 3. Gas floor
	if err := meter.Consume(s.Cost(bundle)); err != nil {
		return false, fmt.Errorf("settle player %d: %w", target, err)
	}

	b := bundle.Clone()

	// 4. Commit before execution
	if err := s.st.RecordCommitment(target, Commit(round, b)); err != nil {
		return false, err
	}

	// 5. Execute atomically
	snap := s.st.Snapshot()
	execErr := s.execute(builder, target, b)

	if execErr != nil {
		if err := s.st.RevertToSnapshot(snap); err != nil {
			return false, fmt.Errorf("revert settlement:\n%w", err)
		}
	} else {
		s.st.DiscardSnapshot(snap)
	}

	// 6. Outcome record
	s.emit(round, builder, target, b, execErr)

	return execErr == nil, nil
}

// execute runs every leg in order, then the tip.
func (s *Settler) execute(builder, target int, b *game.Bundle) error {
	for i := range b.Swaps {
		leg := &b.Swaps[i]

		out, err := s.st.Sell(target, leg.From, leg.To, &leg.Amount)
		if err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}

		if out.Lt(&leg.MinOutput) {
			e := &game.SlippageError{Leg: i}
			e.Output.Set(out)
			e.MinOutput.Set(&leg.MinOutput)
			return e
		}
	}

	if !b.Tip.IsZero() {
		if err := s.st.Transfer(target, builder, game.Currency, &b.Tip); err != nil {
			return fmt.Errorf("tip: %w", err)
		}
	}

	return nil
}

// emit sends the outcome record to the sink. Settlers without a sink run
// dry runs, which neither log nor record.
func (s *Settler) emit(round uint64, builder, target int, b *game.Bundle, execErr error) {
	if s.sink == nil {
		return
	}

	o := game.Outcome{
		Round:   round,
		Builder: builder,
		Target:  target,
		Success: execErr == nil,
		Bundle:  *b,
	}

	if execErr != nil {
		o.Reason = execErr.Error()
	}

	logger.Debug("bundle settled",
		"round", round,
		"builder", builder,
		"target", target,
		"legs", len(b.Swaps),
		"success", o.Success,
	)

	s.sink.RecordOutcome(o)
}
