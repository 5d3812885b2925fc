// Package engine runs the rounds of one arena game: income, the sealed-bid
// builder auction, the committed build with its settlement verification and
// bid burn, and win detection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/identity"
	"Nottingham/internal/logger"
	"Nottingham/internal/settlement"
	"Nottingham/internal/state"
)

// NoPlayer marks an absent builder or winner.
const NoPlayer = -1

// Recorder receives settlement outcomes and round summaries of committed rounds.
type Recorder interface {
	game.OutcomeSink
	RecordRound(s game.RoundSummary)
}

// RoundResult describes one completed round.
type RoundResult struct {
	Round       uint64         // Round is the number of the round just played, starting at 1
	Builder     int            // Builder is the auction winner, NoPlayer without a positive bid
	Bid         uint256.Int    // Bid is the burned amount, zero for empty rounds
	Empty       bool           // Empty is true when no build was committed
	Failure     error          // Failure is the committed-phase error that emptied the round
	Winner      int            // Winner is the game winner, NoPlayer while undecided
	Ended       bool           // Ended is true once a winner is declared
	Settlements []game.Outcome // Settlements are the outcome records of the committed build
}

// Engine drives the rounds of one game. PlayRound is not reentrant; the read
// methods are safe to call concurrently with it.
type Engine struct {
	cfg      *game.Config       // cfg is the fixed rule set
	registry *identity.Registry // registry maps indices to handles
	players  []game.Player      // players is indexed by identity
	st       *state.State       // st is the live state
	recorder Recorder           // recorder receives committed records, may be nil
	log      *slog.Logger       // log is the engine logger

	round  uint64 // round is the number of completed rounds
	ended  bool   // ended is set once a winner is declared
	winner int    // winner is the declared winner or NoPlayer

	running atomic.Bool // running guards against reentrant rounds

	pubMu     sync.RWMutex // pubMu protects the published fields
	published *state.State // published is a read-only copy of the last committed state
	pubRound  uint64       // pubRound mirrors round for readers
	pubEnded  bool         // pubEnded mirrors ended for readers
	pubWinner int          // pubWinner mirrors winner for readers
}

// New creates an engine at round zero with the configured starting reserves.
// recorder may be nil.
func New(cfg *game.Config, registry *identity.Registry, players []game.Player, recorder Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if registry == nil || registry.Len() != cfg.Players {
		return nil, fmt.Errorf("%w: registry does not match %d players", game.ErrSetup, cfg.Players)
	}

	if len(players) != cfg.Players {
		return nil, fmt.Errorf("%w: %d players for a %d-player game", game.ErrSetup, len(players), cfg.Players)
	}

	for i, p := range players {
		if p == nil {
			return nil, fmt.Errorf("%w: player %d is nil", game.ErrSetup, i)
		}
	}

	st, err := state.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrSetup, err)
	}

	e := &Engine{
		cfg:      cfg,
		registry: registry,
		players:  players,
		st:       st,
		recorder: recorder,
		log:      logger.With("component", "engine"),
		winner:   NoPlayer,
	}
	e.publish()

	return e, nil
}

// PlayRound plays one full round.
//
// It fails with ErrGameOver after a winner is declared and ErrAlreadyInRound
// when called while a round is running. A bid mismatch rolls back the whole
// round, including income, and returns an *InvariantError without advancing
// the round counter. Every other committed-phase failure only empties the
// round and is reported in RoundResult.Failure.
func (e *Engine) PlayRound(ctx context.Context) (*RoundResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, game.ErrAlreadyInRound
	}
	defer e.running.Store(false)

	if e.ended {
		return nil, game.ErrGameOver
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	playing := e.round + 1
	log := e.log.With("round", playing)

	// 1. Income
	roundSnap := e.st.Snapshot()
	if err := e.payIncome(); err != nil {
		e.revert(roundSnap)
		return nil, fmt.Errorf("pay income:\n%w", err)
	}

	// 2. Auction
	builder, bid := e.runAuction(ctx, playing)
	if err := ctx.Err(); err != nil {
		e.revert(roundSnap)
		return nil, err
	}

	res := &RoundResult{Round: playing, Builder: builder, Empty: true, Winner: NoPlayer}

	// 3. Building or empty
	if builder == NoPlayer {
		log.Info("empty round", "reason", "no bid")
	} else {
		log.Info("auction won", "builder", builder, "bid", bid.Dec())

		settlements, err := e.commitBuild(ctx, playing, builder, bid)

		var inv *game.InvariantError
		switch {
		case errors.As(err, &inv):
			e.revert(roundSnap)
			log.Error("bid mismatch", "builder", builder, "dry_run", inv.DryRun.Dec(), "committed", inv.Committed.Dec())
			return nil, err
		case err != nil && ctx.Err() != nil:
			e.revert(roundSnap)
			return nil, ctx.Err()
		case err != nil:
			res.Failure = err
			log.Warn("build discarded", "builder", builder, "error", err)
		default:
			res.Empty = false
			res.Bid.Set(bid)
			res.Settlements = settlements
		}
	}

	e.st.DiscardSnapshot(roundSnap)

	// 4. Advance and evaluate
	e.round = playing
	if w, ok := FindWinner(e.st, e.round, e.cfg.RoundCap, &e.cfg.WinThreshold); ok {
		e.ended, e.winner = true, w
		log.Info("game won", "winner", w)
	}

	res.Winner, res.Ended = e.winner, e.ended

	e.record(res)
	e.publish()

	log.Info("round complete", "builder", res.Builder, "empty", res.Empty, "settled", len(res.Settlements), logger.Timed(start))

	return res, nil
}

// payIncome credits every player its per-round income.
func (e *Engine) payIncome() error {
	for p := 0; p < e.cfg.Players; p++ {
		if err := e.st.Credit(p, game.Currency, &e.cfg.CurrencyIncome); err != nil {
			return err
		}

		for a := game.Asset(1); int(a) < e.cfg.Assets(); a++ {
			if err := e.st.Credit(p, a, &e.cfg.GoodsIncome); err != nil {
				return err
			}
		}
	}

	return nil
}

// runAuction dry-runs every candidate in index order and returns the
// strictly highest positive bid. Ties keep the earlier index.
func (e *Engine) runAuction(ctx context.Context, playing uint64) (int, *uint256.Int) {
	best, bestBid := NoPlayer, new(uint256.Int)

	for c := 0; c < e.cfg.Players; c++ {
		if ctx.Err() != nil {
			break
		}

		bid := e.trial(ctx, playing, c)
		e.log.Debug("dry run", "round", playing, "candidate", c, "bid", bid.Dec())

		if bid.Gt(bestBid) {
			best, bestBid = c, bid
		}
	}

	return best, bestBid
}

// trial runs candidate's build on a disposable copy of the state and returns
// the bid it would commit. Any failure yields zero.
func (e *Engine) trial(ctx context.Context, playing uint64, candidate int) *uint256.Int {
	clone := e.st.Clone()
	if err := clone.SetBuilder(candidate); err != nil {
		return new(uint256.Int)
	}

	bundles := e.requestBundles(ctx, clone, candidate)

	sess := newBuildSession(e, clone, candidate, playing, nil)
	bid, err := e.callBuild(ctx, sess, bundles)
	if err == nil {
		err = verifySettlements(clone, playing, candidate, bundles)
	}
	if err == nil {
		err = clone.Debit(candidate, game.Currency, bid)
	}

	if err != nil {
		e.log.Debug("dry run failed", "round", playing, "candidate", candidate, "error", err)
		return new(uint256.Int)
	}

	return bid
}

// commitBuild runs the winner's build on the live state. On any error the
// build's effects are reverted and the builder slot and commitments cleared.
func (e *Engine) commitBuild(ctx context.Context, playing uint64, builder int, dryBid *uint256.Int) ([]game.Outcome, error) {
	snap := e.st.Snapshot()
	defer func() {
		e.st.ClearBuilder()
		e.st.ClearCommitments()
	}()

	if err := e.st.SetBuilder(builder); err != nil {
		e.revert(snap)
		return nil, err
	}

	bundles := e.requestBundles(ctx, e.st, builder)

	var outcomes outcomeLog
	sess := newBuildSession(e, e.st, builder, playing, &outcomes)

	err := func() error {
		bid, err := e.callBuild(ctx, sess, bundles)
		if err != nil {
			return err
		}

		if !bid.Eq(dryBid) {
			inv := &game.InvariantError{Round: playing, Builder: builder}
			inv.DryRun.Set(dryBid)
			inv.Committed.Set(bid)
			return inv
		}

		if err := verifySettlements(e.st, playing, builder, bundles); err != nil {
			return err
		}

		if err := e.st.Debit(builder, game.Currency, bid); err != nil {
			return fmt.Errorf("burn bid: %w", err)
		}

		return nil
	}()

	if err != nil {
		e.revert(snap)
		return nil, err
	}

	e.st.DiscardSnapshot(snap)
	return outcomes, nil
}

// requestBundles asks every non-builder for its bundle, in index order.
// The builder's slot is nil.
func (e *Engine) requestBundles(ctx context.Context, st *state.State, builder int) []*game.Bundle {
	bundles := make([]*game.Bundle, e.cfg.Players)

	for p := range bundles {
		if p == builder {
			continue
		}

		sess := newViewSession(e, st, p, e.cfg.RequestGasLimit())
		bundles[p] = e.requestBundle(ctx, sess, p, builder)
	}

	return bundles
}

// verifySettlements checks that every non-builder's commitment matches the
// bundle it produced this round.
func verifySettlements(st *state.State, playing uint64, builder int, bundles []*game.Bundle) error {
	for p, b := range bundles {
		if p == builder {
			continue
		}

		h, ok := st.Commitment(p)
		if !ok {
			return &game.BundleNotSettledError{Player: p}
		}

		if h != settlement.Commit(playing, b) {
			return &game.BundleNotSettledError{Player: p, Tampered: true}
		}
	}

	return nil
}

// record forwards a finished round to the recorder.
func (e *Engine) record(res *RoundResult) {
	if e.recorder == nil {
		return
	}

	for _, o := range res.Settlements {
		e.recorder.RecordOutcome(o)
	}

	e.recorder.RecordRound(res.Summary())
}

// Summary converts the result into a journal record.
func (r *RoundResult) Summary() game.RoundSummary {
	s := game.RoundSummary{
		Round:   r.Round,
		Builder: r.Builder,
		Empty:   r.Empty,
		Winner:  r.Winner,
	}
	s.Bid.Set(&r.Bid)

	if r.Failure != nil {
		s.Failure = r.Failure.Error()
	}

	return s
}

// revert rolls the live state back to snapshot id.
func (e *Engine) revert(id int) {
	if err := e.st.RevertToSnapshot(id); err != nil {
		e.log.Error("state revert failed", "snapshot", id, "error", err)
	}
}

// outcomeLog buffers the outcome records of one build.
type outcomeLog []game.Outcome

func (l *outcomeLog) RecordOutcome(o game.Outcome) {
	*l = append(*l, o)
}
