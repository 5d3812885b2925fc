package engine

import (
	"github.com/holiman/uint256"

	"Nottingham/internal/game"
	"Nottingham/internal/state"
)

// Scores returns every player's largest goods balance.
func Scores(st *state.State) []*uint256.Int {
	scores := make([]*uint256.Int, st.Players())

	for p := range scores {
		best := new(uint256.Int)
		for a := game.Asset(1); int(a) < st.Assets(); a++ {
			b, _ := st.Balance(p, a)
			if b.Gt(best) {
				best = b
			}
		}
		scores[p] = best
	}

	return scores
}

// Leader returns the index and score of the highest score.
// Ties keep the lowest index.
func Leader(scores []*uint256.Int) (int, *uint256.Int) {
	leader, best := 0, new(uint256.Int)

	for p, s := range scores {
		if p == 0 || s.Gt(best) {
			leader, best = p, s
		}
	}

	return leader, best
}

// FindWinner decides the game after round completed rounds.
// Before the cap the leader wins only at or above threshold; at the cap the
// leader wins unconditionally.
func FindWinner(st *state.State, round, roundCap uint64, threshold *uint256.Int) (int, bool) {
	leader, best := Leader(Scores(st))

	if round >= roundCap {
		return leader, true
	}

	if !best.Lt(threshold) {
		return leader, true
	}

	return -1, false
}
