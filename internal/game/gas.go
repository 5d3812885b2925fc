package game

import "fmt"

// GasMeter counts the deterministic execution budget of one call into
// player code. Once exhausted it stays exhausted.
type GasMeter struct {
	limit     uint64 // limit is the total budget
	used      uint64 // used is the gas consumed so far, never above limit
	exhausted bool   // exhausted is set by the first charge that did not fit
}

// NewGasMeter creates a meter with the given budget.
func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit}
}

// Limit returns the total budget.
func (g *GasMeter) Limit() uint64 {
	return g.limit
}

// Used returns the gas consumed so far.
func (g *GasMeter) Used() uint64 {
	return g.used
}

// Remaining returns the gas left.
func (g *GasMeter) Remaining() uint64 {
	if g.exhausted {
		return 0
	}
	return g.limit - g.used
}

// Exhausted reports whether a charge has ever failed.
func (g *GasMeter) Exhausted() bool {
	return g.exhausted
}

// Consume charges cost. A charge that does not fit exhausts the meter and
// fails with ErrBudgetExceeded.
func (g *GasMeter) Consume(cost uint64) error {
	if left := g.Remaining(); g.exhausted || cost > left {
		g.exhausted = true
		g.used = g.limit
		return fmt.Errorf("%w: %d gas requested, %d left", ErrBudgetExceeded, cost, left)
	}

	g.used += cost
	return nil
}
