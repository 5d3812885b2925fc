// Package market implements the multi-asset constant-product market.
//
// The market holds one reserve per asset. Any two-asset trade is priced by
// the constant-product curve over exactly those two reserves; every other
// reserve is left untouched. Sells round down and buys round up, so the
// product of the two touched reserves never decreases.
package market

import (
	"fmt"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
)

// Limits bounds every reserve after any trade.
type Limits struct {
	Min uint256.Int // Min is the smallest reserve a trade may leave
	Max uint256.Int // Max is the largest reserve a trade may leave
}

// Market is a reserve vector with constant-product pricing.
// It is not safe for concurrent use.
type Market struct {
	reserves []uint256.Int // reserves is indexed by asset
	limits   Limits        // limits bounds every reserve
}

// New creates a market seeded with the given reserves.
func New(reserves []*uint256.Int, limits Limits) (*Market, error) {
	m := &Market{
		reserves: make([]uint256.Int, len(reserves)),
		limits:   limits,
	}

	for i, r := range reserves {
		if r == nil || r.Lt(&limits.Min) || r.Gt(&limits.Max) {
			return nil, fmt.Errorf("%w: reserve %d outside limits", game.ErrInvalidConfig, i)
		}
		m.reserves[i].Set(r)
	}

	return m, nil
}

// FromConfig creates the starting market of a game.
func FromConfig(cfg *game.Config) (*Market, error) {
	limits := Limits{}
	limits.Min.Set(&cfg.MinReserve)
	limits.Max.Set(&cfg.MaxReserve)

	return New(cfg.InitialReserves(), limits)
}

// Clone returns an independent copy of m.
func (m *Market) Clone() *Market {
	out := &Market{
		reserves: make([]uint256.Int, len(m.reserves)),
		limits:   m.limits,
	}
	copy(out.reserves, m.reserves)

	return out
}

// Restore overwrites m's reserves with those of snap.
func (m *Market) Restore(snap *Market) {
	copy(m.reserves, snap.reserves)
}

// Assets returns the number of assets.
func (m *Market) Assets() int {
	return len(m.reserves)
}

// Reserve returns the reserve of asset a.
func (m *Market) Reserve(a game.Asset) (*uint256.Int, error) {
	if err := m.checkAsset(a); err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(&m.reserves[a]), nil
}

// Reserves returns a copy of the reserve vector.
func (m *Market) Reserves() []*uint256.Int {
	out := make([]*uint256.Int, len(m.reserves))
	for i := range m.reserves {
		out[i] = new(uint256.Int).Set(&m.reserves[i])
	}
	return out
}

// Price returns the spot price of one Unit of from in to:
// r[to] * Unit / r[from], rounded down. An asset prices at one Unit in itself.
func (m *Market) Price(from, to game.Asset) (*uint256.Int, error) {
	if err := m.checkPair(from, to); err != nil {
		return nil, err
	}

	if from == to {
		return new(uint256.Int).Set(game.Unit), nil
	}

	price, overflow := new(uint256.Int).MulDivOverflow(&m.reserves[to], game.Unit, &m.reserves[from])
	if overflow {
		return nil, fmt.Errorf("%w: price of asset %d in %d overflows", game.ErrInsufficientLiquidity, from, to)
	}

	return price, nil
}

// QuoteSell returns the output of selling amount of from for to:
// amount * r[to] / (r[from] + amount), rounded down.
func (m *Market) QuoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	if err := m.checkPair(from, to); err != nil {
		return nil, err
	}

	if from == to {
		return new(uint256.Int).Set(amount), nil
	}

	output, _, err := m.quoteSell(from, to, amount)
	return output, err
}

// quoteSell prices a sell and returns the output and the new from reserve.
func (m *Market) quoteSell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	rFrom, rTo := &m.reserves[from], &m.reserves[to]

	newFrom, overflow := new(uint256.Int).AddOverflow(rFrom, amount)
	if overflow || newFrom.Gt(&m.limits.Max) {
		return nil, nil, fmt.Errorf("%w: reserve of asset %d would exceed maximum", game.ErrInsufficientLiquidity, from)
	}

	output, overflow := new(uint256.Int).MulDivOverflow(amount, rTo, newFrom)
	if overflow {
		return nil, nil, fmt.Errorf("%w: sell of asset %d overflows", game.ErrInsufficientLiquidity, from)
	}

	if err := m.checkRemaining(to, output); err != nil {
		return nil, nil, err
	}

	return output, newFrom, nil
}

// QuoteBuy returns the amount of from needed to buy output of to:
// ceil(output * r[from] / (r[to] - output)).
func (m *Market) QuoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	if err := m.checkPair(from, to); err != nil {
		return nil, err
	}

	if from == to {
		return new(uint256.Int).Set(output), nil
	}

	amount, _, err := m.quoteBuy(from, to, output)
	return amount, err
}

// quoteBuy prices a buy and returns the amount and the new from reserve.
func (m *Market) quoteBuy(from, to game.Asset, output *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	rFrom, rTo := &m.reserves[from], &m.reserves[to]

	if !output.Lt(rTo) {
		return nil, nil, fmt.Errorf("%w: output %s >= reserve of asset %d", game.ErrInsufficientLiquidity, output.Dec(), to)
	}

	if err := m.checkRemaining(to, output); err != nil {
		return nil, nil, err
	}

	remaining := new(uint256.Int).Sub(rTo, output)

	amount, err := divUp(output, rFrom, remaining)
	if err != nil {
		return nil, nil, err
	}

	// Precision guard: the quoted amount must actually buy output
	if !output.IsZero() && amount.IsZero() {
		return nil, nil, fmt.Errorf("%w: output %s rounds to a zero cost", game.ErrInsufficientLiquidity, output.Dec())
	}

	newFrom, overflow := new(uint256.Int).AddOverflow(rFrom, amount)
	if overflow || newFrom.Gt(&m.limits.Max) {
		return nil, nil, fmt.Errorf("%w: reserve of asset %d would exceed maximum", game.ErrInsufficientLiquidity, from)
	}

	back, overflow := new(uint256.Int).MulDivOverflow(amount, rTo, newFrom)
	if overflow || back.Lt(output) {
		return nil, nil, fmt.Errorf("%w: amount %s does not cover output %s", game.ErrInsufficientLiquidity, amount.Dec(), output.Dec())
	}

	return amount, newFrom, nil
}

// Sell executes a sell and returns the output.
// Only the from and to reserves change.
func (m *Market) Sell(from, to game.Asset, amount *uint256.Int) (*uint256.Int, error) {
	if err := m.checkPair(from, to); err != nil {
		return nil, err
	}

	if from == to {
		return new(uint256.Int).Set(amount), nil
	}

	output, newFrom, err := m.quoteSell(from, to, amount)
	if err != nil {
		return nil, err
	}

	m.reserves[from].Set(newFrom)
	m.reserves[to].Sub(&m.reserves[to], output)

	return output, nil
}

// Buy executes a buy of output and returns the amount paid.
// Only the from and to reserves change.
func (m *Market) Buy(from, to game.Asset, output *uint256.Int) (*uint256.Int, error) {
	if err := m.checkPair(from, to); err != nil {
		return nil, err
	}

	if from == to {
		return new(uint256.Int).Set(output), nil
	}

	amount, newFrom, err := m.quoteBuy(from, to, output)
	if err != nil {
		return nil, err
	}

	m.reserves[from].Set(newFrom)
	m.reserves[to].Sub(&m.reserves[to], output)

	return amount, nil
}

// checkRemaining fails when taking out of asset to would leave less than the minimum.
func (m *Market) checkRemaining(to game.Asset, out *uint256.Int) error {
	rTo := &m.reserves[to]

	remaining, underflow := new(uint256.Int).SubOverflow(rTo, out)
	if underflow || remaining.Lt(&m.limits.Min) {
		return fmt.Errorf("%w: reserve of asset %d would fall below minimum", game.ErrInsufficientLiquidity, to)
	}

	return nil
}

// checkPair validates both assets of a trade.
func (m *Market) checkPair(from, to game.Asset) error {
	if err := m.checkAsset(from); err != nil {
		return err
	}
	return m.checkAsset(to)
}

// checkAsset validates one asset index.
func (m *Market) checkAsset(a game.Asset) error {
	if !a.Valid(len(m.reserves)) {
		return fmt.Errorf("%w: %d", game.ErrInvalidAsset, a)
	}
	return nil
}

// divUp returns ceil(x * y / d).
func divUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: empty reserve", game.ErrInsufficientLiquidity)
	}

	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: buy overflows", game.ErrInsufficientLiquidity)
	}

	// Round up when x*y is not a multiple of d
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		q.AddUint64(q, 1)
	}

	return q, nil
}
