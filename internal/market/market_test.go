package market

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"

	"Nottingham/internal/game"
)

// newTestMarket creates a market with the default limits.
func newTestMarket(t *testing.T, reserves ...uint64) *Market {
	t.Helper()

	rs := make([]*uint256.Int, len(reserves))
	for i, r := range reserves {
		rs[i] = uint256.NewInt(r)
	}

	limits := Limits{}
	limits.Min.SetUint64(1_000)
	limits.Max.SetUint64(1 << 62)

	m, err := New(rs, limits)
	if err != nil {
		t.Fatalf("new market: %v", err)
	}

	return m
}

// product returns r[a] * r[b].
func product(m *Market, a, b game.Asset) *uint256.Int {
	return new(uint256.Int).Mul(&m.reserves[a], &m.reserves[b])
}

func TestQuoteSellFormula(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000, 30_000)

	// 1000 * 20000 / (10000 + 1000) = 1818.18 -> 1818
	out, err := m.QuoteSell(0, 1, uint256.NewInt(1_000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if out.Uint64() != 1818 {
		t.Errorf("got %d, want 1818", out.Uint64())
	}
}

func TestQuoteBuyFormula(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000, 30_000)

	// ceil(1818 * 10000 / (20000 - 1818)) = ceil(999.89) = 1000
	amount, err := m.QuoteBuy(0, 1, uint256.NewInt(1818))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if amount.Uint64() != 1000 {
		t.Errorf("got %d, want 1000", amount.Uint64())
	}
}

func TestPrice(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000, 30_000)

	tests := []struct {
		from, to game.Asset
		want     *uint256.Int
	}{
		{0, 1, new(uint256.Int).Mul(game.Unit, uint256.NewInt(2))},
		{1, 0, new(uint256.Int).Div(game.Unit, uint256.NewInt(2))},
		// 10000 * 10^18 / 30000 rounds down
		{2, 0, uint256.NewInt(333_333_333_333_333_333)},
		{2, 2, game.Unit},
	}

	for _, tt := range tests {
		got, err := m.Price(tt.from, tt.to)
		if err != nil {
			t.Fatalf("price %d->%d: %v", tt.from, tt.to, err)
		}

		if !got.Eq(tt.want) {
			t.Errorf("price %d->%d = %s, want %s", tt.from, tt.to, got.Dec(), tt.want.Dec())
		}
	}

	// A sell of asset 0 makes it cheaper in asset 1
	if _, err := m.Sell(0, 1, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("sell: %v", err)
	}

	after, _ := m.Price(0, 1)
	if !after.Lt(tests[0].want) {
		t.Errorf("price after sell = %s, want below %s", after.Dec(), tests[0].want.Dec())
	}

	if _, err := m.Price(0, 3); !errors.Is(err, game.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}
}

func TestSameAssetIsNoop(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000)
	before := m.Reserves()

	out, err := m.Sell(1, 1, uint256.NewInt(777))
	if err != nil || out.Uint64() != 777 {
		t.Fatalf("sell same asset: out=%v err=%v", out, err)
	}

	in, err := m.Buy(1, 1, uint256.NewInt(555))
	if err != nil || in.Uint64() != 555 {
		t.Fatalf("buy same asset: in=%v err=%v", in, err)
	}

	for i, r := range m.Reserves() {
		if !r.Eq(before[i]) {
			t.Errorf("reserve %d changed", i)
		}
	}
}

func TestSellRejectsBelowMinReserve(t *testing.T) {
	m := newTestMarket(t, 10_000, 2_000)

	// Selling a huge amount would drain asset 1 below 1000
	_, err := m.Sell(0, 1, uint256.NewInt(1_000_000))
	if !errors.Is(err, game.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	if m.reserves[0].Uint64() != 10_000 || m.reserves[1].Uint64() != 2_000 {
		t.Error("failed sell mutated reserves")
	}
}

func TestSellRejectsAboveMaxReserve(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000)

	_, err := m.QuoteSell(0, 1, uint256.NewInt(1<<62))
	if !errors.Is(err, game.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestBuyRejectsWholeReserve(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000)

	for _, out := range []uint64{20_000, 25_000, 19_500} {
		if _, err := m.QuoteBuy(0, 1, uint256.NewInt(out)); !errors.Is(err, game.ErrInsufficientLiquidity) {
			t.Errorf("output %d: expected ErrInsufficientLiquidity, got %v", out, err)
		}
	}
}

func TestInvalidAsset(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000)

	if _, err := m.QuoteSell(0, 2, uint256.NewInt(1)); !errors.Is(err, game.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}

	if _, err := m.Buy(-1, 0, uint256.NewInt(1)); !errors.Is(err, game.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}

	if _, err := m.Reserve(5); !errors.Is(err, game.ErrInvalidAsset) {
		t.Errorf("expected ErrInvalidAsset, got %v", err)
	}
}

func TestNewRejectsOutOfBounds(t *testing.T) {
	limits := Limits{}
	limits.Min.SetUint64(100)
	limits.Max.SetUint64(1_000)

	_, err := New([]*uint256.Int{uint256.NewInt(50), uint256.NewInt(500)}, limits)
	if !errors.Is(err, game.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestProductNeverDecreases trades randomly and checks the market invariant:
// the touched product never drops and every other reserve is unchanged.
func TestProductNeverDecreases(t *testing.T) {
	m := newTestMarket(t, 1_000_000, 2_000_000, 3_000_000, 4_000_000)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		from := game.Asset(rng.Intn(4))
		to := game.Asset(rng.Intn(4))
		if from == to {
			continue
		}

		before := m.Reserves()
		k := product(m, from, to)
		qty := uint256.NewInt(uint64(rng.Intn(200_000) + 1))

		var err error
		if rng.Intn(2) == 0 {
			_, err = m.Sell(from, to, qty)
		} else {
			_, err = m.Buy(from, to, qty)
		}

		if err != nil {
			if !errors.Is(err, game.ErrInsufficientLiquidity) {
				t.Fatalf("trade %d: unexpected error %v", i, err)
			}
			continue
		}

		if product(m, from, to).Lt(k) {
			t.Fatalf("trade %d: product decreased", i)
		}

		for a, r := range m.Reserves() {
			if game.Asset(a) != from && game.Asset(a) != to && !r.Eq(before[a]) {
				t.Fatalf("trade %d: untouched reserve %d changed", i, a)
			}
		}
	}
}

// TestRoundTripNeverProfits sells then buys back and vice versa.
func TestRoundTripNeverProfits(t *testing.T) {
	amounts := []uint64{1, 7, 999, 12_345, 250_000}

	for _, a := range amounts {
		m := newTestMarket(t, 1_000_000, 3_000_000)
		start := m.Reserves()

		// Sell a of asset 0, then sell everything received back.
		got, err := m.Sell(0, 1, uint256.NewInt(a))
		if err != nil {
			t.Fatalf("sell %d: %v", a, err)
		}

		back, err := m.Sell(1, 0, got)
		if err != nil {
			t.Fatalf("sell back %d: %v", a, err)
		}

		if back.Uint64() > a {
			t.Errorf("sell round trip of %d returned %d", a, back.Uint64())
		}

		// Reserves return close to start, never in the trader's favor
		if m.reserves[0].Lt(start[0]) {
			t.Errorf("sell round trip of %d drained reserve 0", a)
		}

		diff := new(uint256.Int).Sub(&m.reserves[0], start[0])
		if diff.Uint64() > a {
			t.Errorf("sell round trip of %d drifted by %d", a, diff.Uint64())
		}
	}

	for _, a := range amounts {
		m := newTestMarket(t, 1_000_000, 3_000_000)

		// Buy a of asset 1, then buy back the amount paid.
		paid, err := m.Buy(0, 1, uint256.NewInt(a))
		if err != nil {
			t.Fatalf("buy %d: %v", a, err)
		}

		cost, err := m.Buy(1, 0, paid)
		if err != nil {
			t.Fatalf("buy back %d: %v", a, err)
		}

		if cost.Uint64() < a {
			t.Errorf("buy round trip of %d cost only %d", a, cost.Uint64())
		}
	}
}

// TestBuyQuoteCoversOutput checks the rounding direction of buys.
func TestBuyQuoteCoversOutput(t *testing.T) {
	m := newTestMarket(t, 123_457, 987_643)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		out := uint256.NewInt(uint64(rng.Intn(900_000) + 1))

		amount, err := m.QuoteBuy(0, 1, out)
		if err != nil {
			continue
		}

		sold, err := m.QuoteSell(0, 1, amount)
		if err != nil {
			t.Fatalf("quote sell of %s: %v", amount.Dec(), err)
		}

		if sold.Lt(out) {
			t.Fatalf("buying %s costs %s, which only sells for %s", out.Dec(), amount.Dec(), sold.Dec())
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := newTestMarket(t, 10_000, 20_000)
	c := m.Clone()

	if _, err := c.Sell(0, 1, uint256.NewInt(500)); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if m.reserves[0].Uint64() != 10_000 {
		t.Error("clone shares reserves with original")
	}

	m.Restore(c)
	if !m.reserves[0].Eq(&c.reserves[0]) {
		t.Error("restore did not copy reserves")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := game.DefaultConfig(3)

	m, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}

	if m.Assets() != 3 {
		t.Errorf("assets: got %d", m.Assets())
	}

	r, _ := m.Reserve(game.Currency)
	if !r.Eq(game.Units(6)) {
		t.Errorf("currency reserve: got %s", r.Dec())
	}
}
