package game

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
)

func TestDefaultConfigValid(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayers; n++ {
		cfg := DefaultConfig(n)
		if err := cfg.Validate(); err != nil {
			t.Errorf("players=%d: unexpected error: %v", n, err)
		}

		if cfg.Assets() != n {
			t.Errorf("players=%d: assets=%d", n, cfg.Assets())
		}

		if cfg.MaxSwaps() != 2*n {
			t.Errorf("players=%d: max swaps=%d", n, cfg.MaxSwaps())
		}
	}
}

func TestValidateRejectsPlayerCount(t *testing.T) {
	for _, n := range []int{0, 1, 9} {
		err := DefaultConfig(n).Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("players=%d: expected ErrInvalidConfig, got %v", n, err)
		}
	}
}

func TestValidateRejectsReserveBounds(t *testing.T) {
	cfg := DefaultConfig(3)
	cfg.MinReserve.Set(Units(100))

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestInitialReservesScaleWithPlayers(t *testing.T) {
	cfg := DefaultConfig(4)
	reserves := cfg.InitialReserves()

	if len(reserves) != 4 {
		t.Fatalf("expected 4 reserves, got %d", len(reserves))
	}

	if !reserves[0].Eq(Units(8)) {
		t.Errorf("currency reserve: got %s, want %s", reserves[0].Dec(), Units(8).Dec())
	}

	for i := 1; i < 4; i++ {
		if !reserves[i].Eq(Units(64)) {
			t.Errorf("goods reserve %d: got %s", i, reserves[i].Dec())
		}
	}
}

func TestParseConfig(t *testing.T) {
	raw := []byte(`
players: 3
round_cap: 10
win_threshold: 5e18
goods_income: "2_000"
budget:
  build_timeout: 2s
  settle_gas_per_leg: 7
`)

	cfg, err := ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Players != 3 || cfg.RoundCap != 10 {
		t.Errorf("got players=%d cap=%d", cfg.Players, cfg.RoundCap)
	}

	if !cfg.WinThreshold.Eq(Units(5)) {
		t.Errorf("win threshold: got %s", cfg.WinThreshold.Dec())
	}

	if !cfg.GoodsIncome.Eq(uint256.NewInt(2000)) {
		t.Errorf("goods income: got %s", cfg.GoodsIncome.Dec())
	}

	if cfg.Budget.BuildTimeout != 2*time.Second || cfg.Budget.SettleGasPerLeg != 7 {
		t.Errorf("budget not merged: %+v", cfg.Budget)
	}

	// Untouched fields keep defaults
	if !cfg.CurrencyIncome.Eq(uint256.NewInt(1)) {
		t.Errorf("currency income: got %s", cfg.CurrencyIncome.Dec())
	}
}

func TestParseConfigInvalid(t *testing.T) {
	if _, err := ParseConfig([]byte("players: 12\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	if _, err := ParseConfig([]byte("win_threshold: lots\n")); err == nil {
		t.Error("expected error for bad amount")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *uint256.Int
		ok   bool
	}{
		{"0", uint256.NewInt(0), true},
		{"1234", uint256.NewInt(1234), true},
		{"1_000", uint256.NewInt(1000), true},
		{"64e18", Units(64), true},
		{"1.5e3", uint256.NewInt(1500), true},
		{"1.25e1", nil, false},
		{"", nil, false},
		{"-3", nil, false},
		{"1e99", nil, false},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("%q: ok=%v err=%v", tt.in, tt.ok, err)
			continue
		}

		if tt.ok && !got.Eq(tt.want) {
			t.Errorf("%q: got %s, want %s", tt.in, got.Dec(), tt.want.Dec())
		}
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		in   *uint256.Int
		want string
	}{
		{Units(3), "3"},
		{uint256.NewInt(1), "0.000000000000000001"},
		{new(uint256.Int).Add(Units(2), uint256.NewInt(500_000_000_000_000_000)), "2.5"},
	}

	for _, tt := range tests {
		if got := FormatUnits(tt.in); got != tt.want {
			t.Errorf("FormatUnits(%s) = %s, want %s", tt.in.Dec(), got, tt.want)
		}
	}
}
