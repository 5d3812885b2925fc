package game

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

const (
	// MinPlayers is the smallest supported number of identities.
	MinPlayers = 2

	// MaxPlayers is the largest supported number of identities.
	MaxPlayers = 8

	// unitDecimals is the number of smallest units in one whole unit (10^18).
	unitDecimals = 18
)

// Unit is one whole unit of any asset, expressed in smallest units.
var Unit = uint256.NewInt(1_000_000_000_000_000_000)

// Units returns n whole units.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Unit)
}

// Budget bounds every call into player code.
// Per-player fields are multiplied by the player count.
type Budget struct {
	RequestGas      uint64        // RequestGas is the gas for one bundle request, per player
	BuildGas        uint64        // BuildGas is the gas for one build, per player
	SettleGasPerLeg uint64        // SettleGasPerLeg is the gas a builder must hold per swap it settles
	RequestTimeout  time.Duration // RequestTimeout is the deadline for one bundle request, per player
	BuildTimeout    time.Duration // BuildTimeout is the deadline for one build, per player
	MaxResponseSize int           // MaxResponseSize caps encoded player output in bytes
	MaxMemoryPages  uint32        // MaxMemoryPages caps WASM linear memory (64 KiB pages)
}

// Config is the rule set of one game. It is fixed for the life of the game.
type Config struct {
	Players                  int         // Players is the number of identities and of assets
	RoundCap                 uint64      // RoundCap is the round at which the leader wins unconditionally
	WinThreshold             uint256.Int // WinThreshold is the goods balance that wins before the cap
	CurrencyIncome           uint256.Int // CurrencyIncome is paid to every player each round
	GoodsIncome              uint256.Int // GoodsIncome is paid to every player for every good each round
	CurrencyReservePerPlayer uint256.Int // CurrencyReservePerPlayer seeds the currency reserve
	GoodsReservePerPlayer    uint256.Int // GoodsReservePerPlayer seeds each goods reserve
	MinReserve               uint256.Int // MinReserve is the lowest reserve any trade may leave
	MaxReserve               uint256.Int // MaxReserve is the highest reserve any trade may leave
	Budget                   Budget      // Budget bounds calls into player code
}

// DefaultConfig returns the standard rule set for the given number of players.
func DefaultConfig(players int) *Config {
	cfg := &Config{
		Players:  players,
		RoundCap: 32,
		Budget: Budget{
			RequestGas:      1_000_000,
			BuildGas:        4_000_000,
			SettleGasPerLeg: 10_000,
			RequestTimeout:  250 * time.Millisecond,
			BuildTimeout:    time.Second,
			MaxResponseSize: 64 << 10,
			MaxMemoryPages:  256,
		},
	}

	cfg.WinThreshold.Set(Units(64))
	cfg.CurrencyIncome.SetOne()
	cfg.GoodsIncome.Set(Units(1))
	cfg.CurrencyReservePerPlayer.Set(Units(2))
	cfg.GoodsReservePerPlayer.Set(Units(16))
	cfg.MinReserve.SetUint64(10_000)
	cfg.MaxReserve.Exp(uint256.NewInt(10), uint256.NewInt(33))

	return cfg
}

// Assets returns the number of assets, which always equals the number of players.
func (c *Config) Assets() int {
	return c.Players
}

// MaxSwaps returns the swap leg cap for one bundle.
func (c *Config) MaxSwaps() int {
	return 2 * c.Players
}

// RequestGasLimit returns the gas for one bundle request.
func (c *Config) RequestGasLimit() uint64 {
	return c.Budget.RequestGas * uint64(c.Players)
}

// BuildGasLimit returns the gas for one build.
func (c *Config) BuildGasLimit() uint64 {
	return c.Budget.BuildGas * uint64(c.Players)
}

// RequestDeadline returns the wall-clock bound of one bundle request.
func (c *Config) RequestDeadline() time.Duration {
	return c.Budget.RequestTimeout * time.Duration(c.Players)
}

// BuildDeadline returns the wall-clock bound of one build.
func (c *Config) BuildDeadline() time.Duration {
	return c.Budget.BuildTimeout * time.Duration(c.Players)
}

// InitialReserves returns the starting reserve vector.
func (c *Config) InitialReserves() []*uint256.Int {
	n := uint256.NewInt(uint64(c.Players))
	reserves := make([]*uint256.Int, c.Assets())

	reserves[Currency] = new(uint256.Int).Mul(&c.CurrencyReservePerPlayer, n)
	for i := 1; i < len(reserves); i++ {
		reserves[i] = new(uint256.Int).Mul(&c.GoodsReservePerPlayer, n)
	}

	return reserves
}

// Validate checks the rule set for internal consistency.
func (c *Config) Validate() error {
	if c.Players < MinPlayers || c.Players > MaxPlayers {
		return fmt.Errorf("%w: player count %d outside [%d, %d]", ErrInvalidConfig, c.Players, MinPlayers, MaxPlayers)
	}

	if c.RoundCap == 0 {
		return fmt.Errorf("%w: round cap must be positive", ErrInvalidConfig)
	}

	if c.MinReserve.IsZero() || !c.MinReserve.Lt(&c.MaxReserve) {
		return fmt.Errorf("%w: reserve bounds [%s, %s]", ErrInvalidConfig, c.MinReserve.Dec(), c.MaxReserve.Dec())
	}

	for i, r := range c.InitialReserves() {
		if r.Lt(&c.MinReserve) || r.Gt(&c.MaxReserve) {
			return fmt.Errorf("%w: starting reserve of asset %d is %s", ErrInvalidConfig, i, r.Dec())
		}
	}

	b := c.Budget
	if b.RequestGas == 0 || b.BuildGas == 0 || b.SettleGasPerLeg == 0 {
		return fmt.Errorf("%w: gas budgets must be positive", ErrInvalidConfig)
	}

	if b.RequestTimeout <= 0 || b.BuildTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}

	if b.MaxResponseSize <= 0 {
		return fmt.Errorf("%w: response cap must be positive", ErrInvalidConfig)
	}

	return nil
}

// fileConfig is the YAML layout of a rule set. Amounts are strings so they
// can exceed 64 bits; see ParseAmount.
type fileConfig struct {
	Players                  int        `yaml:"players"`
	RoundCap                 uint64     `yaml:"round_cap"`
	WinThreshold             string     `yaml:"win_threshold"`
	CurrencyIncome           string     `yaml:"currency_income"`
	GoodsIncome              string     `yaml:"goods_income"`
	CurrencyReservePerPlayer string     `yaml:"currency_reserve_per_player"`
	GoodsReservePerPlayer    string     `yaml:"goods_reserve_per_player"`
	MinReserve               string     `yaml:"min_reserve"`
	MaxReserve               string     `yaml:"max_reserve"`
	Budget                   fileBudget `yaml:"budget"`
}

type fileBudget struct {
	RequestGas      uint64        `yaml:"request_gas"`
	BuildGas        uint64        `yaml:"build_gas"`
	SettleGasPerLeg uint64        `yaml:"settle_gas_per_leg"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	BuildTimeout    time.Duration `yaml:"build_timeout"`
	MaxResponseSize int           `yaml:"max_response_size"`
	MaxMemoryPages  uint32        `yaml:"max_memory_pages"`
}

// LoadConfig reads a YAML rule set. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config:\n%w", err)
	}

	return ParseConfig(raw)
}

// ParseConfig decodes a YAML rule set and validates it.
func ParseConfig(raw []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	players := fc.Players
	if players == 0 {
		players = MinPlayers
	}

	cfg := DefaultConfig(players)
	if fc.RoundCap != 0 {
		cfg.RoundCap = fc.RoundCap
	}

	amounts := []struct {
		name string
		raw  string
		dst  *uint256.Int
	}{
		{"win_threshold", fc.WinThreshold, &cfg.WinThreshold},
		{"currency_income", fc.CurrencyIncome, &cfg.CurrencyIncome},
		{"goods_income", fc.GoodsIncome, &cfg.GoodsIncome},
		{"currency_reserve_per_player", fc.CurrencyReservePerPlayer, &cfg.CurrencyReservePerPlayer},
		{"goods_reserve_per_player", fc.GoodsReservePerPlayer, &cfg.GoodsReservePerPlayer},
		{"min_reserve", fc.MinReserve, &cfg.MinReserve},
		{"max_reserve", fc.MaxReserve, &cfg.MaxReserve},
	}

	for _, a := range amounts {
		if a.raw == "" {
			continue
		}

		v, err := ParseAmount(a.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		a.dst.Set(v)
	}

	mergeBudget(&cfg.Budget, fc.Budget)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeBudget overwrites the non-zero fields of src onto dst.
func mergeBudget(dst *Budget, src fileBudget) {
	if src.RequestGas != 0 {
		dst.RequestGas = src.RequestGas
	}
	if src.BuildGas != 0 {
		dst.BuildGas = src.BuildGas
	}
	if src.SettleGasPerLeg != 0 {
		dst.SettleGasPerLeg = src.SettleGasPerLeg
	}
	if src.RequestTimeout != 0 {
		dst.RequestTimeout = src.RequestTimeout
	}
	if src.BuildTimeout != 0 {
		dst.BuildTimeout = src.BuildTimeout
	}
	if src.MaxResponseSize != 0 {
		dst.MaxResponseSize = src.MaxResponseSize
	}
	if src.MaxMemoryPages != 0 {
		dst.MaxMemoryPages = src.MaxMemoryPages
	}
}

// ParseAmount parses a non-negative integer amount in smallest units.
// Accepted forms: "1234", "1_000", "64e18" and "1.5e18".
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	mantissa, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil || e < 0 || e > 77 {
			return nil, fmt.Errorf("invalid exponent in %q", s)
		}
		mantissa, exp = s[:i], e
	}

	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		frac := mantissa[i+1:]
		if len(frac) > exp {
			return nil, fmt.Errorf("fractional amount %q", s)
		}
		mantissa, exp = mantissa[:i]+frac, exp-len(frac)
	}

	v, err := uint256.FromDecimal(mantissa)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
	out, overflow := new(uint256.Int).MulOverflow(v, scale)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", s)
	}

	return out, nil
}

// FormatUnits renders an amount as whole units with up to 18 decimals.
func FormatUnits(v *uint256.Int) string {
	whole, frac := new(uint256.Int).DivMod(v, Unit, new(uint256.Int))
	if frac.IsZero() {
		return whole.Dec()
	}

	d := frac.Dec()
	d = strings.Repeat("0", unitDecimals-len(d)) + d

	return whole.Dec() + "." + strings.TrimRight(d, "0")
}
