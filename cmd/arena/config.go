package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the host configuration. Flags are parsed first, then any
// ARENA_* environment variable that is set overrides its flag.
type Config struct {
	// GamePath is the YAML rule set, empty for the defaults.
	GamePath string `env:"ARENA_GAME"`

	// Programs is one program spec per identity, in index order.
	Programs []string `env:"ARENA_PROGRAMS" envSeparator:","`

	// Salts are the deployment salts, one per program. Empty mines them.
	Salts []uint64 `env:"ARENA_SALTS" envSeparator:","`

	// HTTPAddress is the query API listen address, empty to disable it.
	HTTPAddress string `env:"ARENA_HTTP"`

	// QUICAddress is the listen address for remote programs.
	QUICAddress string `env:"ARENA_QUIC"`

	// KeyPath is the host's Ed25519 private key file.
	KeyPath string `env:"ARENA_KEY"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"ARENA_LOG_LEVEL"`

	// RoundDelay is the pause between rounds.
	RoundDelay time.Duration `env:"ARENA_ROUND_DELAY"`

	// ConnectTimeout bounds the wait for remote programs to dial in.
	ConnectTimeout time.Duration `env:"ARENA_CONNECT_TIMEOUT"`

	// Linger keeps the API up after the game ends until a signal arrives.
	Linger bool `env:"ARENA_LINGER"`
}

// PlayConfig holds the configuration of a remote program process.
type PlayConfig struct {
	// HostAddress is the arena's QUIC address.
	HostAddress string `env:"ARENA_HOST"`

	// KeyPath is the program's Ed25519 private key file.
	KeyPath string `env:"ARENA_KEY"`

	// Strategy is the built-in strategy to serve.
	Strategy string `env:"ARENA_STRATEGY"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"ARENA_LOG_LEVEL"`
}

// listFlag collects a comma-separated or repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// parseFlags parses host flags into Config, then applies the environment.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("arena", flag.ContinueOnError)

	var programs, salts listFlag

	fs.StringVar(&cfg.GamePath, "game", "", "Game rules YAML path (defaults when empty)")
	fs.Var(&programs, "program", "Program spec, repeatable: wasm:<path>, remote:<pubkey hex> or builtin:<name>")
	fs.Var(&salts, "salt", "Deployment salt per program, repeatable (mined when omitted)")
	fs.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP query API address, empty to disable")
	fs.StringVar(&cfg.QUICAddress, "quic", ":9000", "QUIC address for remote programs")
	fs.StringVar(&cfg.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	fs.DurationVar(&cfg.RoundDelay, "round-delay", 0, "Pause between rounds")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", time.Minute, "Wait for remote programs to connect")
	fs.BoolVar(&cfg.Linger, "linger", false, "Keep serving the API after the game ends")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Programs = programs
	for _, s := range salts {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid salt %q", s)
		}
		cfg.Salts = append(cfg.Salts, v)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment:\n%w", err)
	}

	if len(cfg.Programs) == 0 {
		return nil, fmt.Errorf("at least one -program is required")
	}

	if len(cfg.Salts) != 0 && len(cfg.Salts) != len(cfg.Programs) {
		return nil, fmt.Errorf("%d salts for %d programs", len(cfg.Salts), len(cfg.Programs))
	}

	return cfg, nil
}

// parsePlayFlags parses the flags of the play subcommand.
func parsePlayFlags(args []string) (*PlayConfig, error) {
	cfg := &PlayConfig{}
	fs := flag.NewFlagSet("arena play", flag.ContinueOnError)

	fs.StringVar(&cfg.HostAddress, "host", "127.0.0.1:9000", "Arena QUIC address")
	fs.StringVar(&cfg.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.Strategy, "strategy", "greedy", "Built-in strategy to serve")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment:\n%w", err)
	}

	return cfg, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
