package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Nottingham/internal/engine"
	"Nottingham/internal/journal"
	"Nottingham/internal/network"
	"Nottingham/internal/remote"
	"Nottingham/internal/strategy"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-program", "builtin:greedy,builtin:idle",
		"-program", "bot.wasm",
		"-salt", "1", "-salt", "2", "-salt", "3",
		"-http", "",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(cfg.Programs) != 3 || cfg.Programs[2] != "bot.wasm" {
		t.Errorf("programs = %v", cfg.Programs)
	}

	if len(cfg.Salts) != 3 || cfg.Salts[1] != 2 {
		t.Errorf("salts = %v", cfg.Salts)
	}

	if cfg.HTTPAddress != "" || cfg.QUICAddress != ":9000" || cfg.ConnectTimeout != time.Minute {
		t.Errorf("config = %+v", cfg)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := [][]string{
		{},
		{"-program", "builtin:idle", "-salt", "x"},
		{"-program", "builtin:idle,builtin:idle", "-salt", "4"},
	}

	for _, args := range tests {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("parseFlags(%v) succeeded", args)
		}
	}
}

func TestEnvironmentOverridesFlags(t *testing.T) {
	t.Setenv("ARENA_PROGRAMS", "builtin:idle,builtin:greedy")
	t.Setenv("ARENA_ROUND_DELAY", "250ms")
	t.Setenv("ARENA_HTTP", "127.0.0.1:9999")

	cfg, err := parseFlags([]string{"-program", "bot.wasm", "-http", ":8080"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(cfg.Programs) != 2 || cfg.Programs[0] != "builtin:idle" {
		t.Errorf("programs = %v", cfg.Programs)
	}

	if cfg.RoundDelay != 250*time.Millisecond || cfg.HTTPAddress != "127.0.0.1:9999" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestParseProgramSpec(t *testing.T) {
	tests := []struct {
		in   string
		want programSpec
		ok   bool
	}{
		{"builtin:greedy", programSpec{kindBuiltin, "greedy"}, true},
		{"wasm:bots/a.wasm", programSpec{kindWasm, "bots/a.wasm"}, true},
		{"bots/a.wasm.zst", programSpec{kindWasm, "bots/a.wasm.zst"}, true},
		{"remote:abcd", programSpec{kindRemote, "abcd"}, true},
		{"python:bot.py", programSpec{}, false},
		{"builtin:", programSpec{}, false},
	}

	for _, tt := range tests {
		got, err := parseProgramSpec(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("%q: err = %v", tt.in, err)
			continue
		}

		if got != tt.want {
			t.Errorf("%q = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSpecKeys(t *testing.T) {
	key := make([]byte, ed25519.PublicKeySize)
	key[0] = 7

	keys := specKeys([]string{"builtin:idle", "remote:" + hex.EncodeToString(key), "remote:zz"})
	if len(keys) != 1 || keys[0][0] != 7 {
		t.Errorf("keys = %v", keys)
	}
}

func TestLoadProgramsErrors(t *testing.T) {
	cfg := &Config{Programs: []string{"builtin:idle", "builtin:oracle"}}

	rules, err := loadRules(cfg)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	if _, err := loadPrograms(cfg, rules); err == nil {
		t.Error("unknown builtin loaded")
	}

	cfg.Programs = []string{"builtin:idle", "remote:nothex"}
	if _, err := loadPrograms(cfg, rules); err == nil {
		t.Error("invalid remote key loaded")
	}

	cfg.Programs = []string{"builtin:idle", filepath.Join(t.TempDir(), "missing.wasm")}
	if _, err := loadPrograms(cfg, rules); err == nil {
		t.Error("missing wasm file loaded")
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	if err := os.WriteFile(path, []byte("players: 3\nround_cap: 5\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &Config{GamePath: path, Programs: []string{"builtin:idle", "builtin:idle", "builtin:idle"}}

	rules, err := loadRules(cfg)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	if rules.RoundCap != 5 {
		t.Errorf("round cap = %d", rules.RoundCap)
	}

	cfg.Programs = cfg.Programs[:2]
	if _, err := loadRules(cfg); err == nil {
		t.Error("player count mismatch accepted")
	}
}

// TestPlayBuiltinGame wires built-in programs through the host path.
func TestPlayBuiltinGame(t *testing.T) {
	cfg := &Config{Programs: []string{"builtin:greedy", "builtin:idle", "builtin:greedy"}}

	rules, err := loadRules(cfg)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	rules.RoundCap = 6

	programs, err := loadPrograms(cfg, rules)
	if err != nil {
		t.Fatalf("programs: %v", err)
	}
	defer programs.close()

	registry, err := buildRegistry(programs.codes, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	j, err := journal.Open()
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	defer j.Close()

	e, err := engine.New(rules, registry, programs.players, j)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	if err := playGame(context.Background(), e, 0); err != nil {
		t.Fatalf("play: %v", err)
	}

	st := e.Status()
	if !st.Ended || st.Winner == engine.NoPlayer {
		t.Errorf("status = %+v", st)
	}

	rounds, err := j.Rounds()
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}

	if uint64(len(rounds)) != st.Round {
		t.Errorf("journal has %d rounds, game played %d", len(rounds), st.Round)
	}
}

func TestPlayGameStopsOnCancel(t *testing.T) {
	cfg := &Config{Programs: []string{"builtin:idle", "builtin:idle"}}

	rules, _ := loadRules(cfg)
	programs, err := loadPrograms(cfg, rules)
	if err != nil {
		t.Fatalf("programs: %v", err)
	}

	registry, err := buildRegistry(programs.codes, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	e, err := engine.New(rules, registry, programs.players, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := playGame(ctx, e, time.Second); err != nil {
		t.Fatalf("play: %v", err)
	}

	if e.Status().Ended {
		t.Error("canceled game ended")
	}
}

// TestRemoteProgramGame plays a greedy remote program over QUIC against a
// built-in one.
func TestRemoteProgramGame(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key: %v", err)
	}

	cfg := &Config{
		Programs:    []string{"builtin:greedy", "remote:" + hex.EncodeToString(pub)},
		QUICAddress: "127.0.0.1:0",
	}

	rules, err := loadRules(cfg)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	rules.RoundCap = 4

	programs, err := loadPrograms(cfg, rules)
	if err != nil {
		t.Fatalf("programs: %v", err)
	}
	defer programs.close()

	s, err := strategy.Remote(strategy.NameGreedy)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}

	node, err := network.NewNode(network.Config{PrivateKey: priv})
	if err != nil {
		t.Fatalf("program node: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- remote.Serve(ctx, node, programs.node.Addr(), s) }()
	defer func() {
		cancel()
		<-served
	}()

	if err := programs.waitRemotes(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}

	registry, err := buildRegistry(programs.codes, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	e, err := engine.New(rules, registry, programs.players, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	built := 0
	for !e.Status().Ended {
		res, err := e.PlayRound(context.Background())
		if err != nil {
			t.Fatalf("round: %v", err)
		}

		if res.Failure != nil {
			t.Errorf("round %d build failed: %v", res.Round, res.Failure)
		}

		if !res.Empty && res.Builder == 1 {
			built++
		}
	}

	if built == 0 {
		t.Error("the remote program never built a round")
	}
}
