package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"Nottingham/internal/game"
	"Nottingham/internal/logger"
	"Nottingham/internal/network"
	"Nottingham/internal/podvm"
	"Nottingham/internal/remote"
	"Nottingham/internal/strategy"
)

// Program spec kinds.
const (
	kindWasm    = "wasm"
	kindRemote  = "remote"
	kindBuiltin = "builtin"
)

// programSpec is one parsed -program value.
type programSpec struct {
	kind string // kind is wasm, remote or builtin
	arg  string // arg is the path, the key hex or the strategy name
}

// parseProgramSpec splits "kind:arg". A bare path is a wasm program.
func parseProgramSpec(s string) (programSpec, error) {
	kind, arg, ok := strings.Cut(s, ":")
	if !ok {
		kind, arg = kindWasm, s
	}

	switch kind {
	case kindWasm, kindRemote, kindBuiltin:
	default:
		return programSpec{}, fmt.Errorf("unknown program kind %q in %q", kind, s)
	}

	if arg == "" {
		return programSpec{}, fmt.Errorf("empty program spec %q", s)
	}

	return programSpec{kind: kind, arg: arg}, nil
}

// programSet is the loaded players of one game and what they run on.
type programSet struct {
	codes   [][]byte            // codes are the identity inputs, indexed by player
	players []game.Player       // players are indexed by player
	remotes []ed25519.PublicKey // remotes are the keys that must connect before play
	pool    *podvm.Pool         // pool runs wasm programs, nil without any
	node    *network.Node       // node carries remote programs, nil without any
}

// loadPrograms builds every player. Remote programs need the host key.
func loadPrograms(cfg *Config, rules *game.Config) (*programSet, error) {
	ps := &programSet{}

	specs := make([]programSpec, len(cfg.Programs))
	for i, s := range cfg.Programs {
		spec, err := parseProgramSpec(s)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}

	for i, spec := range specs {
		var (
			code   []byte
			player game.Player
			err    error
		)

		switch spec.kind {
		case kindWasm:
			code, player, err = ps.loadWasm(spec.arg, rules)
		case kindRemote:
			code, player, err = ps.loadRemote(cfg, spec.arg, rules)
		case kindBuiltin:
			code = []byte(kindBuiltin + ":" + spec.arg)
			player, err = strategy.Local(spec.arg)
		}

		if err != nil {
			ps.close()
			return nil, fmt.Errorf("program %d (%s):\n%w", i, cfg.Programs[i], err)
		}

		ps.codes = append(ps.codes, code)
		ps.players = append(ps.players, player)
	}

	return ps, nil
}

// loadWasm compiles a wasm or zstd-compressed wasm artifact.
func (ps *programSet) loadWasm(path string, rules *game.Config) ([]byte, game.Player, error) {
	artifact, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read program:\n%w", err)
	}

	if ps.pool == nil {
		ps.pool, err = podvm.New(rules.Budget.MaxMemoryPages)
		if err != nil {
			return nil, nil, fmt.Errorf("create vm pool:\n%w", err)
		}
	}

	id, err := ps.pool.Load(artifact)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("wasm program loaded", "path", path, "id", hex.EncodeToString(id[:8]))

	return id[:], podvm.NewPlayer(ps.pool, id, rules), nil
}

// loadRemote registers a remote program by its public key.
func (ps *programSet) loadRemote(cfg *Config, keyHex string, rules *game.Config) ([]byte, game.Player, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("invalid public key %q", keyHex)
	}

	if ps.node == nil {
		if err := ps.startNode(cfg, specKeys(cfg.Programs)); err != nil {
			return nil, nil, err
		}
	}

	ps.remotes = append(ps.remotes, key)

	return key, remote.NewPlayer(ps.node, key, rules), nil
}

// startNode opens the QUIC listener restricted to the remote program keys.
func (ps *programSet) startNode(cfg *Config, allowed []ed25519.PublicKey) error {
	priv, err := loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := network.NewNode(network.Config{
		PrivateKey:  priv,
		ListenAddr:  cfg.QUICAddress,
		AllowedKeys: allowed,
	})
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	if err := node.Start(); err != nil {
		return fmt.Errorf("start node:\n%w", err)
	}

	ps.node = node

	logger.Info("waiting for remote programs",
		"quic", node.Addr(),
		"pubkey", hex.EncodeToString(node.PublicKey()),
		"programs", len(allowed),
	)

	return nil
}

// waitRemotes blocks until every remote program is connected.
func (ps *programSet) waitRemotes(ctx context.Context, timeout time.Duration) error {
	if len(ps.remotes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		missing := 0
		for _, k := range ps.remotes {
			if ps.node.GetPeer(k) == nil {
				missing++
			}
		}

		if missing == 0 {
			logger.Info("remote programs connected", "count", len(ps.remotes))
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%d remote programs not connected: %w", missing, ctx.Err())
		case <-ticker.C:
		}
	}
}

// close releases the vm pool and the network node.
func (ps *programSet) close() {
	if ps.node != nil {
		ps.node.Close()
	}

	if ps.pool != nil {
		ps.pool.Close()
	}
}

// specKeys returns the keys of every remote spec, skipping invalid ones.
func specKeys(programs []string) []ed25519.PublicKey {
	var keys []ed25519.PublicKey
	for _, s := range programs {
		spec, err := parseProgramSpec(s)
		if err != nil || spec.kind != kindRemote {
			continue
		}

		if k, err := hex.DecodeString(spec.arg); err == nil && len(k) == ed25519.PublicKeySize {
			keys = append(keys, k)
		}
	}
	return keys
}
