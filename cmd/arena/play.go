package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os/signal"
	"syscall"

	"Nottingham/internal/logger"
	"Nottingham/internal/network"
	"Nottingham/internal/remote"
	"Nottingham/internal/strategy"
)

// runPlay serves a built-in strategy to an arena as a remote program.
func runPlay(args []string) error {
	cfg, err := parsePlayFlags(args)
	if err != nil {
		return err
	}

	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	s, err := strategy.Remote(cfg.Strategy)
	if err != nil {
		return err
	}

	priv, err := loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := network.NewNode(network.Config{PrivateKey: priv})
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	logger.Info("starting program",
		"strategy", cfg.Strategy,
		"pubkey", hex.EncodeToString(node.PublicKey()),
		"host", cfg.HostAddress,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return remote.Serve(ctx, node, cfg.HostAddress, s)
}
