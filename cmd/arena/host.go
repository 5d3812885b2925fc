package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"Nottingham/internal/api"
	"Nottingham/internal/engine"
	"Nottingham/internal/game"
	"Nottingham/internal/identity"
	"Nottingham/internal/journal"
	"Nottingham/internal/logger"
)

// runHost plays one game to completion.
func runHost(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	rules, err := loadRules(cfg)
	if err != nil {
		return fmt.Errorf("load rules:\n%w", err)
	}

	programs, err := loadPrograms(cfg, rules)
	if err != nil {
		return err
	}
	defer programs.close()

	registry, err := buildRegistry(programs.codes, cfg.Salts)
	if err != nil {
		return fmt.Errorf("assign identities:\n%w", err)
	}

	j, err := journal.Open()
	if err != nil {
		return err
	}
	defer j.Close()

	e, err := engine.New(rules, registry, programs.players, j)
	if err != nil {
		return fmt.Errorf("create engine:\n%w", err)
	}

	printStartupInfo(cfg, rules, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddress != "" {
		srv := api.New(cfg.HTTPAddress, e, j)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start api:\n%w", err)
		}
		defer srv.Stop()
	}

	if err := programs.waitRemotes(ctx, cfg.ConnectTimeout); err != nil {
		return err
	}

	if err := playGame(ctx, e, cfg.RoundDelay); err != nil {
		return err
	}

	if cfg.Linger && ctx.Err() == nil {
		logger.Info("game over, serving until interrupted")
		<-ctx.Done()
	}

	logger.Info("shutting down")

	return nil
}

// loadRules reads the YAML rule set, or defaults sized to the program list.
func loadRules(cfg *Config) (*game.Config, error) {
	if cfg.GamePath == "" {
		rules := game.DefaultConfig(len(cfg.Programs))
		return rules, rules.Validate()
	}

	rules, err := game.LoadConfig(cfg.GamePath)
	if err != nil {
		return nil, err
	}

	if rules.Players != len(cfg.Programs) {
		return nil, fmt.Errorf("%w: rules expect %d players, got %d programs", game.ErrSetup, rules.Players, len(cfg.Programs))
	}

	return rules, nil
}

// buildRegistry assigns identities from given salts, or mines them.
func buildRegistry(codes [][]byte, salts []uint64) (*identity.Registry, error) {
	if len(salts) > 0 {
		return identity.NewRegistry(codes, salts)
	}

	start := time.Now()

	as, err := identity.Mine(codes)
	if err != nil {
		return nil, err
	}

	logger.Info("salts mined", "salts", fmt.Sprint(identity.Salts(as)), logger.Timed(start))

	return identity.FromAssignments(codes, as)
}

// playGame plays rounds until a winner is declared or ctx is canceled.
// A bid mismatch stops the game.
func playGame(ctx context.Context, e *engine.Engine, delay time.Duration) error {
	for !e.Status().Ended {
		res, err := e.PlayRound(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Warn("game interrupted", "round", e.Status().Round)
				return nil
			}

			var inv *game.InvariantError
			if errors.As(err, &inv) {
				return fmt.Errorf("game halted:\n%w", err)
			}

			return fmt.Errorf("play round %d:\n%w", e.Status().Round+1, err)
		}

		if res.Failure != nil {
			logger.Warn("build discarded", "round", res.Round, "builder", res.Builder, "error", res.Failure)
		}

		if delay > 0 && !res.Ended {
			select {
			case <-ctx.Done():
				logger.Warn("game interrupted", "round", res.Round)
				return nil
			case <-time.After(delay):
			}
		}
	}

	st := e.Status()
	if st.Winner == engine.NoPlayer {
		return nil
	}

	logger.Info("game over",
		"round", st.Round,
		"winner", st.Winner,
		"score", game.FormatUnits(e.Scores()[st.Winner]),
	)

	return nil
}

// printStartupInfo displays the game setup.
func printStartupInfo(cfg *Config, rules *game.Config, registry *identity.Registry) {
	logger.Info("starting arena",
		"players", rules.Players,
		"round_cap", rules.RoundCap,
		"win_threshold", game.FormatUnits(&rules.WinThreshold),
		"http", cfg.HTTPAddress,
	)

	for i, h := range registry.Handles() {
		logger.Info("identity", "index", i, "handle", h.Short(), "program", cfg.Programs[i])
	}
}
