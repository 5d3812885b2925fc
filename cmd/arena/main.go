package main

import (
	"fmt"
	"os"

	"Nottingham/internal/logger"
)

func main() {
	logger.Init()

	args := os.Args[1:]

	var err error
	if len(args) > 0 && args[0] == "play" {
		err = runPlay(args[1:])
	} else {
		err = runHost(args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging applies the configured level.
func setupLogging(level string) error {
	l, err := logger.ParseLevel(level)
	if err != nil {
		return err
	}

	logger.Setup(os.Stdout, l)
	return nil
}
