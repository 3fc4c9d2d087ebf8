package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-journal/internal/cli"
	"trade-journal/internal/logging"
)

func main() {
	// Console-only logger until config is loaded
	log := logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, log, os.Args[1:]); err != nil {
		log.Debug().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
