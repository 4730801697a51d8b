// Package main provides the abo-analyzer command line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abo-offspring-analyzer/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.NewCLI().Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, app.ErrUsage) {
			fmt.Fprintf(os.Stderr, "abo-analyzer: %v\n", err)
		}
		os.Exit(1)
	}
}
