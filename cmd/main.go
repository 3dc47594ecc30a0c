package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ledgerx/internal/apperr"
	"github.com/desertthunder/ledgerx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "ledgerx",
		Usage:    "Sync and submit transactions to hledger-web servers",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.Load,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		var appErr apperr.AppError
		if errors.As(err, &appErr) {
			logger.Fatal(appErr.Error())
		}
		logger.Fatalf("application error: %v", err)
	}
}
