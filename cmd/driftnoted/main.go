package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/driftnote/driftnote/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "driftnoted",
		Usage:    "Stream a personal music library out of a cloud drive",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
