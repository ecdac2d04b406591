package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}

		code := exitCode(err)
		if code == 2 {
			logger.Error("session unavailable, run `catx auth login`", "error", err)
		} else {
			logger.Error("application error", "error", err)
		}
		runner.Close()
		os.Exit(code)
	}
}

// exitCode is 2 when err means there is no usable session, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrNoRefreshToken):
		return 2
	default:
		return 1
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catx",
		Usage:   "Catalog API client with a managed authenticated session",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Backend base URL (overrides config and CATX_API_URL)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Credential store: sqlite or memory",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
