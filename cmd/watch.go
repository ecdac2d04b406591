package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/shared"
	"github.com/desertthunder/catx/internal/ui"
)

// Watch launches the session monitor TUI.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	manager, err := r.session()
	if err != nil {
		return err
	}

	if err := ui.Run(ctx, manager, r.catalog, r.logger); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
