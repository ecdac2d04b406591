package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/server"
)

// Serve runs the sandbox backend until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	sandbox := server.NewSandbox(server.SandboxConfig{
		Username:    cmd.String("username"),
		Password:    cmd.String("password"),
		AccessTTL:   cmd.Duration("access-ttl"),
		RefreshWait: cmd.Duration("refresh-wait"),
		LoginPath:   r.config.API.LoginPath,
		RefreshPath: r.config.API.RefreshPath,
		LogoutPath:  r.config.API.LogoutPath,
		Logger:      r.logger,
	})

	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           sandbox,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("sandbox listening", "addr", srv.Addr, "access_ttl", cmd.Duration("access-ttl"))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	r.logger.Info("shutting down sandbox")
	return srv.Shutdown(shutdownCtx)
}
