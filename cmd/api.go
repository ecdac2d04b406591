package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/services"
	"github.com/desertthunder/catx/internal/shared"
)

// APIGet makes an authenticated GET request.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, func(api *services.APIService, path string, _ []byte) (*services.APIResponse, error) {
		return api.Get(ctx, path)
	})
}

// APIPost makes an authenticated POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, func(api *services.APIService, path string, body []byte) (*services.APIResponse, error) {
		return api.Post(ctx, path, body)
	})
}

// APIPut makes an authenticated PUT request with a JSON body.
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, func(api *services.APIService, path string, body []byte) (*services.APIResponse, error) {
		return api.Put(ctx, path, body)
	})
}

// APIDelete makes an authenticated DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, cmd, func(api *services.APIService, path string, _ []byte) (*services.APIResponse, error) {
		return api.Delete(ctx, path)
	})
}

type apiFunc func(api *services.APIService, path string, body []byte) (*services.APIResponse, error)

func (r *Runner) apiCall(ctx context.Context, cmd *cli.Command, call apiFunc) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	var body []byte
	if data := cmd.String("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
		}
		body = []byte(data)
	}

	if _, err := r.session(); err != nil {
		return err
	}

	r.logger.Info("API request", "command", cmd.Name, "path", path)
	resp, err := call(r.api, path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := resp.Err(); err != nil {
		return err
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	if len(resp.Body) == 0 {
		return r.writePlain("✓ %d\n", resp.StatusCode)
	}
	return r.writePlain("%s\n", resp.Body)
}
