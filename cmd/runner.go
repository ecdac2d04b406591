package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/repositories"
	"github.com/desertthunder/catx/internal/services"
	"github.com/desertthunder/catx/internal/session"
	"github.com/desertthunder/catx/internal/shared"
	"github.com/desertthunder/catx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session stack (store, manager, API and catalog clients) is built on first use so that
// commands like `setup config` never touch the database.
type Runner struct {
	config     *shared.Config
	configPath string
	resolved   bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	manager *session.Manager
	api     *services.APIService
	catalog *services.CatalogService
	engine  *tasks.CatalogEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client // its Transport carries every request, including auth calls
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is resolved from the --config flag before the first command runs.
func NewRunner(opts RunnerOpts) *Runner {
	resolved := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		resolved:   resolved,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, catalogCommand, watchCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves configuration and applies global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if !r.resolved {
		path := cmd.String("config")
		config, err := shared.ResolveConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config, r.configPath, r.resolved = config, path, true
	}

	if v := cmd.String("api-url"); v != "" {
		r.config.API.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := cmd.String("store"); v != "" {
		r.config.Session.Store = strings.ToLower(v)
	}
	return ctx, r.config.Validate()
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// session returns the session manager, building the credential store and clients on first use.
func (r *Runner) session() (*session.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	api := r.config.API
	authClient := &http.Client{Transport: r.httpClient.Transport, Timeout: api.Timeout()}
	backend := services.NewAuthService(api, authClient, r.logger)

	r.manager = session.NewManager(store, backend, session.Config{
		RefreshPath:    api.RefreshPath,
		RequestTimeout: api.Timeout(),
		WarnThreshold:  r.config.Session.WarnThreshold(),
		PollInterval:   r.config.Session.PollInterval(),
		Navigator:      session.NavigatorFunc(r.toLogin),
	}, r.logger)

	r.api = services.NewAPIService(api.BaseURL, r.manager.Client(r.httpClient.Transport, api.Timeout())).
		WithRateLimit(api.RateLimit, api.RateBurst)
	r.catalog = services.NewCatalogService(r.api)
	r.engine = tasks.NewCatalogEngine(r.catalog)

	r.logger.Debug("session ready", "store", r.config.Session.Store, "api", api.BaseURL)
	return r.manager, nil
}

func (r *Runner) openStore() (*session.Store, error) {
	if r.config.Session.Store == shared.StoreMemory {
		return session.NewMemoryStore(r.logger), nil
	}

	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}
	r.db = db

	values := repositories.NewSessionValueRepository(db)
	refresh := repositories.NewRefreshTierAdapter(repositories.NewRefreshCredentialRepository(db))
	return session.NewStore(values, refresh, r.config.Session.RefreshTTL(), r.logger), nil
}

// toLogin is the CLI's login entry point: it can only tell the user to sign in again.
func (r *Runner) toLogin(reason error) {
	r.logger.Warn("session expired, run `catx auth login` to sign in again", "reason", reason)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
