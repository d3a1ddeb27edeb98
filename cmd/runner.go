package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/zipdrop/internal/gateway"
	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/repositories"
	"github.com/desertthunder/zipdrop/internal/server"
	"github.com/desertthunder/zipdrop/internal/services"
	"github.com/desertthunder/zipdrop/internal/session"
	"github.com/desertthunder/zipdrop/internal/shared"
	"github.com/desertthunder/zipdrop/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session, gateway and services are built on first use by [Runner.connect] so commands that
// never touch the API (setup, mock serve) do not open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	loadConfig bool
	logger     *log.Logger
	output     io.Writer
	transport  http.RoundTripper
	open       func(string) error
	now        func() time.Time

	db        *sql.DB
	storage   models.Storage
	overrides services.OverrideStore
	mockAPI   *server.MockAPI
	store     *session.Store
	gateway   *gateway.Gateway
	projects  *services.ProjectService
	api       *services.APIService
	engine    *tasks.UploadEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Storage    models.Storage         // defaults to the storage table of the configured database
	Overrides  services.OverrideStore // defaults to the project_overrides table
	Transport  http.RoundTripper      // replaces the network; mock mode installs its own
	Open       func(url string) error // defaults to shared.OpenBrowser
	Now        func() time.Time
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loadConfig: loadConfig,
		logger:     opts.Logger,
		output:     opts.Output,
		transport:  opts.Transport,
		open:       opts.Open,
		now:        opts.Now,
		storage:    opts.Storage,
		overrides:  opts.Overrides,
	}
}

// SetLogger replaces the logger. Call before the first API command so the gateway picks it up.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, projectsCommand, apiCommand, mockCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// connect builds the session store, gateway and services.
func (r *Runner) connect() error {
	if r.projects != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.storage == nil || r.overrides == nil {
		db, err := shared.OpenMigrated(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		if r.storage == nil {
			r.storage = repositories.NewStorageRepository(db)
		}
		if r.overrides == nil {
			r.overrides = repositories.NewOverrideRepository(db)
		}
	}

	store, err := session.NewStore(r.storage, shared.WithLogger(r.logger, "component", "session"))
	if err != nil {
		return err
	}

	transport := r.transport
	if transport == nil && r.config.API.Mock {
		if transport, err = r.mockTransport(); err != nil {
			return err
		}
	}

	opts := []gateway.Option{
		gateway.WithTimeout(r.config.API.Timeout.Duration),
		gateway.WithLogger(shared.WithLogger(r.logger, "component", "gateway")),
		gateway.WithNotifier(r.notifier()),
	}
	if transport != nil {
		opts = append(opts, gateway.WithTransport(transport))
	}

	r.gateway = gateway.New(r.config.API.BaseURL, store, opts...)
	store.Bind(r.gateway)
	r.store = store

	r.projects = services.NewProjectService(r.gateway, r.overrides, nil, r.config.API.PublicDomain, r.logger)
	r.api = services.NewAPIService(r.gateway)
	r.engine = tasks.NewUploadEngine(r.projects, r.logger)

	r.logger.Debug("connected", "base_url", r.config.API.BaseURL, "mock", r.config.API.Mock)
	return nil
}

// mockTransport serves the base URL with an in-process mock API.
func (r *Runner) mockTransport() (http.RoundTripper, error) {
	base, err := url.Parse(r.config.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: api.base_url: %v", shared.ErrInvalidConfig, err)
	}

	logger := shared.WithLogger(r.logger, "component", "mock")
	r.mockAPI = server.NewMockAPI(server.MockOptions{
		TokenTTL:     r.config.Mock.TokenTTL.Duration,
		PublicDomain: r.config.API.PublicDomain,
		Now:          r.now,
		Logger:       logger,
	})
	handler := server.NewMockHandler(r.mockAPI, logger, r.config.Mock.SimulateLatency)

	r.logger.Info("using mock API", "latency", r.config.Mock.SimulateLatency)
	return server.NewMockTransport(server.Mount(base.Path, handler)), nil
}

// notifier prints problems the gateway reports, such as a session that could not be refreshed.
func (r *Runner) notifier() gateway.Notifier {
	return gateway.NotifierFunc(func(kind gateway.NoticeKind, message string) {
		switch kind {
		case gateway.NoticeError, gateway.NoticeWarning:
			r.writePlain("! %s\n", message)
		default:
			r.logger.Debug(message, "kind", kind)
		}
	})
}

// Close releases the database opened by [Runner.connect].
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
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

// writeRaw prints a body that is not JSON.
func (r *Runner) writeRaw(body []byte) error {
	if _, err := r.output.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
