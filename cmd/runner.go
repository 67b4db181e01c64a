package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tubeswipe/internal/auth"
	"github.com/desertthunder/tubeswipe/internal/feed"
	"github.com/desertthunder/tubeswipe/internal/metrics"
	"github.com/desertthunder/tubeswipe/internal/preferences"
	"github.com/desertthunder/tubeswipe/internal/repositories"
	"github.com/desertthunder/tubeswipe/internal/services"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	youtube    services.YouTube
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	env        *environment
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	YouTube    services.YouTube // replaces the authorised client, e.g. in tests
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// environment is the opened storage and the services built on it, shared by one command run.
type environment struct {
	db        *sql.DB
	sessions  *repositories.SessionRepository
	summaries *repositories.SummaryRepository
	oauth     *oauth2.Config
	tokens    *auth.TokenStore
	prefs     *preferences.Store
	composer  *feed.Composer
	summary   *services.SummaryService
	metrics   *metrics.Metrics
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is resolved from ConfigPath (and the environment) before the first command runs.
func NewRunner(opts RunnerOpts) *Runner {
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
		youtube:    opts.YouTube,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, authCommand, feedCommand, muteCommand, unmuteCommand, mutedCommand,
		summaryCommand, playlistsCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app returns the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "tubeswipe",
		Usage:   "Swipe through recent uploads from your YouTube subscriptions",
		Version: "0.1.0",
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before resolves the configuration once per process.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config, err := shared.ResolveConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.ParseLogLevel(r.logger, level)

	return ctx, nil
}

func (r *Runner) after(context.Context, *cli.Command) error {
	r.close()
	return nil
}

// open builds the environment on first use.
func (r *Runner) open(ctx context.Context) (*environment, error) {
	if r.env != nil {
		return r.env, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	cfg := r.config

	db, err := shared.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	env := &environment{
		db:        db,
		sessions:  repositories.NewSessionRepository(db),
		summaries: repositories.NewSummaryRepository(db),
		oauth:     auth.NewOAuthConfig(cfg.Google),
		metrics:   metrics.New(nil),
	}
	env.tokens = auth.NewTokenStore(env.sessions, env.oauth, r.logger)
	env.prefs = preferences.NewStore(cfg.Storage.PreferencesPath, preferences.DefaultSettings(cfg.Feed), r.logger)

	checker := services.NewShortsChecker(r.logger, services.WithShortsLimits(cfg.Feed.ShortsConcurrency, cfg.Feed.ShortsRPS))
	env.composer = feed.NewComposer(env.prefs, checker, feed.Config{
		PerChannel: cfg.Feed.PerChannel,
		CacheTTL:   cfg.Feed.CacheTTL,
	}, r.logger).WithMetrics(env.metrics)

	env.summary = services.NewSummaryService(
		env.summaries,
		services.NewTimedtextClient(""),
		services.ProvidersFromConfig(cfg.LLM),
		r.logger,
	).WithMaxContentChars(cfg.LLM.MaxContentChars).WithMetrics(env.metrics)

	r.env = env
	return env, nil
}

func (r *Runner) close() {
	if r.env == nil {
		return
	}
	if err := r.env.db.Close(); err != nil {
		r.logger.Warn("failed to close database", "error", err)
	}
	r.env = nil
}

// apiOptions returns client options for the YouTube Data API, honouring a configured endpoint.
func (r *Runner) apiOptions() []option.ClientOption {
	if r.config != nil && r.config.Google.APIEndpoint != "" {
		return []option.ClientOption{option.WithEndpoint(r.config.Google.APIEndpoint)}
	}
	return nil
}

// client returns the YouTube client for terminal commands: the injected one, the mock in mock mode,
// or one authorised with the token saved by `tubeswipe auth login`.
func (r *Runner) client(ctx context.Context, env *environment) (services.YouTube, error) {
	if r.youtube != nil {
		return r.youtube, nil
	}
	if r.config.Mock() {
		r.logger.Info("mock mode: serving canned videos")
		return services.NewMockYouTube(), nil
	}

	httpClient, err := env.tokens.Client(ctx, auth.CLISessionID)
	if err != nil {
		return nil, fmt.Errorf("%w (run `tubeswipe auth login` first)", err)
	}
	return services.NewYouTubeClient(ctx, httpClient, r.logger, r.apiOptions()...)
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
