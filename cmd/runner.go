package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mcampolo/reeldeck/internal/duration"
	"github.com/mcampolo/reeldeck/internal/probe"
	"github.com/mcampolo/reeldeck/internal/services"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/mcampolo/reeldeck/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	dropbox    *services.DropboxProvider
	provider   services.Provider
	engine     *tasks.LibraryEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Dropbox    *services.DropboxProvider
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
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

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		dropbox:    opts.Dropbox,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	if opts.Dropbox != nil {
		r.provider = opts.Dropbox
		r.engine = buildEngine(opts.Config, opts.Dropbox, opts.Logger)
	}

	return r
}

// buildEngine wires the probe and duration pipeline onto the provider.
func buildEngine(config *shared.Config, provider services.Provider, logger *log.Logger) *tasks.LibraryEngine {
	factory := func() probe.Player {
		return probe.NewFFmpegPlayer(config.Probe.FFprobePath, config.Probe.FFmpegPath)
	}

	prober := probe.NewProber(factory,
		probe.WithTimeout(config.Probe.Timeout()),
		probe.WithRefresh(provider.TemporaryLink),
		probe.WithLogger(logger),
	)

	extractor := duration.NewExtractor(factory,
		duration.WithTimeout(config.Probe.Timeout()),
		duration.WithConcurrency(config.Probe.Concurrency),
		duration.WithLogger(logger),
	)

	opts := []tasks.EngineOption{tasks.WithLogger(logger)}
	if len(config.Library.VideoExtensions) > 0 {
		opts = append(opts, tasks.WithExtensions(config.Library.VideoExtensions))
	}

	return tasks.NewLibraryEngine(provider, prober, extractor, opts...)
}

// SetLogger swaps the runner's logger, propagating it to dependent components.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, browseCommand, probeCommand, reelCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// saveTokens persists OAuth tokens to the config file and in-memory config.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := updateDropboxTokens(r.config, token); err != nil {
		return fmt.Errorf("failed to update dropbox configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

func updateDropboxTokens(config *shared.Config, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	config.Credentials.Dropbox.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		config.Credentials.Dropbox.RefreshToken = token.RefreshToken
	}
	return nil
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
