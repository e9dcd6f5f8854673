package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/annotator/internal/caller"
	"github.com/jackzampolin/annotator/internal/config"
	"github.com/jackzampolin/annotator/internal/home"
	"github.com/jackzampolin/annotator/internal/prompts"
	"github.com/jackzampolin/annotator/internal/providers"
	"github.com/jackzampolin/annotator/internal/tasks"
	"github.com/jackzampolin/annotator/version"
)

var (
	cfgFile   string
	homeDir   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "annotator",
	Short: "Batch annotation of JSON-Lines datasets with a generative model",
	Long: `Annotator drives a generative text model over JSON-Lines input and turns
each record into one normalized output record.

Supported tasks:
  - emotion        pick an emotion label from the record's choices
  - inconsistency  find the index of the inconsistent text
  - summary        five-field clinical case summary
  - counsel        free-form counselling reply
  - qa             short answers, yes/no where the question asks for it

Every record yields exactly one output line, in input order, whether the
model answered, the model was unreachable, or the input was malformed.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.annotator/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "annotator home directory (default: ~/.annotator)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default: from config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "", "log format: text or json (default: from config)",
	)
}

// env is the state shared by every command once flags are parsed.
type env struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
	level  *slog.LevelVar
}

func setup(cmd *cobra.Command) (*env, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	level := new(slog.LevelVar)
	lvl := cfg.Log.Level
	if logLevel != "" {
		lvl = logLevel
	}
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
	}

	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case "text", "":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if f := mgr.File(); f != "" {
		logger.Debug("loaded config", "file", f)
	}
	return &env{home: h, config: mgr, logger: logger, level: level}, nil
}

// followLogLevel applies log.level edits in the config file to the running
// process. A --log-level flag pins the level.
func (e *env) followLogLevel() {
	if logLevel != "" {
		return
	}
	e.config.OnChange(func(cfg *config.Config) {
		prev := e.level.Level()
		if err := e.level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			e.logger.Warn("ignoring invalid log level from config", "level", cfg.Log.Level)
			return
		}
		if prev != e.level.Level() {
			e.logger.Info("log level changed", "level", e.level.Level())
		}
	})
	e.config.WatchConfig()
}

func (e *env) newCaller() (*caller.Caller, error) {
	cfg := e.config.Get()
	client, err := providers.NewClient(cfg.ToProviderConfig())
	if err != nil {
		return nil, err
	}
	return caller.New(caller.Config{
		Client:       client,
		Model:        cfg.Provider.Model,
		Temperature:  cfg.Provider.Temperature,
		Attempts:     cfg.Retry.Attempts,
		Backoff:      cfg.Retry.Backoff,
		ProbeTimeout: cfg.Retry.ProbeTimeout,
		Logger:       e.logger,
	})
}

func (e *env) registry() (*tasks.Registry, error) {
	dir := e.config.Get().PromptsDir
	if dir == "" {
		dir = e.home.PromptsDir()
	}
	resolver, err := prompts.NewResolver(dir, e.logger)
	if err != nil {
		return nil, err
	}
	return tasks.Builtin(resolver), nil
}
