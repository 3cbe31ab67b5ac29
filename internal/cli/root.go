package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crmbdd/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is loaded from the environment before any subcommand runs and
	// then overridden by the flags the user set.
	Config config.Config

	// Logger writes diagnostics to stderr; Debug level with --verbose.
	Logger *slog.Logger

	languageCode      int
	optionMatch       string
	timezone          string
	asyncPollInterval time.Duration
	asyncTimeout      time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the crmbdd CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crmbdd",
		Short: "crmbdd - behaviour scenarios for CRM records",
		Long: `Run behaviour scenarios against a schema-described CRM record store.

Schemas are CUE files declaring entities, attributes, option sets,
business processes and relationships. Scenarios are YAML files listing
fixture steps and assertions.

Environment:
  CRMBDD_LANGUAGE_CODE, CRMBDD_OPTION_MATCH, CRMBDD_TIMEZONE,
  CRMBDD_ASYNC_POLL_INTERVAL, CRMBDD_ASYNC_TIMEOUT, CRMBDD_DB
Flags override the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.IntVar(&opts.languageCode, "language-code", 0, "option label language (overrides CRMBDD_LANGUAGE_CODE)")
	flags.StringVar(&opts.optionMatch, "option-match", "", "option label matching: exact|fold (overrides CRMBDD_OPTION_MATCH)")
	flags.StringVar(&opts.timezone, "timezone", "", "zone of date/time values without offset (overrides CRMBDD_TIMEZONE)")
	flags.DurationVar(&opts.asyncPollInterval, "async-poll-interval", 0, "async job poll interval (overrides CRMBDD_ASYNC_POLL_INTERVAL)")
	flags.DurationVar(&opts.asyncTimeout, "async-timeout", 0, "async job wait limit (overrides CRMBDD_ASYNC_TIMEOUT)")

	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("language-code") {
		cfg.LanguageCode = opts.languageCode
	}
	if flags.Changed("option-match") {
		cfg.OptionMatch = config.OptionMatch(opts.optionMatch)
	}
	if flags.Changed("timezone") {
		cfg.Timezone = opts.timezone
	}
	if flags.Changed("async-poll-interval") {
		cfg.AsyncPollInterval = opts.asyncPollInterval
	}
	if flags.Changed("async-timeout") {
		cfg.AsyncTimeout = opts.asyncTimeout
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger creates the stderr text logger. Command logs are Info, so they
// only show with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// runConfig returns the loaded configuration, or the defaults when the
// command runs without the root's pre-run hook.
func (o *RootOptions) runConfig() config.Config {
	if o.Config == (config.Config{}) {
		return config.Default()
	}
	return o.Config
}

// logger returns the configured logger or one that discards everything.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
