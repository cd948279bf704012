// Package commands implements the CLI commands for crossbuild.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/cmd"
	"github.com/thoreinstein/crossbuild/internal/config"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/logging"
)

// Build context selection.
var (
	platformFlag string
	archFlag     string
	kindFlag     string
	nameFlag     string
)

// configFlag holds the value of the --config flag.
var configFlag string

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// loadedConfig and configLoadErr hold the result of loading the config file.
var (
	loadedConfig  *config.Config
	configLoadErr error
)

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&platformFlag, "platform", "p", "",
		"target platform (default: config, else this machine)")
	pf.StringVarP(&archFlag, "arch", "a", "",
		"target architecture (default: config, else this machine)")
	pf.StringVarP(&kindFlag, "kind", "k", "",
		`build kind: target, host, host-python, cross (default "target")`)
	pf.StringVar(&nameFlag, "name", "",
		"task name shown in diagnostics")
	pf.StringVar(&configFlag, "config", "",
		"config file (default: ./config.yaml, then the user config dir)")
	pf.CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	pf.BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	pf.StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	pf.StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("crossbuild version {{.Version}}\n")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	loadedConfig, configLoadErr = config.Load(configFlag)
}

var rootCmd = &cobra.Command{
	Use:   "crossbuild",
	Short: "Configure cross-compilation toolchains and run build commands",
	Long: `crossbuild drives native library builds for many platform and
architecture pairs from one machine.

For the selected build context it configures compilers, flags and paths from
a builtin toolchain table, then runs shell commands with that environment.
Commands are templates: {{ name }} placeholders expand against the configured
variables, the environment, and the build context.

Use --platform, --arch and --kind to select the build context.`,
	Example: `  # Show the compiler for Android arm64
  crossbuild -p android -a arm64_v8a expand '{{ CC }}'

  # Configure and build in one step
  crossbuild -p linux -a aarch64 run './configure {{ cross_config }}' '{{ make }}'

  # Write an environment script
  crossbuild -p web -a wasm env --output env.sh

  See Also: crossbuild platforms, crossbuild doctor`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("--quiet and --verbose are mutually exclusive"),
			"Use one of -q or -v")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv(config.EnvPrefix + "_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case logging.FormatText:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	default:
		return errors.NewUserError(errors.Newf("unknown log format %q", logFormat),
			"Use --log-format text or --log-format json")
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "Check the --log-file path")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig reports config load errors for commands that use the config.
func checkConfig(cmd *cobra.Command) error {
	switch cmd.Name() {
	case "help", "version", "doctor", "path", "edit", "gen-doc":
		return nil
	}
	if configLoadErr != nil {
		return errors.NewConfigError(configLoadErr)
	}
	return nil
}

// currentConfig returns the loaded config, or the defaults when loading failed
// or has not happened.
func currentConfig() *config.Config {
	if loadedConfig == nil {
		return config.Default()
	}
	return loadedConfig
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
