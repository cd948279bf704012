package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/runner"
)

var (
	runParallel bool
	runEcho     bool
	runSilent   bool
	runTimeout  time.Duration
)

func init() {
	runCmd.Flags().BoolVar(&runParallel, "parallel", false,
		"run the commands concurrently as one group")
	runCmd.Flags().BoolVar(&runEcho, "echo", false,
		"print each expanded command before running it")
	runCmd.Flags().BoolVar(&runSilent, "silent", false,
		"discard the output of sequential commands")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0,
		"kill a command that runs longer than this (e.g. 10m)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <command>...",
	Short: "Run commands in the build context",
	Long: `Expand and run each command with the build context's environment and
working directory.

Commands are split into words with POSIX shell rules after expansion; no shell
is involved. Without --parallel, commands run one after another and the first
failure stops the run. With --parallel, they run concurrently: output is
captured and printed once every command has exited, successful commands
first, and the run fails if any command failed.

The concurrency of --parallel is capped by the "parallel" config setting.`,
	Example: `  # Configure and build a library for Linux arm64
  crossbuild -p linux -a aarch64 run \
    './configure {{ cross_config }} --prefix={{ install }}' '{{ make }}' 'make install'

  # Build three independent pieces at once
  crossbuild run --parallel 'make -C zlib' 'make -C bzip2' 'make -C xz'

See Also: crossbuild batch, crossbuild expand`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	b, err := configureBuild(cmd.Context())
	if err != nil {
		return err
	}

	opts := runOptions(cmd, b)
	opts.Quiet = runSilent

	if runParallel {
		err = runner.WithGroup(cmd.Context(), b.store, opts, func(g *runner.Group) error {
			for _, command := range args {
				if _, err := g.Run(command); err != nil {
					return err
				}
			}
			return nil
		})
		return commandError(err)
	}

	for _, command := range args {
		if err := runner.Run(cmd.Context(), b.store, command, opts); err != nil {
			return commandError(err)
		}
	}
	return nil
}

// runOptions returns the runner options shared by run and batch.
func runOptions(cmd *cobra.Command, b *build) runner.Options {
	return runner.Options{
		Verbose: runEcho,
		Timeout: runTimeout,
		Jobs:    b.cfg.Parallel,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	}
}

// commandError maps runner errors to exit errors. Failed children have
// already printed their diagnostics.
func commandError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, runner.ErrProcessFailed):
		return errors.NewBuildError(err)
	case errors.Is(err, runner.ErrEmptyCommand):
		return errors.NewUserError(err, "Remove the empty command")
	default:
		return errors.NewUserError(err, "Check the command with: crossbuild expand '<command>'")
	}
}
