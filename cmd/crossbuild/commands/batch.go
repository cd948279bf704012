package commands

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/internal/batch"
	"github.com/thoreinstein/crossbuild/internal/errors"
)

func init() {
	batchCmd.Flags().BoolVar(&runEcho, "echo", false,
		"print each expanded command before running it")
	batchCmd.Flags().DurationVar(&runTimeout, "timeout", 0,
		"kill a command that runs longer than this (e.g. 10m)")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Run the steps of a batch file",
	Long: `Run the steps of a YAML batch file in order, in the build context.

Each step either runs one command or a list of commands in parallel:

  steps:
    - name: configure
      run: ./configure {{ cross_config }} --prefix={{ install }}
    - name: build
      parallel:
        - make -C src
        - make -C tools
    - run: make install

The first failing step stops the batch.`,
	Example: `  crossbuild -p mac -a arm64 batch build.yaml

See Also: crossbuild run`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := batch.Load(args[0])
	if err != nil {
		return errors.NewUserError(err, "Check the batch file")
	}

	b, err := configureBuild(cmd.Context())
	if err != nil {
		return err
	}

	return commandError(batch.Execute(cmd.Context(), b.store, f, runOptions(cmd, b)))
}
