package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/crossbuild/internal/config"
	"github.com/thoreinstein/crossbuild/internal/editor"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/logging"
	"github.com/thoreinstein/crossbuild/internal/paths"
	"github.com/thoreinstein/crossbuild/pkg/fileutil"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect crossbuild configuration",
	Long: `Inspect the crossbuild configuration.

The config file is config.yaml in the current directory or in the user config
directory. Every key can be overridden by a CROSSBUILD_ environment variable,
e.g. CROSSBUILD_JOBS=8 or CROSSBUILD_PATHS_TMP=/scratch.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Show the effective configuration
  crossbuild config

  # Show which file was loaded
  crossbuild config path

  # Edit the config file
  crossbuild config edit

See Also: crossbuild doctor`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after applying defaults, the config file and
environment overrides.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Long: `Print the path of the loaded config file, or the locations searched when
running on defaults.`,
	Args: cobra.NoArgs,
	RunE: runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	Long: `Open the config file in your editor, using $VISUAL or $EDITOR.

Edits the loaded config file, or the user config file when none was found.
A missing user config file is created with the defaults first.`,
	Example: `  crossbuild config edit

  # Open with a specific editor
  EDITOR="code --wait" crossbuild config edit`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(currentConfig()); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(enc.Close(), "encoding config")
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := config.FileUsed()
	if path == "" {
		path = paths.ConfigFile()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := paths.EnsureDir(filepath.Dir(path), 0); err != nil {
			return errors.NewSystemError(err, "Check permissions on the config directory")
		}
		if err := fileutil.AtomicWriteYAML(path, config.Default(), 0o644); err != nil {
			return errors.NewSystemError(err, "Check permissions on the config directory")
		}
		logging.FromContext(cmd.Context()).Info("created config file", "path", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", path)
	if err := editor.Open(cmd.Context(), path, cmd.OutOrStdout()); err != nil {
		return errors.NewUserError(err, "Set $EDITOR to your editor command")
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configFlag != "" && errors.Is(configLoadErr, errors.ErrNotFound) {
		return errors.NewUserError(configLoadErr, "Check the --config path")
	}

	w := cmd.OutOrStdout()
	if file := config.FileUsed(); file != "" {
		fmt.Fprintln(w, file)
		return nil
	}

	fmt.Fprintln(w, "no config file found; searched:")
	fmt.Fprintln(w, "  ./config.yaml")
	fmt.Fprintf(w, "  %s\n", paths.ConfigFile())
	return nil
}
