package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/logging"
	"github.com/thoreinstein/crossbuild/pkg/fileutil"
)

var (
	envFormat      string
	envRaw         bool
	envAll         bool
	envShowSecrets bool
	envOutput      string
)

func init() {
	envCmd.Flags().StringVarP(&envFormat, "format", "f", "shell",
		"output format: shell, json, yaml")
	envCmd.Flags().BoolVar(&envRaw, "raw", false,
		"print stored templates without expanding them")
	envCmd.Flags().BoolVar(&envAll, "all", false,
		"include variables inherited from the process environment")
	envCmd.Flags().BoolVar(&envShowSecrets, "show-secrets", false,
		"print token-like values unmasked")
	envCmd.Flags().StringVarP(&envOutput, "output", "o", "",
		"write to file instead of stdout")
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the environment for the build context",
	Long: `Print the environment entries the toolchain configuration sets for the
selected build context, as passed to child processes.

Values of secret-looking names (tokens, passwords, keys) are masked unless
--show-secrets is given. --output writes the file atomically.`,
	Example: `  # Source the Android environment into a shell
  eval "$(crossbuild -p android -a arm64_v8a env)"

  # Save the web environment as JSON
  crossbuild -p web -a wasm env --format json --output env.json

  # Show the templates before expansion
  crossbuild env --raw

See Also: crossbuild expand`,
	Args:    cobra.NoArgs,
	PreRunE: validateEnvFlags,
	RunE:    runEnv,
}

func validateEnvFlags(_ *cobra.Command, _ []string) error {
	switch envFormat {
	case "shell", "json", "yaml":
	default:
		return errors.NewUserError(errors.Newf("unknown format %q", envFormat),
			"Use --format shell, json or yaml")
	}
	if envRaw && envAll {
		return errors.NewUserError(errors.New("--raw and --all are mutually exclusive"), "")
	}
	return nil
}

func runEnv(cmd *cobra.Command, _ []string) error {
	b, err := configureBuild(cmd.Context())
	if err != nil {
		return err
	}

	env := b.store.Environment()
	if !envRaw {
		block, err := b.store.EnvironmentBlock()
		if err != nil {
			return errors.NewUserError(err, "Run: crossbuild doctor")
		}
		if envAll {
			env = block
		} else {
			for name := range env {
				env[name] = block[name]
			}
		}
	}
	if !envShowSecrets {
		env = logging.MaskSecrets(env)
	}

	if envOutput != "" {
		if err := writeEnvFile(envOutput, env); err != nil {
			return errors.NewSystemError(err, "Check that the output directory exists and is writable")
		}
		logging.FromContext(cmd.Context()).Info("wrote environment", "path", envOutput, "entries", len(env))
		return nil
	}
	return encodeEnv(cmd.OutOrStdout(), env)
}

func writeEnvFile(path string, env map[string]string) error {
	switch envFormat {
	case "json":
		return fileutil.AtomicWriteJSON(path, env, 0o644)
	case "yaml":
		return fileutil.AtomicWriteYAML(path, env, 0o644)
	default:
		return fileutil.AtomicWrite(path, 0o644, func(w io.Writer) error {
			return writeShell(w, env)
		})
	}
}

func encodeEnv(w io.Writer, env map[string]string) error {
	switch envFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(env), "encoding JSON")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return errors.Wrap(err, "encoding YAML")
		}
		return errors.Wrap(enc.Close(), "encoding YAML")
	default:
		return writeShell(w, env)
	}
}

// writeShell writes env as sorted POSIX export statements.
func writeShell(w io.Writer, env map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(env)) {
		value := env[name]
		if value != "" {
			value = shellquote.Join(value)
		} else {
			value = "''"
		}
		if _, err := fmt.Fprintf(w, "export %s=%s\n", name, value); err != nil {
			return errors.Wrap(err, "writing environment")
		}
	}
	return nil
}
