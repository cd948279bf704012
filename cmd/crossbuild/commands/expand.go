package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

func init() {
	rootCmd.AddCommand(expandCmd)
}

var expandCmd = &cobra.Command{
	Use:   "expand <template>...",
	Short: "Expand templates in the build context",
	Long: `Expand each template against the configured build context and print
the result on its own line.

Placeholders look up environment entries first, then variables, then the
build context (platform, arch, kind, name, cwd, tmp, install, host, cross),
then the process environment. A name found nowhere is an error.`,
	Example: `  # Show the C compiler for iOS
  crossbuild -p ios -a arm64 expand '{{ CC }}'

  # Show where host tools install
  crossbuild expand '{{ host }}/bin'

See Also: crossbuild env`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	b, err := configureBuild(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, tmpl := range args {
		v, err := b.store.Expand(tmpl)
		if err != nil {
			return errors.NewUserError(err, "Run: crossbuild env --raw to list defined names")
		}
		fmt.Fprintln(w, v)
	}
	return nil
}
