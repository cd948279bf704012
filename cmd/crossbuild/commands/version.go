package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/cmd"
	"github.com/thoreinstein/crossbuild/internal/toolchain"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of crossbuild, and the machine it runs on.`,
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, _ []string) {
		version, commit, date := cmd.Resolved()
		w := c.OutOrStdout()

		fmt.Fprintf(w, "crossbuild version %s\n", version)
		fmt.Fprintf(w, "  commit:    %s\n", commit)
		fmt.Fprintf(w, "  built:     %s\n", date)
		fmt.Fprintf(w, "  go:        %s\n", runtime.Version())

		platform, arch := toolchain.Host()
		if platform == "" {
			platform, arch = "unsupported", runtime.GOOS+"/"+runtime.GOARCH
		}
		fmt.Fprintf(w, "  host:      %s-%s\n", platform, arch)
		fmt.Fprintf(w, "  build:     %s\n", toolchain.BuildPlatform())
	},
}
