package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/toolchain"
)

var platformsInteractive bool

func init() {
	platformsCmd.Flags().BoolVarP(&platformsInteractive, "interactive", "i", false,
		"pick a platform and architecture with a fuzzy finder")
	rootCmd.AddCommand(platformsCmd)
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and architectures",
	Long: `List the platform and architecture pairs of the builtin toolchain table,
and the build kinds that use the host compiler.

With --interactive, pick a pair with a fuzzy finder and print the flags that
select it.`,
	Example: `  crossbuild platforms

  # Use the picked pair in another command
  crossbuild $(crossbuild platforms -i) env`,
	Args: cobra.NoArgs,
	RunE: runPlatforms,
}

func runPlatforms(cmd *cobra.Command, _ []string) error {
	tbl, err := toolchain.Builtin()
	if err != nil {
		return errors.NewSystemError(err, "The builtin toolchain table is damaged; reinstall crossbuild")
	}

	if platformsInteractive {
		return pickPlatform(cmd.OutOrStdout(), tbl)
	}
	listPlatforms(cmd.OutOrStdout(), tbl)
	return nil
}

func listPlatforms(w io.Writer, tbl *toolchain.Table) {
	hostPlatform, hostArch := toolchain.Host()
	for _, p := range tbl.Platforms {
		archs := make([]string, len(p.Archs))
		for i, a := range p.Archs {
			archs[i] = a
			if p.Name == hostPlatform && a == hostArch {
				archs[i] = a + " (host)"
			}
		}
		fmt.Fprintf(w, "%-8s %s\n", p.Name, strings.Join(archs, ", "))
	}
	fmt.Fprintf(w, "\nkinds: %s (host compiler: %s)\n", toolchain.KindTarget, strings.Join(tbl.HostKinds, ", "))
}

func pickPlatform(w io.Writer, tbl *toolchain.Table) error {
	triples := tbl.Triples()

	idx, err := fuzzyfinder.Find(
		triples,
		func(i int) string {
			return triples[i].Platform + " " + triples[i].Arch
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return describeTriple(tbl, triples[i])
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		return errors.Wrap(err, "interactive selection failed")
	}

	t := triples[idx]
	fmt.Fprintf(w, "-p %s -a %s\n", t.Platform, t.Arch)
	return nil
}

// describeTriple lists the table sections that set something for t as a
// target build.
func describeTriple(tbl *toolchain.Table, t toolchain.Triple) string {
	t.Kind = toolchain.KindTarget

	var sb strings.Builder
	fmt.Fprintf(&sb, "Platform: %s\nArch:     %s\n\nRules:\n", t.Platform, t.Arch)
	for i := range tbl.Sections {
		sec := &tbl.Sections[i]
		n := sec.Match(t)
		if n < 0 {
			continue
		}
		r := sec.Rules[n]
		fmt.Fprintf(&sb, "  %s\n", sec.Name)
		if r.Discover != "" {
			fmt.Fprintf(&sb, "    discover %s\n", r.Discover)
		}
		for _, a := range r.Set {
			fmt.Fprintf(&sb, "    %s %s = %s\n", a.Namespace, a.Name, a.Value)
		}
	}
	return sb.String()
}
