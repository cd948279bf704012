package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/crossbuild/internal/config"
	"github.com/thoreinstein/crossbuild/internal/doctor"
	"github.com/thoreinstein/crossbuild/internal/errors"
)

var (
	doctorJSON    bool
	doctorQuiet   bool
	doctorVerbose bool
	doctorFix     bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorQuiet, "quiet", false,
		"suppress output, exit code only")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false,
		"show detailed check-by-check output")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"create missing build directories")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the build context",
	Long: `Run diagnostic checks on the configuration and the selected build context.

Validates the config file, expands every configured template, looks up the
compilers on the configured PATH, and checks the build directories and the
emscripten SDK.

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - All checks passed (no errors or warnings)
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Check the Android arm64 toolchain
  crossbuild -p android -a arm64_v8a doctor

  # Create missing build directories
  crossbuild doctor --fix`,
	Args:    cobra.NoArgs,
	PreRunE: validateDoctorFlags,
	RunE:    runDoctor,
}

// validateDoctorFlags ensures output flags are mutually exclusive.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	count := 0
	for _, set := range []bool{doctorJSON, doctorQuiet, doctorVerbose} {
		if set {
			count++
		}
	}
	if count > 1 {
		return errors.NewUserError(errors.New("flags --json, --quiet, and --verbose are mutually exclusive"), "")
	}
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	r := doctorRunner(cmd)

	w := cmd.OutOrStdout()
	report := r.Run()
	if doctorFix {
		fixes := r.Fix()
		if !doctorQuiet && !doctorJSON {
			outputFixes(w, fixes)
		}
		report = r.Run()
	}
	if err := outputDoctorReport(w, report); err != nil {
		return err
	}

	// Exit code carries the result
	if report.HasErrors() {
		return errors.NewExitError(nil, errors.ExitSystem)
	}
	if report.HasWarnings() {
		return errors.NewExitError(nil, errors.ExitUser)
	}
	return nil
}

// doctorRunner registers the checks for the current config and build context.
func doctorRunner(cmd *cobra.Command) *doctor.Runner {
	r := doctor.NewRunner()

	file := config.FileUsed()
	if configLoadErr != nil {
		if file == "" {
			file = configFlag
		}
		r.AddCheck(doctor.NewConfigLoadCheck(file, configLoadErr))
	} else {
		r.AddCheck(doctor.NewConfigCheck(currentConfig(), file))
	}

	b, err := configureBuild(cmd.Context())
	if err != nil {
		r.AddCheck(doctor.NewFailedCheck("configure", "toolchain", err, suggestionOf(err)))
		return r
	}

	db := doctor.Build{Store: b.store, Triple: b.triple, Table: b.table}
	r.AddCheck(doctor.NewExpansionCheck(db))
	r.AddCheck(doctor.NewToolCheck(db))
	r.AddCheck(doctor.NewDirectoryCheck(db))
	r.AddCheck(doctor.NewDiscoveryCheck(db))
	return r
}

func suggestionOf(err error) string {
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Suggestion
	}
	return ""
}

func outputDoctorReport(w io.Writer, report *doctor.DoctorReport) error {
	if doctorQuiet {
		return nil
	}

	if doctorJSON {
		return outputDoctorJSON(w, report)
	}

	outputDoctorText(w, report)
	return nil
}

func outputDoctorJSON(w io.Writer, report *doctor.DoctorReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

func outputDoctorText(w io.Writer, report *doctor.DoctorReport) {
	// In normal mode, show only errors and warnings
	showAll := doctorVerbose

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
		if showAll {
			for _, key := range sortedKeys(result.Details) {
				fmt.Fprintf(w, "    %s: %v\n", key, result.Details[key])
			}
		}
	}

	if hasOutput || showAll {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

func outputFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		if f.Fixed {
			fmt.Fprintf(w, "%s created %s\n", color.GreenString("✓"), f.Path)
		} else {
			fmt.Fprintf(w, "%s could not create %s: %v\n", color.RedString("✗"), f.Path, f.Error)
		}
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w)
	}
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
