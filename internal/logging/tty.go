package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTTY returns true if the given writer is a terminal.
// It supports os.File and any wrapper that provides an Fd() method.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// SupportsColor returns true if the given writer supports ANSI color codes.
//
// CLICOLOR_FORCE (non-empty, not "0") forces color on, which is useful when
// build output is piped through a pager. Otherwise color is off if:
//   - The NO_COLOR environment variable is set
//   - The TERM environment variable is set to "dumb"
//   - The writer is not a TTY
func SupportsColor(w io.Writer) bool {
	return supportsColor(IsTTY(w))
}

func supportsColor(isTTY bool) bool {
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTTY
}

// ConfigureColor sets the process-wide fatih/color switch from w, the writer
// that reports and summaries are printed to.
func ConfigureColor(w io.Writer) {
	color.NoColor = !SupportsColor(w)
}
