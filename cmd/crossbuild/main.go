// Package main is the entry point for the crossbuild CLI.
package main

import (
	"fmt"
	"os"

	"github.com/thoreinstein/crossbuild/cmd/crossbuild/commands"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/runner"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	var exitErr *errors.ExitError
	hasExit := errors.As(err, &exitErr)
	switch {
	case hasExit && exitErr.Err == nil:
		// The command reported through its exit code alone.
	case errors.Is(err, runner.ErrProcessFailed):
		// Failed children have already printed their diagnostics.
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hasExit && exitErr.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "Suggestion: %s\n", exitErr.Suggestion)
		}
	}
	os.Exit(errors.CodeOf(err))
}
