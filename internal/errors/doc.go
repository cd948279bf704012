// Package errors provides error handling conventions for the crossbuild CLI.
//
// This package re-exports the github.com/cockroachdb/errors constructors used
// throughout the tree, defines sentinel errors for common failure conditions,
// an ExitError type for CLI exit code handling, and exit code constants
// following standard Unix conventions.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [errors.Is]:
//
//	if errors.Is(err, cberrors.ErrNotFound) {
//	    // handle not found case
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): every command in the run completed successfully
//   - ExitUser (1): user-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): system-related error (I/O, missing tools, permissions, etc.)
//   - ExitFailure (1): a build command exited non-zero
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional suggestion.
// The entry point translates it into the process exit status:
//
//	err := cberrors.NewUserError(cberrors.ErrInvalidConfig, "Check your config file")
//	os.Exit(cberrors.CodeOf(err))
package errors
