package doctor

import (
	"github.com/thoreinstein/crossbuild/internal/paths"
)

// Fixer is an optional interface that checks can implement to support auto-remediation.
// Checks that implement Fixer can fix issues they detect when the --fix flag is used.
type Fixer interface {
	// CanFix returns true if this check has fixable issues.
	// Must be called after Run() to check if there are issues that can be fixed.
	CanFix() bool

	// Fix attempts to remediate the issues found by Run().
	// Must be called after Run().
	Fix() []FixResult
}

// FixResult describes the outcome of an attempted fix operation.
type FixResult struct {
	// Path is the file or directory that was targeted for fixing.
	Path string

	// Fixed indicates whether the fix was successfully applied.
	Fixed bool

	// Description explains what was fixed or why it couldn't be fixed.
	Description string

	// Error contains the error if the fix failed.
	Error error
}

// dirFixer creates missing build-tree directories.
type dirFixer struct {
	missing []string
}

// CanFix returns true if there are directories to create.
func (f *dirFixer) CanFix() bool {
	return len(f.missing) > 0
}

// Fix creates every missing directory.
func (f *dirFixer) Fix() []FixResult {
	results := make([]FixResult, 0, len(f.missing))
	for _, dir := range f.missing {
		result := FixResult{Path: dir}
		if err := paths.EnsureDir(dir, 0); err != nil {
			result.Description = "failed to create directory"
			result.Error = err
		} else {
			result.Fixed = true
			result.Description = "created directory"
		}
		results = append(results, result)
	}
	return results
}
