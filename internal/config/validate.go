package config

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates the version field is not 1.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidOverlay indicates an overlay entry is malformed.
	ErrInvalidOverlay = errors.New("invalid overlay")

	// ErrNegativeCount indicates jobs or parallel is negative.
	ErrNegativeCount = errors.New("must not be negative")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, errors.Wrapf(ErrUnsupportedVersion, "%d", cfg.Version))
	}

	for field, path := range map[string]string{
		"paths.tmp":     cfg.Paths.Tmp,
		"paths.install": cfg.Paths.Install,
		"paths.host":    cfg.Paths.Host,
		"paths.cross":   cfg.Paths.Cross,
	} {
		if err := validatePath(path); err != nil {
			errs = append(errs, &PathError{Field: field, Path: path, Err: err})
		}
	}

	if cfg.Jobs < 0 {
		errs = append(errs, errors.Wrap(ErrNegativeCount, "jobs"))
	}
	if cfg.Parallel < 0 {
		errs = append(errs, errors.Wrap(ErrNegativeCount, "parallel"))
	}

	for i, o := range cfg.Overlays {
		switch {
		case o.Namespace != NamespaceVariable && o.Namespace != NamespaceEnvironment:
			errs = append(errs, errors.Wrapf(ErrInvalidOverlay, "overlays[%d]: ns must be %q or %q, got %q",
				i, NamespaceVariable, NamespaceEnvironment, o.Namespace))
		case strings.TrimSpace(o.Name) == "":
			errs = append(errs, errors.Wrapf(ErrInvalidOverlay, "overlays[%d]: name is required", i))
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}

	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// PathError represents an invalid path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Field, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
