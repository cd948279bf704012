package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "crossbuild"

// Build-tree layout templates. They are expanded against the build context,
// so every (platform, arch) pair gets its own install and cross trees while
// host tools are shared.
const (
	DefaultInstallTemplate = "{{ tmp }}/install.{{ platform }}-{{ arch }}"
	DefaultHostTemplate    = "{{ tmp }}/host"
	DefaultCrossTemplate   = "{{ tmp }}/cross.{{ platform }}-{{ arch }}"
)

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")
)

// DefaultDirPerm is the default permission for newly created directories.
const DefaultDirPerm = 0o755

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return errors.Wrapf(os.MkdirAll(path, perm), "creating %s", path)
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// CacheHome returns the XDG cache home directory.
// On Linux: ~/.cache
// On macOS: ~/Library/Caches
// On Windows: %LOCALAPPDATA%\cache
func CacheHome() string {
	return xdg.CacheHome
}

// ConfigDir returns the directory searched for config.yaml.
// Returns: <ConfigHome>/crossbuild/
func ConfigDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// ConfigFile returns the user config file path.
// Returns: <ConfigHome>/crossbuild/config.yaml
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultTmpDir returns the default root of the build tree.
// Returns: <CacheHome>/crossbuild/tmp/
func DefaultTmpDir() string {
	return filepath.Join(CacheHome(), AppName, "tmp")
}

// WorkingDir returns the process working directory, or "." if it cannot be
// determined.
func WorkingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
