// Package config provides configuration management for crossbuild using Viper.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/paths"
)

// EnvPrefix is the prefix for environment overrides, e.g. CROSSBUILD_PATHS_TMP.
const EnvPrefix = "CROSSBUILD"

// Namespaces accepted in overlay entries.
const (
	NamespaceVariable    = "var"
	NamespaceEnvironment = "env"
)

// Config represents the top-level configuration structure.
type Config struct {
	Version  int      `mapstructure:"version" yaml:"version"`
	Paths    Paths    `mapstructure:"paths" yaml:"paths"`
	Defaults Defaults `mapstructure:"defaults" yaml:"defaults"`

	// Jobs is the make -j value. 0 derives it from the CPU count.
	Jobs int `mapstructure:"jobs" yaml:"jobs"`

	// Parallel caps concurrently running children in a run group. 0 is unlimited.
	Parallel int `mapstructure:"parallel" yaml:"parallel"`

	// Overlays are replayed through the store after the toolchain table, in order.
	Overlays []Overlay `mapstructure:"overlays" yaml:"overlays,omitempty"`
}

// Paths holds the build-tree roots. Install, Host and Cross are templates
// that may reference {{ tmp }}, {{ platform }} and {{ arch }}.
type Paths struct {
	Tmp     string `mapstructure:"tmp" yaml:"tmp"`
	Install string `mapstructure:"install" yaml:"install"`
	Host    string `mapstructure:"host" yaml:"host"`
	Cross   string `mapstructure:"cross" yaml:"cross"`
}

// Defaults selects the build context when no flags are given.
// An empty platform or arch means the machine crossbuild runs on.
type Defaults struct {
	Platform string `mapstructure:"platform" yaml:"platform"`
	Arch     string `mapstructure:"arch" yaml:"arch"`
	Kind     string `mapstructure:"kind" yaml:"kind"`
}

// Overlay is a user assignment layered on top of the toolchain table.
// It is a list entry rather than a map key because Viper lowercases keys,
// and environment names are case-sensitive.
type Overlay struct {
	Namespace string `mapstructure:"ns" yaml:"ns"`
	Name      string `mapstructure:"name" yaml:"name"`
	Value     string `mapstructure:"value" yaml:"value"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("version", 1)
	viper.SetDefault("paths.tmp", paths.DefaultTmpDir())
	viper.SetDefault("paths.install", paths.DefaultInstallTemplate)
	viper.SetDefault("paths.host", paths.DefaultHostTemplate)
	viper.SetDefault("paths.cross", paths.DefaultCrossTemplate)
	viper.SetDefault("defaults.platform", "")
	viper.SetDefault("defaults.arch", "")
	viper.SetDefault("defaults.kind", "target")
	viper.SetDefault("jobs", 0)
	viper.SetDefault("parallel", 0)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// defaults when no file is found.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// Implicit load without a file uses defaults.
		case path != "" && isNotExist(err):
			return nil, errors.Wrapf(errors.ErrNotFound, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errs[0], "validating config")
	}

	return &cfg, nil
}

// FileUsed returns the config file that was read, or "" when running on defaults.
func FileUsed() string {
	return viper.ConfigFileUsed()
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: 1,
		Paths: Paths{
			Tmp:     paths.DefaultTmpDir(),
			Install: paths.DefaultInstallTemplate,
			Host:    paths.DefaultHostTemplate,
			Cross:   paths.DefaultCrossTemplate,
		},
		Defaults: Defaults{Kind: "target"},
	}
}
