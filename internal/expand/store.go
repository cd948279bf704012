package expand

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/logging"
)

// Scalar names seeded by the configurator. Scalars are literal strings
// consulted by templates; they are never expanded themselves.
const (
	ScalarPlatform = "platform"
	ScalarArch     = "arch"
	ScalarKind     = "kind"
	ScalarName     = "name"
	ScalarCwd      = "cwd"
	ScalarTmp      = "tmp"
	ScalarInstall  = "install"
	ScalarHost     = "host"
	ScalarCross    = "cross"
)

// entry is a stored value. Flattened self-extensions are literal so that a
// brace sequence coming from the inherited environment is not re-expanded.
type entry struct {
	value   string
	literal bool
}

// Store holds the two template namespaces of a build context and resolves
// templates against them.
//
// Lookup order for a placeholder is environment, variables, scalars, and
// finally the inherited process environment.
type Store struct {
	variables   map[string]entry
	environment map[string]entry
	scalars     map[string]string
	external    map[string]string

	frozen atomic.Int32
	logger *slog.Logger
}

// New creates an empty store over the given inherited environment.
// The map is copied; later changes to it are not observed.
func New(external map[string]string) *Store {
	ext := maps.Clone(external)
	if ext == nil {
		ext = make(map[string]string)
	}
	return &Store{
		variables:   make(map[string]entry),
		environment: make(map[string]entry),
		scalars:     make(map[string]string),
		external:    ext,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// FromOS creates an empty store over the current process environment.
func FromOS() *Store {
	return New(ParseEnviron(os.Environ()))
}

// ParseEnviron converts KEY=VALUE pairs into a map. Later duplicates win.
// Entries without a key (such as Windows' "=C:" drive entries) are skipped.
func ParseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// SetLogger sets the logger used for trace output. A nil logger disables it.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s.logger = logger
}

// SetVariable stores a build-local template.
//
// The template is not validated. If it references name itself, it is expanded
// immediately against the current state and the flat result is stored.
func (s *Store) SetVariable(name, template string) error {
	return s.set(s.variables, "var", name, template)
}

// SetEnvironment stores a template destined for the child environment block.
// Self-references are flattened exactly as in SetVariable, so
// SetEnvironment("PATH", "/opt/bin:{{ PATH }}") prepends to the inherited PATH.
func (s *Store) SetEnvironment(name, template string) error {
	return s.set(s.environment, "env", name, template)
}

func (s *Store) set(ns map[string]entry, kind, name, template string) error {
	if s.frozen.Load() > 0 {
		return errors.Wrapf(ErrFrozen, "setting %s %s", kind, name)
	}
	if name == "" {
		return errors.New("empty name")
	}

	if !References(template, name) {
		ns[name] = entry{value: template}
		return nil
	}

	flat, err := s.Expand(template)
	if err != nil {
		return errors.Wrapf(err, "extending %s %s", kind, name)
	}
	s.logger.Log(context.Background(), logging.LevelTrace, "flattened self-extension", "ns", kind, "name", name, "value", flat)
	ns[name] = entry{value: flat, literal: true}
	return nil
}

// SetScalar sets a literal context value such as platform or cwd.
func (s *Store) SetScalar(name, value string) error {
	if s.frozen.Load() > 0 {
		return errors.Wrapf(ErrFrozen, "setting scalar %s", name)
	}
	s.scalars[name] = value
	return nil
}

// Scalar returns a context value, or "" when unset.
func (s *Store) Scalar(name string) string {
	return s.scalars[name]
}

// Cwd returns the working directory children are spawned in.
func (s *Store) Cwd() string {
	return s.scalars[ScalarCwd]
}

// Name returns the task name used in diagnostics.
func (s *Store) Name() string {
	return s.scalars[ScalarName]
}

// Raw returns the stored template for name, using the same namespace
// precedence as expansion.
func (s *Store) Raw(name string) (string, bool) {
	if e, ok := s.environment[name]; ok {
		return e.value, true
	}
	if e, ok := s.variables[name]; ok {
		return e.value, true
	}
	return "", false
}

// Variables returns a copy of the raw variable templates.
func (s *Store) Variables() map[string]string {
	return rawValues(s.variables)
}

// Environment returns a copy of the raw environment templates.
func (s *Store) Environment() map[string]string {
	return rawValues(s.environment)
}

func rawValues(ns map[string]entry) map[string]string {
	out := make(map[string]string, len(ns))
	for k, e := range ns {
		out[k] = e.value
	}
	return out
}

// EnvironmentBlock returns the exact environment for a child process: a copy
// of the inherited environment overlaid with every expanded environment entry.
func (s *Store) EnvironmentBlock() (map[string]string, error) {
	block := maps.Clone(s.external)
	for _, name := range slices.Sorted(maps.Keys(s.environment)) {
		v, err := s.Expand("{{" + name + "}}")
		if err != nil {
			return nil, errors.Wrapf(err, "expanding env %s", name)
		}
		block[name] = v
	}
	return block, nil
}

// Environ returns EnvironmentBlock as sorted KEY=VALUE pairs for os/exec.
func (s *Store) Environ() ([]string, error) {
	block, err := s.EnvironmentBlock()
	if err != nil {
		return nil, err
	}
	environ := make([]string, 0, len(block))
	for _, k := range slices.Sorted(maps.Keys(block)) {
		environ = append(environ, k+"="+block[k])
	}
	return environ, nil
}

// Freeze rejects writes until a matching Thaw. Freezes nest.
func (s *Store) Freeze() {
	s.frozen.Add(1)
}

// Thaw releases one Freeze.
func (s *Store) Thaw() {
	for {
		n := s.frozen.Load()
		if n <= 0 || s.frozen.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// Frozen reports whether writes are currently rejected.
func (s *Store) Frozen() bool {
	return s.frozen.Load() > 0
}

// Path is an expanded, cleaned filesystem path.
type Path string

// Path expands template and cleans the result.
func (s *Store) Path(template string) (Path, error) {
	v, err := s.Expand(template)
	if err != nil {
		return "", err
	}
	return Path(filepath.Clean(v)), nil
}

// Exists reports whether the path exists.
func (p Path) Exists() bool {
	_, err := os.Stat(string(p))
	return err == nil
}

// Join appends path elements.
func (p Path) Join(elem ...string) Path {
	return Path(filepath.Join(append([]string{string(p)}, elem...)...))
}

func (p Path) String() string {
	return string(p)
}
