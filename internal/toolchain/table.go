package toolchain

import (
	"bytes"
	_ "embed"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

//go:embed toolchains.toml
var builtin []byte

// Namespaces an assignment can target.
const (
	NamespaceVariable    = "var"
	NamespaceEnvironment = "env"
)

// ErrInvalidTable indicates a toolchain table that cannot be used.
var ErrInvalidTable = errors.New("invalid toolchain table")

// Table is the parsed toolchain data: the supported platforms and the
// ordered sections replayed into a build context.
type Table struct {
	// HostKinds are build kinds that produce tools for the build machine.
	HostKinds []string   `toml:"host_kinds"`
	Platforms []Platform `toml:"platform"`
	Sections  []Section  `toml:"section"`
}

// Platform lists the architectures supported for one platform.
type Platform struct {
	Name  string   `toml:"name"`
	Archs []string `toml:"archs"`
}

// Section is an if/elif chain: the first matching rule applies.
type Section struct {
	Name  string `toml:"name"`
	Rules []Rule `toml:"rule"`
}

// Rule is one branch of a section.
type Rule struct {
	Platforms []string `toml:"platforms"`
	Archs     []string `toml:"archs"`
	Kinds     []string `toml:"kinds"`
	NotKinds  []string `toml:"not_kinds"`
	NotNames  []string `toml:"not_names"`

	// Discover is a path template for an emsdk-style environment tool.
	Discover string `toml:"discover"`

	LLVM *LLVM        `toml:"llvm"`
	Set  []Assignment `toml:"set"`
}

// Assignment stores Value under Name in the variable or environment namespace.
type Assignment struct {
	Namespace string `toml:"ns"`
	Name      string `toml:"name"`
	Value     string `toml:"value"`
}

// Matches reports whether every criterion of the rule holds for t.
// Empty criteria match anything.
func (r *Rule) Matches(t Triple) bool {
	if len(r.Platforms) > 0 && !slices.Contains(r.Platforms, t.Platform) {
		return false
	}
	if len(r.Archs) > 0 && !slices.Contains(r.Archs, t.Arch) {
		return false
	}
	if len(r.Kinds) > 0 && !slices.Contains(r.Kinds, t.Kind) {
		return false
	}
	if slices.Contains(r.NotKinds, t.Kind) {
		return false
	}
	if slices.Contains(r.NotNames, t.Name) {
		return false
	}
	return true
}

// Match returns the index of the first rule in s that matches t, or -1.
func (s *Section) Match(t Triple) int {
	for i := range s.Rules {
		if s.Rules[i].Matches(t) {
			return i
		}
	}
	return -1
}

// Parse decodes a toolchain table. Unknown keys are rejected so that a
// misspelt criterion does not silently match everything.
func Parse(data []byte) (*Table, error) {
	var tbl Table
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tbl); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, errors.Wrapf(ErrInvalidTable, "line %d, column %d: %v", row, col, err)
		}
		return nil, errors.Wrapf(ErrInvalidTable, "%v", err)
	}

	if err := tbl.validate(); err != nil {
		return nil, err
	}
	return &tbl, nil
}

func (tb *Table) validate() error {
	if len(tb.Platforms) == 0 {
		return errors.Wrap(ErrInvalidTable, "no platforms")
	}
	for _, s := range tb.Sections {
		for i, r := range s.Rules {
			for _, a := range r.Set {
				if a.Namespace != NamespaceVariable && a.Namespace != NamespaceEnvironment {
					return errors.Wrapf(ErrInvalidTable, "section %s rule %d: unknown namespace %q for %s",
						s.Name, i, a.Namespace, a.Name)
				}
				if a.Name == "" {
					return errors.Wrapf(ErrInvalidTable, "section %s rule %d: assignment without a name", s.Name, i)
				}
			}
		}
	}
	return nil
}

// Platform returns the named platform entry.
func (tb *Table) Platform(name string) (Platform, bool) {
	for _, p := range tb.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

// IsHostKind reports whether kind builds tools for the build machine.
func (tb *Table) IsHostKind(kind string) bool {
	return slices.Contains(tb.HostKinds, kind)
}

var loadBuiltin = sync.OnceValues(func() (*Table, error) {
	return Parse(builtin)
})

// Builtin returns the table compiled into the binary.
func Builtin() (*Table, error) {
	return loadBuiltin()
}
