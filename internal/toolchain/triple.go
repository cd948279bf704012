package toolchain

import (
	"runtime"
	"slices"
	"strings"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// ErrUnknownTriple indicates a platform/arch pair the table does not support.
var ErrUnknownTriple = errors.New("unknown platform or architecture")

// KindTarget is the default build kind: a library cross-compiled for the
// selected platform.
const KindTarget = "target"

// Triple identifies a build context.
type Triple struct {
	Platform string
	Arch     string
	Kind     string

	// Name is the task name. It appears in diagnostics and can exclude rules.
	Name string
}

// String renders the triple as platform-arch/kind.
func (t Triple) String() string {
	var sb strings.Builder
	sb.WriteString(t.Platform)
	sb.WriteByte('-')
	sb.WriteString(t.Arch)
	if t.Kind != "" {
		sb.WriteByte('/')
		sb.WriteString(t.Kind)
	}
	return sb.String()
}

// Validate checks the triple against the builtin table.
func (t Triple) Validate() error {
	tbl, err := Builtin()
	if err != nil {
		return err
	}
	return tbl.ValidateTriple(t)
}

// ValidateTriple checks that t names a supported platform/arch pair and a kind.
func (tb *Table) ValidateTriple(t Triple) error {
	p, ok := tb.Platform(t.Platform)
	if !ok {
		return errors.Wrapf(ErrUnknownTriple, "platform %q", t.Platform)
	}
	if !slices.Contains(p.Archs, t.Arch) {
		return errors.Wrapf(ErrUnknownTriple, "arch %q for %s (supported: %s)",
			t.Arch, t.Platform, strings.Join(p.Archs, ", "))
	}
	if t.Kind == "" {
		return errors.Wrap(errors.ErrInvalidArgument, "build kind is required")
	}
	return nil
}

// Triples lists every supported platform/arch pair, in table order.
// Kind and Name are left empty.
func (tb *Table) Triples() []Triple {
	var out []Triple
	for _, p := range tb.Platforms {
		for _, a := range p.Archs {
			out = append(out, Triple{Platform: p.Name, Arch: a})
		}
	}
	return out
}

// Triples lists the pairs of the builtin table.
func Triples() ([]Triple, error) {
	tbl, err := Builtin()
	if err != nil {
		return nil, err
	}
	return tbl.Triples(), nil
}

// Host returns the platform and arch names of the machine crossbuild runs on,
// or empty strings when it has no entry in the table's vocabulary.
func Host() (platform, arch string) {
	return hostFor(runtime.GOOS, runtime.GOARCH)
}

func hostFor(goos, goarch string) (platform, arch string) {
	switch goos {
	case "linux":
		platform = "linux"
		arch = map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "i686", "arm": "armv7l"}[goarch]
	case "windows":
		platform = "windows"
		arch = map[string]string{"amd64": "x86_64", "386": "i686"}[goarch]
	case "darwin":
		platform = "mac"
		arch = map[string]string{"amd64": "x86_64", "arm64": "arm64"}[goarch]
	default:
		return "", ""
	}
	if arch == "" {
		return "", ""
	}
	return platform, arch
}

// BuildPlatform returns the GNU triple of the build machine, used for
// --build= in autoconf cross configuration.
func BuildPlatform() string {
	return buildPlatformFor(runtime.GOOS, runtime.GOARCH)
}

func buildPlatformFor(goos, goarch string) string {
	cpu := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
		"arm":   "arm",
	}[goarch]
	if cpu == "" {
		cpu = goarch
	}

	switch goos {
	case "linux":
		if cpu == "arm" {
			return "arm-unknown-linux-gnueabihf"
		}
		return cpu + "-pc-linux-gnu"
	case "darwin":
		return cpu + "-apple-darwin"
	case "windows":
		return cpu + "-w64-mingw32"
	default:
		return cpu + "-unknown-" + goos
	}
}
