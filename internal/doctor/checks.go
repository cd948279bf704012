package doctor

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/thoreinstein/crossbuild/internal/config"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/toolchain"
)

// Build is the configured context the toolchain checks inspect.
type Build struct {
	Store  *expand.Store
	Triple toolchain.Triple
	Table  *toolchain.Table
}

// ToolVariables are the environment entries holding tool command lines.
var ToolVariables = []string{"CC", "CXX", "CPP", "AR", "RANLIB", "STRIP", "NM", "READELF"}

// ConfigCheck validates the loaded configuration.
type ConfigCheck struct {
	cfg     *config.Config
	file    string
	loadErr error
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck creates a config check. file is the config file in use,
// empty when running on defaults.
func NewConfigCheck(cfg *config.Config, file string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, file: file}
}

// NewConfigLoadCheck creates a config check for a file that failed to load.
func NewConfigLoadCheck(file string, err error) *ConfigCheck {
	return &ConfigCheck{file: file, loadErr: err}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string {
	return "config"
}

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string {
	return "config"
}

// Run validates the configuration.
func (c *ConfigCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	if c.loadErr != nil {
		result.Status = SeverityError
		result.Message = c.loadErr.Error()
		result.FixHint = "Edit " + c.displayFile()
		return result
	}

	if errs := config.Validate(c.cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d configuration problem(s)", len(errs))
		result.Details = map[string]any{"problems": msgs}
		result.FixHint = "Edit " + c.displayFile()
		return result
	}

	if c.file == "" {
		result.Status = SeverityInfo
		result.Message = "no config file, using defaults"
		return result
	}

	result.Status = SeverityPass
	result.Message = "configuration is valid"
	result.Details = map[string]any{"file": c.file}
	return result
}

func (c *ConfigCheck) displayFile() string {
	if c.file == "" {
		return "config.yaml"
	}
	return c.file
}

// ExpansionCheck expands every variable and environment entry of the build.
type ExpansionCheck struct {
	build Build
}

var _ Check = (*ExpansionCheck)(nil)

// NewExpansionCheck creates an expansion check.
func NewExpansionCheck(b Build) *ExpansionCheck {
	return &ExpansionCheck{build: b}
}

// Name returns the unique identifier for this check.
func (c *ExpansionCheck) Name() string {
	return "expansion"
}

// Category returns the grouping for this check.
func (c *ExpansionCheck) Category() string {
	return "toolchain"
}

// Run expands each stored template and reports the ones that fail.
func (c *ExpansionCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}
	s := c.build.Store

	all := s.Variables()
	maps.Copy(all, s.Environment())
	names := slices.Sorted(maps.Keys(all))

	failures := map[string]any{}
	for _, name := range names {
		if _, err := s.Expand("{{ " + name + " }}"); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d of %d templates do not expand", len(failures), len(names))
		result.Details = failures
		result.FixHint = "Define the missing names in overlays or the environment"
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d templates expand for %s", len(names), c.build.Triple)
	return result
}

// ToolCheck looks up the compilers and binutils on the build's PATH.
type ToolCheck struct {
	build Build
}

var _ Check = (*ToolCheck)(nil)

// NewToolCheck creates a tool check.
func NewToolCheck(b Build) *ToolCheck {
	return &ToolCheck{build: b}
}

// Name returns the unique identifier for this check.
func (c *ToolCheck) Name() string {
	return "tools"
}

// Category returns the grouping for this check.
func (c *ToolCheck) Category() string {
	return "toolchain"
}

// Run resolves the program of each tool variable.
func (c *ToolCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}
	s := c.build.Store

	block, err := s.EnvironmentBlock()
	if err != nil {
		result.Status = SeverityError
		result.Message = "environment does not expand"
		result.Details = map[string]any{"error": err.Error()}
		return result
	}
	searchPath := filepath.SplitList(block["PATH"])

	configured := s.Environment()
	found := map[string]any{}
	var missing []string
	for _, name := range ToolVariables {
		if _, ok := configured[name]; !ok {
			continue
		}
		line := block[name]
		for _, prog := range programs(line) {
			if path, ok := lookPath(prog, searchPath); ok {
				found[prog] = path
			} else if !slices.Contains(missing, prog) {
				missing = append(missing, prog)
			}
		}
	}

	if len(missing) > 0 {
		result.Status = SeverityWarning
		result.Message = "not found: " + strings.Join(missing, ", ")
		result.Details = found
		result.FixHint = "Install the toolchain or extend PATH through an env overlay"
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d tools found", len(found))
	result.Details = found
	return result
}

// programs returns the executables a tool command line runs: a ccache
// wrapper, if any, and the tool itself.
func programs(line string) []string {
	words, err := shellquote.Split(line)
	if err != nil || len(words) == 0 {
		return nil
	}
	if filepath.Base(words[0]) == "ccache" && len(words) > 1 {
		return words[:2]
	}
	return words[:1]
}

func lookPath(prog string, dirs []string) (string, bool) {
	if strings.ContainsRune(prog, filepath.Separator) {
		return prog, isExecutable(prog)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, prog)
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0
}

// DirectoryCheck verifies the build-tree roots exist. Missing tmp, install
// and host directories can be created with --fix.
type DirectoryCheck struct {
	dirFixer
	build Build
}

var (
	_ Check = (*DirectoryCheck)(nil)
	_ Fixer = (*DirectoryCheck)(nil)
)

// NewDirectoryCheck creates a directory check.
func NewDirectoryCheck(b Build) *DirectoryCheck {
	return &DirectoryCheck{build: b}
}

// Name returns the unique identifier for this check.
func (c *DirectoryCheck) Name() string {
	return "directories"
}

// Category returns the grouping for this check.
func (c *DirectoryCheck) Category() string {
	return "filesystem"
}

// Run checks tmp, install, host and cross.
func (c *DirectoryCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}
	s := c.build.Store
	c.missing = nil

	details := map[string]any{}
	for _, name := range []string{expand.ScalarTmp, expand.ScalarInstall, expand.ScalarHost} {
		dir := s.Scalar(name)
		details[name] = dir
		if !expand.Path(dir).Exists() {
			c.missing = append(c.missing, dir)
		}
	}

	cross := s.Scalar(expand.ScalarCross)
	details[expand.ScalarCross] = cross
	crossMissing := c.needsCross() && !expand.Path(cross).Exists()

	switch {
	case len(c.missing) > 0:
		result.Status = SeverityWarning
		result.Message = "missing: " + strings.Join(c.missing, ", ")
		result.Fixable = true
		result.FixHint = "Run: crossbuild doctor --fix"
	case crossMissing:
		result.Status = SeverityWarning
		result.Message = "cross toolchain directory not found: " + cross
		result.FixHint = "Unpack the SDK for " + c.build.Triple.Platform + " into " + cross
	default:
		result.Status = SeverityPass
		result.Message = "build directories present"
	}
	result.Details = details
	return result
}

// needsCross reports whether the build reads SDKs from the cross directory.
// Linux targets and host builds use the system toolchain.
func (c *DirectoryCheck) needsCross() bool {
	t := c.build.Triple
	if c.build.Table != nil && c.build.Table.IsHostKind(t.Kind) {
		return false
	}
	return t.Platform != "linux"
}

// DiscoveryCheck verifies that the emscripten SDK tool is installed for web
// targets.
type DiscoveryCheck struct {
	build Build
}

var _ Check = (*DiscoveryCheck)(nil)

// NewDiscoveryCheck creates a discovery check.
func NewDiscoveryCheck(b Build) *DiscoveryCheck {
	return &DiscoveryCheck{build: b}
}

// Name returns the unique identifier for this check.
func (c *DiscoveryCheck) Name() string {
	return "emsdk"
}

// Category returns the grouping for this check.
func (c *DiscoveryCheck) Category() string {
	return "toolchain"
}

// Run looks for the discovery tool named by the matching table rule.
func (c *DiscoveryCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	tool := c.tool()
	if tool == "" {
		result.Status = SeverityInfo
		result.Message = "no environment discovery for " + c.build.Triple.String()
		return result
	}

	path, err := c.build.Store.Path(tool)
	if err != nil {
		result.Status = SeverityError
		result.Message = err.Error()
		return result
	}

	result.Details = map[string]any{"tool": path.String()}
	if !path.Exists() {
		result.Status = SeverityWarning
		result.Message = "emsdk not found at " + path.String()
		result.FixHint = "Install emsdk into " + filepath.Dir(path.String())
		return result
	}

	result.Status = SeverityPass
	result.Message = "emsdk present"
	return result
}

func (c *DiscoveryCheck) tool() string {
	if c.build.Table == nil {
		return ""
	}
	for i := range c.build.Table.Sections {
		sec := &c.build.Table.Sections[i]
		if n := sec.Match(c.build.Triple); n >= 0 && sec.Rules[n].Discover != "" {
			return sec.Rules[n].Discover
		}
	}
	return ""
}

// FailedCheck reports an error that kept the other checks from running,
// such as a build context that could not be configured.
type FailedCheck struct {
	name     string
	category string
	err      error
	hint     string
}

var _ Check = (*FailedCheck)(nil)

// NewFailedCheck creates a check that always reports err.
func NewFailedCheck(name, category string, err error, hint string) *FailedCheck {
	return &FailedCheck{name: name, category: category, err: err, hint: hint}
}

// Name returns the unique identifier for this check.
func (c *FailedCheck) Name() string {
	return c.name
}

// Category returns the grouping for this check.
func (c *FailedCheck) Category() string {
	return c.category
}

// Run reports the error.
func (c *FailedCheck) Run() *CheckResult {
	return &CheckResult{
		Name:     c.name,
		Category: c.category,
		Status:   SeverityError,
		Message:  c.err.Error(),
		FixHint:  c.hint,
	}
}
