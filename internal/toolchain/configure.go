package toolchain

import (
	"context"
	"runtime"
	"strconv"

	"github.com/thoreinstein/crossbuild/internal/discovery"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
	"github.com/thoreinstein/crossbuild/internal/paths"
)

// Paths holds the build-tree roots. Install, Host and Cross are templates
// expanded against the platform, arch and tmp scalars.
type Paths struct {
	Tmp     string
	Install string
	Host    string
	Cross   string
}

// Options controls Configure.
type Options struct {
	Paths Paths

	// Cwd is the directory children are spawned in. Empty means the process
	// working directory.
	Cwd string

	// Jobs is the make -j value. 0 derives it from the CPU count.
	Jobs int

	// BuildPlatform overrides the detected GNU triple of the build machine.
	BuildPlatform string

	// Overlays are applied after the table, in order.
	Overlays []Assignment

	// Discovery caches emsdk-style environment tools. Nil uses discovery.Default().
	Discovery *discovery.Cache
}

// MakeJobs returns the parallelism for make. A positive jobs value is used
// as is; otherwise the CPU count, less four on machines with more than twelve.
func MakeJobs(jobs int) int {
	if jobs > 0 {
		return jobs
	}
	cpus := runtime.NumCPU()
	if cpus > 12 {
		cpus -= 4
	}
	return cpus
}

// Configure populates s for t using the builtin table.
func Configure(ctx context.Context, s *expand.Store, t Triple, opts Options) error {
	tbl, err := Builtin()
	if err != nil {
		return err
	}
	return tbl.Configure(ctx, s, t, opts)
}

// Configure seeds the context scalars of s, sets the computed variables, and
// replays every section of the table, then the overlays in opts.
func (tb *Table) Configure(ctx context.Context, s *expand.Store, t Triple, opts Options) error {
	if err := tb.ValidateTriple(t); err != nil {
		return err
	}

	logger := logging.FromContext(ctx).With("triple", t.String())

	if err := seedScalars(s, t, opts); err != nil {
		return errors.Wrap(err, "seeding build context")
	}

	build := opts.BuildPlatform
	if build == "" {
		build = BuildPlatform()
	}
	computed := []Assignment{
		{NamespaceVariable, "make", "nice make -j " + strconv.Itoa(MakeJobs(opts.Jobs))},
		{NamespaceVariable, "build_platform", build},
	}
	if err := assignAll(s, computed); err != nil {
		return err
	}

	for i := range tb.Sections {
		sec := &tb.Sections[i]
		n := sec.Match(t)
		if n < 0 {
			logger.Log(ctx, logging.LevelTrace, "no rule matched", "section", sec.Name)
			continue
		}
		logger.Debug("applying rule", "section", sec.Name, "rule", n)
		if err := applyRule(ctx, s, t, &sec.Rules[n], opts); err != nil {
			return errors.Wrapf(err, "section %s", sec.Name)
		}
	}

	if err := assignAll(s, opts.Overlays); err != nil {
		return errors.Wrap(err, "applying overlays")
	}
	return nil
}

func seedScalars(s *expand.Store, t Triple, opts Options) error {
	cwd := opts.Cwd
	if cwd == "" {
		cwd = paths.WorkingDir()
	}
	p := withDefaults(opts.Paths)

	literal := [][2]string{
		{expand.ScalarPlatform, t.Platform},
		{expand.ScalarArch, t.Arch},
		{expand.ScalarKind, t.Kind},
		{expand.ScalarName, t.Name},
		{expand.ScalarCwd, cwd},
		{expand.ScalarTmp, p.Tmp},
	}
	for _, kv := range literal {
		if err := s.SetScalar(kv[0], kv[1]); err != nil {
			return err
		}
	}

	templated := [][2]string{
		{expand.ScalarInstall, p.Install},
		{expand.ScalarHost, p.Host},
		{expand.ScalarCross, p.Cross},
	}
	for _, kv := range templated {
		v, err := s.Path(kv[1])
		if err != nil {
			return errors.Wrapf(err, "resolving %s path", kv[0])
		}
		if err := s.SetScalar(kv[0], v.String()); err != nil {
			return err
		}
	}
	return nil
}

func withDefaults(p Paths) Paths {
	if p.Tmp == "" {
		p.Tmp = paths.DefaultTmpDir()
	}
	if p.Install == "" {
		p.Install = paths.DefaultInstallTemplate
	}
	if p.Host == "" {
		p.Host = paths.DefaultHostTemplate
	}
	if p.Cross == "" {
		p.Cross = paths.DefaultCrossTemplate
	}
	return p
}

func applyRule(ctx context.Context, s *expand.Store, t Triple, r *Rule, opts Options) error {
	if r.Discover != "" {
		tool, err := s.Path(r.Discover)
		if err != nil {
			return errors.Wrap(err, "resolving discovery tool")
		}
		cache := opts.Discovery
		if cache == nil {
			cache = discovery.Default()
		}
		if err := discovery.Apply(ctx, s, cache, tool.String()); err != nil {
			return err
		}
	}

	if r.LLVM != nil {
		if err := assignAll(s, r.LLVM.Assignments(t.Platform)); err != nil {
			return err
		}
	}

	return assignAll(s, r.Set)
}

// Assign replays one assignment through the store.
func Assign(s *expand.Store, a Assignment) error {
	switch a.Namespace {
	case NamespaceVariable:
		return s.SetVariable(a.Name, a.Value)
	case NamespaceEnvironment:
		return s.SetEnvironment(a.Name, a.Value)
	default:
		return errors.Wrapf(errors.ErrInvalidArgument, "unknown namespace %q for %s", a.Namespace, a.Name)
	}
}

func assignAll(s *expand.Store, as []Assignment) error {
	for _, a := range as {
		if err := Assign(s, a); err != nil {
			return err
		}
	}
	return nil
}
