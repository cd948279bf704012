package commands

import (
	"context"

	"github.com/thoreinstein/crossbuild/internal/config"
	"github.com/thoreinstein/crossbuild/internal/discovery"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
	"github.com/thoreinstein/crossbuild/internal/toolchain"
)

// build is a configured build context.
type build struct {
	cfg    *config.Config
	table  *toolchain.Table
	triple toolchain.Triple
	store  *expand.Store
}

// selectTriple picks the build context from flags, then config defaults,
// then the machine crossbuild runs on. An arch left open falls back to the
// host arch on the host platform and to the platform's first arch elsewhere.
func selectTriple(cfg *config.Config, tbl *toolchain.Table) toolchain.Triple {
	hostPlatform, hostArch := toolchain.Host()

	t := toolchain.Triple{
		Platform: firstNonEmpty(platformFlag, cfg.Defaults.Platform, hostPlatform),
		Arch:     firstNonEmpty(archFlag, cfg.Defaults.Arch),
		Kind:     firstNonEmpty(kindFlag, cfg.Defaults.Kind, toolchain.KindTarget),
		Name:     nameFlag,
	}
	if t.Arch == "" {
		if t.Platform == hostPlatform {
			t.Arch = hostArch
		} else if p, ok := tbl.Platform(t.Platform); ok && len(p.Archs) > 0 {
			t.Arch = p.Archs[0]
		}
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// overlays converts config overlays into toolchain assignments.
func overlays(cfg *config.Config) []toolchain.Assignment {
	out := make([]toolchain.Assignment, len(cfg.Overlays))
	for i, o := range cfg.Overlays {
		out[i] = toolchain.Assignment(o)
	}
	return out
}

// configureBuild creates a store over the process environment and configures
// it for the selected build context.
func configureBuild(ctx context.Context) (*build, error) {
	cfg := currentConfig()

	tbl, err := toolchain.Builtin()
	if err != nil {
		return nil, errors.NewSystemError(err, "The builtin toolchain table is damaged; reinstall crossbuild")
	}

	t := selectTriple(cfg, tbl)
	if err := tbl.ValidateTriple(t); err != nil {
		return nil, errors.NewUserError(err, "Run: crossbuild platforms")
	}

	s := expand.FromOS()
	s.SetLogger(logging.FromContext(ctx))

	opts := toolchain.Options{
		Paths:    toolchain.Paths(cfg.Paths),
		Jobs:     cfg.Jobs,
		Overlays: overlays(cfg),
	}
	if err := tbl.Configure(ctx, s, t, opts); err != nil {
		if errors.Is(err, discovery.ErrDiscoveryFailed) {
			return nil, errors.NewSystemError(err, "Check the emsdk installation in the cross directory")
		}
		return nil, errors.NewUserError(err, "Run: crossbuild doctor")
	}

	logging.FromContext(ctx).Debug("configured build context", "triple", t.String())
	return &build{cfg: cfg, table: tbl, triple: t, store: s}, nil
}
