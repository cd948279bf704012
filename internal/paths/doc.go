// Package paths resolves the directories crossbuild reads from and builds into.
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// compliance. Configuration lives under [ConfigDir] and the default build tree
// under [DefaultTmpDir]:
//
//	~/.config/crossbuild/config.yaml
//	~/.cache/crossbuild/tmp/
//	    host/                      shared host tools
//	    install.<platform>-<arch>/ per-target install prefix
//	    cross.<platform>-<arch>/   per-target SDKs (sdk/, emsdk, llvm-mingw/)
//
// The per-target directories are templates ([DefaultInstallTemplate] and
// friends) expanded against the build context, not fixed paths.
package paths
