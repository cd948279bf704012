// Package toolchain populates a build context with compiler paths, flags and
// cross-compilation settings for a (platform, arch, kind) triple.
//
// The rules are data. An embedded TOML table lists the supported platforms
// and an ordered set of sections; each section is a chain of rules of which
// the first match applies. Matched assignments are replayed through
// [expand.Store.SetVariable] and [expand.Store.SetEnvironment], so later
// sections can extend values set by earlier ones:
//
//	[[section.rule]]
//	platforms = ["android"]
//	set = [{ ns = "env", name = "CFLAGS", value = "{{ CFLAGS }} -DSDL_MAIN_HANDLED" }]
//
// A rule may also name an environment discovery tool (emsdk). Its exports are
// loaded through the discovery package, which runs the tool once per process.
package toolchain
