package toolchain

import "strings"

// DefaultLLVMSuffix is the version suffix of the system LLVM tools.
const DefaultLLVMSuffix = "-15"

// LLVM describes a clang-based toolchain. It expands into the standard
// compiler and binutils environment entries.
type LLVM struct {
	// Bin is the directory holding the tools. Empty means PATH lookup.
	Bin string `toml:"bin"`

	// Prefix is prepended to clang, clang++ and windres, e.g. an NDK target.
	Prefix string `toml:"prefix"`

	// Suffix is appended to every tool name. Nil means DefaultLLVMSuffix.
	Suffix *string `toml:"suffix"`

	ClangArgs string `toml:"clang_args"`

	// UseLD links with lld. Nil means true.
	UseLD *bool `toml:"use_ld"`
}

// Assignments returns the variable and environment assignments for the
// toolchain on the given platform, in replay order.
func (l *LLVM) Assignments(platform string) []Assignment {
	bin := l.Bin
	if bin != "" && !strings.HasSuffix(bin, "/") {
		bin += "/"
	}

	suffix := DefaultLLVMSuffix
	if l.Suffix != nil {
		suffix = *l.Suffix
	}

	clangArgs := l.ClangArgs
	if l.UseLD == nil || *l.UseLD {
		clangArgs = "-fuse-ld=lld -Wno-unused-command-line-argument " + clangArgs
	}

	var cxxArgs string
	switch platform {
	case "ios":
		cxxArgs = "-stdlib=libc++ -I{{ cross }}/sdk/usr/include/c++"
	case "mac":
		cxxArgs = "-stdlib=libc++"
	}

	out := []Assignment{
		{NamespaceVariable, "llvm_bin", bin},
		{NamespaceVariable, "llvm_prefix", l.Prefix},
		{NamespaceVariable, "llvm_suffix", suffix},
		{NamespaceVariable, "cxx_clang_args", cxxArgs},
		{NamespaceVariable, "clang_args", clangArgs},
		{NamespaceEnvironment, "CC", "ccache {{ llvm_bin }}{{ llvm_prefix }}clang{{ llvm_suffix }} {{ clang_args }} -std=gnu17"},
		{NamespaceEnvironment, "CXX", "ccache {{ llvm_bin }}{{ llvm_prefix }}clang++{{ llvm_suffix }} {{ clang_args }} -std=gnu++17 {{ cxx_clang_args }}"},
		{NamespaceEnvironment, "CPP", "ccache {{ llvm_bin }}{{ llvm_prefix }}clang{{ llvm_suffix }} {{ clang_args }} -E"},
		{NamespaceEnvironment, "AR", "ccache {{ llvm_bin }}llvm-ar{{ llvm_suffix }}"},
		{NamespaceEnvironment, "RANLIB", "ccache {{ llvm_bin }}llvm-ranlib{{ llvm_suffix }}"},
		{NamespaceEnvironment, "STRIP", "ccache {{ llvm_bin }}llvm-strip{{ llvm_suffix }}"},
		{NamespaceEnvironment, "NM", "ccache {{ llvm_bin }}llvm-nm{{ llvm_suffix }}"},
		{NamespaceEnvironment, "READELF", "ccache {{ llvm_bin }}llvm-readelf{{ llvm_suffix }}"},
		{NamespaceEnvironment, "WINDRES", "{{ llvm_bin }}{{ llvm_prefix }}windres{{ llvm_suffix }}"},
	}
	if platform == "windows" {
		out = append(out, Assignment{NamespaceEnvironment, "RC", "{{ WINDRES }}"})
	}
	return out
}
