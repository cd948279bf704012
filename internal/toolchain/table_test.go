package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	tbl, err := Builtin()
	require.NoError(t, err)

	assert.NotEmpty(t, tbl.Sections)
	assert.True(t, tbl.IsHostKind("host-python"))
	assert.False(t, tbl.IsHostKind(KindTarget))

	p, ok := tbl.Platform("android")
	require.True(t, ok)
	assert.Equal(t, []string{"x86_64", "arm64_v8a", "armeabi_v7a"}, p.Archs)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[[platform]\nname = 1"},
		{"unknown key", "[[platform]]\nname = \"linux\"\narchs = [\"x86_64\"]\n[[section]]\nname = \"a\"\n[[section.rule]]\nplatfroms = [\"linux\"]\n"},
		{"no platforms", "[[section]]\nname = \"a\"\n"},
		{"bad namespace", "[[platform]]\nname = \"linux\"\narchs = [\"x86_64\"]\n[[section]]\nname = \"a\"\n[[section.rule]]\nset = [{ ns = \"scalar\", name = \"x\", value = \"y\" }]\n"},
		{"missing name", "[[platform]]\nname = \"linux\"\narchs = [\"x86_64\"]\n[[section]]\nname = \"a\"\n[[section.rule]]\nset = [{ ns = \"var\", value = \"y\" }]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestRule_Matches(t *testing.T) {
	linux := Triple{Platform: "linux", Arch: "x86_64", Kind: KindTarget, Name: "zlib"}

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"empty matches anything", Rule{}, true},
		{"platform", Rule{Platforms: []string{"linux", "mac"}}, true},
		{"other platform", Rule{Platforms: []string{"mac"}}, false},
		{"arch", Rule{Archs: []string{"aarch64"}}, false},
		{"kind", Rule{Kinds: []string{"host"}}, false},
		{"not kind", Rule{NotKinds: []string{KindTarget}}, false},
		{"not kind other", Rule{NotKinds: []string{"host"}}, true},
		{"not name", Rule{NotNames: []string{"zlib"}}, false},
		{"all criteria", Rule{Platforms: []string{"linux"}, Archs: []string{"x86_64"}, NotNames: []string{"web"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(linux))
		})
	}
}

func TestSection_MatchFirstWins(t *testing.T) {
	s := Section{Rules: []Rule{
		{Platforms: []string{"ios"}},
		{Platforms: []string{"linux"}},
		{},
	}}

	assert.Equal(t, 1, s.Match(Triple{Platform: "linux"}))
	assert.Equal(t, 0, s.Match(Triple{Platform: "ios"}))
	assert.Equal(t, 2, s.Match(Triple{Platform: "web"}))
	assert.Equal(t, -1, (&Section{}).Match(Triple{Platform: "web"}))
}

func TestLLVM_Assignments(t *testing.T) {
	empty := ""
	noLD := false

	tests := []struct {
		name     string
		llvm     LLVM
		platform string
		wantVars map[string]string
		wantRC   bool
	}{
		{
			name:     "defaults",
			llvm:     LLVM{ClangArgs: "-fPIC"},
			platform: "linux",
			wantVars: map[string]string{
				"llvm_bin":       "",
				"llvm_suffix":    "-15",
				"clang_args":     "-fuse-ld=lld -Wno-unused-command-line-argument -fPIC",
				"cxx_clang_args": "",
			},
		},
		{
			name:     "mingw",
			llvm:     LLVM{Bin: "/x/bin", Prefix: "x86_64-w64-mingw32-", Suffix: &empty, UseLD: &noLD},
			platform: "windows",
			wantVars: map[string]string{
				"llvm_bin":    "/x/bin/",
				"llvm_prefix": "x86_64-w64-mingw32-",
				"llvm_suffix": "",
				"clang_args":  "",
			},
			wantRC: true,
		},
		{
			name:     "ios libc++",
			llvm:     LLVM{},
			platform: "ios",
			wantVars: map[string]string{
				"cxx_clang_args": "-stdlib=libc++ -I{{ cross }}/sdk/usr/include/c++",
			},
		},
		{
			name:     "mac libc++",
			llvm:     LLVM{},
			platform: "mac",
			wantVars: map[string]string{"cxx_clang_args": "-stdlib=libc++"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]string{}
			hasRC := false
			for _, a := range tt.llvm.Assignments(tt.platform) {
				if a.Namespace == NamespaceVariable {
					got[a.Name] = a.Value
				}
				if a.Name == "RC" {
					hasRC = true
				}
			}
			for k, v := range tt.wantVars {
				assert.Equal(t, v, got[k], k)
			}
			assert.Equal(t, tt.wantRC, hasRC)
		})
	}
}
