package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/crossbuild/internal/discovery"
	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
)

func testOptions(tmp string) Options {
	return Options{
		Paths:         Paths{Tmp: tmp},
		Cwd:           "/src",
		Jobs:          6,
		BuildPlatform: "x86_64-pc-linux-gnu",
		Discovery: discovery.New(func(context.Context, string) ([]byte, error) {
			return nil, errors.New("unexpected discovery")
		}),
	}
}

func configure(t *testing.T, triple Triple, opts Options) *expand.Store {
	t.Helper()
	s := expand.New(map[string]string{"PATH": "/usr/bin", "HOME": "/home/me"})
	require.NoError(t, Configure(t.Context(), s, triple, opts))
	return s
}

func env(t *testing.T, s *expand.Store) map[string]string {
	t.Helper()
	block, err := s.EnvironmentBlock()
	require.NoError(t, err)
	return block
}

func TestConfigure_LinuxTarget(t *testing.T) {
	s := configure(t, Triple{Platform: "linux", Arch: "x86_64", Kind: KindTarget, Name: "zlib"}, testOptions("/t"))

	assert.Equal(t, "linux", s.Scalar(expand.ScalarPlatform))
	assert.Equal(t, "/t/install.linux-x86_64", s.Scalar(expand.ScalarInstall))
	assert.Equal(t, "/t/host", s.Scalar(expand.ScalarHost))
	assert.Equal(t, "/t/cross.linux-x86_64", s.Scalar(expand.ScalarCross))
	assert.Equal(t, "/src", s.Cwd())
	assert.Equal(t, "zlib", s.Name())

	block := env(t, s)
	assert.Equal(t, "-O3 -I/t/install.linux-x86_64/include -DCROSSBUILD", block["CFLAGS"])
	assert.Equal(t, block["CFLAGS"], block["CXXFLAGS"])
	assert.Equal(t, "-O3 -L/t/install.linux-x86_64/lib -L/t/install.linux-x86_64/lib64", block["LDFLAGS"])
	assert.Equal(t, "/t/host/bin:/usr/bin", block["PATH"])
	assert.Equal(t, "/home/me", block["HOME"])
	assert.Equal(t,
		"ccache clang-15 -fuse-ld=lld -Wno-unused-command-line-argument -target x86_64-pc-linux-gnu --sysroot /t/sysroot.linux-x86_64 -fPIC -pthread -std=gnu17",
		block["CC"])
	assert.Equal(t, "ccache llvm-ar-15", block["AR"])
	assert.Equal(t, "/t/install.linux-x86_64/lib/pkgconfig", block["PKG_CONFIG_PATH"])
	assert.NotContains(t, block, "RC")

	assert.Equal(t, "nice make -j 6", s.MustExpand("{{ make }}"))
	assert.Equal(t, "--host=x86_64-pc-linux-gnu --build=x86_64-pc-linux-gnu", s.MustExpand("{{ cross_config }}"))
	assert.Equal(t, "cmake -DCMAKE_SYSTEM_NAME=Linux -DCMAKE_SYSTEM_PROCESSOR=x86_64 -DCMAKE_BUILD_TYPE=Release",
		s.MustExpand("{{ cmake }}"))
	assert.Equal(t, "llvm-lipo-15", s.MustExpand("{{ lipo }}"))
}

func TestConfigure_Platforms(t *testing.T) {
	tests := []struct {
		triple Triple
		checks map[string]string
	}{
		{
			triple: Triple{Platform: "linux", Arch: "armv7l", Kind: KindTarget},
			checks: map[string]string{
				"{{ host_platform }}":          "arm-linux-gnueabihf",
				"{{ cmake_system_processor }}": "armv7",
				"{{ LDFLAGS }}":                "-O3 -L/t/install.linux-armv7l/lib -L/t/install.linux-armv7l/lib32",
			},
		},
		{
			triple: Triple{Platform: "windows", Arch: "x86_64", Kind: KindTarget},
			checks: map[string]string{
				"{{ CC }}":                "ccache /t/cross.windows-x86_64/llvm-mingw/bin/x86_64-w64-mingw32-clang -target x86_64-w64-mingw32 --sysroot /t/cross.windows-x86_64/llvm-mingw -fPIC -pthread -std=gnu17",
				"{{ RC }}":                "/t/cross.windows-x86_64/llvm-mingw/bin/x86_64-w64-mingw32-windres",
				"{{ cmake_system_name }}": "Windows",
			},
		},
		{
			triple: Triple{Platform: "android", Arch: "arm64_v8a", Kind: KindTarget},
			checks: map[string]string{
				"{{ CC }}":            "ccache /t/cross.android-arm64_v8a/android-ndk-r25b/toolchains/llvm/prebuilt/linux-x86_64/bin/aarch64-linux-android21-clang  -std=gnu17",
				"{{ CFLAGS }}":        "-O3 -I/t/install.android-arm64_v8a/include -DSDL_MAIN_HANDLED -DCROSSBUILD",
				"{{ host_platform }}": "aarch64-linux-android",
			},
		},
		{
			triple: Triple{Platform: "mac", Arch: "arm64", Kind: KindTarget},
			checks: map[string]string{
				"{{ MACOSX_DEPLOYMENT_TARGET }}": "11.0",
				"{{ ffi_host_platform }}":        "aarch64-apple-darwin21.6.0",
				"{{ sdl_host_platform }}":        "arm-apple-darwin21.6.0",
				"{{ cxx_clang_args }}":           "-stdlib=libc++",
			},
		},
		{
			triple: Triple{Platform: "ios", Arch: "sim-x86_64", Kind: KindTarget},
			checks: map[string]string{
				"{{ IPHONEOS_DEPLOYMENT_TARGET }}": "13.0",
				"{{ sdl_host_platform }}":          "x86_64-ios-darwin21",
				"{{ ffi_host_platform }}":          "x86_64-apple-darwin",
				"{{ sdl_cross_config }}":           "--host=x86_64-ios-darwin21 --build=x86_64-pc-linux-gnu",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.triple.String(), func(t *testing.T) {
			s := configure(t, tt.triple, testOptions("/t"))
			for template, want := range tt.checks {
				got, err := s.Expand(template)
				require.NoError(t, err, template)
				assert.Equal(t, want, got, template)
			}
		})
	}
}

func TestConfigure_HostKinds(t *testing.T) {
	for _, kind := range []string{"host", "host-python", "cross"} {
		t.Run(kind, func(t *testing.T) {
			s := configure(t, Triple{Platform: "android", Arch: "x86_64", Kind: kind}, testOptions("/t"))

			assert.Equal(t, "ccache clang-15 -fuse-ld=lld -Wno-unused-command-line-argument  -std=gnu17", s.MustExpand("{{ CC }}"))
			assert.Equal(t, "Linux", s.MustExpand("{{ cmake_system_name }}"))

			_, hasCross := s.Raw("cross_config")
			assert.Equal(t, kind != "host", hasCross)
		})
	}
}

func TestConfigure_WebDiscovery(t *testing.T) {
	tmp := t.TempDir()
	cross := filepath.Join(tmp, "cross.web-wasm")
	require.NoError(t, os.MkdirAll(cross, 0o755))
	tool := filepath.Join(cross, "emsdk")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755))

	var calls atomic.Int32
	cache := discovery.New(func(_ context.Context, got string) ([]byte, error) {
		calls.Add(1)
		assert.Equal(t, tool, got)
		return []byte("export EMSDK=\"/sdk\";\nexport PATH=\"/sdk/bin:/usr/bin\";\n"), nil
	})

	opts := testOptions(tmp)
	opts.Discovery = cache

	s := configure(t, Triple{Platform: "web", Arch: "wasm", Kind: KindTarget, Name: "sdl2"}, opts)
	block := env(t, s)

	assert.Equal(t, "/sdk", block["EMSDK"])
	assert.Equal(t, cross+"/upstream/emscripten/system/bin/:"+tmp+"/host/bin:/sdk/bin:/usr/bin", block["PATH"])
	assert.Equal(t, "ccache "+cross+"/upstream/emscripten/emcc", block["CC"])
	assert.True(t, strings.HasSuffix(block["LDFLAGS"], "-sEMULATE_FUNCTION_POINTER_CASTS=1"))
	assert.Equal(t, "Emscripten", s.MustExpand("{{ cmake_system_name }}"))

	// A second context reuses the cached discovery.
	configure(t, Triple{Platform: "web", Arch: "wasm", Kind: KindTarget, Name: "zlib"}, opts)
	assert.Equal(t, int32(1), calls.Load())

	// Host kinds never discover, and the "web" task skips the emscripten rule.
	configure(t, Triple{Platform: "web", Arch: "wasm", Kind: "host"}, opts)
	assert.Equal(t, int32(1), calls.Load())

	web := configure(t, Triple{Platform: "web", Arch: "wasm", Kind: KindTarget, Name: "web"}, opts)
	_, hasCC := web.Raw("CC")
	assert.False(t, hasCC)
}

func TestConfigure_Overlays(t *testing.T) {
	opts := testOptions("/t")
	opts.Overlays = []Assignment{
		{NamespaceEnvironment, "CFLAGS", "{{ CFLAGS }} -g"},
		{NamespaceVariable, "extra", "{{ install }}/share"},
	}

	s := configure(t, Triple{Platform: "linux", Arch: "x86_64", Kind: KindTarget}, opts)

	assert.Equal(t, "-O3 -I/t/install.linux-x86_64/include -DCROSSBUILD -g", s.MustExpand("{{ CFLAGS }}"))
	assert.Equal(t, "/t/install.linux-x86_64/share", s.MustExpand("{{ extra }}"))

	opts.Overlays = []Assignment{{"scalar", "x", "y"}}
	err := Configure(t.Context(), expand.New(map[string]string{"PATH": "/usr/bin"}),
		Triple{Platform: "linux", Arch: "x86_64", Kind: KindTarget}, opts)
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestConfigure_CustomPaths(t *testing.T) {
	opts := testOptions("/t")
	opts.Paths.Install = "/opt/{{ platform }}/{{ arch }}/"

	s := configure(t, Triple{Platform: "linux", Arch: "aarch64", Kind: KindTarget}, opts)
	assert.Equal(t, "/opt/linux/aarch64", s.Scalar(expand.ScalarInstall))
}

func TestConfigure_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		triple  Triple
		wantErr error
	}{
		{"unknown platform", Triple{Platform: "beos", Arch: "x86_64", Kind: KindTarget}, ErrUnknownTriple},
		{"unknown arch", Triple{Platform: "web", Arch: "x86_64", Kind: KindTarget}, ErrUnknownTriple},
		{"missing kind", Triple{Platform: "web", Arch: "wasm"}, errors.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := expand.New(nil)
			err := Configure(t.Context(), s, tt.triple, testOptions("/t"))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.Environment())
		})
	}
}

func TestConfigure_MissingPATH(t *testing.T) {
	s := expand.New(nil)
	err := Configure(t.Context(), s, Triple{Platform: "linux", Arch: "x86_64", Kind: KindTarget}, testOptions("/t"))
	require.ErrorIs(t, err, expand.ErrUnresolvedReference)
}

func TestMakeJobs(t *testing.T) {
	assert.Equal(t, 3, MakeJobs(3))

	want := runtime.NumCPU()
	if want > 12 {
		want -= 4
	}
	assert.Equal(t, want, MakeJobs(0))
	assert.Equal(t, want, MakeJobs(-1))
}

func TestTriple(t *testing.T) {
	assert.Equal(t, "ios-sim-arm64/target", Triple{Platform: "ios", Arch: "sim-arm64", Kind: KindTarget}.String())
	assert.Equal(t, "web-wasm", Triple{Platform: "web", Arch: "wasm"}.String())

	require.NoError(t, Triple{Platform: "ios", Arch: "armv7s", Kind: KindTarget}.Validate())

	triples, err := Triples()
	require.NoError(t, err)
	assert.Len(t, triples, 16)
	assert.Equal(t, Triple{Platform: "linux", Arch: "x86_64"}, triples[0])
}

func TestHostFor(t *testing.T) {
	tests := []struct {
		goos, goarch   string
		platform, arch string
	}{
		{"linux", "amd64", "linux", "x86_64"},
		{"linux", "arm64", "linux", "aarch64"},
		{"darwin", "arm64", "mac", "arm64"},
		{"windows", "386", "windows", "i686"},
		{"windows", "arm64", "", ""},
		{"plan9", "amd64", "", ""},
	}

	for _, tt := range tests {
		platform, arch := hostFor(tt.goos, tt.goarch)
		assert.Equal(t, tt.platform, platform, tt.goos+"/"+tt.goarch)
		assert.Equal(t, tt.arch, arch, tt.goos+"/"+tt.goarch)
	}
}

func TestBuildPlatformFor(t *testing.T) {
	assert.Equal(t, "x86_64-pc-linux-gnu", buildPlatformFor("linux", "amd64"))
	assert.Equal(t, "arm-unknown-linux-gnueabihf", buildPlatformFor("linux", "arm"))
	assert.Equal(t, "aarch64-apple-darwin", buildPlatformFor("darwin", "arm64"))
	assert.Equal(t, "riscv64-unknown-freebsd", buildPlatformFor("freebsd", "riscv64"))
}
