package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/crossbuild/internal/toolchain"
)

func TestPlatformsCommand(t *testing.T) {
	out, _, err := executeCommand(t, "platforms")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.True(t, strings.HasPrefix(lines[0], "linux "), lines[0])
	assert.Contains(t, lines[0], "x86_64")
	assert.Contains(t, out, "web      wasm")
	assert.Contains(t, out, "kinds: target (host compiler: host, host-python, cross)")

	if p, a := toolchain.Host(); p != "" {
		assert.Contains(t, out, a+" (host)")
	}
}

func TestDescribeTriple(t *testing.T) {
	tbl, err := toolchain.Builtin()
	require.NoError(t, err)

	got := describeTriple(tbl, toolchain.Triple{Platform: "web", Arch: "wasm"})
	assert.Contains(t, got, "Platform: web")
	assert.Contains(t, got, "  emsdk\n    discover {{ cross }}/emsdk")
	assert.Contains(t, got, "  common\n")

	got = describeTriple(tbl, toolchain.Triple{Platform: "ios", Arch: "arm64"})
	assert.Contains(t, got, "env IPHONEOS_DEPLOYMENT_TARGET = 13.0")
	assert.NotContains(t, got, "emsdk")
}
