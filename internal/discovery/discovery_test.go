package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
)

const sampleOutput = `Setting up EMSDK environment
export PATH="/emsdk:/emsdk/upstream/emscripten:/usr/bin";
export EMSDK="/emsdk";
export EMSDK_NODE="/emsdk/node/bin/node"
echo "done"
export BAD=unquoted;
`

func TestParse(t *testing.T) {
	got := Parse([]byte(sampleOutput))

	want := []Export{
		{Name: "PATH", Value: "/emsdk:/emsdk/upstream/emscripten:/usr/bin"},
		{Name: "EMSDK", Value: "/emsdk"},
		{Name: "EMSDK_NODE", Value: "/emsdk/node/bin/node"},
	}
	assert.Equal(t, want, got)
}

func TestParse_CRLF(t *testing.T) {
	got := Parse([]byte("export A=\"1\";\r\nexport B=\"2\"\r\n"))
	assert.Equal(t, []Export{{"A", "1"}, {"B", "2"}}, got)
}

func TestCache_InvokesOnce(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return []byte(`export EMSDK="/emsdk";`), nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exports, err := c.Environment(t.Context(), "/emsdk/emsdk")
			assert.NoError(t, err)
			assert.Len(t, exports, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	// A different tool path is a separate entry.
	_, err := c.Environment(t.Context(), "/other/emsdk")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_MemoizesFailure(t *testing.T) {
	var calls atomic.Int32
	c := New(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.Wrap(ErrDiscoveryFailed, "boom")
	})

	for range 3 {
		_, err := c.Environment(t.Context(), "/emsdk/emsdk")
		require.ErrorIs(t, err, ErrDiscoveryFailed)
	}
	assert.Equal(t, int32(1), calls.Load())

	c.Reset()
	_, _ = c.Environment(t.Context(), "/emsdk/emsdk")
	assert.Equal(t, int32(2), calls.Load())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

// writeTool writes a fake emsdk that records each invocation in a counter file.
func writeTool(t *testing.T, body string) (tool, counter string) {
	t.Helper()
	dir := t.TempDir()
	tool = filepath.Join(dir, "emsdk")
	counter = filepath.Join(dir, "count")
	script := "#!/bin/sh\necho x >> " + strconv.Quote(counter) + "\n" + body
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))
	return tool, counter
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func TestConstructEnv(t *testing.T) {
	tool, counter := writeTool(t, `[ "$1" = construct_env ] || exit 3
echo "export QUIET=\"$EMSDK_QUIET\";"
echo "export BASH_MODE=\"$EMSDK_BASH\";"
`)

	out, err := ConstructEnv(t.Context(), tool)
	require.NoError(t, err)
	assert.Equal(t, []Export{{"QUIET", "1"}, {"BASH_MODE", "1"}}, Parse(out))
	assert.Equal(t, 1, countLines(t, counter))
}

func TestConstructEnv_Failure(t *testing.T) {
	tool, _ := writeTool(t, "echo 'no sdk' >&2\nexit 4\n")

	_, err := ConstructEnv(t.Context(), tool)
	require.ErrorIs(t, err, ErrDiscoveryFailed)
	assert.Contains(t, err.Error(), "no sdk")
	assert.Contains(t, err.Error(), tool)
}

func TestApply(t *testing.T) {
	tool, counter := writeTool(t, `echo 'export EMSDK="/sdk";'
echo 'export PATH="/sdk/bin:/usr/bin";'
`)
	c := New(nil)

	for range 2 {
		s := expand.New(map[string]string{"PATH": "/usr/bin"})
		require.NoError(t, Apply(t.Context(), s, c, tool))

		block, err := s.EnvironmentBlock()
		require.NoError(t, err)
		assert.Equal(t, "/sdk", block["EMSDK"])
		assert.Equal(t, "/sdk/bin:/usr/bin", block["PATH"])
	}

	assert.Equal(t, 1, countLines(t, counter), "tool should run once across contexts")
}

func TestApply_MissingTool(t *testing.T) {
	c := New(func(context.Context, string) ([]byte, error) {
		t.Fatal("invoker must not run for a missing tool")
		return nil, nil
	})
	s := expand.New(nil)

	require.NoError(t, Apply(t.Context(), s, c, filepath.Join(t.TempDir(), "emsdk")))
	assert.Empty(t, s.Environment())
}

func TestApply_Failure(t *testing.T) {
	tool, _ := writeTool(t, "exit 1\n")
	s := expand.New(nil)

	err := Apply(t.Context(), s, New(nil), tool)
	require.ErrorIs(t, err, ErrDiscoveryFailed)
}
