// Package discovery runs an external SDK environment tool (emsdk) once per
// process and replays the variables it exports into a build context.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
)

// ErrDiscoveryFailed indicates the discovery tool could not be run or exited
// with a non-zero status.
var ErrDiscoveryFailed = errors.New("environment discovery failed")

// exportLine matches one line of `construct_env` output in shell mode.
var exportLine = regexp.MustCompile(`^export (\w+)="(.*?)";?$`)

// Export is one variable produced by the discovery tool.
type Export struct {
	Name  string
	Value string
}

// Invoker runs the tool and returns its standard output.
type Invoker func(ctx context.Context, tool string) ([]byte, error)

type result struct {
	once    sync.Once
	exports []Export
	err     error
}

// Cache memoizes discovery per tool path. The zero value is not usable;
// use New.
type Cache struct {
	invoke Invoker

	mu      sync.Mutex
	results map[string]*result
}

// New creates a cache. A nil invoker runs the tool with `construct_env`.
func New(invoke Invoker) *Cache {
	if invoke == nil {
		invoke = ConstructEnv
	}
	return &Cache{
		invoke:  invoke,
		results: make(map[string]*result),
	}
}

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cache.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = New(nil)
	})
	return defaultCache
}

// Reset drops every memoized result. It is meant for tests.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]*result)
}

// Environment returns the exports of tool, invoking it on first use only.
// Failures are memoized as well: a tool that failed once is not retried.
// Concurrent callers for the same tool wait for the single invocation.
func (c *Cache) Environment(ctx context.Context, tool string) ([]Export, error) {
	c.mu.Lock()
	r, ok := c.results[tool]
	if !ok {
		r = &result{}
		c.results[tool] = r
	}
	c.mu.Unlock()

	r.once.Do(func() {
		logging.FromContext(ctx).Debug("running environment discovery", "tool", tool)
		out, err := c.invoke(ctx, tool)
		if err != nil {
			r.err = err
			return
		}
		r.exports = Parse(out)
	})

	return r.exports, r.err
}

// Parse extracts export lines from shell-mode output, in order. Lines that
// are not `export NAME="VALUE";` are ignored.
func Parse(out []byte) []Export {
	var exports []Export
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		m := exportLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		exports = append(exports, Export{Name: m[1], Value: m[2]})
	}
	return exports
}

// ConstructEnv runs `<tool> construct_env` with EMSDK_BASH=1 and
// EMSDK_QUIET=1 added to the inherited environment.
func ConstructEnv(ctx context.Context, tool string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, "construct_env")
	cmd.Env = append(os.Environ(), "EMSDK_BASH=1", "EMSDK_QUIET=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(ErrDiscoveryFailed, "%s construct_env: %v: %s", tool, err, msg)
		}
		return nil, errors.Wrapf(ErrDiscoveryFailed, "%s construct_env: %v", tool, err)
	}
	return out, nil
}

// Apply replays the exports of tool into s as environment entries. When the
// tool does not exist, Apply does nothing.
func Apply(ctx context.Context, s *expand.Store, c *Cache, tool string) error {
	if _, err := os.Stat(tool); err != nil {
		logging.FromContext(ctx).Debug("discovery tool not present, skipping", "tool", tool)
		return nil
	}

	exports, err := c.Environment(ctx, tool)
	if err != nil {
		return err
	}

	for _, e := range exports {
		if err := s.SetEnvironment(e.Name, e.Value); err != nil {
			return errors.Wrapf(err, "applying %s from %s", e.Name, tool)
		}
	}
	logging.FromContext(ctx).Debug("applied discovered environment", "tool", tool, "count", len(exports))
	return nil
}
