package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
)

// ErrGroupClosed indicates Run, Wait or Abandon on a group that has already
// been waited for or abandoned.
var ErrGroupClosed = errors.New("run group closed")

// reportRule separates task reports.
var reportRule = strings.Repeat("-", 78)

// State is the lifecycle of a group task.
type State int

// Task states.
const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Task is one command of a run group.
type Task struct {
	args    []string
	environ []string
	dir     string

	mu     sync.Mutex
	state  State
	code   int
	output bytes.Buffer
}

// Args returns the expanded argument vector.
func (t *Task) Args() []string {
	return t.args
}

// State returns the current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Code returns the exit status. It is meaningful once the task is terminal.
func (t *Task) Code() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.code
}

// Output returns the captured combined stdout and stderr. It is complete
// once the task is terminal.
func (t *Task) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output.String()
}

func (t *Task) setState(s State, code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	t.code = code
}

// lockedWriter serializes writes from the stdout and stderr copiers.
type lockedWriter struct {
	t *Task
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.t.mu.Lock()
	defer w.t.mu.Unlock()
	return w.t.output.Write(p)
}

// GroupError reports the failed tasks of a group.
type GroupError struct {
	Failed []*Task
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%d tasks failed", len(e.Failed))
}

func (e *GroupError) Unwrap() error {
	return ErrProcessFailed
}

// Group runs commands concurrently against one frozen store and reports
// them together once all have exited.
//
// The store rejects writes from NewGroup until Wait or Abandon.
type Group struct {
	id     uuid.UUID
	ctx    context.Context
	store  *expand.Store
	opts   Options
	logger *slog.Logger
	eg     errgroup.Group

	mu     sync.Mutex
	tasks  []*Task
	closed bool
}

// NewGroup opens a group over s and freezes s.
func NewGroup(ctx context.Context, s *expand.Store, opts Options) *Group {
	g := &Group{
		id:    uuid.New(),
		ctx:   ctx,
		store: s,
		opts:  opts,
	}
	if opts.Jobs > 0 {
		g.eg.SetLimit(opts.Jobs)
	}
	g.logger = logging.FromContext(ctx).With("group", g.id.String(), "name", s.Name())
	s.Freeze()
	g.logger.Debug("run group opened", "jobs", opts.Jobs)
	return g
}

// ID identifies the group in log output.
func (g *Group) ID() uuid.UUID {
	return g.id
}

// Tasks returns the tasks in spawn order.
func (g *Group) Tasks() []*Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Run expands command, snapshots the environment and starts the child
// without waiting for it. Expansion errors are returned immediately.
//
// With Options.Jobs set, Run blocks while that many tasks are running; the
// task stays Pending until a slot frees up. Run must not be called
// concurrently with Wait.
func (g *Group) Run(command string) (*Task, error) {
	args, err := Split(g.store, command)
	if err != nil {
		return nil, err
	}
	environ, err := g.store.Environ()
	if err != nil {
		return nil, err
	}

	t := &Task{args: args, environ: environ, dir: g.store.Cwd()}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrGroupClosed
	}
	g.tasks = append(g.tasks, t)
	g.mu.Unlock()

	g.eg.Go(func() error {
		g.execute(t)
		return nil
	})
	return t, nil
}

func (g *Group) execute(t *Task) {
	ctx := g.ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.args[0], t.args[1:]...)
	cmd.Dir = t.dir
	cmd.Env = t.environ
	w := lockedWriter{t}
	cmd.Stdout = w
	cmd.Stderr = w

	argv := strings.Join(t.args, " ")
	start := time.Now()
	t.setState(Running, 0)

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(w, "%v\n", errors.Wrapf(err, "starting %s", t.args[0]))
		t.setState(Failed, -1)
		g.logger.Debug("spawn failed", "argv", argv, "error", err)
		return
	}
	g.logger.Debug("spawned", "argv", argv, "pid", cmd.Process.Pid)

	code := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			fmt.Fprintf(w, "%v\n", err)
			code = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			fmt.Fprintf(w, "%v\n", ctxErr)
		}
	}

	if code == 0 {
		t.setState(Succeeded, 0)
	} else {
		t.setState(Failed, code)
	}
	g.logger.Debug("exited", "argv", argv, "code", code, "elapsed", time.Since(start))
}

func (g *Group) close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGroupClosed
	}
	g.closed = true
	return nil
}

// Wait waits for every task, prints the reports of successful tasks and then
// of failed ones, each in spawn order, and thaws the store. If any task
// failed it prints the failure count and returns a *GroupError.
func (g *Group) Wait() error {
	if err := g.close(); err != nil {
		return err
	}
	defer g.store.Thaw()

	_ = g.eg.Wait()

	var good, bad []*Task
	for _, t := range g.tasks {
		if t.State() == Succeeded {
			good = append(good, t)
		} else {
			bad = append(bad, t)
		}
	}

	w := g.opts.stdout()
	for _, t := range good {
		writeReport(w, t)
	}
	for _, t := range bad {
		writeReport(w, t)
	}

	g.logger.Debug("run group finished", "succeeded", len(good), "failed", len(bad))
	if len(bad) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	color.New(color.FgRed, color.Bold).Fprintf(w, "%d tasks failed.\n", len(bad))
	return errors.WithStack(&GroupError{Failed: bad})
}

// Abandon closes the group without waiting or reporting and thaws the store.
// Running children are left to finish on their own. It is the exit path when
// the caller is already failing, so its error is not masked by task reports.
func (g *Group) Abandon() {
	if err := g.close(); err != nil {
		return
	}
	g.store.Thaw()
	g.logger.Debug("run group abandoned", "tasks", len(g.tasks))
}

// WithGroup opens a group, calls fn with it, and closes it. If fn returns an
// error the group is abandoned and that error is returned unchanged;
// otherwise the result of Wait is returned.
func WithGroup(ctx context.Context, s *expand.Store, opts Options, fn func(*Group) error) error {
	g := NewGroup(ctx, s, opts)
	if err := fn(g); err != nil {
		g.Abandon()
		return err
	}
	return g.Wait()
}

// FormatArgs renders an argument vector for a report, quoting the words that
// contain whitespace.
func FormatArgs(args []string) string {
	words := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t\n") {
			words[i] = shellquote.Join(a)
		} else {
			words[i] = a
		}
	}
	return strings.Join(words, " ")
}

func writeReport(w io.Writer, t *Task) {
	fmt.Fprintln(w, reportRule)
	fmt.Fprintln(w, FormatArgs(t.args))
	fmt.Fprintln(w)
	fmt.Fprintln(w, t.Output())

	if t.State() != Succeeded {
		fmt.Fprintln(w)
		color.New(color.FgRed).Fprintf(w, "Process failed with %d.\n", t.Code())
	}
}
