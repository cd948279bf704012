package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
)

var (
	// ErrProcessFailed indicates a child process exited with a non-zero status.
	ErrProcessFailed = errors.New("process failed")

	// ErrEmptyCommand indicates a command that expands to no words.
	ErrEmptyCommand = errors.New("empty command")
)

// Options controls how commands are spawned.
type Options struct {
	// Verbose prints the expanded, shell-quoted command line before running it.
	Verbose bool

	// Quiet discards the child's stdout and stderr. It does not apply to
	// group tasks, whose output is always captured.
	Quiet bool

	// Timeout kills a child that runs longer. Zero means no timeout.
	Timeout time.Duration

	// Jobs caps the number of concurrently running group tasks.
	// Zero means unlimited.
	Jobs int

	// Stdout and Stderr default to the process streams. Echoed command
	// lines and group reports go to Stdout, failure diagnostics to Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// ProcessError is a child that exited with a non-zero status.
type ProcessError struct {
	// Name is the task name of the build context, possibly empty.
	Name string
	Args []string

	// Code is the exit status, or -1 when the child was killed by a signal.
	Code int

	// Output is the captured combined output of a group task.
	Output string
}

func (e *ProcessError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("process failed with %d: %s", e.Code, shellquote.Join(e.Args...))
	}
	return fmt.Sprintf("%s: process failed with %d: %s", e.Name, e.Code, shellquote.Join(e.Args...))
}

func (e *ProcessError) Unwrap() error {
	return ErrProcessFailed
}

// Split expands command against s and splits it into words using POSIX
// shell rules.
func Split(s *expand.Store, command string) ([]string, error) {
	expanded, err := s.Expand(command)
	if err != nil {
		return nil, err
	}
	args, err := shellquote.Split(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "splitting %q", expanded)
	}
	if len(args) == 0 {
		return nil, errors.Wrapf(ErrEmptyCommand, "%q", command)
	}
	return args, nil
}

// Run expands command, runs it in the store's working directory with the
// store's environment block, and waits for it to exit.
//
// A non-zero exit prints the exit code, the argument vector and a stack
// trace to opts.Stderr and returns a *ProcessError wrapped with that stack.
// Callers are expected to abort the build on that error.
func Run(ctx context.Context, s *expand.Store, command string, opts Options) error {
	args, err := Split(s, command)
	if err != nil {
		return err
	}
	environ, err := s.Environ()
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintln(opts.stdout(), shellquote.Join(args...))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = s.Cwd()
	cmd.Env = environ
	if !opts.Quiet {
		cmd.Stdin = os.Stdin
		cmd.Stdout = opts.stdout()
		cmd.Stderr = opts.stderr()
	}

	logger := logging.FromContext(ctx)
	logger.Debug("running", "name", s.Name(), "argv", shellquote.Join(args...), "dir", cmd.Dir)

	start := time.Now()
	err = cmd.Run()
	if err == nil {
		logger.Debug("exited", "name", s.Name(), "code", 0, "elapsed", time.Since(start))
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return errors.Wrapf(err, "%s: starting %s", s.Name(), args[0])
	}

	perr := errors.WithStack(&ProcessError{Name: s.Name(), Args: args, Code: exitErr.ExitCode()})
	if ctxErr := ctx.Err(); ctxErr != nil {
		perr = errors.Wrapf(perr, "%v", ctxErr)
	}
	logger.Debug("exited", "name", s.Name(), "code", exitErr.ExitCode(), "elapsed", time.Since(start))

	w := opts.stderr()
	fmt.Fprintf(w, "%s: process failed with %d.\n", s.Name(), exitErr.ExitCode())
	fmt.Fprintf(w, "args: %s\n", shellquote.Join(args...))
	fmt.Fprintf(w, "%+v\n", perr)

	return perr
}
