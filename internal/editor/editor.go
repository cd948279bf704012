// Package editor launches the user's editor on crossbuild files.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// Open runs the user's editor on path and waits for it to exit.
//
// The editor command line comes from $VISUAL or $EDITOR and may carry
// arguments, e.g. "code --wait". Without either, nano is used when present,
// then vi.
func Open(ctx context.Context, path string, stdout io.Writer) error {
	argv, err := command(path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// command returns the argument vector that edits path.
func command(path string) ([]string, error) {
	line := detectEditor()
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing editor command %q", line)
	}
	if len(argv) == 0 {
		return nil, errors.Newf("empty editor command %q", line)
	}
	return append(argv, path), nil
}

// detectEditor returns the editor command line.
// Fallback chain: $VISUAL → $EDITOR → nano → vi
func detectEditor() string {
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}

	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
