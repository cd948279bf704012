// Package batch reads YAML files listing build steps and replays them
// through the runner. A step is either a single synchronous command or a
// set of commands run as one group.
//
//	steps:
//	  - run: "{{ cmake }} -S . -B build"
//	  - parallel:
//	      - "{{ make }} -C build/a"
//	      - "{{ make }} -C build/b"
//	  - run: "{{ make }} -C build install"
//
// Steps run in order and the first failing step stops the batch.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/crossbuild/internal/errors"
	"github.com/thoreinstein/crossbuild/internal/expand"
	"github.com/thoreinstein/crossbuild/internal/logging"
	"github.com/thoreinstein/crossbuild/internal/runner"
	"github.com/thoreinstein/crossbuild/pkg/fileutil"
)

// ErrInvalidBatch indicates a batch file that cannot be executed.
var ErrInvalidBatch = errors.New("invalid batch file")

// File is a parsed batch file.
type File struct {
	Steps []Step `yaml:"steps"`
}

// Step is one entry of a batch file. Exactly one of Run and Parallel is set.
type Step struct {
	// Name labels the step in logs. Optional.
	Name     string   `yaml:"name,omitempty"`
	Run      string   `yaml:"run,omitempty"`
	Parallel []string `yaml:"parallel,omitempty"`
}

func (s Step) label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", i+1)
}

// Load reads and validates a batch file.
func Load(path string) (*File, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading batch file %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return f, nil
}

// Parse decodes and validates batch file content. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(ErrInvalidBatch, "%v", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every step has exactly one action.
func (f *File) Validate() error {
	if len(f.Steps) == 0 {
		return errors.Wrap(ErrInvalidBatch, "no steps")
	}
	for i, s := range f.Steps {
		hasRun := s.Run != ""
		hasParallel := len(s.Parallel) > 0
		switch {
		case hasRun && hasParallel:
			return errors.Wrapf(ErrInvalidBatch, "%s: run and parallel are mutually exclusive", s.label(i))
		case !hasRun && !hasParallel:
			return errors.Wrapf(ErrInvalidBatch, "%s: needs run or parallel", s.label(i))
		}
	}
	return nil
}

// Execute runs the steps of f against s in order and stops at the first
// failure.
func Execute(ctx context.Context, s *expand.Store, f *File, opts runner.Options) error {
	logger := logging.FromContext(ctx)

	for i, step := range f.Steps {
		label := step.label(i)
		logger.Info("batch step", "step", label, "of", len(f.Steps))

		if step.Run != "" {
			if err := runner.Run(ctx, s, step.Run, opts); err != nil {
				return errors.Wrapf(err, "%s", label)
			}
			continue
		}

		err := runner.WithGroup(ctx, s, opts, func(g *runner.Group) error {
			for _, command := range step.Parallel {
				if _, err := g.Run(command); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "%s", label)
		}
	}
	return nil
}
