// Package fileutil provides atomic file writes and bounded file reads.
package fileutil

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/crossbuild/internal/errors"
)

// AtomicWrite streams content produced by write into path through a temp
// file in the same directory and a rename, so readers never observe a
// partially written file and a failed write leaves the old file intact.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWrite(path string, perm os.FileMode, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".crossbuild-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "setting file permissions")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}
	renamed = true

	return nil
}

// AtomicWriteFile writes data to path atomically.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWrite(path, perm, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "writing temp file")
		}
		return nil
	})
}

// AtomicWriteJSON writes v as 2-space indented JSON with a trailing newline.
func AtomicWriteJSON(path string, v any, perm os.FileMode) error {
	return AtomicWrite(path, perm, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "marshaling JSON")
		}
		return nil
	})
}

// AtomicWriteYAML writes v as YAML with 2-space indentation.
func AtomicWriteYAML(path string, v any, perm os.FileMode) error {
	return AtomicWrite(path, perm, func(w io.Writer) (err error) {
		// yaml.v3 panics on some unmarshalable types.
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("marshaling YAML: %v", r)
			}
		}()

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "marshaling YAML")
		}
		return enc.Close()
	})
}
