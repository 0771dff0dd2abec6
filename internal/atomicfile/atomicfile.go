// Package atomicfile replaces files through a rename in the same
// directory, so readers see either the old content or the new one.
package atomicfile

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/samber/oops"
)

const (
	DirMode  fs.FileMode = 0o750
	FileMode fs.FileMode = 0o644
)

// Write replaces path with data, creating missing parent directories.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return oops.With("path", dir).Wrapf(err, "creating directory")
	}

	pending, err := renameio.TempFile(dir, path)
	if err != nil {
		return oops.With("path", path).Wrapf(err, "staging file")
	}
	defer func() { _ = pending.Cleanup() }()

	if err := pending.Chmod(FileMode); err != nil {
		return oops.With("path", path).Wrapf(err, "setting file mode")
	}

	if _, err := pending.Write(data); err != nil {
		return oops.With("path", path).Wrapf(err, "writing file")
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return oops.With("path", path).Wrapf(err, "replacing file")
	}

	return nil
}

// WriteJSON writes v as two-space indented JSON with a trailing newline.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.With("path", path).Wrapf(err, "encoding json")
	}

	return Write(path, append(data, '\n'))
}
