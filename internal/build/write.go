package build

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/atomicfile"
)

func writePage(destDir string, htmlPath string, page string) error {
	target := filepath.Join(destDir, filepath.FromSlash(htmlPath))
	if err := atomicfile.Write(target, []byte(page)); err != nil {
		return oops.Code("WRITE_FAILED").With("page", htmlPath).Wrapf(err, "writing page")
	}

	return nil
}

// removePage deletes destDir/htmlPath and then every directory it leaves
// empty, stopping at destDir.
func removePage(destDir string, htmlPath string) error {
	target := filepath.Join(destDir, filepath.FromSlash(htmlPath))
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("WRITE_FAILED").With("page", htmlPath).Wrapf(err, "deleting page")
	}

	root := filepath.Clean(destDir)
	for dir := filepath.Dir(target); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		// Remove fails on a non-empty directory, which ends the walk.
		if os.Remove(dir) != nil {
			break
		}
	}

	return nil
}
