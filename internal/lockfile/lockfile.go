// Package lockfile persists the per-source build state used to skip
// unchanged sources and to find pages whose documents disappeared.
package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/atomicfile"
)

const (
	FileName       = ".mex.lock"
	currentVersion = 1
)

// LockFile records what each source looked like when it was last built.
type LockFile struct {
	Version int                   `json:"version"`
	Sources map[string]*LockEntry `json:"sources"`
}

// LockEntry holds the content hash of every document of a source, keyed
// by its slash-separated path, plus the validators of url sources.
type LockEntry struct {
	Type        string            `json:"type"`
	ETag        string            `json:"etag,omitempty"`
	LastMod     string            `json:"last_modified,omitempty"`
	OptionsHash string            `json:"options_hash,omitempty"`
	BuiltAt     time.Time         `json:"built_at"`
	Files       map[string]string `json:"files,omitempty"`
}

// Hash returns the hex sha256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether the entry was built from exactly these files
// with the same converter options.
func (e *LockEntry) Matches(files map[string]string, optionsHash string) bool {
	return e != nil && e.OptionsHash == optionsHash && maps.Equal(e.Files, files)
}

func (e *LockEntry) Clone() *LockEntry {
	if e == nil {
		return nil
	}

	cloned := *e
	cloned.Files = maps.Clone(e.Files)

	return &cloned
}

func New() *LockFile {
	return &LockFile{Version: currentVersion, Sources: map[string]*LockEntry{}}
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

// Load reads the lock file of outputDir. A missing file yields an empty
// lock so the first build renders everything.
func Load(outputDir string) (*LockFile, error) {
	lockPath := Path(outputDir)
	fail := oops.Code("LOCK_ERROR").With("path", lockPath)

	data, err := os.ReadFile(lockPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return New(), nil
	case err != nil:
		return nil, fail.Wrapf(err, "reading lock file")
	}

	lock := New()
	if err := json.Unmarshal(data, lock); err != nil {
		return nil, fail.
			Hint("Delete the lock file and run 'mex build --force' to regenerate it").
			Wrapf(err, "parsing lock file")
	}

	if lock.Version > currentVersion {
		return nil, fail.
			With("version", lock.Version).
			Hint("Run 'mex build --clean' to rebuild the output with this version").
			Errorf("lock file version %d is newer than supported version %d", lock.Version, currentVersion)
	}

	lock.normalize()
	return lock, nil
}

func (l *LockFile) Save(outputDir string) error {
	if l == nil {
		return oops.
			Code("LOCK_ERROR").
			Hint("Initialize lock file state before saving").
			Errorf("cannot save nil lock file")
	}

	l.normalize()

	if err := atomicfile.WriteJSON(Path(outputDir), l); err != nil {
		return oops.Code("LOCK_ERROR").Wrapf(err, "saving lock file")
	}

	return nil
}

// normalize fills what an old or hand-edited lock file may lack.
func (l *LockFile) normalize() {
	if l.Version == 0 {
		l.Version = currentVersion
	}
	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}
}

func (l *LockFile) GetEntry(name string) *LockEntry {
	if l == nil {
		return nil
	}

	return l.Sources[name]
}

func (l *LockFile) SetEntry(name string, entry *LockEntry) {
	if l == nil {
		return
	}

	l.normalize()
	l.Sources[name] = entry
}

func (l *LockFile) RemoveEntry(name string) {
	if l != nil {
		delete(l.Sources, name)
	}
}

// Prune drops entries of sources not in keep and returns their names in
// sorted order.
func (l *LockFile) Prune(keep []string) []string {
	if l == nil {
		return nil
	}

	removed := slices.Sorted(maps.Keys(l.Sources))
	removed = slices.DeleteFunc(removed, func(name string) bool {
		return slices.Contains(keep, name)
	})

	for _, name := range removed {
		delete(l.Sources, name)
	}

	return removed
}
