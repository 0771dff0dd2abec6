package manifest

import (
	"encoding/json"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/atomicfile"
	"github.com/g5becks/mex/internal/outline"
)

const (
	CurrentVersion = "1.0.0"
	ManifestFile   = "manifest.json"
)

type Manifest struct {
	Version     string                 `json:"version"`
	Generated   time.Time              `json:"generated"`
	Collections map[string]*Collection `json:"collections"`
}

// Collection describes the rendered documents of one source.
type Collection struct {
	Name      string     `json:"name"`
	Dir       string     `json:"dir"`
	Type      string     `json:"type"`
	Source    string     `json:"source"`
	LastBuild time.Time  `json:"last_build"`
	FileCount int        `json:"file_count"`
	TotalSize int64      `json:"total_size"`
	Skipped   int        `json:"skipped,omitempty"`
	Files     []FileInfo `json:"files"`
}

// FileInfo describes one source document and the HTML rendered from it.
type FileInfo struct {
	Path        string            `json:"path"`
	HTML        string            `json:"html"`
	Size        int64             `json:"size"`
	HTMLSize    int64             `json:"html_size"`
	Lines       int               `json:"lines"`
	Modified    time.Time         `json:"modified"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Headings    []outline.Heading `json:"headings,omitempty"`
}

func New() *Manifest {
	return &Manifest{
		Version:     CurrentVersion,
		Generated:   time.Now(),
		Collections: make(map[string]*Collection),
	}
}

// Load reads the manifest written by the last build of outputDir.
func Load(outputDir string) (*Manifest, error) {
	manifestPath := Path(outputDir)

	data, err := os.ReadFile(manifestPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, oops.
			Code("MANIFEST_NOT_FOUND").
			With("path", manifestPath).
			Hint("Run 'mex build' to generate the manifest").
			Errorf("manifest not found at %q", manifestPath)
	case err != nil:
		return nil, oops.Code("MANIFEST_READ_ERROR").With("path", manifestPath).Wrapf(err, "reading manifest file")
	}

	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, oops.
			Code("MANIFEST_CORRUPTED").
			With("path", manifestPath).
			Hint("Delete manifest.json from the output directory and run 'mex build --force'").
			Wrapf(err, "parsing manifest file")
	}

	if m.Collections == nil {
		m.Collections = make(map[string]*Collection)
	}

	return m, nil
}

func (m *Manifest) Save(outputDir string) error {
	if m == nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			Hint("Initialize manifest before saving").
			Errorf("cannot save nil manifest")
	}

	if err := atomicfile.WriteJSON(Path(outputDir), m); err != nil {
		return oops.Code("MANIFEST_WRITE_ERROR").Wrapf(err, "saving manifest")
	}

	return nil
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, ManifestFile)
}

// SetCollection stores c, keeping its files sorted by path.
func (m *Manifest) SetCollection(c *Collection) {
	if m.Collections == nil {
		m.Collections = make(map[string]*Collection)
	}

	slices.SortFunc(c.Files, func(a, b FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})

	c.FileCount = len(c.Files)
	c.TotalSize = 0
	for _, file := range c.Files {
		c.TotalSize += file.HTMLSize
	}

	m.Collections[c.Name] = c
}

// Prune removes collections whose names are not in keep.
func (m *Manifest) Prune(keep []string) []string {
	removed := slices.DeleteFunc(m.CollectionNames(), func(name string) bool {
		return slices.Contains(keep, name)
	})

	for _, name := range removed {
		delete(m.Collections, name)
	}

	return removed
}

func (m *Manifest) CollectionNames() []string {
	return slices.Sorted(maps.Keys(m.Collections))
}
