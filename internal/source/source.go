package source

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
)

// Document is one markdown file of a source.
type Document struct {
	// Path is slash-separated and relative to the source root.
	Path     string
	Content  []byte
	Hash     string
	Modified time.Time
}

// FetchResult reports what a source currently holds.
type FetchResult struct {
	Documents []Document
	// NotModified is set when the remote confirmed the previous fetch is
	// still current; Documents is empty then.
	NotModified bool
	LockEntry   *lockfile.LockEntry
}

// Files maps document paths to content hashes.
func (r *FetchResult) Files() map[string]string {
	files := make(map[string]string, len(r.Documents))
	for _, doc := range r.Documents {
		files[doc.Path] = doc.Hash
	}

	return files
}

// FetchOptions controls behavior for source fetch operations.
type FetchOptions struct {
	// Force disables conditional requests.
	Force bool
}

// Source is a set of markdown documents that can be fetched.
type Source interface {
	Fetch(ctx context.Context, prevLock *lockfile.LockEntry, opts FetchOptions) (*FetchResult, error)
}

// New creates a Source from config. Relative dir paths resolve against
// the config directory.
func New(name string, cfg *config.Config, sourceCfg config.Source) (Source, error) {
	switch sourceCfg.Type {
	case config.SourceTypeDir:
		return NewDir(name, cfg.SourceDir(sourceCfg), sourceCfg), nil
	case config.SourceTypeURL:
		return NewURL(name, sourceCfg)
	default:
		return nil, oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("type", sourceCfg.Type).
			Hint("Supported types: dir, url").
			Errorf("unknown source type %q for source %q", sourceCfg.Type, name)
	}
}

func newDocument(relativePath string, content []byte, modified time.Time) Document {
	return Document{
		Path:     relativePath,
		Content:  content,
		Hash:     lockfile.Hash(content),
		Modified: modified,
	}
}
