package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/oops"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
)

type dirSource struct {
	name   string
	root   string
	source config.Source
}

func NewDir(name string, root string, cfg config.Source) Source {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = config.DefaultPatterns()
	}

	return &dirSource{
		name:   name,
		root:   root,
		source: cfg,
	}
}

// Fetch reads every file under the root matching the include patterns
// and none of the exclude patterns, in path order.
func (s *dirSource) Fetch(ctx context.Context, _ *lockfile.LockEntry, _ FetchOptions) (*FetchResult, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("READ_FAILED").
				With("source", s.name).
				With("path", s.root).
				Hint("Check the path of the source in mex.toml").
				Errorf("source directory %q does not exist", s.root)
		}

		return nil, oops.
			Code("READ_FAILED").
			With("source", s.name).
			With("path", s.root).
			Wrapf(err, "checking source directory")
	}

	if !info.IsDir() {
		return nil, oops.
			Code("READ_FAILED").
			With("source", s.name).
			With("path", s.root).
			Errorf("source path %q is not a directory", s.root)
	}

	fsys := os.DirFS(s.root)

	paths, err := s.matchPaths(fsys)
	if err != nil {
		return nil, err
	}

	documents := make([]Document, 0, len(paths))
	for _, relativePath := range paths {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, oops.With("source", s.name).Wrap(ctxErr)
		}

		doc, readErr := s.readDocument(fsys, relativePath)
		if readErr != nil {
			return nil, readErr
		}

		documents = append(documents, doc)
	}

	result := &FetchResult{Documents: documents}
	result.LockEntry = &lockfile.LockEntry{
		Type:    config.SourceTypeDir,
		BuiltAt: time.Now().UTC(),
		Files:   result.Files(),
	}

	return result, nil
}

func (s *dirSource) matchPaths(fsys fs.FS) ([]string, error) {
	seen := make(map[string]struct{})

	for _, pattern := range s.source.Patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("source", s.name).
				With("pattern", pattern).
				Wrapf(err, "invalid glob pattern")
		}

		for _, match := range matches {
			excluded, matchErr := matchesAny(s.source.Exclude, match)
			if matchErr != nil {
				return nil, matchErr
			}

			if !excluded {
				seen[match] = struct{}{}
			}
		}
	}

	return sortedKeys(seen), nil
}

func (s *dirSource) readDocument(fsys fs.FS, relativePath string) (Document, error) {
	content, err := fs.ReadFile(fsys, relativePath)
	if err != nil {
		return Document{}, oops.
			Code("READ_FAILED").
			With("source", s.name).
			With("path", relativePath).
			Wrapf(err, "reading document")
	}

	var modified time.Time
	if info, statErr := fs.Stat(fsys, relativePath); statErr == nil {
		modified = info.ModTime().UTC()
	}

	return newDocument(relativePath, content, modified), nil
}

func matchesAny(patterns []string, candidate string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, candidate)
		if err != nil {
			return false, oops.
				Code("CONFIG_INVALID").
				With("pattern", pattern).
				With("path", candidate).
				Wrapf(err, "invalid glob pattern")
		}

		if matched {
			return true, nil
		}
	}

	return false, nil
}

func sortedKeys[T any](values map[string]T) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	slices.Sort(keys)
	return keys
}
