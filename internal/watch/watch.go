// Package watch reruns a build when source documents or the config change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	// Dirs are watched recursively. Directories created later are added.
	Dirs []string
	// Files are watched through their parent directory.
	Files []string
	// Ignore holds directories whose events are dropped, such as the
	// output directory when it sits inside a watched tree.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

type Watcher struct {
	opts    Options
	files   map[string]struct{}
	watched map[string]struct{}
	fsw     *fsnotify.Watcher
}

func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var err error
	if opts.Dirs, err = absPaths(opts.Dirs); err != nil {
		return nil, err
	}
	if opts.Ignore, err = absPaths(opts.Ignore); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, oops.Code("WATCH_FAILED").Wrapf(err, "creating file watcher")
	}

	w := &Watcher{
		opts:    opts,
		files:   make(map[string]struct{}, len(opts.Files)),
		watched: make(map[string]struct{}),
		fsw:     fsw,
	}

	for _, file := range opts.Files {
		abs, absErr := filepath.Abs(file)
		if absErr != nil {
			_ = fsw.Close()
			return nil, oops.Code("WATCH_FAILED").With("path", file).Wrapf(absErr, "resolving watched file")
		}
		w.files[abs] = struct{}{}

		if addErr := w.add(filepath.Dir(abs)); addErr != nil {
			_ = fsw.Close()
			return nil, addErr
		}
	}

	for _, dir := range opts.Dirs {
		if addErr := w.addTree(dir); addErr != nil {
			_ = fsw.Close()
			return nil, addErr
		}
	}

	return w, nil
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls onChange with the sorted paths that changed once no event
// has arrived for the debounce window. It returns when ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if addErr := w.addTree(event.Name); addErr != nil {
						w.opts.Logger.Warn("watching new directory failed", "path", event.Name, "error", addErr)
					}
				}
			}

			w.opts.Logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Error("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}

			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			slices.Sort(paths)
			clear(pending)

			onChange(ctx, paths)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	if _, ok := w.files[event.Name]; ok {
		return true
	}

	for _, ignored := range w.opts.Ignore {
		if within(ignored, event.Name) {
			return false
		}
	}

	for _, dir := range w.opts.Dirs {
		if within(dir, event.Name) {
			return true
		}
	}

	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return oops.Code("WATCH_FAILED").With("path", path).Wrapf(err, "walking watched directory")
		}
		if !d.IsDir() {
			return nil
		}

		for _, ignored := range w.opts.Ignore {
			if within(ignored, path) {
				return filepath.SkipDir
			}
		}

		return w.add(path)
	})
}

func (w *Watcher) add(dir string) error {
	if _, ok := w.watched[dir]; ok {
		return nil
	}

	if err := w.fsw.Add(dir); err != nil {
		return oops.Code("WATCH_FAILED").With("path", dir).Wrapf(err, "watching directory")
	}
	w.watched[dir] = struct{}{}

	return nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, oops.Code("WATCH_FAILED").With("path", path).Wrapf(err, "resolving watched path")
		}
		out = append(out, abs)
	}

	return out, nil
}

func within(root string, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
