// Package build renders the configured sources to HTML pages and keeps
// the lock file and manifest of the output directory current.
package build

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/markdown"
	"github.com/g5becks/mex/internal/outline"
	"github.com/g5becks/mex/internal/source"
)

const defaultMaxParallel = 3

// SourceFactory creates the fetcher of a configured source.
type SourceFactory func(name string, cfg *config.Config, sourceCfg config.Source) (source.Source, error)

type Options struct {
	SourceNames []string
	Force       bool
	DryRun      bool
	Clean       bool
	MaxParallel int

	Logger  *slog.Logger
	OnEvent func(Event)
	// Progress receives one tracker per source with pages to render.
	Progress progress.Writer
	// NewSource defaults to source.New.
	NewSource SourceFactory
}

type runState struct {
	result     *SourceResult
	collection *manifest.Collection
	err        error
}

type builder struct {
	cfg         *config.Config
	opts        Options
	parser      *markdown.Parser
	optionsHash string
	outputDir   string
}

func Run(ctx context.Context, cfg *config.Config, opts Options) (*RunResult, error) {
	if cfg == nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("config is required")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.NewSource == nil {
		opts.NewSource = source.New
	}

	outputDir := resolveOutputRoot(cfg)
	if opts.Clean && !opts.DryRun {
		if err := cleanOutput(cfg, outputDir); err != nil {
			return nil, err
		}
	}

	lock, err := lockfile.Load(outputDir)
	if err != nil {
		return nil, err
	}

	sourceNames, err := resolveSourceNames(cfg.Sources, opts.SourceNames)
	if err != nil {
		return nil, err
	}

	optionsHash, err := hashOptions(cfg.Markdown)
	if err != nil {
		return nil, err
	}

	b := &builder{
		cfg:         cfg,
		opts:        opts,
		parser:      cfg.Markdown.NewParser(opts.Logger),
		optionsHash: optionsHash,
		outputDir:   outputDir,
	}

	site := loadManifest(outputDir, opts.Logger)

	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	results := make(map[string]runState, len(sourceNames))
	var resultsMu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallel)

	for _, sourceName := range sourceNames {
		sourceCfg := cfg.Sources[sourceName]
		previousLock := lock.GetEntry(sourceName)
		previousCollection := site.Collections[sourceName]

		group.Go(func() error {
			b.emit(Event{Kind: EventSourceStart, Source: sourceName})

			state := b.buildSource(groupCtx, sourceName, sourceCfg, previousLock, previousCollection)

			b.emit(Event{Kind: EventSourceDone, Source: sourceName, Err: state.err, Result: state.result})

			resultsMu.Lock()
			results[sourceName] = state
			resultsMu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, oops.Wrapf(err, "waiting for source build workers")
	}

	run := &RunResult{Sources: len(sourceNames)}

	for _, sourceName := range sourceNames {
		state := results[sourceName]
		if state.err != nil {
			run.Errors++
			opts.Logger.Debug("source failed", "source", sourceName, "error", state.err)
			continue
		}

		run.Built += state.result.Built
		run.Deleted += state.result.Deleted
		if state.result.Skipped {
			run.Skipped++
		}

		if !opts.DryRun {
			lock.SetEntry(sourceName, state.result.LockEntry)
			if state.collection != nil {
				site.SetCollection(state.collection)
			}
		}
	}

	if !opts.DryRun {
		configured := configuredNames(cfg.Sources)
		for _, name := range lock.Prune(configured) {
			opts.Logger.Debug("dropped lock entry of removed source", "source", name)
		}

		for _, name := range site.Prune(configured) {
			opts.Logger.Debug("dropped collection of removed source", "source", name)
		}

		site.Version = manifest.CurrentVersion
		site.Generated = time.Now().UTC()

		if err := lock.Save(outputDir); err != nil {
			return run, err
		}

		if err := site.Save(outputDir); err != nil {
			return run, err
		}
	}

	if run.Errors > 0 {
		return run, oops.
			Code("BUILD_FAILED").
			With("failed_sources", run.Errors).
			Errorf("%d source(s) failed during build", run.Errors)
	}

	return run, nil
}

func (b *builder) emit(e Event) {
	if b.opts.OnEvent != nil {
		b.opts.OnEvent(e)
	}
}

func (b *builder) buildSource(
	ctx context.Context,
	name string,
	sourceCfg config.Source,
	prevLock *lockfile.LockEntry,
	prevCollection *manifest.Collection,
) runState {
	src, err := b.opts.NewSource(name, b.cfg, sourceCfg)
	if err != nil {
		return runState{err: err}
	}

	force := b.opts.Force || prevLock == nil || prevLock.OptionsHash != b.optionsHash

	fetched, err := src.Fetch(ctx, prevLock, source.FetchOptions{Force: force})
	if err == nil && fetched.NotModified && prevCollection == nil {
		// Nothing to describe the unchanged pages with; fetch them again.
		fetched, err = src.Fetch(ctx, prevLock, source.FetchOptions{Force: true})
	}
	if err != nil {
		return runState{err: err}
	}

	entry := fetched.LockEntry
	if entry == nil {
		entry = &lockfile.LockEntry{Type: sourceCfg.Type}
	}
	entry.OptionsHash = b.optionsHash
	entry.BuiltAt = time.Now().UTC()

	if fetched.NotModified {
		return b.skipped(entry, prevCollection)
	}

	files := fetched.Files()
	entry.Files = files

	if !force && prevCollection != nil && prevLock.Matches(files, b.optionsHash) {
		return b.skipped(entry, prevCollection)
	}

	prevFiles := map[string]string{}
	if prevLock != nil && prevLock.Files != nil {
		prevFiles = prevLock.Files
	}

	destDir := b.cfg.OutputDir(name, sourceCfg)
	rebuild := changedDocuments(fetched.Documents, prevFiles, force)
	tracker := b.newTracker(name, len(rebuild))

	collection := &manifest.Collection{
		Name:      name,
		Dir:       b.relativeDir(destDir),
		Type:      sourceCfg.Type,
		Source:    sourceLocation(sourceCfg),
		LastBuild: entry.BuiltAt,
	}
	result := &SourceResult{Documents: len(fetched.Documents), LockEntry: entry}
	owners := make(map[string]string, len(fetched.Documents))

	for _, doc := range fetched.Documents {
		if ctxErr := ctx.Err(); ctxErr != nil {
			tracker.MarkAsErrored()
			return runState{err: oops.With("source", name).Wrap(ctxErr)}
		}

		htmlPath := manifest.HTMLPath(doc.Path)
		body, fm := outline.StripFrontmatter(outline.StripBOM(doc.Content))
		if fm.Draft {
			b.opts.Logger.Debug("skipping draft document", "source", name, "document", doc.Path)
			collection.Skipped++

			removed, removeErr := b.removeDraftPage(destDir, htmlPath)
			if removeErr != nil {
				tracker.MarkAsErrored()
				return runState{err: oops.With("source", name).Wrap(removeErr)}
			}
			if removed {
				result.Deleted++
			}
			continue
		}

		if owner, taken := owners[htmlPath]; taken {
			b.opts.Logger.Warn("skipping document with duplicate page path",
				"source", name, "document", doc.Path, "page", htmlPath, "kept", owner)
			collection.Skipped++
			continue
		}
		owners[htmlPath] = doc.Path

		if outline.IsBinary(doc.Content) {
			b.opts.Logger.Warn("skipping binary document", "source", name, "document", doc.Path)
			collection.Skipped++
			collection.Files = append(collection.Files, manifest.Describe(doc.Path, doc.Content, 0, doc.Modified))
			continue
		}

		htmlSize := pageSize(destDir, htmlPath)
		if _, ok := rebuild[doc.Path]; ok {
			page := b.parser.Convert(string(body))
			htmlSize = len(page)

			if !b.opts.DryRun {
				if writeErr := writePage(destDir, htmlPath, page); writeErr != nil {
					tracker.MarkAsErrored()
					return runState{err: oops.With("source", name).Wrap(writeErr)}
				}
			}

			result.Built++
			tracker.Increment(1)
		}

		collection.Files = append(collection.Files, manifest.Describe(doc.Path, doc.Content, htmlSize, doc.Modified))
	}

	for _, stalePath := range staleDocuments(prevFiles, files) {
		htmlPath := manifest.HTMLPath(stalePath)
		if _, owned := owners[htmlPath]; owned {
			continue
		}

		if !b.opts.DryRun {
			if removeErr := removePage(destDir, htmlPath); removeErr != nil {
				tracker.MarkAsErrored()
				return runState{err: oops.With("source", name).Wrap(removeErr)}
			}
		}

		result.Deleted++
	}

	tracker.MarkAsDone()

	return runState{result: result, collection: collection}
}

func (b *builder) skipped(entry *lockfile.LockEntry, prevCollection *manifest.Collection) runState {
	entry.BuiltAt = prevCollection.LastBuild

	return runState{
		result: &SourceResult{
			Documents: len(prevCollection.Files),
			Skipped:   true,
			LockEntry: entry,
		},
		collection: prevCollection,
	}
}

// removeDraftPage deletes the page a document rendered before it was
// marked as a draft.
func (b *builder) removeDraftPage(destDir string, htmlPath string) (bool, error) {
	if _, err := os.Stat(filepath.Join(destDir, filepath.FromSlash(htmlPath))); err != nil {
		return false, nil
	}

	if b.opts.DryRun {
		return true, nil
	}

	return true, removePage(destDir, htmlPath)
}

func (b *builder) newTracker(name string, total int) *progress.Tracker {
	tracker := &progress.Tracker{
		Message: name,
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}

	if b.opts.Progress != nil && total > 0 {
		b.opts.Progress.AppendTracker(tracker)
	}

	return tracker
}

func (b *builder) relativeDir(destDir string) string {
	rel, err := filepath.Rel(b.outputDir, destDir)
	if err != nil {
		return destDir
	}

	return filepath.ToSlash(rel)
}

func changedDocuments(docs []source.Document, prevFiles map[string]string, force bool) map[string]struct{} {
	changed := make(map[string]struct{})

	for _, doc := range docs {
		oldHash, existed := prevFiles[doc.Path]
		if force || !existed || oldHash != doc.Hash {
			changed[doc.Path] = struct{}{}
		}
	}

	return changed
}

func staleDocuments(prevFiles map[string]string, files map[string]string) []string {
	var stale []string

	for relativePath := range prevFiles {
		if _, exists := files[relativePath]; !exists {
			stale = append(stale, relativePath)
		}
	}

	slices.Sort(stale)
	return stale
}

func pageSize(destDir string, htmlPath string) int {
	info, err := os.Stat(filepath.Join(destDir, filepath.FromSlash(htmlPath)))
	if err != nil {
		return 0
	}

	return int(info.Size())
}

func hashOptions(md config.Markdown) (string, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return "", oops.
			Code("CONFIG_INVALID").
			Wrapf(err, "encoding markdown options")
	}

	return lockfile.Hash(data), nil
}

func loadManifest(outputDir string, logger *slog.Logger) *manifest.Manifest {
	if _, err := os.Stat(manifest.Path(outputDir)); errors.Is(err, os.ErrNotExist) {
		return manifest.New()
	}

	site, err := manifest.Load(outputDir)
	if err != nil {
		logger.Warn("rebuilding unreadable manifest", "path", manifest.Path(outputDir), "error", err)
		return manifest.New()
	}

	return site
}

func cleanOutput(cfg *config.Config, outputDir string) error {
	if filepath.Clean(outputDir) == filepath.Clean(cfg.ConfigDir) {
		return oops.
			Code("INVALID_ARGS").
			With("path", outputDir).
			Hint("Set output in mex.toml to a dedicated directory").
			Errorf("refusing to clean the config directory")
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return oops.
			Code("WRITE_FAILED").
			With("path", outputDir).
			Wrapf(err, "cleaning output directory")
	}

	return nil
}

func resolveSourceNames(
	sourceConfigs map[string]config.Source,
	requestedNames []string,
) ([]string, error) {
	if len(requestedNames) == 0 {
		return configuredNames(sourceConfigs), nil
	}

	sourceNames := make([]string, 0, len(requestedNames))
	seen := make(map[string]struct{}, len(requestedNames))

	for _, sourceName := range requestedNames {
		if _, ok := sourceConfigs[sourceName]; !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", sourceName).
				Hint("Run 'mex list' to see configured sources").
				Errorf("source %q not found in config", sourceName)
		}

		if _, exists := seen[sourceName]; exists {
			continue
		}

		seen[sourceName] = struct{}{}
		sourceNames = append(sourceNames, sourceName)
	}

	return sourceNames, nil
}

func configuredNames(sourceConfigs map[string]config.Source) []string {
	sourceNames := make([]string, 0, len(sourceConfigs))
	for sourceName := range sourceConfigs {
		sourceNames = append(sourceNames, sourceName)
	}

	slices.Sort(sourceNames)
	return sourceNames
}

func resolveOutputRoot(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Output) {
		return cfg.Output
	}

	return filepath.Join(cfg.ConfigDir, cfg.Output)
}

func sourceLocation(sourceCfg config.Source) string {
	if sourceCfg.Type == config.SourceTypeURL {
		return sourceCfg.URL
	}

	return sourceCfg.Path
}
