package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/g5becks/mex/internal/build"
	"github.com/g5becks/mex/internal/config"
	"github.com/g5becks/mex/internal/lockfile"
	"github.com/g5becks/mex/internal/manifest"
	"github.com/g5becks/mex/internal/source"
)

func TestRunWithNilConfigReturnsError(t *testing.T) {
	_, err := build.Run(context.Background(), nil, build.Options{})
	if err == nil {
		t.Fatal("Run() with nil config: got nil error, want non-nil")
	}
}

func TestResolveSourceNamesReturnsAllSorted(t *testing.T) {
	sources := map[string]config.Source{
		"zebra":  {Type: "dir"},
		"alpha":  {Type: "url"},
		"middle": {Type: "dir"},
	}

	names, err := build.ResolveSourceNames(sources, nil)
	if err != nil {
		t.Fatalf("ResolveSourceNames() error = %v", err)
	}

	want := []string{"alpha", "middle", "zebra"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("ResolveSourceNames() = %v, want %v", names, want)
	}
}

func TestResolveSourceNamesValidatesRequested(t *testing.T) {
	sources := map[string]config.Source{
		"exists": {Type: "dir"},
	}

	_, err := build.ResolveSourceNames(sources, []string{"missing"})
	if err == nil {
		t.Fatal("ResolveSourceNames() with invalid source: got nil error, want non-nil")
	}
}

func TestResolveSourceNamesDeduplicates(t *testing.T) {
	sources := map[string]config.Source{
		"source1": {Type: "dir"},
		"source2": {Type: "url"},
	}

	names, err := build.ResolveSourceNames(sources, []string{"source1", "source2", "source1"})
	if err != nil {
		t.Fatalf("ResolveSourceNames() error = %v", err)
	}

	if !reflect.DeepEqual(names, []string{"source1", "source2"}) {
		t.Errorf("ResolveSourceNames() = %v, want [source1 source2]", names)
	}
}

func TestResolveOutputRoot(t *testing.T) {
	cfg := &config.Config{ConfigDir: "/tmp/project", Output: "site"}
	if got := build.ResolveOutputRoot(cfg); got != filepath.Join("/tmp/project", "site") {
		t.Errorf("ResolveOutputRoot() relative = %q", got)
	}

	cfg.Output = "/srv/site"
	if got := build.ResolveOutputRoot(cfg); got != "/srv/site" {
		t.Errorf("ResolveOutputRoot() absolute = %q", got)
	}
}

func TestChangedAndStaleDocuments(t *testing.T) {
	docs := []source.Document{
		{Path: "same.md", Hash: "1"},
		{Path: "edited.md", Hash: "2"},
		{Path: "new.md", Hash: "3"},
	}
	prev := map[string]string{"same.md": "1", "edited.md": "old", "gone.md": "4"}

	changed := build.ChangedDocuments(docs, prev, false)
	if _, ok := changed["same.md"]; ok || len(changed) != 2 {
		t.Errorf("ChangedDocuments() = %v, want edited.md and new.md", changed)
	}

	if forced := build.ChangedDocuments(docs, prev, true); len(forced) != 3 {
		t.Errorf("ChangedDocuments(force) = %v, want all documents", forced)
	}

	files := map[string]string{"same.md": "1", "edited.md": "2", "new.md": "3"}
	if stale := build.StaleDocuments(prev, files); !reflect.DeepEqual(stale, []string{"gone.md"}) {
		t.Errorf("StaleDocuments() = %v, want [gone.md]", stale)
	}
}

func TestRunRendersDirSource(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/index.md", "# Home\n\nHello *world*")
	writeDoc(t, cfg.ConfigDir, "docs/guide/install.md", "---\ntitle: Installing\n---\nRun it.")

	result, err := build.Run(context.Background(), cfg, build.Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Sources != 1 || result.Built != 2 || result.Skipped != 0 {
		t.Fatalf("RunResult = %+v, want 1 source with 2 pages built", result)
	}

	page := readPage(t, cfg, "guide/index.html")
	if page != "<h1>Home</h1>\n\n<p>Hello <em>world</em></p>\n" {
		t.Fatalf("index.html = %q", page)
	}

	if page := readPage(t, cfg, "guide/guide/install.html"); page != "<p>Run it.</p>\n" {
		t.Fatalf("install.html = %q, want front matter dropped", page)
	}

	site, err := manifest.Load(cfg.Output)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	coll := site.Collections["guide"]
	if coll == nil || coll.FileCount != 2 {
		t.Fatalf("manifest collection = %+v, want 2 files", coll)
	}

	if coll.Files[0].Path != "guide/install.md" || coll.Files[0].Title != "Installing" {
		t.Fatalf("Files[0] = %+v, want guide/install.md titled Installing", coll.Files[0])
	}

	lock, err := lockfile.Load(cfg.Output)
	if err != nil {
		t.Fatalf("lockfile.Load() error = %v", err)
	}

	entry := lock.GetEntry("guide")
	if entry == nil || len(entry.Files) != 2 || entry.OptionsHash == "" {
		t.Fatalf("lock entry = %+v, want 2 files and an options hash", entry)
	}
}

func TestRunSkipsUnchangedAndTracksEdits(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A")
	writeDoc(t, cfg.ConfigDir, "docs/b.md", "B")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	second, err := build.Run(context.Background(), cfg, build.Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if second.Skipped != 1 || second.Built != 0 {
		t.Fatalf("second RunResult = %+v, want skipped", second)
	}

	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A *changed*")
	if err := os.Remove(filepath.Join(cfg.ConfigDir, "docs", "b.md")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	third, err := build.Run(context.Background(), cfg, build.Options{})
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}

	if third.Built != 1 || third.Deleted != 1 {
		t.Fatalf("third RunResult = %+v, want 1 built and 1 deleted", third)
	}

	if page := readPage(t, cfg, "guide/a.html"); page != "<p>A <em>changed</em></p>\n" {
		t.Fatalf("a.html = %q", page)
	}

	if _, statErr := os.Stat(filepath.Join(cfg.Output, "guide", "b.html")); !os.IsNotExist(statErr) {
		t.Fatalf("b.html still exists after its source was removed")
	}

	forced, err := build.Run(context.Background(), cfg, build.Options{Force: true})
	if err != nil {
		t.Fatalf("forced Run() error = %v", err)
	}

	if forced.Built != 1 || forced.Skipped != 0 {
		t.Fatalf("forced RunResult = %+v, want the page rebuilt", forced)
	}
}

func TestRunRebuildsWhenOptionsChange(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/rule.md", "---")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	if page := readPage(t, cfg, "guide/rule.html"); page != "<hr />\n" {
		t.Fatalf("rule.html = %q", page)
	}

	cfg.Markdown.EmptyElementSuffix = ">"

	result, err := build.Run(context.Background(), cfg, build.Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.Built != 1 {
		t.Fatalf("RunResult = %+v, want the page rebuilt", result)
	}

	if page := readPage(t, cfg, "guide/rule.html"); page != "<hr>\n" {
		t.Fatalf("rule.html = %q, want html4 rule", page)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A")

	result, err := build.Run(context.Background(), cfg, build.Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Built != 1 {
		t.Fatalf("Built = %d, want 1", result.Built)
	}

	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Fatalf("output directory exists after dry run")
	}
}

func TestRunEmitsEventsAndReportsFailures(t *testing.T) {
	cfg := newProject(t)
	cfg.Sources["broken"] = config.Source{Type: "dir", Path: "missing"}
	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A")

	var mu sync.Mutex
	var events []build.Event

	result, err := build.Run(context.Background(), cfg, build.Options{
		OnEvent: func(e build.Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		},
	})
	if err == nil || !strings.Contains(err.Error(), "1 source(s) failed") {
		t.Fatalf("Run() error = %v, want one failed source", err)
	}

	if result.Errors != 1 || result.Built != 1 {
		t.Fatalf("RunResult = %+v, want 1 error and 1 page", result)
	}

	if len(events) != 4 {
		t.Fatalf("events = %d, want start and done for both sources", len(events))
	}

	var brokenErr error
	for _, e := range events {
		if e.Kind == build.EventSourceDone && e.Source == "broken" {
			brokenErr = e.Err
		}
	}

	if brokenErr == nil {
		t.Fatalf("done event of broken source carries no error")
	}

	if _, statErr := os.Stat(filepath.Join(cfg.Output, "guide", "a.html")); statErr != nil {
		t.Fatalf("healthy source was not written: %v", statErr)
	}
}

type fakeSource struct {
	calls   int
	results []*source.FetchResult
}

func (f *fakeSource) Fetch(_ context.Context, _ *lockfile.LockEntry, _ source.FetchOptions) (*source.FetchResult, error) {
	if f.calls >= len(f.results) {
		return nil, errors.New("unexpected fetch")
	}

	result := f.results[f.calls]
	f.calls++
	return result, nil
}

func TestRunKeepsCollectionWhenRemoteNotModified(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Output:    filepath.Join(dir, "site"),
		ConfigDir: dir,
		Sources: map[string]config.Source{
			"changelog": {Type: "url", URL: "https://example.test/CHANGELOG.md"},
		},
	}

	content := []byte("# Changes")
	fake := &fakeSource{results: []*source.FetchResult{
		{
			Documents: []source.Document{{Path: "CHANGELOG.md", Content: content, Hash: lockfile.Hash(content)}},
			LockEntry: &lockfile.LockEntry{Type: "url", ETag: `"v1"`},
		},
		{
			NotModified: true,
			LockEntry:   &lockfile.LockEntry{Type: "url", ETag: `"v1"`},
		},
	}}

	opts := build.Options{
		NewSource: func(string, *config.Config, config.Source) (source.Source, error) {
			return fake, nil
		},
	}

	if _, err := build.Run(context.Background(), cfg, opts); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	result, err := build.Run(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.Skipped != 1 {
		t.Fatalf("RunResult = %+v, want skipped", result)
	}

	site, err := manifest.Load(cfg.Output)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	coll := site.Collections["changelog"]
	if coll == nil || coll.FileCount != 1 || coll.Files[0].Title != "Changes" {
		t.Fatalf("collection = %+v, want the previous CHANGELOG entry", coll)
	}

	if page := readPage(t, cfg, "changelog/CHANGELOG.html"); page != "<h1>Changes</h1>\n" {
		t.Fatalf("CHANGELOG.html = %q", page)
	}
}

func TestRunCleanRefusesConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Output: dir, ConfigDir: dir, Sources: map[string]config.Source{}}

	_, err := build.Run(context.Background(), cfg, build.Options{Clean: true})
	if err == nil || !strings.Contains(err.Error(), "refusing to clean") {
		t.Fatalf("Run() error = %v, want refusal", err)
	}
}

func TestRunPrunesRemovedSources(t *testing.T) {
	cfg := newProject(t)
	cfg.Sources["extra"] = config.Source{Type: "dir", Path: "docs"}
	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	delete(cfg.Sources, "extra")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	site, err := manifest.Load(cfg.Output)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	if names := site.CollectionNames(); !reflect.DeepEqual(names, []string{"guide"}) {
		t.Fatalf("collections = %v, want [guide]", names)
	}

	lock, err := lockfile.Load(cfg.Output)
	if err != nil {
		t.Fatalf("lockfile.Load() error = %v", err)
	}

	if lock.GetEntry("extra") != nil {
		t.Fatalf("lock entry of removed source kept")
	}
}

func newProject(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Output:    filepath.Join(dir, "site"),
		ConfigDir: dir,
		Markdown:  config.Markdown{Dialect: config.DialectExtra},
		Sources: map[string]config.Source{
			"guide": {Type: "dir", Path: "docs", Patterns: config.DefaultPatterns()},
		},
	}

	return cfg
}

func writeDoc(t *testing.T, root string, relativePath string, content string) {
	t.Helper()

	fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func readPage(t *testing.T, cfg *config.Config, relativePath string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(cfg.Output, filepath.FromSlash(relativePath)))
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", relativePath, err)
	}

	return string(data)
}

func TestRunSkipsDraftsAndRemovesTheirPages(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/a.md", "A")
	writeDoc(t, cfg.ConfigDir, "docs/wip.md", "Work in progress")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	readPage(t, cfg, "guide/wip.html")

	writeDoc(t, cfg.ConfigDir, "docs/wip.md", "---\ndraft: true\n---\nWork in progress")

	result, err := build.Run(context.Background(), cfg, build.Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.Deleted != 1 {
		t.Fatalf("Deleted = %d, want 1", result.Deleted)
	}

	if _, statErr := os.Stat(filepath.Join(cfg.Output, "guide", "wip.html")); !os.IsNotExist(statErr) {
		t.Fatalf("draft page still present, stat error = %v", statErr)
	}

	site, err := manifest.Load(cfg.Output)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	coll := site.Collections["guide"]
	if coll == nil || coll.FileCount != 1 || coll.Files[0].Path != "a.md" {
		t.Fatalf("manifest collection = %+v, want only a.md", coll)
	}
}

func TestRunRecordsTags(t *testing.T) {
	cfg := newProject(t)
	writeDoc(t, cfg.ConfigDir, "docs/deploy.md", "---\ntitle: Deploy\ntags: [ops, release]\n---\nShip it.")

	if _, err := build.Run(context.Background(), cfg, build.Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	site, err := manifest.Load(cfg.Output)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	files := site.Collections["guide"].Files
	if len(files) != 1 || !reflect.DeepEqual(files[0].Tags, []string{"ops", "release"}) {
		t.Fatalf("Files = %+v, want deploy.md tagged ops and release", files)
	}
}

func TestWritePageReplacesAndRemovePagePrunes(t *testing.T) {
	destDir := t.TempDir()

	if err := build.WritePage(destDir, "a/b/page.html", "<p>one</p>\n"); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}
	if err := build.WritePage(destDir, "a/b/page.html", "<p>two</p>\n"); err != nil {
		t.Fatalf("second WritePage() error = %v", err)
	}

	target := filepath.Join(destDir, "a", "b", "page.html")
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "<p>two</p>\n" {
		t.Fatalf("page = %q, %v; want replaced content", data, err)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil || len(entries) != 1 {
		t.Fatalf("page directory entries = %v, %v; want only the page", entries, err)
	}

	writeDoc(t, destDir, "a/keep.html", "kept")

	if err := build.RemovePage(destDir, "a/b/page.html"); err != nil {
		t.Fatalf("RemovePage() error = %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(destDir, "a", "b")); !os.IsNotExist(statErr) {
		t.Fatalf("empty directory kept, stat error = %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(destDir, "a", "keep.html")); statErr != nil {
		t.Fatalf("sibling page removed: %v", statErr)
	}

	if err := build.RemovePage(destDir, "a/b/page.html"); err != nil {
		t.Fatalf("RemovePage() of missing page error = %v", err)
	}
}
