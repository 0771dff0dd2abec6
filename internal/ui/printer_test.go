package ui_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/g5becks/mex/internal/build"
	"github.com/g5becks/mex/internal/ui"
)

var errMock = errors.New("mock error")

func newTestPrinter(buf *bytes.Buffer, dryRun bool) *ui.BuildPrinter {
	return ui.NewBuildPrinterWithWriter(buf, dryRun)
}

func TestHandleEventStart(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.HandleEvent(build.Event{
		Kind:   build.EventSourceStart,
		Source: "guide",
	})

	out := buf.String()
	if !strings.Contains(out, "guide") {
		t.Errorf("start event output missing source name, got: %q", out)
	}
	if !strings.Contains(out, "building") {
		t.Errorf("start event output missing 'building', got: %q", out)
	}
}

func TestHandleEventDoneSuccess(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.HandleEvent(build.Event{
		Kind:   build.EventSourceDone,
		Source: "guide",
		Result: &build.SourceResult{Documents: 7, Built: 5, Deleted: 2},
	})

	out := buf.String()
	if !strings.Contains(out, "5 built") {
		t.Errorf("done event output missing build count, got: %q", out)
	}
	if !strings.Contains(out, "2 deleted") {
		t.Errorf("done event output missing delete count, got: %q", out)
	}
}

func TestHandleEventDoneSkipped(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.HandleEvent(build.Event{
		Kind:   build.EventSourceDone,
		Source: "guide",
		Result: &build.SourceResult{Skipped: true},
	})

	if out := buf.String(); !strings.Contains(out, "up to date") {
		t.Errorf("skipped event output missing 'up to date', got: %q", out)
	}
}

func TestHandleEventDoneError(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.HandleEvent(build.Event{
		Kind:   build.EventSourceDone,
		Source: "guide",
		Err:    errMock,
	})

	out := buf.String()
	if !strings.Contains(out, "guide") {
		t.Errorf("error event output missing source name, got: %q", out)
	}
	if !strings.Contains(out, "mock error") {
		t.Errorf("error event output missing error text, got: %q", out)
	}
}

func TestHandleEventDoneWithoutResult(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.HandleEvent(build.Event{Kind: build.EventSourceDone, Source: "guide"})

	if buf.Len() != 0 {
		t.Errorf("expected no output, got: %q", buf.String())
	}
}

func TestFormatCounts(t *testing.T) {
	tests := []struct {
		built   int
		deleted int
		want    string
	}{
		{built: 3, deleted: 1, want: "(3 built, 1 deleted)"},
		{built: 3, want: "(3 built)"},
		{deleted: 2, want: "(2 deleted)"},
		{want: "(no changes)"},
	}

	for _, tc := range tests {
		if got := ui.FormatCounts(tc.built, tc.deleted); got != tc.want {
			t.Errorf("FormatCounts(%d, %d) = %q, want %q", tc.built, tc.deleted, got, tc.want)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.PrintSummary(&build.RunResult{
		Sources: 3,
		Built:   10,
		Deleted: 1,
		Skipped: 1,
	})

	out := buf.String()
	if !strings.Contains(out, "build complete") {
		t.Errorf("summary missing 'build complete', got: %q", out)
	}
	if !strings.Contains(out, "3 source(s), 10 built, 1 deleted, 1 up-to-date") {
		t.Errorf("summary missing counts, got: %q", out)
	}
}

func TestPrintSummaryDryRun(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, true)

	p.PrintSummary(&build.RunResult{Sources: 2, Built: 5})

	out := buf.String()
	if !strings.Contains(out, "dry-run complete") {
		t.Errorf("dry-run summary missing label, got: %q", out)
	}
	if !strings.Contains(out, "no pages were written or removed") {
		t.Errorf("dry-run summary missing disclaimer, got: %q", out)
	}
}

func TestPrintSummaryWithErrors(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.PrintSummary(&build.RunResult{Sources: 3, Errors: 2})

	if out := buf.String(); !strings.Contains(out, "2 failed") {
		t.Errorf("summary missing error count, got: %q", out)
	}
}

func TestPrintSummaryNilResult(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.PrintSummary(nil)

	if buf.Len() != 0 {
		t.Errorf("expected no output for nil result, got: %q", buf.String())
	}
}

func TestPrintWatching(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.PrintWatching(nil)
	if !strings.Contains(buf.String(), "watching for changes") {
		t.Errorf("watch banner missing, got: %q", buf.String())
	}

	buf.Reset()
	p.PrintWatching([]string{"a.md", "b.md"})
	if !strings.Contains(buf.String(), "2 change(s), rebuilding") {
		t.Errorf("rebuild notice missing, got: %q", buf.String())
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPrinter(&buf, false)

	p.PrintError(errMock)
	if !strings.Contains(buf.String(), "mock error") {
		t.Errorf("error output missing message, got: %q", buf.String())
	}
}
