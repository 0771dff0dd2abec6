package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/g5becks/mex/internal/build"
)

type styles struct {
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	dim    *color.Color
	bold   *color.Color
}

func newStyles() styles {
	return styles{
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		dim:    color.New(color.Faint),
		bold:   color.New(color.Bold),
	}
}

// BuildPrinter renders build events with colored output.
type BuildPrinter struct {
	w      io.Writer
	dryRun bool
	mu     sync.Mutex
	s      styles
}

func NewBuildPrinter(dryRun bool) *BuildPrinter {
	return NewBuildPrinterWithWriter(os.Stderr, dryRun)
}

func NewBuildPrinterWithWriter(w io.Writer, dryRun bool) *BuildPrinter {
	return &BuildPrinter{
		w:      w,
		dryRun: dryRun,
		s:      newStyles(),
	}
}

// HandleEvent is the callback wired into build.Options.OnEvent. It is
// safe to call from several workers.
func (p *BuildPrinter) HandleEvent(e build.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Kind {
	case build.EventSourceStart:
		fmt.Fprintf(p.w, "%s building %s...\n",
			p.s.dim.Sprint("⟳"),
			p.s.bold.Sprint(e.Source),
		)

	case build.EventSourceDone:
		p.handleDone(e)
	}
}

func (p *BuildPrinter) handleDone(e build.Event) {
	if e.Err != nil {
		fmt.Fprintf(p.w, "%s %s: %s\n",
			p.s.red.Sprint("✗"),
			p.s.bold.Sprint(e.Source),
			e.Err,
		)
		return
	}

	if e.Result == nil {
		return
	}

	name := p.s.bold.Sprint(e.Source)

	if e.Result.Skipped {
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.s.dim.Sprint("•"),
			name,
			p.s.dim.Sprint("(up to date)"),
		)
		return
	}

	fmt.Fprintf(p.w, "%s %s %s\n",
		p.s.green.Sprint("✓"),
		name,
		p.s.dim.Sprint(formatCounts(e.Result.Built, e.Result.Deleted)),
	)
}

func formatCounts(built int, deleted int) string {
	switch {
	case built > 0 && deleted > 0:
		return fmt.Sprintf("(%d built, %d deleted)", built, deleted)
	case built > 0:
		return fmt.Sprintf("(%d built)", built)
	case deleted > 0:
		return fmt.Sprintf("(%d deleted)", deleted)
	default:
		return "(no changes)"
	}
}

// PrintSummary renders the totals line after a build.
func (p *BuildPrinter) PrintSummary(r *build.RunResult) {
	if r == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.w)

	label := "build complete"
	if p.dryRun {
		label = p.s.yellow.Sprint("dry-run complete")
	}

	parts := fmt.Sprintf("%s: %d source(s), %d built, %d deleted, %d up-to-date",
		label,
		r.Sources,
		r.Built,
		r.Deleted,
		r.Skipped,
	)

	if r.Errors > 0 {
		parts += ", " + p.s.red.Sprintf("%d failed", r.Errors)
	}

	fmt.Fprintln(p.w, parts)

	if p.dryRun {
		fmt.Fprintln(p.w, p.s.dim.Sprint("no pages were written or removed"))
	}
}

// PrintWatching announces watch mode and each rebuild it triggers.
func (p *BuildPrinter) PrintWatching(changed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(changed) == 0 {
		fmt.Fprintln(p.w, p.s.dim.Sprint("watching for changes, press Ctrl+C to stop"))
		return
	}

	fmt.Fprintf(p.w, "\n%s %s\n",
		p.s.yellow.Sprint("⟳"),
		p.s.dim.Sprintf("%d change(s), rebuilding", len(changed)),
	)
}

func (p *BuildPrinter) PrintError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s %s\n", p.s.red.Sprint("✗"), err)
}
