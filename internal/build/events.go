package build

import "github.com/g5becks/mex/internal/lockfile"

type EventKind int

const (
	EventSourceStart EventKind = iota
	EventSourceDone
)

// Event is sent to Options.OnEvent as each source starts and finishes.
// Handlers are called from worker goroutines.
type Event struct {
	Kind   EventKind
	Source string
	Err    error
	Result *SourceResult
}

// SourceResult reports what happened to one source.
type SourceResult struct {
	Documents int
	Built     int
	Deleted   int
	Skipped   bool
	LockEntry *lockfile.LockEntry
}

// RunResult totals a build over all selected sources.
type RunResult struct {
	Sources int
	Built   int
	Deleted int
	Skipped int
	Errors  int
}
