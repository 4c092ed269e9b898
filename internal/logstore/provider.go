package logstore

import (
	"errors"

	"github.com/newhook/remedy/internal/logentry"
)

// ErrBatch is returned when a provider refuses to start a batch.
var ErrBatch = errors.New("provider batch failed")

// ConsoleFlags are host console settings. Any change forces a rebuild
// because they alter which rows the provider reports.
type ConsoleFlags uint32

const (
	FlagCollapse      ConsoleFlags = 1 << 0
	FlagClearOnPlay   ConsoleFlags = 1 << 1
	FlagErrorPause    ConsoleFlags = 1 << 2
	FlagVerbose       ConsoleFlags = 1 << 3
	FlagStopForAssert ConsoleFlags = 1 << 4
	FlagStopForError  ConsoleFlags = 1 << 5
	FlagAutoscroll    ConsoleFlags = 1 << 6
	FlagLogLevelLog   ConsoleFlags = 1 << 7
	FlagLogLevelWarn  ConsoleFlags = 1 << 8
	FlagLogLevelError ConsoleFlags = 1 << 9
)

// Counts are per-severity row totals as the provider reports them.
type Counts struct {
	Errors   int
	Warnings int
	Logs     int
}

// Provider is the external, mutable log buffer the store mirrors.
//
// Row and OccurrenceCount are only valid between BeginBatch and EndBatch.
type Provider interface {
	// BeginBatch starts reading and returns the current row count.
	BeginBatch() (int, error)
	// EndBatch finishes reading. The store always calls it after a
	// successful BeginBatch, even when reading a row fails.
	EndBatch() error
	// Row returns the canonical fields of one row.
	Row(index int) (logentry.Raw, error)
	// OccurrenceCount returns how many occurrences are collapsed into a row.
	OccurrenceCount(index int) (int, error)
	// Clear empties the buffer.
	Clear() error
	// CountsBySeverity returns row totals per severity.
	CountsBySeverity() (Counts, error)
	Flags() ConsoleFlags
	SetFlag(flag ConsoleFlags, on bool)
}
