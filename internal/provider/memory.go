// Package provider implements log buffers the store can mirror.
package provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logstore"
)

// ErrNotInBatch is returned when rows are read outside a batch.
var ErrNotInBatch = errors.New("row read outside of a batch")

type memRow struct {
	raw   logentry.Raw
	count int
}

// Memory is an in-process log buffer. With FlagCollapse set, identical
// messages share one row whose occurrence count grows.
//
// Log may be called from any goroutine. A batch holds the buffer lock, so
// writers block until EndBatch.
type Memory struct {
	mu      sync.Mutex
	entries []logentry.Raw
	rows    []memRow
	index   map[uint64]int
	flags   logstore.ConsoleFlags
	inBatch bool
}

var _ logstore.Provider = (*Memory)(nil)

// NewMemory creates an empty buffer with the given flags.
func NewMemory(flags logstore.ConsoleFlags) *Memory {
	return &Memory{
		index: make(map[uint64]int),
		flags: flags,
	}
}

// Log appends one occurrence.
func (m *Memory) Log(raw logentry.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, raw)
	m.addRow(raw)
}

func (m *Memory) addRow(raw logentry.Raw) {
	if m.flags&logstore.FlagCollapse != 0 {
		hash := raw.Hash()
		if i, ok := m.index[hash]; ok {
			m.rows[i].count++
			return
		}
		m.index[hash] = len(m.rows)
	}
	m.rows = append(m.rows, memRow{raw: raw, count: 1})
}

func (m *Memory) reindex() {
	m.rows = nil
	m.index = make(map[uint64]int)
	for _, raw := range m.entries {
		m.addRow(raw)
	}
}

// BeginBatch locks the buffer and returns the row count.
func (m *Memory) BeginBatch() (int, error) {
	m.mu.Lock()
	m.inBatch = true
	return len(m.rows), nil
}

// EndBatch releases the buffer.
func (m *Memory) EndBatch() error {
	if !m.inBatch {
		return ErrNotInBatch
	}
	m.inBatch = false
	m.mu.Unlock()
	return nil
}

// Row implements logstore.Provider.
func (m *Memory) Row(index int) (logentry.Raw, error) {
	if err := m.check(index); err != nil {
		return logentry.Raw{}, err
	}
	return m.rows[index].raw, nil
}

// OccurrenceCount implements logstore.Provider.
func (m *Memory) OccurrenceCount(index int) (int, error) {
	if err := m.check(index); err != nil {
		return 0, err
	}
	return m.rows[index].count, nil
}

func (m *Memory) check(index int) error {
	if !m.inBatch {
		return ErrNotInBatch
	}
	if index < 0 || index >= len(m.rows) {
		return fmt.Errorf("row %d out of range [0,%d)", index, len(m.rows))
	}
	return nil
}

// Clear drops every entry.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.rows = nil
	m.index = make(map[uint64]int)
	return nil
}

// CountsBySeverity counts occurrences, not rows, so collapsing does not
// change the totals. Terminal entries count as logs.
func (m *Memory) CountsBySeverity() (logstore.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c logstore.Counts
	for _, raw := range m.entries {
		switch raw.Mode.Severity() {
		case logentry.SeverityError:
			c.Errors++
		case logentry.SeverityWarning:
			c.Warnings++
		default:
			c.Logs++
		}
	}
	return c, nil
}

// Flags implements logstore.Provider.
func (m *Memory) Flags() logstore.ConsoleFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags
}

// SetFlag toggles flag. Changing FlagCollapse regroups the rows.
func (m *Memory) SetFlag(flag logstore.ConsoleFlags, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.flags
	if on {
		m.flags |= flag
	} else {
		m.flags &^= flag
	}
	if (old^m.flags)&logstore.FlagCollapse != 0 {
		m.reindex()
	}
}

// Len returns the number of logged occurrences.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
