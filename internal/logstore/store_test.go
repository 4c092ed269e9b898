package logstore

import (
	"errors"
	"testing"
	"time"

	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type row struct {
	raw   logentry.Raw
	count int
}

// fakeProvider is an in-memory provider with failure injection.
type fakeProvider struct {
	rows    []row
	flags   ConsoleFlags
	failRow int
	inBatch bool
	ends    int
	clears  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{failRow: -1}
}

func (p *fakeProvider) log(condition string, mode logentry.Mode) {
	p.rows = append(p.rows, row{raw: logentry.Raw{Condition: condition, Mode: mode}, count: 1})
}

func (p *fakeProvider) BeginBatch() (int, error) {
	p.inBatch = true
	return len(p.rows), nil
}

func (p *fakeProvider) EndBatch() error {
	p.inBatch = false
	p.ends++
	return nil
}

func (p *fakeProvider) Row(i int) (logentry.Raw, error) {
	if !p.inBatch {
		return logentry.Raw{}, errors.New("row read outside batch")
	}
	if i == p.failRow {
		return logentry.Raw{}, errors.New("boom")
	}
	return p.rows[i].raw, nil
}

func (p *fakeProvider) OccurrenceCount(i int) (int, error) {
	return p.rows[i].count, nil
}

func (p *fakeProvider) Clear() error {
	p.rows = nil
	p.clears++
	return nil
}

func (p *fakeProvider) CountsBySeverity() (Counts, error) {
	var c Counts
	for _, r := range p.rows {
		switch r.raw.Mode.Severity() {
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

func (p *fakeProvider) Flags() ConsoleFlags { return p.flags }

func (p *fakeProvider) SetFlag(flag ConsoleFlags, on bool) {
	if on {
		p.flags |= flag
	} else {
		p.flags &^= flag
	}
}

func conditions(s *Store) []string {
	var out []string
	for _, r := range s.Visible() {
		out = append(out, r.Condition())
	}
	return out
}

func TestStore_PollAppendsNewRows(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})

	p.log("a", logentry.ModeLog)
	p.log("b", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"a", "b"}, conditions(s))

	p.log("c", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"a", "b", "c"}, conditions(s))
	assert.Equal(t, 3, s.RowCount())
	assert.Equal(t, 2, p.ends)
}

func TestStore_DeduplicatesByHash(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})

	p.log("tick", logentry.ModeLog)
	p.log("boot", logentry.ModeLog)
	p.log("tick", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	require.Equal(t, 2, s.Len())
	assert.Equal(t, "tick", s.At(0).Condition())
	assert.Equal(t, 2, s.At(0).Count())
	assert.Equal(t, 1, s.At(1).Count())

	// A row in a later poll still joins the existing record.
	p.log("tick", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.At(0).Count())
}

func TestStore_CountsRefreshWhenRowsCollapse(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})

	p.log("tick", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	var changed []string
	s.OnOccurrenceChanged(func(r *logentry.Record) { changed = append(changed, r.Condition()) })

	// Collapsing provider: same row count, higher occurrence count.
	p.rows[0].count = 4
	require.NoError(t, s.Poll(ModeAdd))
	assert.Equal(t, 4, s.At(0).Count())
	assert.Equal(t, []string{"tick"}, changed)

	// Same row count and no mode: nothing is re-read.
	p.rows[0].count = 9
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 4, s.At(0).Count())
}

func TestStore_ShrinkForcesRebuild(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})

	p.log("a", logentry.ModeLog)
	p.log("b", logentry.ModeLog)
	p.log("c", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	first := s.At(1)

	p.rows = p.rows[1:2]
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"b"}, conditions(s))
	assert.Same(t, first, s.At(0), "records are reused across rebuilds")
}

func TestStore_AddAndRebuildAgree(t *testing.T) {
	p := newFakeProvider()
	incremental := New(p, Options{})

	batches := [][]string{{"a", "b"}, {"a"}, {"c", "b", "d"}}
	for _, batch := range batches {
		for _, c := range batch {
			p.log(c, logentry.ModeLog)
		}
		require.NoError(t, incremental.Poll(ModeAdd))
	}

	full := New(p, Options{})
	require.NoError(t, full.Poll(ModeRebuild))

	require.Equal(t, conditions(full), conditions(incremental))
	for i := range full.Len() {
		assert.Equal(t, full.At(i).Count(), incremental.At(i).Count())
		assert.Equal(t, full.At(i).Hash(), incremental.At(i).Hash())
	}
}

func TestStore_FlagChangeForcesRebuild(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("a", logentry.ModeLog)
	p.log("a", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 2, s.At(0).Count())

	// The provider now reports one collapsed row.
	p.SetFlag(FlagCollapse, true)
	p.rows = []row{{raw: p.rows[0].raw, count: 2}}
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 1, s.RowCount())
	assert.Equal(t, 2, s.At(0).Count())
}

func TestStore_FiltersAndInvalidation(t *testing.T) {
	p := newFakeProvider()
	set := filter.NewSet()
	text := filter.NewTextFilter(filter.ModeSubstring, "")
	set.Add(filter.NameText, text)
	s := New(p, Options{Filters: set})

	p.log("player spawned", logentry.ModeLog)
	p.log("enemy spawned", logentry.ModeLog)
	p.log("player died", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 3, s.Len())

	text.SetPattern("player")
	assert.Equal(t, []string{"player spawned", "player died"}, conditions(s))

	// AND with a second filter.
	died := filter.NewTextFilter(filter.ModeSubstring, "died")
	set.Add("extra", died)
	assert.Equal(t, []string{"player died"}, conditions(s))

	// Newly appended rows respect the active filters.
	p.log("player respawned", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"player died"}, conditions(s))

	set.Disable("extra")
	assert.Equal(t, []string{"player spawned", "player died", "player respawned"}, conditions(s))
}

func TestStore_Reverse(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("a", logentry.ModeLog)
	p.log("b", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	s.SetReverse(true)
	assert.True(t, s.Reverse())
	assert.Equal(t, []string{"b", "a"}, conditions(s))

	p.log("c", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"c", "b", "a"}, conditions(s))

	// Toggling twice restores the original order.
	s.SetReverse(false)
	s.SetReverse(true)
	s.SetReverse(false)
	assert.Equal(t, []string{"a", "b", "c"}, conditions(s))
}

func TestStore_NotificationOrder(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("old", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	var events []string
	s.OnRecordAdded(func(r *logentry.Record) { events = append(events, "added:"+r.Condition()) })
	s.OnOccurrenceChanged(func(r *logentry.Record) { events = append(events, "changed:"+r.Condition()) })

	p.log("new1", logentry.ModeLog)
	p.log("old", logentry.ModeLog)
	p.log("new2", logentry.ModeLog)
	p.log("new1", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	assert.Equal(t, []string{"changed:old", "added:new1", "added:new2"}, events)

	events = nil
	require.NoError(t, s.Poll(ModeNone))
	assert.Empty(t, events, "queues drain after every poll")
}

func TestStore_RowFailureEndsBatch(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("a", logentry.ModeLog)
	p.log("b", logentry.ModeLog)
	p.log("c", logentry.ModeLog)
	p.failRow = 1

	var added []string
	s.OnRecordAdded(func(r *logentry.Record) { added = append(added, r.Condition()) })

	err := s.Poll(ModeNone)
	require.Error(t, err)
	assert.False(t, p.inBatch)
	assert.Equal(t, 1, p.ends)
	assert.Equal(t, []string{"a"}, conditions(s))
	assert.Equal(t, []string{"a"}, added)

	// The next tick resumes where the failed one stopped.
	p.failRow = -1
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, []string{"a", "b", "c"}, conditions(s))
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) BeginBatch() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) EndBatch() error {
	return m.Called().Error(0)
}

func (m *mockProvider) Row(i int) (logentry.Raw, error) {
	args := m.Called(i)
	return args.Get(0).(logentry.Raw), args.Error(1)
}

func (m *mockProvider) OccurrenceCount(i int) (int, error) {
	args := m.Called(i)
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) Clear() error {
	return m.Called().Error(0)
}

func (m *mockProvider) CountsBySeverity() (Counts, error) {
	args := m.Called()
	return args.Get(0).(Counts), args.Error(1)
}

func (m *mockProvider) Flags() ConsoleFlags {
	return m.Called().Get(0).(ConsoleFlags)
}

func (m *mockProvider) SetFlag(flag ConsoleFlags, on bool) {
	m.Called(flag, on)
}

func TestStore_BeginBatchFailure(t *testing.T) {
	p := new(mockProvider)
	p.On("Flags").Return(ConsoleFlags(0))
	p.On("BeginBatch").Return(0, errors.New("locked"))

	s := New(p, Options{})
	err := s.Poll(ModeNone)
	require.ErrorIs(t, err, ErrBatch)
	p.AssertNotCalled(t, "EndBatch")
	assert.Equal(t, 0, s.Len())
}

func TestStore_EndBatchFailureIsReported(t *testing.T) {
	p := new(mockProvider)
	p.On("Flags").Return(ConsoleFlags(0))
	p.On("BeginBatch").Return(1, nil)
	p.On("Row", 0).Return(logentry.Raw{Condition: "a"}, nil)
	p.On("OccurrenceCount", 0).Return(1, nil)
	p.On("EndBatch").Return(errors.New("unlock failed"))

	s := New(p, Options{})
	err := s.Poll(ModeNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unlock failed")
	assert.Equal(t, 1, s.Len())
	p.AssertExpectations(t)
}

func TestStore_ClearFailureKeepsRecords(t *testing.T) {
	p := new(mockProvider)
	p.On("Flags").Return(ConsoleFlags(0))
	p.On("BeginBatch").Return(1, nil)
	p.On("Row", 0).Return(logentry.Raw{Condition: "a"}, nil)
	p.On("OccurrenceCount", 0).Return(1, nil)
	p.On("EndBatch").Return(nil)
	p.On("Clear").Return(errors.New("denied"))

	s := New(p, Options{})
	require.NoError(t, s.Poll(ModeNone))
	require.Error(t, s.Clear())
	assert.Equal(t, 1, s.Len())
}

func TestStore_Clear(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("a", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	rec := s.At(0)

	require.NoError(t, s.Clear())
	assert.Equal(t, 1, p.clears)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.RowCount())
	assert.Equal(t, -1, s.LastIndexOf(rec))

	// Logging the same message again yields a fresh record.
	var added int
	s.OnRecordAdded(func(*logentry.Record) { added++ })
	p.log("a", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 1, added)
	assert.NotSame(t, rec, s.At(0))
}

func TestStore_AtAndLastIndexOf(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("a", logentry.ModeLog)
	p.log("b", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	assert.True(t, s.At(-1).IsEmpty())
	assert.True(t, s.At(2).IsEmpty())
	assert.False(t, s.At(1).IsEmpty())
	assert.Equal(t, 1, s.LastIndexOf(s.At(1)))
	assert.Equal(t, -1, s.LastIndexOf(logentry.New(logentry.Raw{Condition: "z"})))
}

func TestStore_TagsTerminalEntries(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{Tagger: terminal.Tagger{}})
	p.log(terminal.Command(terminal.HelpCommand), logentry.ModeLog)
	p.log("plain", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))

	assert.Equal(t, logentry.ModeTerminalEntry, s.At(0).Mode())
	assert.Equal(t, logentry.SeverityTerminal, s.At(0).Severity())
	assert.Equal(t, logentry.ModeLog, s.At(1).Mode())

	// Identity comes from the untagged row, so a repeat still dedups.
	p.log(terminal.Command(terminal.HelpCommand), logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.At(0).Count())
}

func TestStore_StampsRecordsWithClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newFakeProvider()
	s := New(p, Options{Now: func() time.Time { return now }})
	p.log("a", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, now, s.At(0).Time())

	now = now.Add(time.Minute)
	p.log("a", logentry.ModeLog)
	require.NoError(t, s.Poll(ModeNone))
	assert.Equal(t, now, s.At(0).Time())
}

func TestStore_Counts(t *testing.T) {
	p := newFakeProvider()
	s := New(p, Options{})
	p.log("e", logentry.ModeError)
	p.log("w", logentry.ModeScriptingWarning)
	p.log("l", logentry.ModeLog)
	p.log("l2", logentry.ModeLog)

	c, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, Counts{Errors: 1, Warnings: 1, Logs: 2}, c)
}
