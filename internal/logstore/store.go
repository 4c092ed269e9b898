// Package logstore mirrors an external log provider into deduplicated
// records and maintains the filtered, ordered projection a console shows.
//
// A Store is polled once per host tick and is not safe for concurrent use.
package logstore

import (
	"fmt"
	"slices"
	"time"

	"github.com/newhook/remedy/internal/filter"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/logparser"
)

// Mode selects how a poll reconciles with the provider.
type Mode int

const (
	// ModeNone lets the store decide from the row count.
	ModeNone Mode = iota
	// ModeAdd appends new rows, or refreshes occurrence counts when the
	// row count is unchanged.
	ModeAdd
	// ModeRebuild re-reads every row.
	ModeRebuild
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeRebuild:
		return "rebuild"
	default:
		return "none"
	}
}

// Options configures a Store.
type Options struct {
	// Filters decides visibility. Defaults to an empty set.
	Filters *filter.Set
	// Resolver maps instance handles to asset paths for new records.
	Resolver logentry.AssetResolver
	// Tagger rewrites new records once at construction.
	Tagger logentry.Tagger
	// Parser parses record text. Defaults to logparser.Default.
	Parser *logparser.Engine
	// Reverse presents the projection newest first.
	Reverse bool
	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
}

// Store owns every record read from a provider.
type Store struct {
	provider Provider
	opts     Options
	filters  *filter.Set

	rows    []*logentry.Record // one entry per provider row
	records []*logentry.Record // deduplicated, first-occurrence order
	byHash  map[uint64]*logentry.Record
	listed  map[uint64]bool

	view      []*logentry.Record
	dirty     bool
	reverse   bool
	filterRev uint64
	flags     ConsoleFlags

	added   []*logentry.Record
	changed []*logentry.Record

	onAdded   []func(*logentry.Record)
	onChanged []func(*logentry.Record)
}

// New creates a store over provider. Nothing is read until the first Poll.
func New(provider Provider, opts Options) *Store {
	if opts.Filters == nil {
		opts.Filters = filter.NewSet()
	}
	if opts.Parser == nil {
		opts.Parser = logparser.Default
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		provider:  provider,
		opts:      opts,
		filters:   opts.Filters,
		byHash:    make(map[uint64]*logentry.Record),
		listed:    make(map[uint64]bool),
		dirty:     true,
		reverse:   opts.Reverse,
		filterRev: opts.Filters.Revision(),
		flags:     provider.Flags(),
	}
}

// OnRecordAdded registers fn to run for every genuinely new record.
func (s *Store) OnRecordAdded(fn func(*logentry.Record)) {
	s.onAdded = append(s.onAdded, fn)
}

// OnOccurrenceChanged registers fn to run when a record's count changes.
// Within one poll, changed callbacks run before added callbacks.
func (s *Store) OnOccurrenceChanged(fn func(*logentry.Record)) {
	s.onChanged = append(s.onChanged, fn)
}

// Filters returns the filter set. Changes to it invalidate the projection.
func (s *Store) Filters() *filter.Set {
	return s.filters
}

// Reverse reports whether the projection is newest first.
func (s *Store) Reverse() bool {
	return s.reverse
}

// SetReverse changes the projection order. Storage order is untouched.
func (s *Store) SetReverse(reverse bool) {
	if s.reverse != reverse {
		s.reverse = reverse
		s.dirty = true
	}
}

// Poll reconciles with the provider, refreshes the projection if needed and
// fires queued notifications. A row error aborts reconciliation for this
// tick; state stays as of the last row read and notifications already
// queued are still delivered.
func (s *Store) Poll(mode Mode) error {
	if flags := s.provider.Flags(); flags != s.flags {
		logging.Debug("console flags changed", "old", s.flags, "new", flags)
		s.flags = flags
		mode = ModeRebuild
	}

	err := s.reconcile(mode)
	if err != nil {
		logging.Warn("poll aborted", "mode", mode.String(), "error", err)
	}

	s.ensureView()
	s.flush()
	return err
}

func (s *Store) reconcile(mode Mode) (err error) {
	observed, err := s.provider.BeginBatch()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBatch, err)
	}
	defer func() {
		if endErr := s.provider.EndBatch(); endErr != nil && err == nil {
			err = fmt.Errorf("failed to end batch: %w", endErr)
		}
	}()

	stored := len(s.rows)
	switch {
	case observed < stored && mode != ModeRebuild:
		mode = ModeRebuild
	case observed > stored && mode == ModeNone:
		mode = ModeAdd
	}

	switch mode {
	case ModeAdd:
		if stored == observed {
			return s.refreshCounts()
		}
		return s.appendRows(observed)
	case ModeRebuild:
		return s.rebuild(observed)
	}
	return nil
}

// appendRows reads rows [len(rows), observed).
func (s *Store) appendRows(observed int) error {
	logging.Debug("appending rows", "from", len(s.rows), "to", observed)
	now := s.opts.Now()
	for i := len(s.rows); i < observed; i++ {
		rec, n, err := s.fetch(i)
		if err != nil {
			return err
		}
		rec.SetTime(now)
		s.attach(rec, n, true)
	}
	return nil
}

// rebuild discards the row and record lists and re-reads every row.
// Records already known by hash are reused.
func (s *Store) rebuild(observed int) error {
	logging.Debug("rebuilding records", "rows", observed)
	s.rows = nil
	s.records = nil
	s.listed = make(map[uint64]bool)
	s.dirty = true

	for i := 0; i < observed; i++ {
		rec, n, err := s.fetch(i)
		if err != nil {
			return err
		}
		s.attach(rec, n, false)
	}
	return nil
}

// refreshCounts re-reads occurrence counts for every stored row.
func (s *Store) refreshCounts() error {
	totals := make(map[*logentry.Record]int, len(s.records))
	for i, rec := range s.rows {
		n, err := s.provider.OccurrenceCount(i)
		if err != nil {
			return fmt.Errorf("failed to read occurrence count of row %d: %w", i, err)
		}
		totals[rec] += n
	}

	now := s.opts.Now()
	for _, rec := range s.records {
		if n := totals[rec]; n != rec.Count() {
			rec.SetCount(n)
			rec.SetTime(now)
			s.queueChanged(rec)
		}
	}
	return nil
}

// fetch reads one provider row and returns the record it belongs to,
// constructing and registering a new one for an unseen hash.
func (s *Store) fetch(index int) (*logentry.Record, int, error) {
	raw, err := s.provider.Row(index)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read row %d: %w", index, err)
	}
	n, err := s.provider.OccurrenceCount(index)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read occurrence count of row %d: %w", index, err)
	}

	hash := raw.Hash()
	if rec, ok := s.byHash[hash]; ok {
		return rec, n, nil
	}

	opts := []logentry.Option{
		logentry.WithParser(s.opts.Parser),
		logentry.WithTime(s.opts.Now()),
	}
	if s.opts.Resolver != nil {
		opts = append(opts, logentry.WithResolver(s.opts.Resolver))
	}
	if s.opts.Tagger != nil {
		opts = append(opts, logentry.WithTagger(s.opts.Tagger))
	}
	rec := logentry.New(raw, opts...)
	rec.SetCount(0)
	s.byHash[hash] = rec
	s.added = append(s.added, rec)
	return rec, n, nil
}

// attach records that row len(rows) belongs to rec with n occurrences.
func (s *Store) attach(rec *logentry.Record, n int, notify bool) {
	s.rows = append(s.rows, rec)

	hash := rec.Hash()
	if !s.listed[hash] {
		s.listed[hash] = true
		rec.SetCount(n)
		s.records = append(s.records, rec)
		s.appendToView(rec)
		return
	}

	rec.SetCount(rec.Count() + n)
	if notify {
		s.queueChanged(rec)
	}
}

func (s *Store) queueChanged(rec *logentry.Record) {
	if slices.Contains(s.changed, rec) || slices.Contains(s.added, rec) {
		return
	}
	s.changed = append(s.changed, rec)
}

// appendToView keeps a valid projection current without a full recompute.
func (s *Store) appendToView(rec *logentry.Record) {
	if s.dirty || s.view == nil || !s.filters.Visible(rec) {
		return
	}
	if s.reverse {
		s.view = slices.Insert(s.view, 0, rec)
		return
	}
	s.view = append(s.view, rec)
}

func (s *Store) ensureView() {
	if rev := s.filters.Revision(); rev != s.filterRev {
		s.filterRev = rev
		s.dirty = true
	}
	if !s.dirty && s.view != nil {
		return
	}

	view := make([]*logentry.Record, 0, len(s.records))
	for _, rec := range s.records {
		if s.filters.Visible(rec) {
			view = append(view, rec)
		}
	}
	if s.reverse {
		slices.Reverse(view)
	}
	s.view = view
	s.dirty = false
}

func (s *Store) flush() {
	changed, added := s.changed, s.added
	s.changed, s.added = nil, nil

	for _, rec := range changed {
		for _, fn := range s.onChanged {
			fn(rec)
		}
	}
	for _, rec := range added {
		for _, fn := range s.onAdded {
			fn(rec)
		}
	}
}

// Len returns the number of visible records.
func (s *Store) Len() int {
	s.ensureView()
	return len(s.view)
}

// At returns the visible record at index, or logentry.Empty() when the
// index is out of range.
func (s *Store) At(index int) *logentry.Record {
	s.ensureView()
	if index < 0 || index >= len(s.view) {
		return logentry.Empty()
	}
	return s.view[index]
}

// LastIndexOf returns the last projection index of rec, or -1.
func (s *Store) LastIndexOf(rec *logentry.Record) int {
	s.ensureView()
	for i := len(s.view) - 1; i >= 0; i-- {
		if s.view[i] == rec {
			return i
		}
	}
	return -1
}

// Visible returns a copy of the projection.
func (s *Store) Visible() []*logentry.Record {
	s.ensureView()
	return slices.Clone(s.view)
}

// Records returns every record in storage order, ignoring filters.
func (s *Store) Records() []*logentry.Record {
	return slices.Clone(s.records)
}

// RowCount returns the number of provider rows mirrored.
func (s *Store) RowCount() int {
	return len(s.rows)
}

// Counts returns the provider's per-severity totals.
func (s *Store) Counts() (Counts, error) {
	return s.provider.CountsBySeverity()
}

// Clear clears the provider and then every local record. An empty store
// is a valid projection, so nothing is left dirty.
func (s *Store) Clear() error {
	if err := s.provider.Clear(); err != nil {
		return fmt.Errorf("failed to clear provider: %w", err)
	}
	s.rows = nil
	s.records = nil
	s.byHash = make(map[uint64]*logentry.Record)
	s.listed = make(map[uint64]bool)
	s.view = []*logentry.Record{}
	s.added, s.changed = nil, nil
	s.filterRev = s.filters.Revision()
	s.dirty = false
	return nil
}
