package filter

import (
	"github.com/newhook/remedy/internal/logentry"
)

// Well-known filter names used by the console.
const (
	NameFiles    = "files"
	NameCodes    = "codes"
	NameText     = "text"
	NameSeverity = "severity"
)

type entry struct {
	name string
	f    Filter
	seen uint64
}

// Set is a named registry of filters combined with logical AND.
type Set struct {
	entries  []*entry
	revision uint64
}

// NewSet creates an empty set. An empty set shows every record.
func NewSet() *Set {
	return &Set{}
}

// Add registers f under name, replacing any filter already there.
func (s *Set) Add(name string, f Filter) {
	defer s.touch()
	for _, e := range s.entries {
		if e.name == name {
			e.f, e.seen = f, f.Revision()
			return
		}
	}
	s.entries = append(s.entries, &entry{name: name, f: f, seen: f.Revision()})
}

// Remove unregisters name. It reports whether a filter was removed.
func (s *Set) Remove(name string) bool {
	for i, e := range s.entries {
		if e.name == name {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// Get returns the filter registered under name.
func (s *Set) Get(name string) (Filter, bool) {
	for _, e := range s.entries {
		if e.name == name {
			return e.f, true
		}
	}
	return nil, false
}

// Enable turns the named filter on. It reports whether the name exists.
func (s *Set) Enable(name string) bool {
	return s.setEnabled(name, true)
}

// Disable turns the named filter off. It reports whether the name exists.
func (s *Set) Disable(name string) bool {
	return s.setEnabled(name, false)
}

func (s *Set) setEnabled(name string, enabled bool) bool {
	f, ok := s.Get(name)
	if !ok {
		return false
	}
	f.SetEnabled(enabled)
	return true
}

// Names returns the registered names in registration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Visible reports whether r passes every enabled filter.
func (s *Set) Visible(r *logentry.Record) bool {
	for _, e := range s.entries {
		if !e.f.Visible(r) {
			return false
		}
	}
	return true
}

// Revision changes whenever the set or any member filter changes.
func (s *Set) Revision() uint64 {
	for _, e := range s.entries {
		if rev := e.f.Revision(); rev != e.seen {
			e.seen = rev
			s.touch()
		}
	}
	return s.revision
}

func (s *Set) touch() { s.revision++ }
