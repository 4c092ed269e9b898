// Package filter provides the visibility predicates applied to the console
// projection. Filters are pure: they never mutate records.
package filter

import (
	"github.com/newhook/remedy/internal/logentry"
)

// Filter decides whether a record is visible.
type Filter interface {
	// Visible reports whether r passes. Disabled filters always return true.
	Visible(r *logentry.Record) bool
	Enabled() bool
	SetEnabled(enabled bool)
	// Revision changes whenever the filter's outcome may have changed.
	Revision() uint64
}

// base carries the enabled flag and revision counter shared by every filter.
type base struct {
	enabled  bool
	revision uint64
}

func newBase() base {
	return base{enabled: true}
}

// Enabled reports whether the filter is active.
func (b *base) Enabled() bool { return b.enabled }

// SetEnabled toggles the filter.
func (b *base) SetEnabled(enabled bool) {
	if b.enabled != enabled {
		b.enabled = enabled
		b.touch()
	}
}

// Revision returns the change counter.
func (b *base) Revision() uint64 { return b.revision }

func (b *base) touch() { b.revision++ }
