package filter

import (
	"slices"

	"github.com/newhook/remedy/internal/logentry"
)

// stringSet is a set of strings.
type stringSet struct {
	items map[string]struct{}
}

func newStringSet(items []string) stringSet {
	s := stringSet{items: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.items[it] = struct{}{}
	}
	return s
}

func (s stringSet) add(v string) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = struct{}{}
	return true
}

func (s stringSet) remove(v string) bool {
	if _, ok := s.items[v]; !ok {
		return false
	}
	delete(s.items, v)
	return true
}

func (s stringSet) contains(v string) bool {
	_, ok := s.items[v]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// FileFilter hides records whose reported file is in the set.
type FileFilter struct {
	base
	files stringSet
}

// NewFileFilter creates an enabled filter hiding the given files.
func NewFileFilter(files ...string) *FileFilter {
	return &FileFilter{base: newBase(), files: newStringSet(files)}
}

// Visible implements Filter.
func (f *FileFilter) Visible(r *logentry.Record) bool {
	if !f.enabled {
		return true
	}
	return !f.files.contains(r.File())
}

// AddFile hides file.
func (f *FileFilter) AddFile(file string) {
	if f.files.add(file) {
		f.touch()
	}
}

// RemoveFile shows file again. It reports whether the file was hidden.
func (f *FileFilter) RemoveFile(file string) bool {
	if f.files.remove(file) {
		f.touch()
		return true
	}
	return false
}

// Contains reports whether file is hidden.
func (f *FileFilter) Contains(file string) bool {
	return f.files.contains(file)
}

// Files returns the hidden files, sorted.
func (f *FileFilter) Files() []string {
	return f.files.sorted()
}

// CodeFilter hides records whose compiler warning code is in the set.
// Records without a code are always visible.
type CodeFilter struct {
	base
	codes stringSet
}

// NewCodeFilter creates an enabled filter hiding the given codes.
func NewCodeFilter(codes ...string) *CodeFilter {
	return &CodeFilter{base: newBase(), codes: newStringSet(codes)}
}

// Visible implements Filter.
func (f *CodeFilter) Visible(r *logentry.Record) bool {
	if !f.enabled {
		return true
	}
	code := r.Code()
	if code == "" {
		return true
	}
	return !f.codes.contains(code)
}

// AddCode hides code.
func (f *CodeFilter) AddCode(code string) {
	if f.codes.add(code) {
		f.touch()
	}
}

// RemoveCode shows code again. It reports whether the code was hidden.
func (f *CodeFilter) RemoveCode(code string) bool {
	if f.codes.remove(code) {
		f.touch()
		return true
	}
	return false
}

// Contains reports whether code is hidden.
func (f *CodeFilter) Contains(code string) bool {
	return f.codes.contains(code)
}

// Codes returns the hidden codes, sorted.
func (f *CodeFilter) Codes() []string {
	return f.codes.sorted()
}

// SeverityFilter hides whole severities. Terminal and info records are
// grouped with logs.
type SeverityFilter struct {
	base
	hidden map[logentry.Severity]bool
}

// NewSeverityFilter creates an enabled filter hiding nothing.
func NewSeverityFilter() *SeverityFilter {
	return &SeverityFilter{base: newBase(), hidden: make(map[logentry.Severity]bool)}
}

// Visible implements Filter.
func (f *SeverityFilter) Visible(r *logentry.Record) bool {
	if !f.enabled {
		return true
	}
	return !f.hidden[group(r.Severity())]
}

// SetShown shows or hides sev.
func (f *SeverityFilter) SetShown(sev logentry.Severity, shown bool) {
	sev = group(sev)
	if f.hidden[sev] == !shown {
		return
	}
	f.hidden[sev] = !shown
	f.touch()
}

// Shown reports whether sev is visible.
func (f *SeverityFilter) Shown(sev logentry.Severity) bool {
	return !f.hidden[group(sev)]
}

func group(sev logentry.Severity) logentry.Severity {
	switch sev {
	case logentry.SeverityError, logentry.SeverityWarning:
		return sev
	default:
		return logentry.SeverityLog
	}
}
