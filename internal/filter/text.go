package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newhook/remedy/internal/logentry"
)

// TextMode selects how a TextFilter matches.
type TextMode int

const (
	// ModeSubstring matches the pattern as a substring of message or file.
	ModeSubstring TextMode = iota
	// ModeFile matches the pattern as a substring of the file only.
	ModeFile
	// ModeRegex matches the pattern as a regular expression against
	// message or file.
	ModeRegex
)

// String returns the config name of the mode.
func (m TextMode) String() string {
	switch m {
	case ModeFile:
		return "file"
	case ModeRegex:
		return "regex"
	default:
		return "substring"
	}
}

// ParseTextMode parses a config name. Unknown names are an error.
func ParseTextMode(s string) (TextMode, error) {
	switch s {
	case "", "substring":
		return ModeSubstring, nil
	case "file":
		return ModeFile, nil
	case "regex":
		return ModeRegex, nil
	default:
		return ModeSubstring, fmt.Errorf("unknown text filter mode %q", s)
	}
}

// TextFilter shows records whose message or file matches a pattern.
// An empty pattern, or a regex that does not compile, shows everything.
type TextFilter struct {
	base
	mode    TextMode
	pattern string
	regex   *regexp.Regexp
	err     error
}

// NewTextFilter creates an enabled text filter.
func NewTextFilter(mode TextMode, pattern string) *TextFilter {
	f := &TextFilter{base: newBase(), mode: mode, pattern: pattern}
	f.compile()
	return f
}

// Visible implements Filter.
func (f *TextFilter) Visible(r *logentry.Record) bool {
	if !f.enabled || f.pattern == "" {
		return true
	}

	switch f.mode {
	case ModeRegex:
		if f.regex == nil {
			return true
		}
		return f.regex.MatchString(r.Condition()) || f.regex.MatchString(r.File())
	case ModeFile:
		return strings.Contains(r.File(), f.pattern)
	default:
		return strings.Contains(r.Condition(), f.pattern) || strings.Contains(r.File(), f.pattern)
	}
}

// Pattern returns the current pattern.
func (f *TextFilter) Pattern() string { return f.pattern }

// Mode returns the current mode.
func (f *TextFilter) Mode() TextMode { return f.mode }

// Err returns the regex compile error, if any.
func (f *TextFilter) Err() error { return f.err }

// SetPattern replaces the pattern.
func (f *TextFilter) SetPattern(pattern string) {
	if f.pattern == pattern {
		return
	}
	f.pattern = pattern
	f.compile()
	f.touch()
}

// SetMode replaces the mode.
func (f *TextFilter) SetMode(mode TextMode) {
	if f.mode == mode {
		return
	}
	f.mode = mode
	f.compile()
	f.touch()
}

func (f *TextFilter) compile() {
	f.regex, f.err = nil, nil
	if f.mode != ModeRegex || f.pattern == "" {
		return
	}
	re, err := regexp.Compile(f.pattern)
	if err != nil {
		f.err = fmt.Errorf("invalid filter pattern %q: %w", f.pattern, err)
		return
	}
	f.regex = re
}
