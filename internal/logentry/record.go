// Package logentry models one deduplicated console log occurrence.
package logentry

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/newhook/remedy/internal/logparser"
)

// Raw holds the canonical fields a provider reports for one row.
type Raw struct {
	Condition      string
	ErrorNum       int
	File           string
	Line           int
	Mode           Mode
	InstanceID     int
	Identifier     int
	IsWorldPlaying bool
}

// Hash returns the identity hash of the row.
func (r Raw) Hash() uint64 {
	return Hash(r.Condition, r.ErrorNum, r.File, r.Line, r.InstanceID, r.Identifier)
}

// Hash computes a record identity from the fields that make two log calls
// "the same". Occurrence count and timestamp are deliberately excluded.
func Hash(condition string, errorNum int, file string, line, instanceID, identifier int) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		d.Write(buf[:])
	}

	d.WriteString(condition)
	d.Write([]byte{0})
	writeInt(errorNum)
	d.WriteString(file)
	d.Write([]byte{0})
	writeInt(line)
	writeInt(instanceID)
	writeInt(identifier)
	return d.Sum64()
}

// AssetResolver maps an instance handle to an asset path.
type AssetResolver interface {
	PathForInstance(handle int) string
}

// Tagger rewrites a condition at construction time. ok reports whether the
// record becomes a terminal entry.
type Tagger interface {
	Tag(condition string) (rewritten string, ok bool)
}

// Option configures a Record at construction.
type Option func(*Record)

// WithTagger applies t once while the record is built.
func WithTagger(t Tagger) Option {
	return func(r *Record) { r.tagger = t }
}

// WithResolver sets the resolver used when a message names no file.
func WithResolver(res AssetResolver) Option {
	return func(r *Record) { r.resolver = res }
}

// WithParser overrides the parse engine.
func WithParser(e *logparser.Engine) Option {
	return func(r *Record) { r.parser = e }
}

// WithTime sets the record timestamp.
func WithTime(t time.Time) Option {
	return func(r *Record) { r.time = t }
}

type parseState int

const (
	unparsed parseState = iota
	parsed
)

// Record is one log occurrence. Identity fields are fixed at construction;
// only the occurrence count and timestamp change afterwards.
type Record struct {
	condition      string
	errorNum       int
	file           string
	line           int
	mode           Mode
	instanceID     int
	identifier     int
	isWorldPlaying bool
	hash           uint64

	count int
	time  time.Time

	tagger   Tagger
	resolver AssetResolver
	parser   *logparser.Engine

	state  parseState
	empty  bool
	frames []logparser.StackFrame
	files  []logparser.FileRef
	code   string
}

// New builds a record from a raw row. The hash is taken from the raw
// fields before any tagging rewrites the condition.
func New(raw Raw, opts ...Option) *Record {
	r := &Record{
		condition:      raw.Condition,
		errorNum:       raw.ErrorNum,
		file:           raw.File,
		line:           raw.Line,
		mode:           raw.Mode,
		instanceID:     raw.InstanceID,
		identifier:     raw.Identifier,
		isWorldPlaying: raw.IsWorldPlaying,
		hash:           raw.Hash(),
		count:          1,
		parser:         logparser.Default,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.tagger != nil {
		if cond, ok := r.tagger.Tag(r.condition); ok {
			r.condition = cond
			r.mode = ModeTerminalEntry
		}
		r.tagger = nil
	}
	return r
}

// Empty returns a blank record for out-of-range lookups. Each call returns
// a new value, so callers may modify it freely.
func Empty() *Record {
	return &Record{parser: logparser.Default, state: parsed, empty: true}
}

// IsEmpty reports whether r came from Empty.
func (r *Record) IsEmpty() bool { return r.empty }

// Condition returns the message text.
func (r *Record) Condition() string { return r.condition }

// ErrorNum returns the provider's error number.
func (r *Record) ErrorNum() int { return r.errorNum }

// File returns the file the provider attributes the log call to.
func (r *Record) File() string { return r.file }

// Line returns the provider's line for File.
func (r *Record) Line() int { return r.line }

// Mode returns the raw flag set.
func (r *Record) Mode() Mode { return r.mode }

// InstanceID returns the instance handle, 0 when none.
func (r *Record) InstanceID() int { return r.instanceID }

// Identifier returns the provider identifier.
func (r *Record) Identifier() int { return r.identifier }

// IsWorldPlaying reports whether the row was logged while the world ran.
func (r *Record) IsWorldPlaying() bool { return r.isWorldPlaying }

// Hash returns the identity hash.
func (r *Record) Hash() uint64 { return r.hash }

// Count returns the occurrence count.
func (r *Record) Count() int { return r.count }

// SetCount updates the occurrence count.
func (r *Record) SetCount(n int) { r.count = n }

// Time returns the timestamp.
func (r *Record) Time() time.Time { return r.time }

// SetTime updates the timestamp.
func (r *Record) SetTime(t time.Time) { r.time = t }

// Severity returns the display severity.
func (r *Record) Severity() Severity { return r.mode.Severity() }

// IsWarning reports whether the record is in the warning group.
func (r *Record) IsWarning() bool { return r.Severity() == SeverityWarning }

// IsError reports whether the record is in the error group.
func (r *Record) IsError() bool { return r.Severity() == SeverityError }

// FirstLine returns the first line of the condition.
func (r *Record) FirstLine() string { return logparser.FirstLine(r.condition) }

// FirstTwoLines returns the first two lines of the condition.
func (r *Record) FirstTwoLines() string { return logparser.FirstTwoLines(r.condition) }

// StackFrames returns the parsed stack trace.
func (r *Record) StackFrames() []logparser.StackFrame {
	r.parse()
	return slices.Clone(r.frames)
}

// Files returns every file the record references, in discovery order.
func (r *Record) Files() []logparser.FileRef {
	r.parse()
	return slices.Clone(r.files)
}

// Code returns the compiler warning code, "" when none.
func (r *Record) Code() string {
	r.parse()
	return r.code
}

// Basename returns the basename of the first referenced file.
func (r *Record) Basename() string {
	r.parse()
	if len(r.files) == 0 {
		return "Unknown"
	}
	return r.files[0].Basename()
}

// RemoveFiles drops every referenced file with the given basename. It is a
// no-op until the record has been parsed.
func (r *Record) RemoveFiles(basename string) {
	if r.state != parsed {
		return
	}
	r.files = slices.DeleteFunc(r.files, func(f logparser.FileRef) bool {
		return f.Basename() == basename
	})
}

// Parsed reports whether derived data has been computed.
func (r *Record) Parsed() bool { return r.state == parsed }

func (r *Record) parse() {
	if r.state == parsed {
		return
	}
	r.state = parsed

	res := r.parser.Parse(r.condition, r.IsWarning())
	r.frames = res.StackFrames
	r.files = res.Files
	r.code = res.Code

	if len(r.files) == 0 && r.instanceID != 0 && r.resolver != nil {
		r.files = append(r.files, logparser.FileRef{
			Path: r.resolver.PathForInstance(r.instanceID),
			Line: -1,
		})
	}
}
