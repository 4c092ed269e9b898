package provider

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/logstore"
)

var (
	// trailerPattern matches the location block the editor writes after
	// each message.
	trailerPattern = regexp.MustCompile(`^\(Filename: (.*?) Line: (-?[0-9]+)\)$`)

	compileErrorPattern   = regexp.MustCompile(`\([0-9]+,[0-9]+\):\s*error\s+[A-Za-z]+[0-9]+:`)
	compileWarningPattern = regexp.MustCompile(`\([0-9]+,[0-9]+\):\s*warning\s+[A-Za-z]+[0-9]+:`)
)

// File tails an editor log file. Entries are blocks separated by blank
// lines; a "(Filename: X Line: N)" block attaches a location to the entry
// before it. New data is read at the start of every batch.
//
// When the file shrinks it is assumed to have been rotated and every entry
// is dropped.
type File struct {
	*Memory

	path    string
	offset  int64
	buf     string
	pending *logentry.Raw
}

var _ logstore.Provider = (*File)(nil)

// NewFile creates a provider for path. The file need not exist yet.
func NewFile(path string, flags logstore.ConsoleFlags) *File {
	return &File{
		Memory: NewMemory(flags),
		path:   path,
	}
}

// Path returns the tailed file.
func (f *File) Path() string {
	return f.path
}

// BeginBatch reads anything appended since the last batch and then locks
// the buffer.
func (f *File) BeginBatch() (int, error) {
	if err := f.refresh(); err != nil {
		return 0, err
	}
	return f.Memory.BeginBatch()
}

// Clear forgets every entry read so far. The file itself is untouched and
// only data written after the call will appear.
func (f *File) Clear() error {
	f.pending = nil
	return f.Memory.Clear()
}

func (f *File) refresh() error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < f.offset {
		logging.Info("log file truncated, resetting", "path", f.path, "size", info.Size(), "offset", f.offset)
		f.offset = 0
		f.buf = ""
		f.pending = nil
		if err := f.Memory.Clear(); err != nil {
			return err
		}
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	f.offset += int64(len(data))

	if len(data) == 0 {
		// Nothing new: an entry still waiting for its trailer is not
		// going to get one.
		f.flushPending()
		return nil
	}

	f.buf += strings.ReplaceAll(string(data), "\r\n", "\n")
	end := strings.LastIndex(f.buf, "\n\n")
	if end < 0 {
		return nil
	}
	complete := f.buf[:end]
	f.buf = f.buf[end+2:]

	for _, block := range strings.Split(complete, "\n\n") {
		f.consume(block)
	}
	return nil
}

func (f *File) consume(block string) {
	block = strings.Trim(block, "\n")
	if strings.TrimSpace(block) == "" {
		return
	}

	if m := trailerPattern.FindStringSubmatch(block); m != nil {
		if f.pending != nil {
			f.pending.File = m[1]
			f.pending.Line, _ = strconv.Atoi(m[2])
			f.flushPending()
		}
		return
	}

	f.flushPending()
	f.pending = &logentry.Raw{
		Condition: block,
		Mode:      Classify(block),
	}
}

func (f *File) flushPending() {
	if f.pending == nil {
		return
	}
	f.Memory.Log(*f.pending)
	f.pending = nil
}

// Classify guesses a mode for an editor log block. Scripted messages carry
// the Debug call that produced them in their trace; compiler output carries
// an error or warning code.
func Classify(block string) logentry.Mode {
	first, _, _ := strings.Cut(block, "\n")
	switch {
	case compileErrorPattern.MatchString(first):
		return logentry.ModeScriptCompileError
	case compileWarningPattern.MatchString(first):
		return logentry.ModeScriptCompileWarning
	case strings.Contains(block, "UnityEngine.Debug:LogException"):
		return logentry.ModeScriptingException | logentry.ModeScriptingError
	case strings.Contains(block, "UnityEngine.Debug:LogError"),
		strings.Contains(block, "UnityEngine.Debug:LogAssertion"):
		return logentry.ModeScriptingError
	case strings.Contains(block, "UnityEngine.Debug:LogWarning"):
		return logentry.ModeScriptingWarning
	case strings.Contains(first, "Exception:"):
		return logentry.ModeScriptingException | logentry.ModeScriptingError
	default:
		return logentry.ModeScriptingLog
	}
}
