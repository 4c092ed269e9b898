package logparser

import (
	"regexp"
	"strconv"
	"strings"
)

// stackFramePattern matches one stack trace line.
//
//	Class.Method (params) (at file:line)
//	Namespace.Class:Method (params)
//
// Groups: class, method, params, file, line.
var stackFramePattern = regexp.MustCompile(`^([^\s(]*)[.:]([^\s(]*)\s*\(([^)]*)\)(?:\s*\(at\s*([^)]+):([0-9]+)\))?$`)

// StackTraceParser parses every line of a message as a potential stack frame.
type StackTraceParser struct {
	excludeClasses  map[string]bool
	excludePrefixes []string
}

func newStackTraceParser(classes, prefixes []string) *StackTraceParser {
	p := &StackTraceParser{
		excludeClasses:  make(map[string]bool, len(classes)),
		excludePrefixes: prefixes,
	}
	for _, c := range classes {
		p.excludeClasses[c] = true
	}
	return p
}

// CanParse always returns true; stack traces appear on every severity.
func (p *StackTraceParser) CanParse(in Input) bool {
	return true
}

// Parse appends each frame to both res.StackFrames and res.Files.
func (p *StackTraceParser) Parse(in Input, res *Result) {
	for _, line := range strings.Split(in.Condition, "\n") {
		frame, ok := p.parseLine(strings.TrimRight(line, "\r"))
		if !ok || p.excluded(frame.ClassName) {
			continue
		}
		res.StackFrames = append(res.StackFrames, frame)
		res.Files = append(res.Files, frame.FileRef)
	}
}

func (p *StackTraceParser) parseLine(line string) (StackFrame, bool) {
	m := stackFramePattern.FindStringSubmatch(line)
	if len(m) != 6 {
		return StackFrame{}, false
	}

	frame := StackFrame{
		ClassName:    m[1],
		MethodName:   m[2],
		MethodParams: m[3],
	}
	// A frame without "(at file:line)" keeps an empty file and line 0.
	if n, err := strconv.Atoi(m[5]); err == nil {
		frame.Path = m[4]
		frame.Line = n
	}
	return frame, true
}

func (p *StackTraceParser) excluded(class string) bool {
	if p.excludeClasses[class] {
		return true
	}
	for _, prefix := range p.excludePrefixes {
		if strings.HasPrefix(class, prefix) {
			return true
		}
	}
	return false
}
