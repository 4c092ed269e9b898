// Package logparser turns raw console message text into structured data:
// stack frames, referenced source files and compiler warning codes.
//
// Parsing is best-effort. Unrecognised text yields an empty Result, never
// an error.
package logparser

import (
	"strings"
)

// DefaultProjectRoot is the path prefix that marks a file as a project asset.
const DefaultProjectRoot = "Assets/"

// FileRef is a file referenced by a log message.
type FileRef struct {
	Path string // e.g., "Assets/Scripts/Player.cs"
	Line int    // 0 when unknown, -1 when resolved from an instance handle
}

// Basename returns the last path element of the file.
func (f FileRef) Basename() string {
	if i := strings.LastIndex(f.Path, "/"); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// IsProjectAsset reports whether the file lives under the given project root.
func (f FileRef) IsProjectAsset(root string) bool {
	if root == "" {
		root = DefaultProjectRoot
	}
	return strings.HasPrefix(f.Path, root)
}

// StackFrame is one parsed stack trace line.
type StackFrame struct {
	FileRef
	ClassName    string // e.g., "Game.Player"
	MethodName   string // e.g., "Update"
	MethodParams string // e.g., "System.String"
}

// Result holds everything extracted from one message.
type Result struct {
	StackFrames []StackFrame
	Files       []FileRef
	Code        string // compiler warning code, e.g., "CS0219"
}

// Input is the text handed to each parser together with the facts parsers
// need to decide whether they apply.
type Input struct {
	Condition string
	Warning   bool
}

// Parser is one extraction rule.
type Parser interface {
	// CanParse returns true if this parser applies to the input.
	CanParse(in Input) bool
	// Parse adds whatever it extracts to res.
	Parse(in Input, res *Result)
}

// Options configures an Engine.
type Options struct {
	// ProjectRoot is the prefix asset-path warnings must start with.
	ProjectRoot string
	// ExcludeClasses lists stack frame classes that are dropped entirely.
	ExcludeClasses []string
	// ExcludeClassPrefixes drops every class starting with one of these.
	ExcludeClassPrefixes []string
}

// DefaultOptions returns the options matching the stock log plumbing: frames
// from the console's own log handler and from UnityEngine.Debug are hidden.
func DefaultOptions() Options {
	return Options{
		ProjectRoot: DefaultProjectRoot,
		ExcludeClasses: []string{
			"PS.Editor.Console.LogHandler",
			"PS.Editor.Console.DebugLog",
		},
		ExcludeClassPrefixes: []string{"UnityEngine.Debug"},
	}
}

// Engine runs an ordered list of parsers over a message.
type Engine struct {
	parsers []Parser
}

// New builds an engine for the given options. Order matters: asset-path
// warnings come first so their file is the first reference.
func New(opts Options) *Engine {
	return &Engine{
		parsers: []Parser{
			newWarningPathParser(opts.ProjectRoot),
			&CompilerCodeParser{},
			newStackTraceParser(opts.ExcludeClasses, opts.ExcludeClassPrefixes),
		},
	}
}

// Default is the engine built from DefaultOptions.
var Default = New(DefaultOptions())

// Parse extracts stack frames, file references and the warning code.
func (e *Engine) Parse(condition string, warning bool) Result {
	in := Input{Condition: condition, Warning: warning}
	res := Result{
		StackFrames: []StackFrame{},
		Files:       []FileRef{},
	}
	for _, p := range e.parsers {
		if p.CanParse(in) {
			p.Parse(in, &res)
		}
	}
	return res
}

// Parse runs the Default engine.
func Parse(condition string, warning bool) Result {
	return Default.Parse(condition, warning)
}
