package logparser

import (
	"regexp"
	"strconv"
)

// compilerCodePattern matches "...: warning CS0219: ..." anywhere in the text.
var compilerCodePattern = regexp.MustCompile(`:\s*warning\s*([A-Za-z]+[0-9]+)\s*:`)

// CompilerCodeParser extracts the compiler warning code from warnings.
type CompilerCodeParser struct{}

// CanParse returns true for warning-group messages.
func (p *CompilerCodeParser) CanParse(in Input) bool {
	return in.Warning
}

// Parse sets res.Code to the first warning code found.
func (p *CompilerCodeParser) Parse(in Input, res *Result) {
	if m := compilerCodePattern.FindStringSubmatch(in.Condition); len(m) == 2 {
		res.Code = m[1]
	}
}

// WarningPathParser extracts the "path(line,col):" prefix compilers and
// asset importers put in front of warnings.
type WarningPathParser struct {
	pattern *regexp.Regexp
}

func newWarningPathParser(root string) *WarningPathParser {
	return &WarningPathParser{
		pattern: regexp.MustCompile(`^(` + regexp.QuoteMeta(root) + `[^(]+)\(([0-9]+),([0-9]+)\):`),
	}
}

// CanParse returns true for warning-group messages.
func (p *WarningPathParser) CanParse(in Input) bool {
	return in.Warning
}

// Parse appends the referenced file.
func (p *WarningPathParser) Parse(in Input, res *Result) {
	m := p.pattern.FindStringSubmatch(in.Condition)
	if len(m) != 4 {
		return
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return
	}
	res.Files = append(res.Files, FileRef{Path: m[1], Line: line})
}
