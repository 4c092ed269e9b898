package logparser

import (
	"regexp"
	"strings"
)

var (
	// ansiPattern matches ANSI escape codes (color codes, etc).
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// richTextPattern matches the rich-text markup the editor console
	// understands: <b>, <i>, <color=...>, <size=...> and their closing tags.
	richTextPattern = regexp.MustCompile(`</?(?:b|i|color(?:=[^>]*)?|size(?:=[^>]*)?)>`)
)

// FirstLine returns the text up to the first newline.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// FirstTwoLines returns the text up to the second newline.
// Input:  "a\nb\nc"
// Output: "a\nb"
func FirstTwoLines(s string) string {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s
	}
	j := strings.IndexByte(s[i+1:], '\n')
	if j < 0 {
		return s
	}
	return s[:i+1+j]
}

// StripANSI removes ANSI color codes from the text.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// StripRichText removes rich-text markup.
// Input:  "<b><color=#FF0000FF>[Player] </color></b>hit"
// Output: "[Player] hit"
func StripRichText(s string) string {
	return richTextPattern.ReplaceAllString(s, "")
}

// CleanLog applies all cleanup operations to a message for display.
func CleanLog(s string) string {
	s = StripANSI(s)
	s = StripRichText(s)
	return s
}
