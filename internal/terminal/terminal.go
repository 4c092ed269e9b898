// Package terminal implements the console's command convention: a message
// starting with a "[T...]" tag is a terminal entry, and its text is replaced
// by the command echo plus a canned response.
package terminal

import (
	"strings"

	"github.com/newhook/remedy/internal/logparser"
)

const (
	// HelpTag marks a recognised "/help" command.
	HelpTag = "[T0]"
	// UnrecognizedTag marks any other command.
	UnrecognizedTag = "[T-1]"

	// HelpCommand is the only command the terminal understands.
	HelpCommand = "/help"
)

// HelpText is appended to a help command's echo.
const HelpText = "\\/ Please see details \\/\n\n" +
	"I don't have much to say here yet.\n" +
	"But hopefully I can make this more useful somehow.\n" +
	"I hope that all made sense"

// UnrecognizedText is appended to an unknown command's echo.
const UnrecognizedText = `Please type "/help" for commands.`

// Command returns the tagged message a terminal prompt logs for cmd.
func Command(cmd string) string {
	if cmd == HelpCommand {
		return HelpTag + cmd
	}
	return UnrecognizedTag + cmd
}

// Tagger recognises tagged messages. It implements logentry.Tagger.
type Tagger struct{}

// Tag strips the tag and returns "<first line>\n<response>". ok is false
// for messages that do not start with "[T" or have no closing bracket.
func (Tagger) Tag(condition string) (string, bool) {
	if !strings.HasPrefix(condition, "[T") {
		return condition, false
	}
	end := strings.IndexByte(condition, ']')
	if end < 0 {
		return condition, false
	}

	tag := condition[:end+1]
	rewritten := logparser.FirstLine(condition[end+1:]) + "\n"

	switch tag {
	case HelpTag:
		rewritten += HelpText
	case UnrecognizedTag:
		rewritten += UnrecognizedText
	}
	return rewritten, true
}
