package terminal

import (
	"strings"
	"testing"

	"github.com/newhook/remedy/internal/logentry"
	"github.com/stretchr/testify/assert"
)

func TestCommand(t *testing.T) {
	assert.Equal(t, "[T0]/help", Command("/help"))
	assert.Equal(t, "[T-1]/jump", Command("/jump"))
	assert.Equal(t, "[T-1]", Command(""))
}

func TestTagger_Tag(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		tagged bool
	}{
		{
			name:   "help",
			input:  "[T0]/help",
			want:   "/help\n" + HelpText,
			tagged: true,
		},
		{
			name:   "unrecognized",
			input:  "[T-1]/jump",
			want:   "/jump\n" + UnrecognizedText,
			tagged: true,
		},
		{
			name:   "unknown tag keeps only first line",
			input:  "[TX]foo\nbar",
			want:   "foo\n",
			tagged: true,
		},
		{
			name:   "no tag",
			input:  "regular message",
			want:   "regular message",
			tagged: false,
		},
		{
			name:   "no closing bracket",
			input:  "[T0 broken",
			want:   "[T0 broken",
			tagged: false,
		},
		{
			name:   "too short",
			input:  "[",
			want:   "[",
			tagged: false,
		},
		{
			name:   "other bracket tag",
			input:  "[Player] moved",
			want:   "[Player] moved",
			tagged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Tagger{}.Tag(tt.input)
			assert.Equal(t, tt.tagged, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagger_RecordBecomesTerminal(t *testing.T) {
	r := logentry.New(logentry.Raw{Condition: "[T0]/help", Mode: logentry.ModeLog}, logentry.WithTagger(Tagger{}))

	assert.Equal(t, logentry.SeverityTerminal, r.Severity())
	assert.True(t, strings.HasPrefix(r.Condition(), "/help\n"))
	assert.True(t, strings.HasSuffix(r.Condition(), HelpText))
}

func TestTagger_UnknownTagRecord(t *testing.T) {
	r := logentry.New(logentry.Raw{Condition: "[TX]foo", Mode: logentry.ModeLog}, logentry.WithTagger(Tagger{}))

	assert.Equal(t, logentry.SeverityTerminal, r.Severity())
	assert.Equal(t, "foo\n", r.Condition())
}
