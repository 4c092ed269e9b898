package logentry

import (
	"strings"
	"testing"
	"time"

	"github.com/newhook/remedy/internal/logparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) PathForInstance(handle int) string {
	args := m.Called(handle)
	return args.String(0)
}

type prefixTagger struct{}

func (prefixTagger) Tag(condition string) (string, bool) {
	if rest, ok := strings.CutPrefix(condition, "!"); ok {
		return rest + "\n", true
	}
	return condition, false
}

func TestMode_Severity(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want Severity
	}{
		{name: "none", mode: 0, want: SeverityInfo},
		{name: "log", mode: ModeLog, want: SeverityLog},
		{name: "scripting log", mode: ModeScriptingLog, want: SeverityLog},
		{name: "warning", mode: ModeScriptingWarning, want: SeverityWarning},
		{name: "compile warning", mode: ModeScriptCompileWarning, want: SeverityWarning},
		{name: "error", mode: ModeScriptingError, want: SeverityError},
		{name: "assertion", mode: ModeScriptingAssertion, want: SeverityError},
		{name: "terminal", mode: ModeTerminalEntry, want: SeverityTerminal},
		{name: "error beats warning", mode: ModeError | ModeScriptingWarning, want: SeverityError},
		{name: "warning beats log", mode: ModeScriptingWarning | ModeLog, want: SeverityWarning},
		{name: "log beats terminal", mode: ModeLog | ModeTerminalEntry, want: SeverityLog},
		{name: "unrelated flags", mode: ModeStickyError | ModeReportBug, want: SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Severity())
		})
	}
}

func TestSeverity_StringRoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityInfo, SeverityLog, SeverityWarning, SeverityError, SeverityTerminal} {
		assert.Equal(t, s, ParseSeverity(s.String()))
		assert.Equal(t, s, ModeFor(s).Severity())
	}
}

func TestHash_IgnoresCountAndTime(t *testing.T) {
	raw := Raw{Condition: "hello", File: "Assets/A.cs", Line: 3, Mode: ModeLog}
	a := New(raw)
	b := New(raw)
	b.SetCount(7)

	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHash_DistinguishesIdentityFields(t *testing.T) {
	base := Raw{Condition: "hello", ErrorNum: 1, File: "f", Line: 2, InstanceID: 3, Identifier: 4}
	variants := []Raw{
		{Condition: "hellO", ErrorNum: 1, File: "f", Line: 2, InstanceID: 3, Identifier: 4},
		{Condition: "hello", ErrorNum: 9, File: "f", Line: 2, InstanceID: 3, Identifier: 4},
		{Condition: "hello", ErrorNum: 1, File: "g", Line: 2, InstanceID: 3, Identifier: 4},
		{Condition: "hello", ErrorNum: 1, File: "f", Line: 9, InstanceID: 3, Identifier: 4},
		{Condition: "hello", ErrorNum: 1, File: "f", Line: 2, InstanceID: 9, Identifier: 4},
		{Condition: "hello", ErrorNum: 1, File: "f", Line: 2, InstanceID: 3, Identifier: 9},
		{Condition: "hellof", ErrorNum: 1, File: "", Line: 2, InstanceID: 3, Identifier: 4},
	}
	for _, v := range variants {
		assert.NotEqual(t, base.Hash(), v.Hash(), "%+v", v)
	}

	// Mode is not part of the identity.
	withMode := base
	withMode.Mode = ModeScriptingError
	assert.Equal(t, base.Hash(), withMode.Hash())
}

func TestNew_LazyParsing(t *testing.T) {
	r := New(Raw{Condition: "Game:Run () (at Assets/Game.cs:5)", Mode: ModeLog})
	assert.False(t, r.Parsed())

	frames := r.StackFrames()
	assert.True(t, r.Parsed())
	require.Len(t, frames, 1)
	assert.Equal(t, "Run", frames[0].MethodName)
	assert.Equal(t, "Game.cs", r.Basename())
}

func TestRecord_CompilerWarning(t *testing.T) {
	r := New(Raw{
		Condition: "Assets/Foo.cs(10,3): warning CS0219: variable unused",
		Mode:      ModeScriptCompileWarning,
	})

	assert.True(t, r.IsWarning())
	assert.Equal(t, "CS0219", r.Code())
	assert.Equal(t, []logparser.FileRef{{Path: "Assets/Foo.cs", Line: 10}}, r.Files())
}

func TestRecord_ResolvesInstanceHandle(t *testing.T) {
	res := &mockResolver{}
	res.On("PathForInstance", 42).Return("Assets/Prefabs/Enemy.prefab").Once()

	r := New(Raw{Condition: "missing reference", Mode: ModeLog, InstanceID: 42}, WithResolver(res))

	files := r.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "Assets/Prefabs/Enemy.prefab", files[0].Path)
	assert.Equal(t, -1, files[0].Line)

	// Memoized: the resolver is not consulted again.
	_ = r.Files()
	res.AssertExpectations(t)
}

func TestRecord_InstanceHandleIgnoredWhenFilesFound(t *testing.T) {
	res := &mockResolver{}
	r := New(Raw{Condition: "Game:Run () (at Assets/Game.cs:5)", InstanceID: 42}, WithResolver(res))

	require.Len(t, r.Files(), 1)
	res.AssertNotCalled(t, "PathForInstance", mock.Anything)
}

func TestRecord_NoResolverCall_WithoutHandle(t *testing.T) {
	res := &mockResolver{}
	r := New(Raw{Condition: "plain"}, WithResolver(res))

	assert.Empty(t, r.Files())
	assert.Equal(t, "Unknown", r.Basename())
	res.AssertNotCalled(t, "PathForInstance", mock.Anything)
}

func TestNew_TaggerAppliedOnce(t *testing.T) {
	r := New(Raw{Condition: "!cmd", Mode: ModeLog}, WithTagger(prefixTagger{}))

	assert.Equal(t, "cmd\n", r.Condition())
	assert.Equal(t, SeverityTerminal, r.Severity())
	// Identity stays tied to what the provider reported.
	assert.Equal(t, Raw{Condition: "!cmd", Mode: ModeLog}.Hash(), r.Hash())
}

func TestNew_TaggerNoMatchLeavesRecord(t *testing.T) {
	r := New(Raw{Condition: "plain", Mode: ModeLog}, WithTagger(prefixTagger{}))

	assert.Equal(t, "plain", r.Condition())
	assert.Equal(t, SeverityLog, r.Severity())
}

func TestRecord_RemoveFiles(t *testing.T) {
	r := New(Raw{Condition: "A:x () (at Assets/A.cs:1)\nB:y () (at Assets/B.cs:2)\nA:z () (at Other/A.cs:3)"})

	// Unparsed records ignore removal.
	r.RemoveFiles("A.cs")
	require.Len(t, r.Files(), 3)

	r.RemoveFiles("A.cs")
	files := r.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "Assets/B.cs", files[0].Path)
	// Frames are untouched.
	assert.Len(t, r.StackFrames(), 3)
}

func TestRecord_FilesIsACopy(t *testing.T) {
	r := New(Raw{Condition: "A:x () (at Assets/A.cs:1)"})
	files := r.Files()
	files[0].Path = "changed"

	assert.Equal(t, "Assets/A.cs", r.Files()[0].Path)
}

func TestRecord_Previews(t *testing.T) {
	r := New(Raw{Condition: "first\nsecond\nthird"})
	assert.Equal(t, "first", r.FirstLine())
	assert.Equal(t, "first\nsecond", r.FirstTwoLines())
}

func TestEmpty(t *testing.T) {
	e := Empty()
	assert.Equal(t, "", e.Condition())
	assert.Equal(t, 0, e.Count())
	assert.Empty(t, e.Files())
	assert.Equal(t, SeverityInfo, e.Severity())
	assert.True(t, e.IsEmpty())
	assert.False(t, New(Raw{Condition: "x"}).IsEmpty())
}

func TestEmpty_IndependentValues(t *testing.T) {
	e := Empty()
	e.SetCount(7)
	e.SetTime(time.Unix(100, 0))

	fresh := Empty()
	assert.NotSame(t, e, fresh)
	assert.Equal(t, 0, fresh.Count())
	assert.True(t, fresh.Time().IsZero())
}
