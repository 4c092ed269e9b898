package logentry

// Mode is the raw flag set a provider reports for a row.
type Mode uint32

// Provider flags. Values match the editor console so adapters can pass
// them through unchanged.
const (
	ModeError                           Mode = 1
	ModeAssert                          Mode = 2
	ModeLog                             Mode = 4
	ModeFatal                           Mode = 16
	ModeDontPreprocessCondition         Mode = 32
	ModeAssetImportError                Mode = 64
	ModeAssetImportWarning              Mode = 128
	ModeScriptingError                  Mode = 256
	ModeScriptingWarning                Mode = 512
	ModeScriptingLog                    Mode = 1024
	ModeScriptCompileError              Mode = 2048
	ModeScriptCompileWarning            Mode = 4096
	ModeStickyError                     Mode = 8192
	ModeMayIgnoreLineNumber             Mode = 16384
	ModeReportBug                       Mode = 32768
	ModeDisplayPreviousErrorInStatusBar Mode = 65536
	ModeScriptingException              Mode = 131072
	ModeDontExtractStacktrace           Mode = 262144
	ModeShouldClearOnPlay               Mode = 524288
	ModeGraphCompileError               Mode = 1048576
	ModeScriptingAssertion              Mode = 2097152
	ModeTerminalEntry                   Mode = 4194304
)

const (
	groupError = ModeError | ModeAssert | ModeFatal | ModeAssetImportError | ModeScriptingError |
		ModeScriptCompileError | ModeGraphCompileError | ModeScriptingAssertion
	groupWarning = ModeAssetImportWarning | ModeScriptingWarning | ModeScriptCompileWarning
	groupLog     = ModeLog | ModeScriptingLog
)

// Severity is the closed set of display severities.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLog
	SeverityWarning
	SeverityError
	SeverityTerminal
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLog:
		return "log"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityTerminal:
		return "terminal"
	default:
		return "info"
	}
}

// ParseSeverity is the inverse of String. Unknown names map to SeverityInfo.
func ParseSeverity(s string) Severity {
	switch s {
	case "log":
		return SeverityLog
	case "warning", "warn":
		return SeverityWarning
	case "error":
		return SeverityError
	case "terminal":
		return SeverityTerminal
	default:
		return SeverityInfo
	}
}

// Severity maps the flag set to a severity. Error beats warning beats log
// beats terminal.
func (m Mode) Severity() Severity {
	switch {
	case m&groupError != 0:
		return SeverityError
	case m&groupWarning != 0:
		return SeverityWarning
	case m&groupLog != 0:
		return SeverityLog
	case m&ModeTerminalEntry != 0:
		return SeverityTerminal
	default:
		return SeverityInfo
	}
}

// ModeFor returns a representative flag set for a severity. Providers that
// only know a severity use it to synthesize rows.
func ModeFor(s Severity) Mode {
	switch s {
	case SeverityError:
		return ModeScriptingError
	case SeverityWarning:
		return ModeScriptingWarning
	case SeverityLog:
		return ModeScriptingLog
	case SeverityTerminal:
		return ModeTerminalEntry
	default:
		return 0
	}
}
