package ui

import (
	"encoding/json"
	"io"
)

// Severity classifies the visual weight of a piece of inline text. The
// terminal maps each value to a colour; recordings and JSON see plain text.
type Severity uint8

const (
	SeverityInfo     Severity = iota // plain
	SeveritySuccess                  // green
	SeverityWarn                     // yellow
	SeverityError                    // red
	SeverityCritical                 // bold
)

// StyledText pairs a plain string with a Severity annotation.
//
//	u.Info("%s %s", name, u.Style(StyledText{"(yours)", SeveritySuccess}))
type StyledText struct {
	Text     string
	Severity Severity
}

// MarshalJSON serializes StyledText as a plain JSON string (just Text).
func (s StyledText) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// UI is everything namesvc shows to or asks from the user.
//
// Production code uses TerminalUI, tests use RecordingUI which captures output
// and serves scripted answers. Flows report their outcome as notices:
// Success for a confirmed transaction, Error for a failed step, Warn for
// conditions the user can fix (wrong network, no wallet), Info for the rest.
// None of the notice methods exit or return errors.
type UI interface {
	// Style returns t coloured according to its Severity, or the plain text
	// when colours are off.
	Style(t StyledText) string

	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)

	// Critical is for what the user must read before approving something
	// irreversible, such as the value and target of a tx about to be signed.
	Critical(format string, args ...any)

	// Section writes a separator line centred around title.
	Section(title string)

	// KeyValue renders an aligned 2-column block.
	KeyValue(rows [][2]string)

	// Table renders a bordered table with an optional header row.
	Table(headers []string, rows [][]string)

	// Spinner shows msg with an animation until the returned stop function is
	// called. It is a plain line when output is not a terminal.
	Spinner(msg string) func()

	// Ask reads a line after a "> " prompt, looping until validate accepts
	// it. A nil validate accepts everything. Once input has ended it returns
	// "" without validating.
	Ask(validate func(string) error) string

	// AskSecret reads a line without echoing it.
	AskSecret(prompt string) string

	// Confirm asks a yes/no question.
	Confirm(prompt string, defaultYes bool) bool

	// Choose prints numbered options and returns the 0-based index picked,
	// or -1 once input has ended.
	Choose(prompt string, options []string) int

	// Indent returns a child UI one level deeper sharing the same streams.
	Indent() UI

	// Writer returns an io.Writer that indents every line it receives.
	Writer() io.Writer
}
