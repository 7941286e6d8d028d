package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainUIAskRetriesUntilValid(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader("ab\nabc\n"), &out)

	got := u.Ask(func(s string) error {
		if len(s) < 3 {
			return errors.New("too short")
		}
		return nil
	})

	assert.Equal(t, "abc", got)
	assert.Contains(t, out.String(), "too short")
}

func TestPlainUIEndOfInput(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader("x\n"), &out)

	assert.Equal(t, -1, u.Choose("Pick", []string{"a", "b"}), "x is rejected, then input ends")
	assert.Equal(t, "", u.Ask(func(string) error { return errors.New("never valid") }))
}

func TestPlainUIConfirmDefault(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader("\nn\n"), &out)

	assert.True(t, u.Confirm("Mint?", true))
	assert.False(t, u.Confirm("Mint?", true))
}

func TestPlainUIAskSecretReadsLineWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader("hunter2\n"), &out)

	assert.Equal(t, "hunter2", u.AskSecret("Passphrase"))
	assert.Contains(t, out.String(), "Passphrase: ")
}

func TestPlainUITableAlignsColumns(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader(""), &out)

	u.Table([]string{"Name", "Record"}, [][]string{{"messi.2022", "goat"}, {"abc.2022", ""}})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "Name")
	assert.Contains(t, lines[3], "messi.2022")
	// every row has the same visible width
	assert.Equal(t, len([]rune(lines[3])), len([]rune(lines[4])))
}

func TestPlainUIIndentPrefixesLines(t *testing.T) {
	var out bytes.Buffer
	u := NewPlainUI(strings.NewReader(""), &out)

	u.Indent().Info("nested")

	assert.Equal(t, "  nested\n", out.String())
}

func TestRecordingUIServesScriptedInputs(t *testing.T) {
	r := NewRecordingUI("secret", "y", "2")

	assert.Equal(t, "secret", r.AskSecret("Passphrase"))
	assert.True(t, r.Indent().Confirm("Send?", false))
	assert.Equal(t, 1, r.Choose("Pick", []string{"a", "b"}))
	assert.Equal(t, 0, r.Remaining())
	assert.False(t, r.HasMessage("secret"))
	assert.True(t, r.HasMessage("passphrase"))
}

func TestRecordingUIPanicsWhenScriptRunsOut(t *testing.T) {
	r := NewRecordingUI()
	assert.Panics(t, func() { r.Ask(nil) })
}
