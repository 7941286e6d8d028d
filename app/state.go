package app

import (
	"github.com/tranvictor/namesvc/wallet"
)

// Phase is where the current mint or update attempt is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseConfirming
	PhaseSettingRecord
	PhaseConfirmingRecord
	PhaseRefreshing
	// PhaseError ends a failed attempt. The next attempt starts over.
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:             "idle",
	PhaseValidating:       "validating",
	PhaseSubmitting:       "submitting",
	PhaseConfirming:       "confirming",
	PhaseSettingRecord:    "setting-record",
	PhaseConfirmingRecord: "confirming-record",
	PhaseRefreshing:       "refreshing",
	PhaseError:            "error",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// PendingForm is what the user is about to submit. Editing is set only when
// an owned name was picked for a record update.
type PendingForm struct {
	DomainName string
	RecordText string
	Editing    bool
}

// State is everything the controller owns. Readers get copies.
type State struct {
	Session wallet.Session
	Form    PendingForm
	// Loading is set for the whole of a record update.
	Loading bool
	Phase   Phase
}
