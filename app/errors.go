package app

import (
	"errors"
)

const (
	MsgNameRequired = "Domain name is required"
	MsgNameTooShort = "Domain must be at least 3 characters long"
	MsgNameTooLong  = "Domain must be at most 10 characters long"
	MsgUpdateFields = "Domain name and record are both required"
	MsgReverted     = "Transaction failed! Please try again"
)

var (
	// ErrBusy rejects a mutating action while another one is in flight.
	ErrBusy         = errors.New("another transaction is in progress")
	ErrNotConnected = errors.New("no wallet account connected")
	ErrWrongNetwork = errors.New("wallet is not on the required network")
	ErrNotOwner     = errors.New("name is not owned by the connected account")
	// ErrNotEditing rejects an update that didn't start from an owned entry.
	ErrNotEditing   = errors.New("no owned name selected for editing")
)

// ValidationError is a rejected input. Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
