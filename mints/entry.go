// Package mints holds the snapshot of every registered name.
package mints

import (
	"github.com/tranvictor/namesvc/common"
)

// Entry is one registered name. ID is its position in the registry's
// enumeration at the time of the refresh that produced it, so it is not a
// stable identity across refreshes.
type Entry struct {
	ID     int
	Name   string
	Record string
	Owner  string
}

// IsOwnedBy compares addresses case-insensitively since owners and accounts
// come from sources that disagree on checksum casing.
func IsOwnedBy(e Entry, account string) bool {
	return common.SameAddress(e.Owner, account)
}
