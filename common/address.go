package common

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SameAddress compares two hex addresses ignoring case. Checksummed and
// lowercase forms of one address come from different sources.
func SameAddress(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
