package registry

import (
	"math/big"
	"unicode/utf8"

	"github.com/tranvictor/namesvc/common"
)

const (
	MinNameLength = 3
	MaxNameLength = 10
)

// Price tiers in wei of the native token (18 decimals).
var (
	TierA = common.MustDecimalStringToBig("0.0005", 18)
	TierB = common.MustDecimalStringToBig("0.0003", 18)
	TierC = common.MustDecimalStringToBig("0.0001", 18)
)

// Price returns the registration payment for a name of length characters:
// 3 pays TierA, 4 pays TierB, anything longer pays TierC. Callers validate
// the length first; the result is a fresh copy.
func Price(length int) *big.Int {
	switch {
	case length <= 3:
		return new(big.Int).Set(TierA)
	case length == 4:
		return new(big.Int).Set(TierB)
	default:
		return new(big.Int).Set(TierC)
	}
}

// NameLength counts characters, not bytes.
func NameLength(name string) int {
	return utf8.RuneCountInString(name)
}

// FullName appends the registry's top level domain.
func FullName(name string) string {
	return name + TLD
}

