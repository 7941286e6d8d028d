package common

import (
	"fmt"
	"math/big"
	"strings"
)

// DecimalStringToBig converts a decimal amount into its integer form with
// the given number of decimals, without going through floats.
// Example:
// - DecimalStringToBig("0.0005", 18) = 500000000000000
// - DecimalStringToBig("1.5", 2) = 150
func DecimalStringToBig(value string, decimal uint64) (*big.Int, error) {
	r, success := new(big.Rat).SetString(strings.TrimSpace(value))
	if !success {
		return nil, fmt.Errorf("couldn't parse %q as a decimal amount", value)
	}
	power := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(decimal), nil)
	r.Mul(r, new(big.Rat).SetInt(power))
	if !r.IsInt() {
		return nil, fmt.Errorf("%q has more than %d decimals", value, decimal)
	}
	return new(big.Int).Set(r.Num()), nil
}

// MustDecimalStringToBig is DecimalStringToBig for package level constants.
func MustDecimalStringToBig(value string, decimal uint64) *big.Int {
	result, err := DecimalStringToBig(value, decimal)
	if err != nil {
		panic(err)
	}
	return result
}

// BigToFloatString renders value with decimal digits, trimming trailing
// zeros.
// Example:
// - BigToFloatString(500000000000000, 18) = "0.0005"
// - BigToFloatString(1100, 2) = "11"
func BigToFloatString(value *big.Int, decimal uint64) string {
	if value == nil {
		return "0"
	}
	power := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(decimal), nil)
	r := new(big.Rat).SetFrac(value, power)
	res := r.FloatString(int(decimal))
	if strings.Contains(res, ".") {
		res = strings.TrimRight(res, "0")
		res = strings.TrimSuffix(res, ".")
	}
	return res
}
