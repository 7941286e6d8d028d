package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const domainsABI = `[
	{"type":"function","name":"register","stateMutability":"payable",
	 "inputs":[{"name":"name","type":"string"}],"outputs":[]},
	{"type":"function","name":"setRecord","stateMutability":"nonpayable",
	 "inputs":[{"name":"name","type":"string"},{"name":"record","type":"string"}],"outputs":[]},
	{"type":"function","name":"getAllNames","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"records","stateMutability":"view",
	 "inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"domains","stateMutability":"view",
	 "inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"address"}]}
]`

var parsedABI = mustParseABI(domainsABI)

func mustParseABI(content string) *abi.ABI {
	result, err := abi.JSON(strings.NewReader(content))
	if err != nil {
		panic(err)
	}
	return &result
}

// ABI returns the parsed registry contract ABI.
func ABI() *abi.ABI {
	return parsedABI
}
