package networks

import (
	"fmt"
	"os"
	"strings"
)

// Insert more Network implementation here to recognize more chains. Only
// the target network is ever written to; the others exist so the active
// wallet network can be named.
var supportedNetworks = []Network{
	NewGenericNetwork(GenericNetworkConfig{
		Name: "mainnet", DisplayName: "Mainnet", ChainID: 1,
		NativeTokenName: "Ether", NativeTokenSymbol: "ETH", NativeTokenDecimal: 18,
		BlockTime: 12, BlockExplorerURL: "https://etherscan.io/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "ropsten", DisplayName: "Ropsten", ChainID: 3,
		NativeTokenName: "Ropsten Ether", NativeTokenSymbol: "ETH", NativeTokenDecimal: 18,
		BlockTime: 14, BlockExplorerURL: "https://ropsten.etherscan.io/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "rinkeby", DisplayName: "Rinkeby", ChainID: 4,
		NativeTokenName: "Rinkeby Ether", NativeTokenSymbol: "ETH", NativeTokenDecimal: 18,
		BlockTime: 15, BlockExplorerURL: "https://rinkeby.etherscan.io/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "goerli", DisplayName: "Goerli", ChainID: 5,
		NativeTokenName: "Goerli Ether", NativeTokenSymbol: "ETH", NativeTokenDecimal: 18,
		BlockTime: 12, BlockExplorerURL: "https://goerli.etherscan.io/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "kovan", DisplayName: "Kovan", ChainID: 42,
		NativeTokenName: "Kovan Ether", NativeTokenSymbol: "ETH", NativeTokenDecimal: 18,
		BlockTime: 4, BlockExplorerURL: "https://kovan.etherscan.io/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "bsc", DisplayName: "BSC Mainnet", ChainID: 56,
		NativeTokenName: "BNB", NativeTokenSymbol: "BNB", NativeTokenDecimal: 18,
		BlockTime: 3, BlockExplorerURL: "https://bscscan.com/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "bsc-test", DisplayName: "BSC Testnet", ChainID: 97,
		NativeTokenName: "BNB", NativeTokenSymbol: "tBNB", NativeTokenDecimal: 18,
		BlockTime: 3, BlockExplorerURL: "https://testnet.bscscan.com/",
	}),
	NewGenericNetwork(GenericNetworkConfig{
		Name: "matic", DisplayName: "Polygon Mainnet", ChainID: 137, AlternativeNames: []string{"polygon"},
		NativeTokenName: "Matic", NativeTokenSymbol: "MATIC", NativeTokenDecimal: 18,
		BlockTime: 2, BlockExplorerURL: "https://polygonscan.com/",
	}),
	Mumbai,
	NewGenericNetwork(GenericNetworkConfig{
		Name: "avalanche", DisplayName: "AVAX Mainnet", ChainID: 43114,
		NativeTokenName: "Avalanche", NativeTokenSymbol: "AVAX", NativeTokenDecimal: 18,
		BlockTime: 2, BlockExplorerURL: "https://snowtrace.io/",
	}),
}

// Unknown names every chain id that is not in the table. It is never the
// required network.
var Unknown Network = NewGenericNetwork(GenericNetworkConfig{
	Name:        "unknown",
	DisplayName: "Unknown",
})

var globalSupportedNetworks = newSupportedNetworks()
var ErrNetworkNotFound = fmt.Errorf("network not found")

type networks struct {
	networks     map[string]Network
	networksByID map[uint64]Network
}

func (n *networks) getNetworkByID(id uint64) (Network, error) {
	res, found := n.networksByID[id]
	if !found {
		return nil, fmt.Errorf("network id %d: %w", id, ErrNetworkNotFound)
	}
	return res, nil
}

func (n *networks) getNetwork(name string) (Network, error) {
	res, found := n.networks[strings.ToLower(name)]
	if !found {
		return nil, fmt.Errorf("network name '%s': %w", name, ErrNetworkNotFound)
	}
	return res, nil
}

func newSupportedNetworks() *networks {
	result := networks{
		map[string]Network{},
		map[uint64]Network{},
	}
	for _, n := range supportedNetworks {
		if _, found := result.networks[n.GetName()]; found {
			panic(
				fmt.Errorf(
					"network with name or alternative name of '%s' already exists",
					n.GetName(),
				),
			)
		}
		if _, found := result.networksByID[n.GetChainID()]; found {
			panic(fmt.Errorf("network with chain id %d already exists", n.GetChainID()))
		}
		result.networks[n.GetName()] = n
		result.networksByID[n.GetChainID()] = n
		for _, an := range n.GetAlternativeNames() {
			if _, found := result.networks[an]; found {
				panic(
					fmt.Errorf("network with name or alternative name of '%s' already exists", an),
				)
			}
			result.networks[an] = n
		}
	}
	return &result
}

func GetNetwork(name string) (Network, error) {
	return globalSupportedNetworks.getNetwork(name)
}

func GetNetworkByID(id uint64) (Network, error) {
	return globalSupportedNetworks.getNetworkByID(id)
}

// NetworkByChainID never fails: ids missing from the table map to Unknown.
func NetworkByChainID(id uint64) Network {
	n, err := GetNetworkByID(id)
	if err != nil {
		return Unknown
	}
	return n
}

// IsUnknown reports whether n is nil or the Unknown sentinel.
func IsUnknown(n Network) bool {
	return n == nil || n == Unknown
}

// GetNodes returns the node urls to use for n. A non empty value in the
// network's node variable replaces the defaults.
func GetNodes(n Network) map[string]string {
	customNode := strings.Trim(os.Getenv(n.GetNodeVariableName()), " ")
	if n.GetNodeVariableName() != "" && customNode != "" {
		return map[string]string{
			"custom-node": customNode,
		}
	}
	result := map[string]string{}
	for name, url := range n.GetDefaultNodes() {
		result[name] = url
	}
	return result
}

// TxURL returns the explorer page of a transaction on n.
func TxURL(n Network, hash string) string {
	explorer := n.GetBlockExplorerURL()
	if explorer == "" {
		return hash
	}
	return strings.TrimSuffix(explorer, "/") + "/tx/" + hash
}
