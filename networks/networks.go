package networks

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Target is the only network the registry is deployed on.
var Target Network = Mumbai

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint64 `json:"decimals"`
}

// ChainDescriptor is the parameter object of wallet_addEthereumChain.
type ChainDescriptor struct {
	ChainID           *hexutil.Big   `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

func (d ChainDescriptor) ChainIDUint64() uint64 {
	if d.ChainID == nil {
		return 0
	}
	return d.ChainID.ToInt().Uint64()
}

func (d ChainDescriptor) Validate() error {
	if d.ChainIDUint64() == 0 {
		return fmt.Errorf("chain descriptor: missing chain id")
	}
	if d.ChainName == "" {
		return fmt.Errorf("chain descriptor %d: missing chain name", d.ChainIDUint64())
	}
	if len(d.RPCURLs) == 0 {
		return fmt.Errorf("chain descriptor %d: at least one rpc url is required", d.ChainIDUint64())
	}
	if d.NativeCurrency.Symbol == "" {
		return fmt.Errorf("chain descriptor %d: missing native currency symbol", d.ChainIDUint64())
	}
	return nil
}

func (d ChainDescriptor) String() string {
	content, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("chain %d", d.ChainIDUint64())
	}
	return string(content)
}

// Descriptor builds the add-chain request for n from its static data. Node
// overrides from the environment are not advertised to the wallet.
func Descriptor(n Network) ChainDescriptor {
	rpcs := []string{}
	for _, url := range n.GetDefaultNodes() {
		rpcs = append(rpcs, url)
	}
	sort.Strings(rpcs)
	result := ChainDescriptor{
		ChainID:   (*hexutil.Big)(new(big.Int).SetUint64(n.GetChainID())),
		ChainName: n.GetDisplayName(),
		RPCURLs:   rpcs,
		NativeCurrency: NativeCurrency{
			Name:     n.GetNativeTokenName(),
			Symbol:   n.GetNativeTokenSymbol(),
			Decimals: n.GetNativeTokenDecimal(),
		},
	}
	if n.GetBlockExplorerURL() != "" {
		result.BlockExplorerURLs = []string{n.GetBlockExplorerURL()}
	}
	return result
}

// NetworkFromDescriptor turns a chain a wallet was asked to add into a
// Network so it can be dialed and named.
func NetworkFromDescriptor(d ChainDescriptor) Network {
	nodes := map[string]string{}
	for i, url := range d.RPCURLs {
		nodes[fmt.Sprintf("rpc-%d", i)] = url
	}
	explorer := ""
	if len(d.BlockExplorerURLs) > 0 {
		explorer = d.BlockExplorerURLs[0]
	}
	return NewGenericNetwork(GenericNetworkConfig{
		Name:               fmt.Sprintf("chain-%d", d.ChainIDUint64()),
		DisplayName:        d.ChainName,
		ChainID:            d.ChainIDUint64(),
		NativeTokenName:    d.NativeCurrency.Name,
		NativeTokenSymbol:  d.NativeCurrency.Symbol,
		NativeTokenDecimal: d.NativeCurrency.Decimals,
		DefaultNodes:       nodes,
		BlockExplorerURL:   explorer,
	})
}
