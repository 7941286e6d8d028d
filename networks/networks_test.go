package networks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkByChainID(t *testing.T) {
	assert.Equal(t, "Polygon Mumbai Testnet", NetworkByChainID(80001).GetDisplayName())
	assert.Equal(t, "Mainnet", NetworkByChainID(1).GetDisplayName())
	assert.Equal(t, Unknown, NetworkByChainID(31337))
	assert.True(t, IsUnknown(NetworkByChainID(31337)))
	assert.True(t, IsUnknown(nil))
	assert.False(t, IsUnknown(Mumbai))
}

func TestGetNetworkByAlternativeName(t *testing.T) {
	n, err := GetNetwork("polygon-testnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(80001), n.GetChainID())

	_, err = GetNetwork("nowhere")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestDescriptorJSON(t *testing.T) {
	d := Descriptor(Mumbai)
	require.NoError(t, d.Validate())

	content, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "0x13881", decoded["chainId"])
	assert.Equal(t, "Polygon Mumbai Testnet", decoded["chainName"])
	assert.Equal(t, []any{"https://rpc-mumbai.maticvigil.com/"}, decoded["rpcUrls"])
	assert.Equal(t, []any{"https://mumbai.polygonscan.com/"}, decoded["blockExplorerUrls"])
	assert.Equal(t, map[string]any{
		"name":     "Mumbai Matic",
		"symbol":   "MATIC",
		"decimals": float64(18),
	}, decoded["nativeCurrency"])
}

func TestNetworkFromDescriptor(t *testing.T) {
	n := NetworkFromDescriptor(Descriptor(Mumbai))
	assert.Equal(t, uint64(80001), n.GetChainID())
	assert.Equal(t, "Polygon Mumbai Testnet", n.GetDisplayName())
	assert.Equal(t, map[string]string{"rpc-0": "https://rpc-mumbai.maticvigil.com/"}, n.GetDefaultNodes())
}

func TestGetNodesOverride(t *testing.T) {
	t.Setenv(Mumbai.GetNodeVariableName(), "http://127.0.0.1:8545")
	assert.Equal(t, map[string]string{"custom-node": "http://127.0.0.1:8545"}, GetNodes(Mumbai))
}

func TestTxURL(t *testing.T) {
	assert.Equal(t, "https://mumbai.polygonscan.com/tx/0xabc", TxURL(Mumbai, "0xabc"))
	assert.Equal(t, "0xabc", TxURL(Unknown, "0xabc"))
}
