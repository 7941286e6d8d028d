package account

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func AddressFromPrivateKey(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func PrivateKeyFromKeystore(file string, password string) (string, *ecdsa.PrivateKey, error) {
	json, err := os.ReadFile(file)
	if err != nil {
		return "", nil, err
	}
	key, err := keystore.DecryptKey(json, password)
	if err != nil {
		return "", nil, err
	}
	return AddressFromPrivateKey(key.PrivateKey), key.PrivateKey, nil
}

// works with both 0x prefix form and naked form
func PrivateKeyFromHex(hex string) (string, *ecdsa.PrivateKey, error) {
	privkey, err := crypto.HexToECDSA(strings.TrimPrefix(hex, "0x"))
	if err != nil {
		return "", nil, err
	}
	return AddressFromPrivateKey(privkey), privkey, nil
}

type keystoreHeader struct {
	Address string `json:"address"`
}

// KeystoreAddress reads the address a keystore file is for without
// decrypting it.
func KeystoreAddress(file string) (common.Address, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return common.Address{}, err
	}
	k := keystoreHeader{}
	if err := json.Unmarshal(content, &k); err != nil {
		return common.Address{}, fmt.Errorf("%s is not a keystore file: %w", file, err)
	}
	if !common.IsHexAddress(k.Address) {
		return common.Address{}, fmt.Errorf("%s has no valid address field", file)
	}
	return common.HexToAddress(k.Address), nil
}
