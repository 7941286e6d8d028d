// Package registrytest provides an in-memory registry contract that speaks
// the contract ABI, for tests of code built on registry.Client.
package registrytest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tranvictor/namesvc/registry"
)

// Sent is a transaction the contract received.
type Sent struct {
	Method string
	From   common.Address
	Value  *big.Int
	Args   []any
	Hash   common.Hash
}

// Contract is a fake registry. Reverts are mined with status 0 and leave the
// state untouched, like the real contract.
type Contract struct {
	mu       sync.Mutex
	names    []string
	records  map[string]string
	owners   map[string]common.Address
	receipts map[common.Hash]*types.Receipt
	pending  map[common.Hash]*types.Receipt
	effects  map[common.Hash]func()
	sent     []Sent
	reads    int
	nonce    uint64

	// SendErr fails submissions of the named method.
	SendErr map[string]error
	// Revert mines the named method with a failure status.
	Revert map[string]bool
	// ReadErr fails every read call while set.
	ReadErr error
	// Manual keeps txs pending until Mine is called.
	Manual bool
}

func New() *Contract {
	return &Contract{
		records:  map[string]string{},
		owners:   map[string]common.Address{},
		receipts: map[common.Hash]*types.Receipt{},
		pending:  map[common.Hash]*types.Receipt{},
		effects:  map[common.Hash]func(){},
		SendErr:  map[string]error{},
		Revert:   map[string]bool{},
	}
}

// Seed registers name directly.
func (c *Contract) Seed(name, record string, owner common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	c.records[name] = record
	c.owners[name] = owner
}

func (c *Contract) SetReadErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReadErr = err
}

// Sent returns the txs received so far.
func (c *Contract) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// SentMethods returns the method of every tx received, in order.
func (c *Contract) SentMethods() []string {
	out := []string{}
	for _, s := range c.Sent() {
		out = append(out, s.Method)
	}
	return out
}

// Reads is the number of read calls served.
func (c *Contract) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Record returns the stored record of name.
func (c *Contract) Record(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[name]
}

// Mine mines every pending tx.
func (c *Contract) Mine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, r := range c.pending {
		c.mineLocked(hash, r)
	}
}

func (c *Contract) mineLocked(hash common.Hash, r *types.Receipt) {
	if r.Status == types.ReceiptStatusSuccessful {
		c.effects[hash]()
	}
	delete(c.effects, hash)
	delete(c.pending, hash)
	c.receipts[hash] = r
}

func (c *Contract) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	method, args, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}
	m := registry.ABI().Methods[method]
	switch method {
	case "getAllNames":
		return m.Outputs.Pack(append([]string{}, c.names...))
	case "records":
		return m.Outputs.Pack(c.records[args[0].(string)])
	case "domains":
		return m.Outputs.Pack(c.owners[args[0].(string)])
	}
	return nil, fmt.Errorf("registrytest: %s is not a read", method)
}

func (c *Contract) SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	method, args, err := decode(msg.Data)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.SendErr[method]; err != nil {
		return common.Hash{}, err
	}
	c.nonce++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], c.nonce)
	hash := crypto.Keccak256Hash(seed[:])
	c.sent = append(c.sent, Sent{Method: method, From: msg.From, Value: msg.Value, Args: args, Hash: hash})

	status := types.ReceiptStatusSuccessful
	var effect func()
	switch method {
	case "register":
		name := args[0].(string)
		if _, taken := c.owners[name]; taken {
			status = types.ReceiptStatusFailed
		}
		effect = func() {
			c.names = append(c.names, name)
			c.owners[name] = msg.From
		}
	case "setRecord":
		name, record := args[0].(string), args[1].(string)
		if c.owners[name] != msg.From {
			status = types.ReceiptStatusFailed
		}
		effect = func() { c.records[name] = record }
	default:
		return common.Hash{}, fmt.Errorf("registrytest: %s is not a tx", method)
	}
	if c.Revert[method] {
		status = types.ReceiptStatusFailed
	}
	receipt := &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(int64(c.nonce))}
	c.pending[hash] = receipt
	c.effects[hash] = effect
	if !c.Manual {
		c.mineLocked(hash, receipt)
	}
	return hash, nil
}

func (c *Contract) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func decode(data []byte) (string, []any, error) {
	if len(data) < 4 {
		return "", nil, errors.New("registrytest: calldata too short")
	}
	m, err := registry.ABI().MethodById(data[:4])
	if err != nil {
		return "", nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, err
	}
	return m.Name, args, nil
}
