// Package registry is the client side of the names registry contract.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tranvictor/namesvc/util/monitor"
)

const (
	DefaultContract        = "0x1417CbB2259d9657aEe014CcE8eaa4033230C0b3"
	TLD                    = ".2022"
	DefaultReadConcurrency = 8
)

var (
	// ErrSubmission means the wallet, the node or the contract refused the
	// tx before it was mined.
	ErrSubmission = errors.New("transaction submission failed")
	// ErrReverted means the tx was mined with a failure status.
	ErrReverted = errors.New("transaction reverted")
)

// MarketplaceURL links the token minted for the id-th name.
func MarketplaceURL(contract common.Address, id int) string {
	return fmt.Sprintf("https://testnets.opensea.io/assets/mumbai/%s/%d", contract.Hex(), id)
}

// Backend is the part of a wallet the registry needs: reads, sends signed by
// the wallet's account, and receipts.
type Backend interface {
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Row is one registered name as read from the contract.
type Row struct {
	Name   string
	Record string
	Owner  common.Address
}

// Tx is a submitted registry transaction.
type Tx interface {
	Hash() common.Hash
	// Wait blocks until the tx is mined. The receipt is returned for reverted
	// txs too, together with ErrReverted.
	Wait(ctx context.Context) (*types.Receipt, error)
}

type Options struct {
	// ConfirmPollInterval is how often receipts are polled while waiting.
	ConfirmPollInterval time.Duration
	// ReadConcurrency bounds the concurrent per-name reads of ListAll.
	ReadConcurrency int
}

type Client struct {
	backend         Backend
	contract        common.Address
	abi             *abi.ABI
	monitor         *monitor.TxMonitor
	readConcurrency int
	log             *zap.Logger
}

func NewClient(b Backend, contract common.Address, opts Options, log *zap.Logger) *Client {
	if opts.ReadConcurrency <= 0 {
		opts.ReadConcurrency = DefaultReadConcurrency
	}
	log = log.Named("registry")
	return &Client{
		backend:         b,
		contract:        contract,
		abi:             ABI(),
		monitor:         monitor.NewGenericTxMonitor(b, opts.ConfirmPollInterval, log),
		readConcurrency: opts.ReadConcurrency,
		log:             log,
	}
}

func (c *Client) Contract() common.Address {
	return c.contract
}

// Register submits register(name) paying payment.
func (c *Client) Register(ctx context.Context, from common.Address, name string, payment *big.Int) (Tx, error) {
	return c.transact(ctx, from, payment, "register", name)
}

// SetRecord submits setRecord(name, text).
func (c *Client) SetRecord(ctx context.Context, from common.Address, name, text string) (Tx, error) {
	return c.transact(ctx, from, nil, "setRecord", name, text)
}

func (c *Client) transact(ctx context.Context, from common.Address, value *big.Int, method string, params ...any) (Tx, error) {
	data, err := c.abi.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("couldn't pack %s: %w", method, err)
	}
	to := c.contract
	hash, err := c.backend.SendTransaction(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSubmission, method, err)
	}
	c.log.Info("submitted", zap.String("method", method), zap.Stringer("tx", hash))
	return &pendingTx{hash: hash, monitor: c.monitor}, nil
}

type pendingTx struct {
	hash    common.Hash
	monitor *monitor.TxMonitor
}

func (t *pendingTx) Hash() common.Hash {
	return t.hash
}

func (t *pendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	info, err := t.monitor.BlockingWait(ctx, t.hash)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", t.hash.Hex(), err)
	}
	if !info.Succeeded() {
		return info.Receipt, fmt.Errorf("%w: %s", ErrReverted, t.hash.Hex())
	}
	return info.Receipt, nil
}

func (c *Client) call(ctx context.Context, method string, params ...any) ([]any, error) {
	data, err := c.abi.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("couldn't pack %s: %w", method, err)
	}
	to := c.contract
	out, err := c.backend.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("couldn't unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	return values, nil
}

func (c *Client) Names(ctx context.Context) ([]string, error) {
	values, err := c.call(ctx, "getAllNames")
	if err != nil {
		return nil, err
	}
	names, ok := values[0].([]string)
	if !ok {
		return nil, fmt.Errorf("getAllNames returned %T", values[0])
	}
	return names, nil
}

func (c *Client) Record(ctx context.Context, name string) (string, error) {
	values, err := c.call(ctx, "records", name)
	if err != nil {
		return "", err
	}
	record, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("records returned %T", values[0])
	}
	return record, nil
}

func (c *Client) Owner(ctx context.Context, name string) (common.Address, error) {
	values, err := c.call(ctx, "domains", name)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("domains returned %T", values[0])
	}
	return owner, nil
}

// ListAll reads every registered name with its record and owner, in the
// contract's enumeration order. It costs two calls per name after the
// listing; those run concurrently up to the configured limit and any failure
// fails the whole listing.
func (c *Client) ListAll(ctx context.Context) ([]Row, error) {
	names, err := c.Names(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.readConcurrency)
	for i, name := range names {
		g.Go(func() error {
			record, err := c.Record(gctx, name)
			if err != nil {
				return err
			}
			owner, err := c.Owner(gctx, name)
			if err != nil {
				return err
			}
			rows[i] = Row{Name: name, Record: record, Owner: owner}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.log.Debug("listed names", zap.Int("count", len(rows)))
	return rows, nil
}
