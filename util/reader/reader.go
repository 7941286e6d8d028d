package reader

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoNodes = errors.New("no nodes configured")

// EthReader asks every node it manages the same question and returns the
// first successful answer. It only fails when all nodes fail.
type EthReader struct {
	nodes map[string]*OneNodeReader
}

func NewEthReaderGeneric(nodes map[string]string) *EthReader {
	ns := map[string]*OneNodeReader{}
	for name, c := range nodes {
		ns[name] = NewOneNodeReader(name, c)
	}
	return &EthReader{
		nodes: ns,
	}
}

func (er *EthReader) Close() {
	for _, n := range er.nodes {
		n.Close()
	}
}

func wrapError(e error, name string) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, e)
}

type nodeResult[T any] struct {
	Value T
	Error error
}

func firstSuccess[T any](ctx context.Context, er *EthReader, fn func(*OneNodeReader, context.Context) (T, error)) (T, error) {
	var zero T
	if len(er.nodes) == 0 {
		return zero, ErrNoNodes
	}
	resCh := make(chan nodeResult[T], len(er.nodes))
	for i := range er.nodes {
		n := er.nodes[i]
		go func() {
			v, err := fn(n, ctx)
			resCh <- nodeResult[T]{
				Value: v,
				Error: wrapError(err, n.NodeName()),
			}
		}()
	}
	errs := []error{}
	for i := 0; i < len(er.nodes); i++ {
		result := <-resCh
		if result.Error == nil {
			return result.Value, nil
		}
		errs = append(errs, result.Error)
	}
	return zero, fmt.Errorf("couldn't read from any nodes: %w", errors.Join(errs...))
}

func (er *EthReader) ChainID(ctx context.Context) (*big.Int, error) {
	return firstSuccess(ctx, er, (*OneNodeReader).ChainID)
}

func (er *EthReader) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return firstSuccess(ctx, er, func(n *OneNodeReader, ctx context.Context) (uint64, error) {
		return n.EstimateGas(ctx, msg)
	})
}

func (er *EthReader) GetPendingNonce(ctx context.Context, address common.Address) (uint64, error) {
	return firstSuccess(ctx, er, func(n *OneNodeReader, ctx context.Context) (uint64, error) {
		return n.GetPendingNonce(ctx, address)
	})
}

func (er *EthReader) SuggestedGasPrice(ctx context.Context) (*big.Int, error) {
	return firstSuccess(ctx, er, (*OneNodeReader).SuggestedGasPrice)
}

func (er *EthReader) SuggestedGasTipCap(ctx context.Context) (*big.Int, error) {
	return firstSuccess(ctx, er, (*OneNodeReader).SuggestedGasTipCap)
}

func (er *EthReader) HeaderByNumber(ctx context.Context, number int64) (*types.Header, error) {
	return firstSuccess(ctx, er, func(n *OneNodeReader, ctx context.Context) (*types.Header, error) {
		return n.HeaderByNumber(ctx, number)
	})
}

func (er *EthReader) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return firstSuccess(ctx, er, func(n *OneNodeReader, ctx context.Context) ([]byte, error) {
		return n.CallContract(ctx, msg)
	})
}

// TransactionReceipt returns an error matching ethereum.NotFound while the
// tx is not mined on any node.
func (er *EthReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return firstSuccess(ctx, er, func(n *OneNodeReader, ctx context.Context) (*types.Receipt, error) {
		return n.TransactionReceipt(ctx, hash)
	})
}

// CheckDynamicFeeTxAvailable reports whether the latest block carries a base
// fee.
func (er *EthReader) CheckDynamicFeeTxAvailable(ctx context.Context) (bool, *big.Int, error) {
	header, err := er.HeaderByNumber(ctx, -1)
	if err != nil {
		return false, nil, fmt.Errorf("couldn't get latest block header: %w", err)
	}
	if header.BaseFee == nil || header.BaseFee.Sign() <= 0 {
		return false, nil, nil
	}
	return true, header.BaseFee, nil
}
