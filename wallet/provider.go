// Package wallet tracks the user's wallet: whether one is reachable, which
// account it authorized and which chain it is on.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tranvictor/namesvc/networks"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected  = 4001
	CodeUnauthorized  = 4100
	CodeChainNotAdded = 4902
)

// Provider is the surface an EIP-1193 wallet exposes to a dapp.
type Provider interface {
	// RequestAccounts may block until the user approves access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts never prompts; it is empty when nothing is authorized yet.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, d networks.ChainDescriptor) error
	// OnChainChanged registers handler for chainChanged events and returns a
	// function removing it.
	OnChainChanged(handler func(chainID uint64)) (unsubscribe func())

	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, msg ethereum.CallMsg) (common.Hash, error)
	// TransactionReceipt returns ethereum.NotFound until the tx is mined.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// ProviderError is an error a wallet reported with an EIP-1193 code. Two
// ProviderErrors match under errors.Is when their codes are equal.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

// ErrorCode makes ProviderError an rpc.Error so it keeps its code on the wire.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	return ok && t.Code == e.Code
}

var (
	ErrProviderAbsent = errors.New("no wallet provider available")
	ErrUserRejected   = &ProviderError{Code: CodeUserRejected, Message: "user rejected the request"}
	ErrChainNotAdded  = &ProviderError{Code: CodeChainNotAdded, Message: "unrecognized chain"}
	ErrUnauthorized   = &ProviderError{Code: CodeUnauthorized, Message: "account not authorized"}
)

// Code returns the EIP-1193 code carried by err, or 0.
func Code(err error) int {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return rerr.ErrorCode()
	}
	return 0
}

// fromRPC turns JSON-RPC errors with a provider code into ProviderErrors.
func fromRPC(method string, err error) error {
	if err == nil {
		return nil
	}
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		switch rerr.ErrorCode() {
		case CodeUserRejected, CodeUnauthorized, CodeChainNotAdded:
			return fmt.Errorf("%s: %w", method, &ProviderError{Code: rerr.ErrorCode(), Message: rerr.Error()})
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}

// chainListeners fans a chainChanged event out to registered handlers.
type chainListeners struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(uint64)
}

func (l *chainListeners) add(h func(uint64)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handlers == nil {
		l.handlers = map[int]func(uint64){}
	}
	id := l.next
	l.next++
	l.handlers[id] = h
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, id)
	}
}

func (l *chainListeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers)
}

func (l *chainListeners) emit(chainID uint64) {
	l.mu.Lock()
	hs := make([]func(uint64), 0, len(l.handlers))
	for _, h := range l.handlers {
		hs = append(hs, h)
	}
	l.mu.Unlock()
	for _, h := range hs {
		h(chainID)
	}
}
