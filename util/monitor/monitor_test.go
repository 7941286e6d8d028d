package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedReader returns the scripted responses in order, then repeats the
// last one.
type scriptedReader struct {
	mu        sync.Mutex
	responses []func() (*types.Receipt, error)
	calls     int
}

func (s *scriptedReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i]()
}

func notFound() (*types.Receipt, error) { return nil, ethereum.NotFound }

func receipt(status uint64) func() (*types.Receipt, error) {
	return func() (*types.Receipt, error) {
		return &types.Receipt{Status: status}, nil
	}
}

func TestBlockingWaitDone(t *testing.T) {
	r := &scriptedReader{responses: []func() (*types.Receipt, error){
		notFound,
		func() (*types.Receipt, error) { return nil, errors.New("node hiccup") },
		receipt(types.ReceiptStatusSuccessful),
	}}
	m := NewGenericTxMonitor(r, time.Millisecond, zaptest.NewLogger(t))

	info, err := m.BlockingWait(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.True(t, info.Succeeded())
	assert.Equal(t, StatusDone, info.Status)
	assert.Equal(t, 3, r.calls)
}

func TestBlockingWaitReverted(t *testing.T) {
	r := &scriptedReader{responses: []func() (*types.Receipt, error){
		receipt(types.ReceiptStatusFailed),
	}}
	m := NewGenericTxMonitor(r, time.Millisecond, zaptest.NewLogger(t))

	info, err := m.BlockingWait(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.False(t, info.Succeeded())
	assert.Equal(t, StatusReverted, info.Status)
}

func TestBlockingWaitHonoursContext(t *testing.T) {
	r := &scriptedReader{responses: []func() (*types.Receipt, error){notFound}}
	m := NewGenericTxMonitor(r, time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.BlockingWait(ctx, common.HexToHash("0x01"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
