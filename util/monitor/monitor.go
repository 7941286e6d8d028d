package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	StatusDone     = "done"
	StatusReverted = "reverted"
)

const DefaultInterval = 2 * time.Second

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type TxInfo struct {
	Status  string
	Hash    common.Hash
	Receipt *types.Receipt
}

func (ti TxInfo) Succeeded() bool {
	return ti.Status == StatusDone
}

// TxMonitor polls a reader until a tx is mined. A tx that is not found yet
// is treated as pending, so the wait only ends with a receipt or with its
// context.
type TxMonitor struct {
	reader   ReceiptReader
	interval time.Duration
	log      *zap.Logger
}

func NewGenericTxMonitor(r ReceiptReader, interval time.Duration, log *zap.Logger) *TxMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &TxMonitor{
		reader:   r,
		interval: interval,
		log:      log,
	}
}

type waitResult struct {
	info TxInfo
	err  error
}

func (m *TxMonitor) check(ctx context.Context, hash common.Hash) (TxInfo, bool) {
	receipt, err := m.reader.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, ethereum.NotFound):
		return TxInfo{}, false
	case err != nil:
		m.log.Debug("couldn't read receipt, retrying", zap.Stringer("tx", hash), zap.Error(err))
		return TxInfo{}, false
	case receipt == nil:
		return TxInfo{}, false
	}
	// only byzantium receipts have a status field. A receipt carrying a post
	// state root is pre-byzantium and counts as done.
	if len(receipt.PostState) == len(common.Hash{}) || receipt.Status == types.ReceiptStatusSuccessful {
		return TxInfo{StatusDone, hash, receipt}, true
	}
	return TxInfo{StatusReverted, hash, receipt}, true
}

func (m *TxMonitor) periodicCheck(ctx context.Context, hash common.Hash, info chan<- waitResult) {
	if ti, mined := m.check(ctx, hash); mined {
		info <- waitResult{info: ti}
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			info <- waitResult{info: TxInfo{Hash: hash}, err: ctx.Err()}
			return
		case <-ticker.C:
			if ti, mined := m.check(ctx, hash); mined {
				info <- waitResult{info: ti}
				return
			}
		}
	}
}

// BlockingWait returns once hash is mined, reverted or not, or ctx is done.
func (m *TxMonitor) BlockingWait(ctx context.Context, hash common.Hash) (TxInfo, error) {
	ch := make(chan waitResult, 1)
	go m.periodicCheck(ctx, hash, ch)
	res := <-ch
	return res.info, res.err
}
