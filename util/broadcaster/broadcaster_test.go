package broadcaster

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type rawTxSink struct {
	mu   sync.Mutex
	seen []hexutil.Bytes
	fail bool
}

func (s *rawTxSink) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return common.Hash{}, errors.New("nonce too low")
	}
	s.seen = append(s.seen, data)
	return common.Hash{}, nil
}

func newNode(t *testing.T, sink *rawTxSink) string {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", sink))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return httpServer.URL
}

func testTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		Value:    big.NewInt(0),
	})
}

func TestBroadcastReachesEveryNode(t *testing.T) {
	a, b := &rawTxSink{}, &rawTxSink{}
	bc := NewGenericBroadcaster(map[string]string{
		"a": newNode(t, a),
		"b": newNode(t, b),
	}, zaptest.NewLogger(t))
	defer bc.Close()

	tx := testTx()
	hash, err := bc.BroadcastTx(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)
	assert.Len(t, a.seen, 1)
	assert.Len(t, b.seen, 1)
}

func TestBroadcastSucceedsWhenOneNodeAccepts(t *testing.T) {
	bc := NewGenericBroadcaster(map[string]string{
		"ok":   newNode(t, &rawTxSink{}),
		"fail": newNode(t, &rawTxSink{fail: true}),
	}, zaptest.NewLogger(t))
	defer bc.Close()

	_, err := bc.BroadcastTx(context.Background(), testTx())
	assert.NoError(t, err)
}

func TestBroadcastFailsWhenAllNodesReject(t *testing.T) {
	bc := NewGenericBroadcaster(map[string]string{
		"fail": newNode(t, &rawTxSink{fail: true}),
	}, zaptest.NewLogger(t))
	defer bc.Close()

	_, err := bc.BroadcastTx(context.Background(), testTx())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce too low")
}
