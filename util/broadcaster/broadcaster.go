package broadcaster

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	nscommon "github.com/tranvictor/namesvc/common"
)

const TIMEOUT time.Duration = 4 * time.Second

// Broadcaster takes a signed tx and tries to broadcast it to all nodes it
// manages as fast as possible. The tx counts as broadcasted when at least one
// node accepted it.
type Broadcaster struct {
	clients map[string]*rpc.Client
}

func (b *Broadcaster) GetNodes() map[string]*rpc.Client {
	return b.clients
}

func (b *Broadcaster) broadcast(ctx context.Context, client *rpc.Client, data string) error {
	return client.CallContext(ctx, nil, "eth_sendRawTransaction", data)
}

func (b *Broadcaster) BroadcastTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("tx is not valid, couldn't encode it: %w", err)
	}
	return tx.Hash(), b.Broadcast(ctx, hexutil.Encode(data))
}

// Broadcast sends data, the hex encoded signed tx, to every node.
func (b *Broadcaster) Broadcast(ctx context.Context, data string) error {
	if len(b.clients) == 0 {
		return fmt.Errorf("no nodes to broadcast to")
	}
	timeout, cancel := context.WithTimeout(ctx, TIMEOUT)
	defer cancel()
	parallelTasks := []func() error{}
	for id := range b.clients {
		name, cli := id, b.clients[id]
		parallelTasks = append(parallelTasks, func() error {
			if err := b.broadcast(timeout, cli, data); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	numErrs, err := nscommon.RunParallel(parallelTasks...)
	if numErrs == len(b.clients) {
		return fmt.Errorf("couldn't broadcast to any nodes: %w", err)
	}
	return nil
}

func (b *Broadcaster) Close() {
	for _, c := range b.clients {
		c.Close()
	}
}

func NewGenericBroadcaster(nodes map[string]string, log *zap.Logger) *Broadcaster {
	clients := map[string]*rpc.Client{}
	for name, c := range nodes {
		client, err := rpc.Dial(c)
		if err != nil {
			log.Warn("couldn't connect to node", zap.String("node", name), zap.Error(err))
		} else {
			clients[name] = client
		}
	}
	return &Broadcaster{
		clients: clients,
	}
}
