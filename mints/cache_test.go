package mints

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tranvictor/namesvc/registry"
)

var (
	alice = common.HexToAddress("0xAbC0000000000000000000000000000000000A11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type staticLister struct {
	mu   sync.Mutex
	rows []registry.Row
	err  error
}

func (l *staticLister) set(rows []registry.Row, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows, l.err = rows, err
}

func (l *staticLister) ListAll(ctx context.Context) ([]registry.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows, l.err
}

// generationLister tags every row of a listing with the listing number.
type generationLister struct {
	n     atomic.Int64
	width int
}

func (l *generationLister) ListAll(ctx context.Context) ([]registry.Row, error) {
	n := l.n.Add(1)
	rows := make([]registry.Row, l.width)
	for i := range rows {
		rows[i] = registry.Row{Name: fmt.Sprintf("name%d", i), Record: fmt.Sprintf("gen-%d", n), Owner: alice}
	}
	return rows, nil
}

func worldCup() []registry.Row {
	return []registry.Row{
		{Name: "messi", Record: "the goat of argentina", Owner: alice},
		{Name: "mbappe", Record: "france striker", Owner: bob},
		{Name: "qatar", Record: "host nation", Owner: alice},
	}
}

func TestIsOwnedByIgnoresCase(t *testing.T) {
	e := Entry{Owner: "0xABC0000000000000000000000000000000000A11"}
	assert.True(t, IsOwnedBy(e, "0xabc0000000000000000000000000000000000a11"))
	assert.True(t, IsOwnedBy(e, alice.Hex()))
	assert.False(t, IsOwnedBy(e, bob.Hex()))
	assert.False(t, IsOwnedBy(e, ""))
	assert.False(t, IsOwnedBy(Entry{}, ""))
}

func TestRefreshAssignsPositionalIDs(t *testing.T) {
	c := NewCache(&staticLister{rows: worldCup()}, zaptest.NewLogger(t))
	assert.Empty(t, c.Entries())
	assert.Equal(t, uint64(0), c.Generation())

	require.NoError(t, c.Refresh(context.Background()))
	entries := c.Entries()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i, e.ID)
	}
	assert.Equal(t, "mbappe", entries[1].Name)
	assert.Equal(t, bob.Hex(), entries[1].Owner)
	assert.Equal(t, uint64(1), c.Generation())
	assert.False(t, c.RefreshedAt().IsZero())

	entries[0].Name = "changed"
	assert.Equal(t, "messi", c.Entries()[0].Name, "Entries returns a copy")
}

func TestRefreshFailureKeepsLastSnapshot(t *testing.T) {
	l := &staticLister{rows: worldCup()}
	c := NewCache(l, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	l.set(nil, errors.New("node down"))
	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.Len(t, c.Entries(), 3)
	assert.Equal(t, uint64(1), c.Generation())
}

func TestOwned(t *testing.T) {
	c := NewCache(&staticLister{rows: worldCup()}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	owned := c.Owned("0xabc0000000000000000000000000000000000a11")
	require.Len(t, owned, 2)
	assert.Equal(t, "messi", owned[0].Name)
	assert.Equal(t, "qatar", owned[1].Name)
	assert.True(t, c.IsOwnedBy(owned[0], alice.Hex()))
}

func TestFindPrefersExactName(t *testing.T) {
	c := NewCache(&staticLister{rows: []registry.Row{
		{Name: "messi10", Owner: alice},
		{Name: "messi", Owner: alice},
	}}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	found := c.Find("messi")
	require.Len(t, found, 2)
	assert.Equal(t, "messi", found[0].Name)

	found = c.Find("mss")
	require.NotEmpty(t, found)
	assert.Empty(t, c.Find("zzz"))
}

func TestSearchNamesAndRecords(t *testing.T) {
	c := NewCache(&staticLister{rows: worldCup()}, zaptest.NewLogger(t))

	found, err := c.Search("messi")
	require.NoError(t, err)
	assert.Empty(t, found, "nothing before the first refresh")

	require.NoError(t, c.Refresh(context.Background()))

	found, err = c.Search("messi")
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "messi", found[0].Name)

	found, err = c.Search("striker")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "mbappe", found[0].Name)

	found, err = c.Search("mesi")
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "messi", found[0].Name)
}

func TestSearchAfterRefreshUsesNewSnapshot(t *testing.T) {
	l := &staticLister{rows: worldCup()}
	c := NewCache(l, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	l.set([]registry.Row{{Name: "neymar", Record: "brazil", Owner: bob}}, nil)
	require.NoError(t, c.Refresh(context.Background()))

	found, err := c.Search("messi")
	require.NoError(t, err)
	assert.Empty(t, found)
	found, err = c.Search("brazil")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "neymar", found[0].Name)
}

func TestReadersNeverSeeMixedSnapshots(t *testing.T) {
	c := NewCache(&generationLister{width: 50}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var mixed atomic.Int64
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				entries := c.Entries()
				for _, e := range entries {
					if e.Record != entries[0].Record {
						mixed.Add(1)
						break
					}
				}
				if len(entries) > 0 {
					_, _ = c.Search("name1")
				}
			}
		}()
	}
	for i := 0; i < 30; i++ {
		require.NoError(t, c.Refresh(context.Background()))
	}
	cancel()
	wg.Wait()

	assert.Equal(t, int64(0), mixed.Load())
	assert.Equal(t, uint64(31), c.Generation())
	assert.Equal(t, "gen-31", c.Entries()[0].Record)
}
