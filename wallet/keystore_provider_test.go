package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tranvictor/namesvc/networks"
	"github.com/tranvictor/namesvc/ui"
)

func writeTestKeystore(t *testing.T, passphrase string) (string, common.Address) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	key := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
	content, err := keystore.EncryptKey(key, passphrase, keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path, key.Address
}

func TestKeystoreProviderUnlock(t *testing.T) {
	path, addr := writeTestKeystore(t, "pw")
	u := ui.NewRecordingUI("", "pw")
	p := NewKeystoreProvider(path, networks.Mumbai, u, zaptest.NewLogger(t))
	defer p.Close()
	ctx := context.Background()

	accounts, err := p.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = p.RequestAccounts(ctx)
	assert.ErrorIs(t, err, ErrUserRejected)

	accounts, err = p.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)

	accounts, err = p.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, accounts)
	assert.Equal(t, 0, u.Remaining())
}

func TestKeystoreProviderWrongPassphrase(t *testing.T) {
	path, _ := writeTestKeystore(t, "pw")
	p := NewKeystoreProvider(path, networks.Mumbai, ui.NewRecordingUI("nope"), zaptest.NewLogger(t))
	defer p.Close()

	_, err := p.RequestAccounts(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserRejected)
}

func TestKeystoreProviderAddThenSwitch(t *testing.T) {
	path, _ := writeTestKeystore(t, "pw")
	mainnet, err := networks.GetNetwork("mainnet")
	require.NoError(t, err)
	u := ui.NewRecordingUI("y", "y")
	p := NewKeystoreProvider(path, mainnet, u, zaptest.NewLogger(t))
	defer p.Close()
	ctx := context.Background()

	var changed []uint64
	p.OnChainChanged(func(id uint64) { changed = append(changed, id) })

	err = p.SwitchChain(ctx, 80001)
	assert.ErrorIs(t, err, ErrChainNotAdded)

	require.NoError(t, p.AddChain(ctx, networks.Descriptor(networks.Mumbai)))
	require.NoError(t, p.SwitchChain(ctx, 80001))

	id, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(80001), id)
	assert.Equal(t, []uint64{80001}, changed)

	// already active, nothing to confirm
	require.NoError(t, p.SwitchChain(ctx, 80001))
	assert.Equal(t, 0, u.Remaining())
}

func TestKeystoreProviderDeclinedSwitch(t *testing.T) {
	path, _ := writeTestKeystore(t, "pw")
	mainnet, err := networks.GetNetwork("mainnet")
	require.NoError(t, err)
	p := NewKeystoreProvider(path, mainnet, ui.NewRecordingUI("y", "n"), zaptest.NewLogger(t))
	defer p.Close()
	ctx := context.Background()

	require.NoError(t, p.AddChain(ctx, networks.Descriptor(networks.Mumbai)))
	assert.ErrorIs(t, p.SwitchChain(ctx, 80001), ErrUserRejected)

	id, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

// readingUI runs read while each confirmation is pending.
type readingUI struct {
	*ui.RecordingUI
	read func()
}

func (u *readingUI) Confirm(prompt string, defaultYes bool) bool {
	u.read()
	return u.RecordingUI.Confirm(prompt, defaultYes)
}

func TestKeystoreProviderReadsWhilePrompting(t *testing.T) {
	path, _ := writeTestKeystore(t, "pw")
	mainnet, err := networks.GetNetwork("mainnet")
	require.NoError(t, err)
	ctx := context.Background()

	u := &readingUI{RecordingUI: ui.NewRecordingUI("y", "y")}
	p := NewKeystoreProvider(path, mainnet, u, zaptest.NewLogger(t))
	defer p.Close()

	var answered []uint64
	u.read = func() {
		done := make(chan uint64, 1)
		go func() {
			_, _ = p.Accounts(ctx)
			id, _ := p.ChainID(ctx)
			done <- id
		}()
		select {
		case id := <-done:
			answered = append(answered, id)
		case <-time.After(2 * time.Second):
			t.Error("wallet reads blocked on a pending confirmation")
		}
	}

	require.NoError(t, p.AddChain(ctx, networks.Descriptor(networks.Mumbai)))
	require.NoError(t, p.SwitchChain(ctx, 80001))
	assert.Equal(t, []uint64{1, 1}, answered, "reads see the chain active before the switch")

	id, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(80001), id)
}

func TestKeystoreProviderRefusesLockedSender(t *testing.T) {
	path, addr := writeTestKeystore(t, "pw")
	p := NewKeystoreProvider(path, networks.Mumbai, ui.NewRecordingUI(), zaptest.NewLogger(t))
	defer p.Close()
	to := common.HexToAddress("0x1417CbB2259d9657aEe014CcE8eaa4033230C0b3")

	_, err := p.SendTransaction(context.Background(), ethereum.CallMsg{From: addr, To: &to})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
