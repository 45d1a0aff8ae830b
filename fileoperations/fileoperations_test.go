package fileoperations

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/aeswrapper"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
)

func newHelper(t *testing.T) Helper {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		WalletPath:   filepath.Join(dir, "wallet"),
		WalletPasswd: "test passphrase",
		QueuePath:    filepath.Join(dir, "queue"),
		BalancePath:  filepath.Join(dir, "balance"),
	}
	return New(cfg, aeswrapper.New())
}

func TestWalletSaveReadRoundTrip(t *testing.T) {
	h := newHelper(t)
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)
	w, err := wallet.New(s)
	assert.Nil(t, err)

	assert.Nil(t, h.SaveWallet(w))
	read, err := h.ReadWallet()
	assert.Nil(t, err)
	assert.Equal(t, w.PublicKey(), read.PublicKey())
	assert.Equal(t, w.Private, read.Private)
}

func TestWalletReadWithWrongPasswordFails(t *testing.T) {
	h := newHelper(t)
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)
	w, err := wallet.New(s)
	assert.Nil(t, err)
	assert.Nil(t, h.SaveWallet(w))

	h.cfg.WalletPasswd = "wrong passphrase"
	_, err = h.ReadWallet()
	assert.ErrorIs(t, err, aeswrapper.ErrOpenDataFailure)
}

func TestQueueStateRoundTrip(t *testing.T) {
	h := newHelper(t)

	recs, err := h.ReadTransfers()
	assert.Nil(t, err)
	assert.Empty(t, recs)

	balance, err := h.ReadBalance()
	assert.Nil(t, err)
	assert.True(t, balance.IsZero())

	saved := []transfer.Record{
		{TxID: "T1", From: "alice", To: "bob", Amount: decimal.NewFromInt(200), Status: transfer.StatusPendingSync},
	}
	assert.Nil(t, h.SaveTransfers(saved))
	assert.Nil(t, h.SaveBalance(decimal.NewFromInt(300)))

	recs, err = h.ReadTransfers()
	assert.Nil(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, "T1", recs[0].TxID)
	assert.True(t, recs[0].Amount.Equal(decimal.NewFromInt(200)))

	balance, err = h.ReadBalance()
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
}
