package walletmiddleware

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/handshake"
	"github.com/bartossh/Pecunia/queue"
	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
)

type memStore struct {
	recs    []transfer.Record
	balance decimal.Decimal
}

func (m *memStore) SaveTransfers(recs []transfer.Record) error { m.recs = recs; return nil }
func (m *memStore) ReadTransfers() ([]transfer.Record, error)  { return m.recs, nil }
func (m *memStore) SaveBalance(b decimal.Decimal) error        { m.balance = b; return nil }
func (m *memStore) ReadBalance() (decimal.Decimal, error)      { return m.balance, nil }

type memWalletStore struct {
	w     wallet.Wallet
	saved bool
}

func (m *memWalletStore) ReadWallet() (wallet.Wallet, error) { return m.w, nil }
func (m *memWalletStore) SaveWallet(w wallet.Wallet) error   { m.w = w; m.saved = true; return nil }

func newDevice(t *testing.T, accountID string, balance int64) *Client {
	t.Helper()
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)

	wrs := &memWalletStore{}
	c := NewClient("http://localhost:8080", "token", accountID, 5*time.Second, wrs,
		func() (wallet.Wallet, error) { return wallet.New(s) })
	assert.Nil(t, c.NewWallet())
	assert.True(t, wrs.saved)

	q, err := queue.New(accountID, &memStore{balance: decimal.NewFromInt(balance)})
	assert.Nil(t, err)
	c.UseQueue(q)

	w, err := c.Wallet()
	assert.Nil(t, err)
	h, err := handshake.New(s, &w, accountID, q)
	assert.Nil(t, err)
	c.UseProtocol(h)
	return c
}

func TestOfflineExchangeBetweenDevices(t *testing.T) {
	alice := newDevice(t, "alice", 500)
	bob := newDevice(t, "bob", 0)

	payload, err := alice.CreateTransfer(decimal.NewFromInt(200), "bob")
	assert.Nil(t, err)

	reply, err := bob.AcceptTransfer(payload)
	assert.Nil(t, err)

	rec, err := alice.FinalizeTransfer(reply)
	assert.Nil(t, err)
	assert.Equal(t, transfer.StatusPendingSync, rec.Status)
	assert.Equal(t, "alice", rec.From)
	assert.Equal(t, "bob", rec.To)

	aliceBalance, err := alice.q.CachedBalance()
	assert.Nil(t, err)
	assert.True(t, aliceBalance.Equal(decimal.NewFromInt(300)))

	bobBalance, err := bob.q.CachedBalance()
	assert.Nil(t, err)
	assert.True(t, bobBalance.Equal(decimal.NewFromInt(200)))

	assert.Len(t, alice.q.ListPending(), 1)
	assert.Len(t, bob.q.ListPending(), 1)
}

func TestCreateTransferOverCachedBalanceFails(t *testing.T) {
	alice := newDevice(t, "alice", 100)
	_, err := alice.CreateTransfer(decimal.NewFromInt(200), "bob")
	assert.ErrorIs(t, err, handshake.ErrInsufficientBalance)
}

func TestApplyVerdictSettlesQueue(t *testing.T) {
	alice := newDevice(t, "alice", 500)
	bob := newDevice(t, "bob", 0)

	payload, err := alice.CreateTransfer(decimal.NewFromInt(200), "bob")
	assert.Nil(t, err)
	reply, err := bob.AcceptTransfer(payload)
	assert.Nil(t, err)
	rec, err := alice.FinalizeTransfer(reply)
	assert.Nil(t, err)

	verdict := reconciliation.Result{
		Balance:   decimal.NewFromInt(300),
		Confirmed: []string{rec.TxID},
	}
	assert.Nil(t, alice.applyVerdict(verdict))

	assert.Empty(t, alice.q.ListPending())
	balance, err := alice.q.CachedBalance()
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
}

func TestApplyVerdictReversesFailedTransfer(t *testing.T) {
	alice := newDevice(t, "alice", 500)
	bob := newDevice(t, "bob", 0)

	payload, err := alice.CreateTransfer(decimal.NewFromInt(200), "bob")
	assert.Nil(t, err)
	reply, err := bob.AcceptTransfer(payload)
	assert.Nil(t, err)
	rec, err := alice.FinalizeTransfer(reply)
	assert.Nil(t, err)

	verdict := reconciliation.Result{
		Balance: decimal.NewFromInt(500),
		Failed:  []reconciliation.Failure{{TxID: rec.TxID, Reason: "insufficient sender balance"}},
	}
	assert.Nil(t, alice.applyVerdict(verdict))

	assert.Empty(t, alice.q.ListPending())
	all := alice.q.List()
	assert.Len(t, all, 1)
	assert.Equal(t, transfer.StatusFailed, all[0].Status)
	assert.Equal(t, "insufficient sender balance", all[0].Reason)

	balance, err := alice.q.CachedBalance()
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))
}

func TestSyncTransportFailureLeavesQueueUntouched(t *testing.T) {
	alice := newDevice(t, "alice", 500)
	bob := newDevice(t, "bob", 0)

	payload, err := alice.CreateTransfer(decimal.NewFromInt(200), "bob")
	assert.Nil(t, err)
	reply, err := bob.AcceptTransfer(payload)
	assert.Nil(t, err)
	_, err = alice.FinalizeTransfer(reply)
	assert.Nil(t, err)

	// Nobody listens on the discard port, the submission never reaches
	// the central node.
	alice.apiRoot = "http://127.0.0.1:9"
	alice.timeout = 200 * time.Millisecond

	_, err = alice.Sync()
	assert.NotNil(t, err)

	pending := alice.q.ListPending()
	assert.Len(t, pending, 1)
	assert.Equal(t, transfer.StatusPendingSync, pending[0].Status)

	balance, err := alice.q.CachedBalance()
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
}
