package localcache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/transfer"
)

func TestCreateAccountRejectsDuplicates(t *testing.T) {
	c := NewAccountCache(Config{})
	err := c.CreateAccount("alice", decimal.NewFromInt(500), decimal.NewFromInt(1000))
	assert.Nil(t, err)
	err = c.CreateAccount("alice", decimal.Zero, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestFundAccountHonoursHoldingCap(t *testing.T) {
	c := NewAccountCache(Config{})
	err := c.CreateAccount("alice", decimal.NewFromInt(900), decimal.NewFromInt(1000))
	assert.Nil(t, err)

	balance, err := c.FundAccount("alice", decimal.NewFromInt(100))
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))

	balance, err = c.FundAccount("alice", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrHoldingLimitExceeded)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))

	_, err = c.FundAccount("nobody", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, reconciliation.ErrAccountNotFound)
}

func TestTxStagesMutationsUntilCommit(t *testing.T) {
	ctx := context.Background()
	c := NewAccountCache(Config{})
	assert.Nil(t, c.CreateAccount("alice", decimal.NewFromInt(500), decimal.NewFromInt(1000)))
	assert.Nil(t, c.CreateAccount("bob", decimal.Zero, decimal.NewFromInt(1000)))

	tx, err := c.BeginTx(ctx)
	assert.Nil(t, err)
	assert.Nil(t, tx.MoveBalance(ctx, "alice", "bob", decimal.NewFromInt(200)))

	acc, err := tx.ReadAccount(ctx, "alice")
	assert.Nil(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(300)))

	assert.Nil(t, tx.WriteTransferRecord(ctx, &transfer.Record{TxID: "T1", Status: transfer.StatusConfirmed}))
	assert.Nil(t, tx.Commit())

	balance, err := c.ReadBalance(ctx, "alice")
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
	balance, err = c.ReadBalance(ctx, "bob")
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(200)))

	rec, ok := c.ReadTransfer("T1")
	assert.True(t, ok)
	assert.Equal(t, transfer.StatusConfirmed, rec.Status)
}

func TestTxRollbackDiscardsMutations(t *testing.T) {
	ctx := context.Background()
	c := NewAccountCache(Config{})
	assert.Nil(t, c.CreateAccount("alice", decimal.NewFromInt(500), decimal.NewFromInt(1000)))
	assert.Nil(t, c.CreateAccount("bob", decimal.Zero, decimal.NewFromInt(1000)))

	tx, err := c.BeginTx(ctx)
	assert.Nil(t, err)
	assert.Nil(t, tx.MoveBalance(ctx, "alice", "bob", decimal.NewFromInt(200)))
	assert.Nil(t, tx.WriteTransferRecord(ctx, &transfer.Record{TxID: "T1"}))
	assert.Nil(t, tx.Rollback())

	balance, err := c.ReadBalance(ctx, "alice")
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))
	_, ok := c.ReadTransfer("T1")
	assert.False(t, ok)

	assert.ErrorIs(t, tx.Commit(), ErrTransactionBoundaryReuse)
}

func TestTxRejectsReoccurringTransferRecord(t *testing.T) {
	ctx := context.Background()
	c := NewAccountCache(Config{})

	tx, err := c.BeginTx(ctx)
	assert.Nil(t, err)
	assert.Nil(t, tx.WriteTransferRecord(ctx, &transfer.Record{TxID: "T1"}))
	assert.ErrorIs(t, tx.WriteTransferRecord(ctx, &transfer.Record{TxID: "T1"}), ErrNotAllowedReoccurringTx)
	assert.Nil(t, tx.Commit())

	tx, err = c.BeginTx(ctx)
	assert.Nil(t, err)
	assert.ErrorIs(t, tx.WriteTransferRecord(ctx, &transfer.Record{TxID: "T1"}), ErrNotAllowedReoccurringTx)
	ok, err := tx.HasTransfer(ctx, "T1")
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Nil(t, tx.Rollback())
}
