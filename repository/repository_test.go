//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/transfer"
)

func connect(t *testing.T, ctx context.Context) *DataBase {
	t.Helper()
	godotenv.Load("../.env")
	user := os.Getenv("POSTGRES_DB_USER")
	passwd := os.Getenv("POSTGRES_DB_PASSWORD")
	dbName := os.Getenv("POSTGRES_DB_NAME")

	cfg := DBConfig{
		ConnStr:      fmt.Sprintf("postgres://%s:%s@localhost:5432", user, passwd),
		DatabaseName: dbName,
	}

	db, err := Connect(ctx, cfg)
	assert.Nil(t, err)
	assert.Nil(t, db.Ping(ctx))
	assert.Nil(t, db.RunMigration(ctx))
	return db
}

func TestConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := connect(t, ctx)
	defer db.Disconnect(ctx)
}

func TestAccountLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := connect(t, ctx)
	defer db.Disconnect(ctx)

	sender := uuid.NewString()
	receiver := uuid.NewString()
	assert.Nil(t, db.CreateAccount(ctx, sender, decimal.NewFromInt(500), decimal.NewFromInt(1000)))
	assert.Nil(t, db.CreateAccount(ctx, receiver, decimal.Zero, decimal.NewFromInt(1000)))

	balance, err := db.ReadBalance(ctx, sender)
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))

	balance, err = db.FundAccount(ctx, sender, decimal.NewFromInt(500))
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))

	_, err = db.FundAccount(ctx, sender, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrMoveFailed)
}

func TestReconcileBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := connect(t, ctx)
	defer db.Disconnect(ctx)

	sender := uuid.NewString()
	receiver := uuid.NewString()
	assert.Nil(t, db.CreateAccount(ctx, sender, decimal.NewFromInt(500), decimal.NewFromInt(1000)))
	assert.Nil(t, db.CreateAccount(ctx, receiver, decimal.Zero, decimal.NewFromInt(1000)))

	tx, err := db.BeginTx(ctx)
	assert.Nil(t, err)

	txID := uuid.NewString()
	ok, err := tx.HasTransfer(ctx, txID)
	assert.Nil(t, err)
	assert.False(t, ok)

	acc, err := tx.ReadAccount(ctx, sender)
	assert.Nil(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(500)))

	assert.Nil(t, tx.MoveBalance(ctx, sender, receiver, decimal.NewFromInt(200)))
	rec := transfer.Record{
		TxID: txID, From: sender, To: receiver,
		SenderPublicKey: "spk", ReceiverPublicKey: "rpk",
		Amount:          decimal.NewFromInt(200),
		SenderSignature: "ss", ReceiverSignature: "rs",
		Status: transfer.StatusConfirmed,
	}
	assert.Nil(t, tx.WriteTransferRecord(ctx, &rec))
	assert.Nil(t, tx.Commit())

	balance, err := db.ReadBalance(ctx, sender)
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(300)))
	balance, err = db.ReadBalance(ctx, receiver)
	assert.Nil(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(200)))

	stored, err := db.ReadTransfer(ctx, txID)
	assert.Nil(t, err)
	assert.Equal(t, transfer.StatusConfirmed, stored.Status)

	recs, err := db.ReadTransfersByAccount(ctx, sender, 10)
	assert.Nil(t, err)
	assert.Len(t, recs, 1)
}

func TestTokenLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := connect(t, ctx)
	defer db.Disconnect(ctx)

	tkn := uuid.NewString()
	assert.Nil(t, db.WriteToken(ctx, tkn, 9223372036854775807))

	ok, err := db.CheckToken(ctx, tkn)
	assert.Nil(t, err)
	assert.True(t, ok)

	assert.Nil(t, db.InvalidateToken(ctx, tkn))
	ok, err = db.CheckToken(ctx, tkn)
	assert.Nil(t, err)
	assert.False(t, ok)
}
