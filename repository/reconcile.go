package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/transfer"
)

// BeginTx opens one atomic reconciliation boundary backed by a database
// transaction. Account rows are locked on read, so batches over the same
// account serialize on the balance row.
func (db DataBase) BeginTx(ctx context.Context) (reconciliation.Tx, error) {
	tx, err := db.inner.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Join(ErrTxFailed, err)
	}
	return &LedgerTx{inner: tx}, nil
}

// LedgerTx implements the reconciliation transaction boundary over postgres.
type LedgerTx struct {
	inner *sql.Tx
}

// HasTransfer reports if an audit record for the transaction id exists.
func (tx *LedgerTx) HasTransfer(ctx context.Context, txID string) (bool, error) {
	var exists bool
	if err := tx.inner.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transfers WHERE tx_id = $1)`, txID).
		Scan(&exists); err != nil {
		return false, errors.Join(ErrSelectFailed, err)
	}
	return exists, nil
}

// ReadAccount loads the account row locked for update.
func (tx *LedgerTx) ReadAccount(ctx context.Context, accountID string) (reconciliation.Account, error) {
	var acc reconciliation.Account
	if err := tx.inner.QueryRowContext(ctx,
		`SELECT account_id, balance, max_balance FROM accounts
			WHERE account_id = $1 FOR UPDATE`, accountID).
		Scan(&acc.AccountID, &acc.Balance, &acc.MaxBalance); err != nil {
		if err == sql.ErrNoRows {
			return reconciliation.Account{}, reconciliation.ErrAccountNotFound
		}
		return reconciliation.Account{}, errors.Join(ErrSelectFailed, err)
	}
	return acc, nil
}

// MoveBalance decrements the sender and increments the receiver inside the
// open boundary. The sender update guards against going negative even
// though the engine checks the balance first.
func (tx *LedgerTx) MoveBalance(ctx context.Context, from, to string, amount decimal.Decimal) error {
	res, err := tx.inner.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1
			WHERE account_id = $2 AND balance >= $1`, amount, from)
	if err != nil {
		return errors.Join(ErrMoveFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Join(ErrMoveFailed, err)
	}
	if affected != 1 {
		return errors.Join(ErrMoveFailed, fmt.Errorf("sender account [ %s ] cannot cover %s", from, amount))
	}

	res, err = tx.inner.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1
			WHERE account_id = $2`, amount, to)
	if err != nil {
		return errors.Join(ErrMoveFailed, err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return errors.Join(ErrMoveFailed, err)
	}
	if affected != 1 {
		return errors.Join(ErrMoveFailed, fmt.Errorf("receiver account [ %s ] does not exist", to))
	}
	return nil
}

// WriteTransferRecord persists the immutable audit record keyed by the
// transaction id.
func (tx *LedgerTx) WriteTransferRecord(ctx context.Context, rec *transfer.Record) error {
	if _, err := tx.inner.ExecContext(ctx,
		`INSERT INTO transfers (
			tx_id, sender, receiver, sender_public_key, receiver_public_key,
			amount, pledge_timestamp, ack_timestamp, sender_signature,
			receiver_signature, status, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.TxID, rec.From, rec.To, rec.SenderPublicKey, rec.ReceiverPublicKey,
		rec.Amount, rec.PledgeTimestamp, rec.AckTimestamp, rec.SenderSignature,
		rec.ReceiverSignature, string(rec.Status), rec.Reason); err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}

// Commit commits the boundary.
func (tx *LedgerTx) Commit() error {
	if err := tx.inner.Commit(); err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	return nil
}

// Rollback rolls the boundary back.
func (tx *LedgerTx) Rollback() error {
	if err := tx.inner.Rollback(); err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	return nil
}
