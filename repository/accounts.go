package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/reconciliation"
)

// CreateAccount registers the account with the starting balance and the
// offline holding cap.
func (db DataBase) CreateAccount(ctx context.Context, accountID string, balance, maxBalance decimal.Decimal) error {
	if _, err := db.inner.ExecContext(ctx,
		`INSERT INTO accounts (account_id, balance, max_balance)
			VALUES ($1, $2, $3)`, accountID, balance, maxBalance); err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}

// ReadBalance reads the settled balance of the account.
func (db DataBase) ReadBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := db.inner.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE account_id = $1`, accountID).
		Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, reconciliation.ErrAccountNotFound
		}
		return decimal.Zero, errors.Join(ErrSelectFailed, err)
	}
	return balance, nil
}

// FundAccount tops up the account balance, never above its holding cap.
// The cap check and the increment run in one transaction over the locked row.
func (db DataBase) FundAccount(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := db.inner.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, errors.Join(ErrTxFailed, err)
	}
	defer tx.Rollback()

	var balance, maxBalance decimal.Decimal
	if err := tx.QueryRowContext(ctx,
		`SELECT balance, max_balance FROM accounts
			WHERE account_id = $1 FOR UPDATE`, accountID).
		Scan(&balance, &maxBalance); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, reconciliation.ErrAccountNotFound
		}
		return decimal.Zero, errors.Join(ErrSelectFailed, err)
	}

	next := balance.Add(amount)
	if next.GreaterThan(maxBalance) {
		return balance, errors.Join(ErrMoveFailed, errors.New("offline holding limit exceeded"))
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1 WHERE account_id = $2`, next, accountID); err != nil {
		return balance, errors.Join(ErrMoveFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return balance, errors.Join(ErrTxFailed, err)
	}
	return next, nil
}
