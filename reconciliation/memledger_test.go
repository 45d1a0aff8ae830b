package reconciliation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

// memLedger is a minimal in memory Ledger for engine tests. Mutations apply
// immediately, Commit and Rollback only guard against boundary reuse.
type memLedger struct {
	accounts  map[string]Account
	transfers map[string]transfer.Record
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:  make(map[string]Account),
		transfers: make(map[string]transfer.Record),
	}
}

func (l *memLedger) createAccount(accountID string, balance int64) {
	l.accounts[accountID] = Account{
		AccountID:  accountID,
		Balance:    decimal.NewFromInt(balance),
		MaxBalance: decimal.NewFromInt(1000),
	}
}

func (l *memLedger) BeginTx(_ context.Context) (Tx, error) {
	return &memTx{l: l}, nil
}

func (l *memLedger) ReadBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	acc, ok := l.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acc.Balance, nil
}

type memTx struct {
	l    *memLedger
	done bool
}

func (tx *memTx) HasTransfer(_ context.Context, txID string) (bool, error) {
	_, ok := tx.l.transfers[txID]
	return ok, nil
}

func (tx *memTx) ReadAccount(_ context.Context, accountID string) (Account, error) {
	acc, ok := tx.l.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (tx *memTx) MoveBalance(_ context.Context, from, to string, amount decimal.Decimal) error {
	sender, ok := tx.l.accounts[from]
	if !ok {
		return ErrAccountNotFound
	}
	receiver, ok := tx.l.accounts[to]
	if !ok {
		return ErrAccountNotFound
	}
	sender.Balance = sender.Balance.Sub(amount)
	receiver.Balance = receiver.Balance.Add(amount)
	tx.l.accounts[from] = sender
	tx.l.accounts[to] = receiver
	return nil
}

func (tx *memTx) WriteTransferRecord(_ context.Context, rec *transfer.Record) error {
	if _, ok := tx.l.transfers[rec.TxID]; ok {
		return errors.New("reoccurring transfer record")
	}
	tx.l.transfers[rec.TxID] = *rec
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errors.New("transaction boundary already closed")
	}
	tx.done = true
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return errors.New("transaction boundary already closed")
	}
	tx.done = true
	return nil
}
