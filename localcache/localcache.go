package localcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/transfer"
)

var (
	ErrAccountExists            = errors.New("account already exists")
	ErrHoldingLimitExceeded     = errors.New("offline holding limit exceeded")
	ErrNotAllowedReoccurringTx  = errors.New("not allowed reoccurring transaction id")
	ErrTransactionBoundaryReuse = errors.New("transaction boundary already closed")
)

type Config struct {
	MaxAccounts int `yaml:"max_accounts"`
}

// AccountCache keeps accounts and transfer audit records in memory.
// It implements the reconciliation.Ledger abstraction and is designed to
// serve tests and the emulator in place of the repository.
type AccountCache struct {
	accounts  map[string]reconciliation.Account
	transfers map[string]transfer.Record
	mux       sync.Mutex
	maxLen    int
}

// NewAccountCache creates a new AccountCache according to Config.
func NewAccountCache(cfg Config) *AccountCache {
	if cfg.MaxAccounts < 1000 {
		cfg.MaxAccounts = 1000
	}
	return &AccountCache{
		accounts:  make(map[string]reconciliation.Account),
		transfers: make(map[string]transfer.Record),
		maxLen:    cfg.MaxAccounts,
	}
}

// CreateAccount registers the account with the starting balance and the
// offline holding cap.
func (c *AccountCache) CreateAccount(accountID string, balance, maxBalance decimal.Decimal) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if _, ok := c.accounts[accountID]; ok {
		return errors.Join(ErrAccountExists, fmt.Errorf("account [ %s ] exists", accountID))
	}
	if len(c.accounts) == c.maxLen {
		return fmt.Errorf("cannot add to cache, max size of cache of [ %v ] has been reached", c.maxLen)
	}
	c.accounts[accountID] = reconciliation.Account{AccountID: accountID, Balance: balance, MaxBalance: maxBalance}
	return nil
}

// FundAccount tops up the account balance, never above its holding cap.
func (c *AccountCache) FundAccount(accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	acc, ok := c.accounts[accountID]
	if !ok {
		return decimal.Zero, reconciliation.ErrAccountNotFound
	}
	next := acc.Balance.Add(amount)
	if next.GreaterThan(acc.MaxBalance) {
		return acc.Balance, errors.Join(ErrHoldingLimitExceeded,
			fmt.Errorf("account [ %s ] cap is %s", accountID, acc.MaxBalance))
	}
	acc.Balance = next
	c.accounts[accountID] = acc
	return next, nil
}

// ReadBalance reads the settled balance of the account.
func (c *AccountCache) ReadBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	acc, ok := c.accounts[accountID]
	if !ok {
		return decimal.Zero, reconciliation.ErrAccountNotFound
	}
	return acc.Balance, nil
}

// ReadTransfer reads the audit record stored for the transaction id.
func (c *AccountCache) ReadTransfer(txID string) (transfer.Record, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	rec, ok := c.transfers[txID]
	return rec, ok
}

// BeginTx opens an atomic boundary over the cache. The cache mutex is held
// until Commit or Rollback, so concurrent boundaries serialize the way row
// locks serialize them in the repository.
func (c *AccountCache) BeginTx(_ context.Context) (reconciliation.Tx, error) {
	c.mux.Lock()
	return &cacheTx{
		c:         c,
		balances:  make(map[string]decimal.Decimal),
		transfers: make(map[string]transfer.Record),
	}, nil
}

// cacheTx stages mutations and applies them on Commit only.
type cacheTx struct {
	c         *AccountCache
	balances  map[string]decimal.Decimal
	transfers map[string]transfer.Record
	done      bool
}

func (tx *cacheTx) HasTransfer(_ context.Context, txID string) (bool, error) {
	if tx.done {
		return false, ErrTransactionBoundaryReuse
	}
	if _, ok := tx.transfers[txID]; ok {
		return true, nil
	}
	_, ok := tx.c.transfers[txID]
	return ok, nil
}

func (tx *cacheTx) ReadAccount(_ context.Context, accountID string) (reconciliation.Account, error) {
	if tx.done {
		return reconciliation.Account{}, ErrTransactionBoundaryReuse
	}
	acc, ok := tx.c.accounts[accountID]
	if !ok {
		return reconciliation.Account{}, reconciliation.ErrAccountNotFound
	}
	if staged, ok := tx.balances[accountID]; ok {
		acc.Balance = staged
	}
	return acc, nil
}

func (tx *cacheTx) MoveBalance(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if tx.done {
		return ErrTransactionBoundaryReuse
	}
	sender, err := tx.ReadAccount(ctx, from)
	if err != nil {
		return err
	}
	receiver, err := tx.ReadAccount(ctx, to)
	if err != nil {
		return err
	}
	tx.balances[from] = sender.Balance.Sub(amount)
	tx.balances[to] = receiver.Balance.Add(amount)
	return nil
}

func (tx *cacheTx) WriteTransferRecord(_ context.Context, rec *transfer.Record) error {
	if tx.done {
		return ErrTransactionBoundaryReuse
	}
	if _, ok := tx.transfers[rec.TxID]; ok {
		return errors.Join(ErrNotAllowedReoccurringTx, fmt.Errorf("transfer [ %s ] staged already", rec.TxID))
	}
	if _, ok := tx.c.transfers[rec.TxID]; ok {
		return errors.Join(ErrNotAllowedReoccurringTx, fmt.Errorf("transfer [ %s ] recorded already", rec.TxID))
	}
	tx.transfers[rec.TxID] = *rec
	return nil
}

func (tx *cacheTx) Commit() error {
	if tx.done {
		return ErrTransactionBoundaryReuse
	}
	for accountID, balance := range tx.balances {
		acc := tx.c.accounts[accountID]
		acc.Balance = balance
		tx.c.accounts[accountID] = acc
	}
	for txID, rec := range tx.transfers {
		tx.c.transfers[txID] = rec
	}
	tx.done = true
	tx.c.mux.Unlock()
	return nil
}

func (tx *cacheTx) Rollback() error {
	if tx.done {
		return ErrTransactionBoundaryReuse
	}
	tx.done = true
	tx.c.mux.Unlock()
	return nil
}
