// Package queue keeps the device local list of transfers awaiting server
// confirmation together with the optimistically adjusted cached balance.
package queue

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

var (
	ErrUnknownTransfer  = errors.New("transfer is not in the queue")
	ErrMissingAccountID = errors.New("account id is missing")
)

// Storer persists the queue and the cached balance between runs.
// The queue treats it as durable but does not implement durability itself.
type Storer interface {
	SaveTransfers(recs []transfer.Record) error
	ReadTransfers() ([]transfer.Record, error)
	SaveBalance(balance decimal.Decimal) error
	ReadBalance() (decimal.Decimal, error)
}

// Queue is the ordered, durable pending transfer list of one account.
// All mutation is serialized behind a single mutex per wallet.
type Queue struct {
	store     Storer
	accountID string
	recs      []transfer.Record
	balance   decimal.Decimal
	mux       sync.Mutex
}

// New loads the persisted queue and cached balance for the account.
func New(accountID string, store Storer) (*Queue, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}
	recs, err := store.ReadTransfers()
	if err != nil {
		return nil, err
	}
	balance, err := store.ReadBalance()
	if err != nil {
		return nil, err
	}
	return &Queue{store: store, accountID: accountID, recs: recs, balance: balance}, nil
}

// Enqueue inserts the transfer at the front, most recent first, and applies
// the optimistic balance adjustment for this account: debit when sending,
// credit when receiving. A duplicate transaction id is a no-op, the queue
// never holds two entries for one transfer.
func (q *Queue) Enqueue(rec transfer.Record) error {
	q.mux.Lock()
	defer q.mux.Unlock()

	for _, existing := range q.recs {
		if existing.TxID == rec.TxID {
			return nil
		}
	}

	q.recs = append([]transfer.Record{rec}, q.recs...)
	q.balance = q.balance.Add(q.adjustment(rec))
	return q.persist()
}

// MarkStatus transitions the transfer out of PENDING_SYNC. A transition
// from a terminal status is a no-op. Failing a pending transfer reverses
// its optimistic balance adjustment, the funds never left or arrived.
func (q *Queue) MarkStatus(txID string, status transfer.Status, reason string) error {
	q.mux.Lock()
	defer q.mux.Unlock()

	for i, rec := range q.recs {
		if rec.TxID != txID {
			continue
		}
		if rec.Status.Terminal() {
			return nil
		}
		q.recs[i].Status = status
		q.recs[i].Reason = reason
		if status == transfer.StatusFailed {
			q.balance = q.balance.Sub(q.adjustment(rec))
		}
		return q.persist()
	}
	return errors.Join(ErrUnknownTransfer, errors.New(txID))
}

// ListPending returns the entries awaiting reconciliation, these make up
// the next sync batch.
func (q *Queue) ListPending() []transfer.Record {
	q.mux.Lock()
	defer q.mux.Unlock()

	var pending []transfer.Record
	for _, rec := range q.recs {
		if rec.Status == transfer.StatusPendingSync {
			pending = append(pending, rec)
		}
	}
	return pending
}

// List returns a copy of the whole queue, most recent first.
func (q *Queue) List() []transfer.Record {
	q.mux.Lock()
	defer q.mux.Unlock()
	recs := make([]transfer.Record, len(q.recs))
	copy(recs, q.recs)
	return recs
}

// CachedBalance returns the optimistically adjusted local balance.
// It satisfies the handshake solvency check provider.
func (q *Queue) CachedBalance() (decimal.Decimal, error) {
	q.mux.Lock()
	defer q.mux.Unlock()
	return q.balance, nil
}

// SetBalance overwrites the cached balance with the authoritative value
// the server returned after reconciliation.
func (q *Queue) SetBalance(balance decimal.Decimal) error {
	q.mux.Lock()
	defer q.mux.Unlock()
	q.balance = balance
	return q.persist()
}

// adjustment is the signed effect of the transfer on this account.
func (q *Queue) adjustment(rec transfer.Record) decimal.Decimal {
	switch q.accountID {
	case rec.From:
		return rec.Amount.Neg()
	case rec.To:
		return rec.Amount
	}
	return decimal.Zero
}

// caller holds the mutex
func (q *Queue) persist() error {
	if err := q.store.SaveTransfers(q.recs); err != nil {
		return err
	}
	return q.store.SaveBalance(q.balance)
}
