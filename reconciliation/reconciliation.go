// Package reconciliation applies batches of offline transfers to the
// authoritative account ledger exactly once, atomically, with per transfer
// failure isolation.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/logger"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrTransactionBoundary  = errors.New("reconciliation transaction boundary failure")
	ErrEmptyBatch           = errors.New("no transfers to reconcile")
	ErrMissingRequesterData = errors.New("requester account id is missing")
)

// Account is the server side balance row. Mutated only inside a
// reconciliation transaction. MaxBalance caps the offline holding and is
// enforced by the top-up path, not here.
type Account struct {
	AccountID  string          `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	MaxBalance decimal.Decimal `json:"max_balance"`
}

// Tx is one atomic boundary over the shared ledger. Implementations back
// it with the store's transaction primitive and lock the touched balance
// rows, so concurrent batches over the same account serialize.
type Tx interface {
	// HasTransfer reports if an audit record for the transaction id exists.
	HasTransfer(ctx context.Context, txID string) (bool, error)
	// ReadAccount loads the account row locked for update.
	// ErrAccountNotFound when the account does not exist.
	ReadAccount(ctx context.Context, accountID string) (Account, error)
	// MoveBalance decrements the sender and increments the receiver.
	// Both happen together or neither.
	MoveBalance(ctx context.Context, from, to string, amount decimal.Decimal) error
	// WriteTransferRecord persists the immutable audit record, keyed by
	// transaction id, created at most once.
	WriteTransferRecord(ctx context.Context, rec *transfer.Record) error
	Commit() error
	Rollback() error
}

// Ledger opens reconciliation boundaries and reads settled balances.
type Ledger interface {
	BeginTx(ctx context.Context) (Tx, error)
	ReadBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Failure names one rejected transfer of a batch.
type Failure struct {
	TxID   string `json:"tx_id"`
	Reason string `json:"reason"`
}

// Result is the verdict of one reconciled batch. Balance is the refreshed
// balance of the requesting account, the caller feeds Confirmed and Failed
// back into its local queue.
type Result struct {
	Balance   decimal.Decimal `json:"balance"`
	Confirmed []string        `json:"confirmed"`
	Failed    []Failure       `json:"failed"`
}

// Engine reconciles offline transfer batches against a Ledger.
type Engine struct {
	ledger Ledger
	log    logger.Logger
}

// New creates the Engine over the given ledger.
func New(ledger Ledger, log logger.Logger) Engine {
	return Engine{ledger: ledger, log: log}
}

// Reconcile verifies and applies the batch for the requesting account
// inside one transaction boundary. Per transfer failures are isolated and
// reported; only a failure of the boundary itself returns an error, in
// which case nothing was applied and the caller must retry the batch.
func (e Engine) Reconcile(ctx context.Context, accountID string, batch []transfer.Record) (Result, error) {
	if accountID == "" {
		return Result{}, ErrMissingRequesterData
	}
	if len(batch) == 0 {
		return Result{}, ErrEmptyBatch
	}

	tx, err := e.ledger.BeginTx(ctx)
	if err != nil {
		return Result{}, errors.Join(ErrTransactionBoundary, err)
	}

	result := Result{Confirmed: make([]string, 0, len(batch)), Failed: make([]Failure, 0)}
	for _, rec := range batch {
		confirmed, reason := e.apply(ctx, tx, rec)
		if confirmed {
			result.Confirmed = append(result.Confirmed, rec.TxID)
			continue
		}
		result.Failed = append(result.Failed, Failure{TxID: rec.TxID, Reason: reason})
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return Result{}, errors.Join(ErrTransactionBoundary, err)
	}

	balance, err := e.ledger.ReadBalance(ctx, accountID)
	if err != nil {
		return Result{}, errors.Join(ErrTransactionBoundary, err)
	}
	result.Balance = balance
	return result, nil
}

// apply processes one transfer inside the open boundary and reports the
// verdict. A replayed transaction id counts as confirmed without applying
// anything, the transaction id is the idempotency key of the whole system.
func (e Engine) apply(ctx context.Context, tx Tx, rec transfer.Record) (bool, string) {
	if reason := validate(rec); reason != "" {
		e.fail(ctx, tx, rec, reason)
		return false, reason
	}

	exists, err := tx.HasTransfer(ctx, rec.TxID)
	if err != nil {
		return false, e.failUnexpected(ctx, tx, rec, err)
	}
	if exists {
		return true, ""
	}

	if reason := verifySignatures(rec); reason != "" {
		e.log.Warn(fmt.Sprintf("reconciliation rejected transfer %s: %s", rec.TxID, reason))
		e.fail(ctx, tx, rec, reason)
		return false, reason
	}

	sender, err := tx.ReadAccount(ctx, rec.From)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			reason := "sender account not found"
			e.fail(ctx, tx, rec, reason)
			return false, reason
		}
		return false, e.failUnexpected(ctx, tx, rec, err)
	}
	if sender.Balance.LessThan(rec.Amount) {
		reason := "insufficient sender balance"
		e.fail(ctx, tx, rec, reason)
		return false, reason
	}

	if _, err := tx.ReadAccount(ctx, rec.To); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			reason := "receiver account not found"
			e.fail(ctx, tx, rec, reason)
			return false, reason
		}
		return false, e.failUnexpected(ctx, tx, rec, err)
	}

	if err := tx.MoveBalance(ctx, rec.From, rec.To, rec.Amount); err != nil {
		return false, e.failUnexpected(ctx, tx, rec, err)
	}

	rec.Status = transfer.StatusConfirmed
	rec.Reason = ""
	if err := tx.WriteTransferRecord(ctx, &rec); err != nil {
		return false, e.failUnexpected(ctx, tx, rec, err)
	}
	return true, ""
}

func (e Engine) failUnexpected(ctx context.Context, tx Tx, rec transfer.Record, err error) string {
	e.log.Error(fmt.Sprintf("reconciliation of transfer %s failed: %s", rec.TxID, err))
	reason := err.Error()
	e.fail(ctx, tx, rec, reason)
	return reason
}

// fail persists a FAILED audit record unless one already exists for the
// transaction id. The batch continues regardless.
func (e Engine) fail(ctx context.Context, tx Tx, rec transfer.Record, reason string) {
	if rec.TxID == "" {
		return
	}
	exists, err := tx.HasTransfer(ctx, rec.TxID)
	if err != nil || exists {
		return
	}
	rec.Status = transfer.StatusFailed
	rec.Reason = reason
	if err := tx.WriteTransferRecord(ctx, &rec); err != nil {
		e.log.Error(fmt.Sprintf("writing failed audit record for transfer %s: %s", rec.TxID, err))
	}
}

// validate checks the structural shape of the transfer before any account
// is touched.
func validate(rec transfer.Record) string {
	switch {
	case rec.TxID == "":
		return "missing tx_id"
	case rec.From == "":
		return "missing from"
	case rec.To == "":
		return "missing to"
	case !rec.Amount.IsPositive():
		return "invalid amount"
	case rec.SenderPublicKey == "" || rec.SenderSignature == "":
		return "missing sender proof"
	case rec.ReceiverPublicKey == "" || rec.ReceiverSignature == "":
		return "missing receiver proof"
	}
	return ""
}

// verifySignatures recomputes both handshake signatures. A transfer whose
// signed byte strings do not check out is never applied silently.
func verifySignatures(rec transfer.Record) string {
	pledgeFields := []string{
		rec.TxID, rec.From, rec.SenderPublicKey,
		rec.Amount.String(), strconv.FormatInt(rec.PledgeTimestamp, 10),
	}
	if err := signer.Verify(pledgeFields, rec.SenderSignature, rec.SenderPublicKey); err != nil {
		return "fake sender signature"
	}
	ackFields := []string{
		rec.TxID, rec.From, rec.To, rec.SenderPublicKey, rec.ReceiverPublicKey,
		rec.Amount.String(), strconv.FormatInt(rec.AckTimestamp, 10),
	}
	if err := signer.Verify(ackFields, rec.ReceiverSignature, rec.ReceiverPublicKey); err != nil {
		return "fake receiver signature"
	}
	return ""
}
