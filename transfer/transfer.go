// Package transfer describes the record of a single offline value transfer
// and the capability interface shared by the exchange strategies.
package transfer

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status of the transfer in the local queue and server audit trail.
type Status string

const (
	StatusPendingSync Status = "PENDING_SYNC" // awaiting server reconciliation
	StatusConfirmed   Status = "CONFIRMED"    // applied to the central ledger
	StatusFailed      Status = "FAILED"       // rejected by the central ledger
)

// Terminal reports if no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

var ErrUnsupportedOperation = errors.New("operation is not supported by this exchange strategy")

// Record is a finalized transfer awaiting or past reconciliation.
// TxID is the idempotency key of the whole system, every store treats it
// as the primary key. The JSON shape is the sync submission wire format.
type Record struct {
	TxID              string          `json:"tx_id"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	SenderPublicKey   string          `json:"senderPublicKey"`
	ReceiverPublicKey string          `json:"receiverPublicKey"`
	Amount            decimal.Decimal `json:"amount"`
	PledgeTimestamp   int64           `json:"pledgeTimestamp"`
	AckTimestamp      int64           `json:"ackTimestamp"`
	SenderSignature   string          `json:"senderSignature"`
	ReceiverSignature string          `json:"receiverSignature"`
	Status            Status          `json:"status"`
	Reason            string          `json:"reason,omitempty"`
}

// Recorded reports if the record carries an actual transfer.
// Strategies return a zero Record from legs that do not produce one.
func (r Record) Recorded() bool {
	return r.TxID != ""
}

// Protocol is a named strategy for exchanging value between two offline
// parties over an opaque payload channel. The three message handshake and
// the chain of custody ledger both satisfy it, so a system picks one
// without duplicating verification logic.
type Protocol interface {
	// CreateOutgoing builds the payload the paying side presents to the peer.
	// The returned Record is zero when the strategy records the debit on a
	// later leg (the handshake records it only at FinalizeIncoming).
	CreateOutgoing(amount decimal.Decimal, peer string) (payload string, rec Record, err error)
	// AcceptIncoming consumes the scanned payload on the receiving side and
	// returns the reply payload to present back, if the strategy has one,
	// together with the receiver's record of the credit.
	AcceptIncoming(payload string) (reply string, rec Record, err error)
	// FinalizeIncoming consumes the reply payload on the paying side and
	// returns the sender's record of the debit. Single leg strategies
	// return ErrUnsupportedOperation.
	FinalizeIncoming(payload string) (Record, error)
}
