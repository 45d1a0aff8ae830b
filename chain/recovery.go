package chain

import (
	"time"

	"github.com/shopspring/decimal"
)

const oplogLimit = 50

// Operation is a logged GenerateBlock attempt that was refused.
// Kept so the transfer can be replayed once the balance recovers.
type Operation struct {
	Receiver  string          `json:"receiver"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Reason    string          `json:"reason"`
}

// caller holds the mutex
func (l *Ledger) logBlocked(receiver string, amount decimal.Decimal, err error) {
	l.oplog = append(l.oplog, Operation{
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
		Reason:    err.Error(),
	})
	if len(l.oplog) > oplogLimit {
		l.oplog = l.oplog[len(l.oplog)-oplogLimit:]
	}
}

// BlockedOperations lists refused GenerateBlock attempts, oldest first.
func (l *Ledger) BlockedOperations() []Operation {
	l.mux.Lock()
	defer l.mux.Unlock()
	ops := make([]Operation, len(l.oplog))
	copy(ops, l.oplog)
	return ops
}

// Recoverable lists blocked operations whose amount fits the current balance.
func (l *Ledger) Recoverable() []Operation {
	l.mux.Lock()
	balance := balanceOf(l.blocks, l.w.PublicKey())
	var ops []Operation
	for _, op := range l.oplog {
		if op.Amount.LessThanOrEqual(balance) {
			ops = append(ops, op)
		}
	}
	l.mux.Unlock()
	return ops
}

// ReplayBlocked retries the logged operations in order and drops an entry
// only once its transfer went through. A refused replay keeps the original
// entry in place for the next attempt, it is never logged a second time.
// Returns the serialized chains produced, one per replayed transfer.
func (l *Ledger) ReplayBlocked() ([]string, error) {
	l.mux.Lock()
	defer l.mux.Unlock()

	var payloads []string
	remaining := make([]Operation, 0, len(l.oplog))
	for i, op := range l.oplog {
		if balanceOf(l.blocks, l.w.PublicKey()).LessThan(op.Amount) {
			remaining = append(remaining, op)
			continue
		}
		payload, err := l.generate(op.Receiver, op.Amount, false)
		if err != nil {
			l.oplog = append(remaining, l.oplog[i:]...)
			return payloads, err
		}
		payloads = append(payloads, payload)
	}
	l.oplog = remaining
	return payloads, nil
}

// Issue describes a block dropped by Repair.
type Issue struct {
	Block Block  `json:"block"`
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

// Repair drops only the blocks that fail verification instead of wiping the
// whole chain, relinking survivors is not attempted: a block whose
// predecessor was dropped fails the hash link and is dropped as well.
// The wallet's effective balance follows the repaired chain.
func (l *Ledger) Repair() []Issue {
	l.mux.Lock()
	defer l.mux.Unlock()

	var issues []Issue
	valid := make([]Block, 0, len(l.blocks))
	for i, block := range l.blocks {
		if err := block.verify(); err != nil {
			issues = append(issues, Issue{Index: i, Kind: "INVALID_SIGNATURE", Block: block})
			continue
		}
		if len(valid) > 0 && block.PrevHash != valid[len(valid)-1].Hash() {
			issues = append(issues, Issue{Index: i, Kind: "BROKEN_CHAIN_LINK", Block: block})
			continue
		}
		valid = append(valid, block)
	}
	if len(issues) > 0 {
		l.blocks = valid
	}
	return issues
}
