package chain

import (
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

// Ledger satisfies transfer.Protocol as the single leg chain of custody
// strategy. Identities in its records are the base64 public keys the
// blocks carry; a deployment using this strategy registers accounts under
// those keys. There is no reply leg, the debit is recorded at creation.
//
// The records are device local bookkeeping only. They carry no receiver
// signature, so the central reconciliation engine rejects them
// structurally. Do not attach this strategy to the sync client; settlement
// for chains happens through Reset after an out of band confirmation.

func record(b Block, status transfer.Status) transfer.Record {
	return transfer.Record{
		TxID:              b.TxID,
		From:              b.From,
		To:                b.To,
		SenderPublicKey:   b.From,
		ReceiverPublicKey: b.To,
		Amount:            b.Amount,
		PledgeTimestamp:   b.Timestamp,
		AckTimestamp:      b.Timestamp,
		SenderSignature:   b.Signature,
		Status:            status,
	}
}

// CreateOutgoing appends a payment block for the peer public key and
// returns the full serialized chain together with the sender's debit record.
func (l *Ledger) CreateOutgoing(amount decimal.Decimal, peer string) (string, transfer.Record, error) {
	payload, err := l.GenerateBlock(peer, amount)
	if err != nil {
		return "", transfer.Record{}, err
	}
	blocks := l.Blocks()
	return payload, record(blocks[len(blocks)-1], transfer.StatusPendingSync), nil
}

// AcceptIncoming validates the received chain, adopts it and returns the
// receiver's credit record. There is no reply payload.
func (l *Ledger) AcceptIncoming(payload string) (string, transfer.Record, error) {
	last, err := l.AcceptIncomingChain(payload)
	if err != nil {
		return "", transfer.Record{}, err
	}
	return "", record(last, transfer.StatusPendingSync), nil
}

// FinalizeIncoming is not part of the chain strategy, the exchange
// completes at AcceptIncoming.
func (l *Ledger) FinalizeIncoming(string) (transfer.Record, error) {
	return transfer.Record{}, transfer.ErrUnsupportedOperation
}
