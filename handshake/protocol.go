package handshake

import (
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

// Handshake satisfies transfer.Protocol. The pledge leg records nothing,
// the debit is recorded only when the ack comes back on FinalizeIncoming.

// CreateOutgoing builds the pledge payload. The peer argument is unused,
// the receiver announces itself in the ack.
func (h Handshake) CreateOutgoing(amount decimal.Decimal, _ string) (string, transfer.Record, error) {
	pledge, err := h.CreatePledge(amount)
	if err != nil {
		return "", transfer.Record{}, err
	}
	payload, err := pledge.Encode()
	if err != nil {
		return "", transfer.Record{}, err
	}
	return payload, transfer.Record{}, nil
}

// AcceptIncoming answers a pledge with an ack and returns the receiver's
// credit record for the pending queue.
func (h Handshake) AcceptIncoming(payload string) (string, transfer.Record, error) {
	ack, err := h.ProcessPledge(payload)
	if err != nil {
		return "", transfer.Record{}, err
	}
	reply, err := ack.Encode()
	if err != nil {
		return "", transfer.Record{}, err
	}
	return reply, ack.Record(), nil
}

// FinalizeIncoming validates the ack and returns the sender's debit record.
func (h Handshake) FinalizeIncoming(payload string) (transfer.Record, error) {
	return h.ProcessAck(payload)
}
