package handshake

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
)

type fixedBalance struct {
	amount decimal.Decimal
}

func (f fixedBalance) CachedBalance() (decimal.Decimal, error) {
	return f.amount, nil
}

type party struct {
	h Handshake
	w wallet.Wallet
}

func newParty(t *testing.T, accountID string, balance int64) party {
	t.Helper()
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)
	w, err := wallet.New(s)
	assert.Nil(t, err)
	h, err := New(s, &w, accountID, fixedBalance{decimal.NewFromInt(balance)})
	assert.Nil(t, err)
	return party{h: h, w: w}
}

func TestPledgeAckFinalizeRoundTrip(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)

	amount := decimal.NewFromInt(200)

	pledge, err := sender.h.CreatePledge(amount)
	assert.Nil(t, err)
	assert.Equal(t, ProtocolPledge, pledge.Protocol)
	assert.NotEmpty(t, pledge.TxID)

	pledgePayload, err := pledge.Encode()
	assert.Nil(t, err)

	ack, err := receiver.h.ProcessPledge(pledgePayload)
	assert.Nil(t, err)
	assert.Equal(t, "alice", ack.From)
	assert.Equal(t, "bob", ack.To)
	assert.Equal(t, pledge.TxID, ack.TxID)

	ackPayload, err := ack.Encode()
	assert.Nil(t, err)

	rec, err := sender.h.ProcessAck(ackPayload)
	assert.Nil(t, err)
	assert.Equal(t, transfer.StatusPendingSync, rec.Status)
	assert.True(t, amount.Equal(rec.Amount))
	assert.Equal(t, pledge.TxID, rec.TxID)
	assert.Equal(t, "alice", rec.From)
	assert.Equal(t, "bob", rec.To)
}

func TestProtocolCapabilityRoundTrip(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)

	var senderSide transfer.Protocol = sender.h
	var receiverSide transfer.Protocol = receiver.h

	payload, rec, err := senderSide.CreateOutgoing(decimal.NewFromInt(50), "")
	assert.Nil(t, err)
	assert.False(t, rec.Recorded())

	reply, credit, err := receiverSide.AcceptIncoming(payload)
	assert.Nil(t, err)
	assert.True(t, credit.Recorded())
	assert.Equal(t, transfer.StatusPendingSync, credit.Status)

	debit, err := senderSide.FinalizeIncoming(reply)
	assert.Nil(t, err)
	assert.Equal(t, credit.TxID, debit.TxID)
	assert.True(t, credit.Amount.Equal(debit.Amount))
}

func TestCreatePledgeInsufficientBalance(t *testing.T) {
	sender := newParty(t, "alice", 100)

	_, err := sender.h.CreatePledge(decimal.NewFromInt(101))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCreatePledgeRejectsNonPositiveAmount(t *testing.T) {
	sender := newParty(t, "alice", 100)

	_, err := sender.h.CreatePledge(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = sender.h.CreatePledge(decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestProcessPledgeTamperedFields(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)

	pledge, err := sender.h.CreatePledge(decimal.NewFromInt(200))
	assert.Nil(t, err)

	mutations := map[string]func(m *PledgeMessage){
		"amount":    func(m *PledgeMessage) { m.Amount = decimal.NewFromInt(9000) },
		"tx id":     func(m *PledgeMessage) { m.TxID = "forged" },
		"timestamp": func(m *PledgeMessage) { m.CreatedAt++ },
		"sender":    func(m *PledgeMessage) { m.From = "mallory" },
	}

	for name, mutate := range mutations {
		tampered := pledge
		mutate(&tampered)
		payload, err := tampered.Encode()
		assert.Nil(t, err)

		_, err = receiver.h.ProcessPledge(payload)
		assert.ErrorIs(t, err, ErrFakeSignature, name)
	}
}

func TestProcessAckTamperedFields(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)

	pledge, err := sender.h.CreatePledge(decimal.NewFromInt(200))
	assert.Nil(t, err)
	payload, err := pledge.Encode()
	assert.Nil(t, err)
	ack, err := receiver.h.ProcessPledge(payload)
	assert.Nil(t, err)

	mutations := map[string]func(m *AckMessage){
		"amount":    func(m *AckMessage) { m.Amount = decimal.NewFromInt(1) },
		"tx id":     func(m *AckMessage) { m.TxID = "forged" },
		"timestamp": func(m *AckMessage) { m.AckTimestamp++ },
		"receiver":  func(m *AckMessage) { m.To = "mallory" },
	}

	for name, mutate := range mutations {
		tampered := ack
		mutate(&tampered)
		raw, err := tampered.Encode()
		assert.Nil(t, err)

		_, err = sender.h.ProcessAck(raw)
		assert.ErrorIs(t, err, ErrFakeSignature, name)
	}
}

func TestProcessAckWrongRecipient(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)
	stranger := newParty(t, "carol", 500)

	pledge, err := sender.h.CreatePledge(decimal.NewFromInt(10))
	assert.Nil(t, err)
	payload, err := pledge.Encode()
	assert.Nil(t, err)
	ack, err := receiver.h.ProcessPledge(payload)
	assert.Nil(t, err)
	raw, err := ack.Encode()
	assert.Nil(t, err)

	_, err = stranger.h.ProcessAck(raw)
	assert.ErrorIs(t, err, ErrWrongRecipient)
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	receiver := newParty(t, "bob", 0)

	_, err := receiver.h.ProcessPledge("not json at all")
	assert.ErrorIs(t, err, ErrMalformedMessage)

	raw, err := json.Marshal(map[string]any{"protocol": "ACK"})
	assert.Nil(t, err)
	_, err = receiver.h.ProcessPledge(string(raw))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	raw, err = json.Marshal(map[string]any{"protocol": "PLEDGE", "txId": "t", "amount": "10"})
	assert.Nil(t, err)
	_, err = receiver.h.ProcessPledge(string(raw))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestFakeSignatureIsNotMalformed(t *testing.T) {
	sender := newParty(t, "alice", 500)
	receiver := newParty(t, "bob", 0)

	pledge, err := sender.h.CreatePledge(decimal.NewFromInt(5))
	assert.Nil(t, err)
	pledge.Amount = decimal.NewFromInt(50)
	payload, err := pledge.Encode()
	assert.Nil(t, err)

	_, err = receiver.h.ProcessPledge(payload)
	assert.ErrorIs(t, err, ErrFakeSignature)
	assert.NotErrorIs(t, err, ErrMalformedMessage)
}
