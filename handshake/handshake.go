// Package handshake implements the three message PLEDGE, ACK, FINALIZE
// exchange carried between two offline parties over an opaque payload
// channel such as QR codes.
package handshake

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
)

const (
	// Version travels in every payload and guards forward compatibility.
	Version = "v1"

	ProtocolPledge = "PLEDGE"
	ProtocolAck    = "ACK"
)

var (
	ErrMalformedMessage    = errors.New("malformed message")
	ErrFakeSignature       = errors.New("fake signature")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMissingKeys         = errors.New("wallet keys are missing")
	ErrMissingAccountID    = errors.New("account id is missing")
	ErrInvalidAmount       = errors.New("amount must be a positive decimal")
	ErrWrongRecipient      = errors.New("message is not addressed to this wallet")
)

// PledgeMessage is the sender's signed promise to pay.
// Immutable once signed, the signature covers
// (txId, from, senderPub, amount, timestamp).
type PledgeMessage struct {
	Version         string          `json:"v"`
	Protocol        string          `json:"protocol"`
	TxID            string          `json:"txId"`
	From            string          `json:"from"`
	SenderPublicKey string          `json:"senderPub"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       int64           `json:"timestamp"`
	SenderSignature string          `json:"senderSig"`
}

func (m PledgeMessage) signedFields() []string {
	return []string{
		m.TxID, m.From, m.SenderPublicKey,
		m.Amount.String(), strconv.FormatInt(m.CreatedAt, 10),
	}
}

// Encode serializes the pledge to its UTF-8 JSON payload form.
func (m PledgeMessage) Encode() (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", errors.Join(ErrMalformedMessage, err)
	}
	return string(raw), nil
}

// AckMessage is the receiver's countersigned acceptance of a pledge.
// The receiver signature covers
// (txId, from, to, senderPub, receiverPub, amount, ackTimestamp).
type AckMessage struct {
	Version           string          `json:"v"`
	Protocol          string          `json:"protocol"`
	TxID              string          `json:"txId"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	SenderPublicKey   string          `json:"senderPub"`
	ReceiverPublicKey string          `json:"receiverPub"`
	Amount            decimal.Decimal `json:"amount"`
	PledgeTimestamp   int64           `json:"pledgeTimestamp"`
	AckTimestamp      int64           `json:"ackTimestamp"`
	SenderSignature   string          `json:"senderSig"`
	ReceiverSignature string          `json:"receiverSig"`
}

func (m AckMessage) signedFields() []string {
	return []string{
		m.TxID, m.From, m.To, m.SenderPublicKey, m.ReceiverPublicKey,
		m.Amount.String(), strconv.FormatInt(m.AckTimestamp, 10),
	}
}

// Encode serializes the ack to its UTF-8 JSON payload form.
func (m AckMessage) Encode() (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", errors.Join(ErrMalformedMessage, err)
	}
	return string(raw), nil
}

// Record maps the ack to the transfer record both parties keep in their
// pending queues, status PENDING_SYNC.
func (m AckMessage) Record() transfer.Record {
	return transfer.Record{
		TxID:              m.TxID,
		From:              m.From,
		To:                m.To,
		SenderPublicKey:   m.SenderPublicKey,
		ReceiverPublicKey: m.ReceiverPublicKey,
		Amount:            m.Amount,
		PledgeTimestamp:   m.PledgeTimestamp,
		AckTimestamp:      m.AckTimestamp,
		SenderSignature:   m.SenderSignature,
		ReceiverSignature: m.ReceiverSignature,
		Status:            transfer.StatusPendingSync,
	}
}

// BalanceProvider supplies the locally cached balance for the soft solvency
// check. The authoritative check happens server side at reconciliation.
type BalanceProvider interface {
	CachedBalance() (decimal.Decimal, error)
}

// Handshake drives the exchange for one wallet bound to one account id.
// The account id is an opaque bearer identity issued by the authentication
// collaborator; it is bound into every signed payload so the server can
// update named accounts without a separate identity lookup.
type Handshake struct {
	s         signer.Signer
	w         *wallet.Wallet
	balance   BalanceProvider
	accountID string
}

// New creates a Handshake for the wallet and account id.
func New(s signer.Signer, w *wallet.Wallet, accountID string, balance BalanceProvider) (Handshake, error) {
	if w == nil || !w.HasKeys() {
		return Handshake{}, ErrMissingKeys
	}
	if accountID == "" {
		return Handshake{}, ErrMissingAccountID
	}
	return Handshake{s: s, w: w, balance: balance, accountID: accountID}, nil
}

// CreatePledge builds and signs a pledge for the given amount.
// The transaction id is a fresh UUID, collision resistant and unguessable.
func (h Handshake) CreatePledge(amount decimal.Decimal) (PledgeMessage, error) {
	if !amount.IsPositive() {
		return PledgeMessage{}, ErrInvalidAmount
	}
	if h.balance != nil {
		balance, err := h.balance.CachedBalance()
		if err != nil {
			return PledgeMessage{}, err
		}
		if balance.LessThan(amount) {
			return PledgeMessage{}, ErrInsufficientBalance
		}
	}

	m := PledgeMessage{
		Version:         Version,
		Protocol:        ProtocolPledge,
		TxID:            uuid.NewString(),
		From:            h.accountID,
		SenderPublicKey: h.w.PublicKey(),
		Amount:          amount,
		CreatedAt:       time.Now().UnixMilli(),
	}
	signature, err := h.w.Sign(h.s, m.signedFields())
	if err != nil {
		return PledgeMessage{}, err
	}
	m.SenderSignature = signature
	return m, nil
}

// ProcessPledge validates a scanned pledge payload and answers it with a
// signed ack binding this wallet and account id as the receiver.
// No balance is mutated here, optimistic crediting is the caller's concern.
func (h Handshake) ProcessPledge(payload string) (AckMessage, error) {
	pledge, err := DecodePledge(payload)
	if err != nil {
		return AckMessage{}, err
	}

	if err := signer.Verify(pledge.signedFields(), pledge.SenderSignature, pledge.SenderPublicKey); err != nil {
		if errors.Is(err, signer.ErrVerificationFailed) {
			return AckMessage{}, errors.Join(ErrFakeSignature, err)
		}
		return AckMessage{}, errors.Join(ErrMalformedMessage, err)
	}

	ack := AckMessage{
		Version:           Version,
		Protocol:          ProtocolAck,
		TxID:              pledge.TxID,
		From:              pledge.From,
		To:                h.accountID,
		SenderPublicKey:   pledge.SenderPublicKey,
		ReceiverPublicKey: h.w.PublicKey(),
		Amount:            pledge.Amount,
		PledgeTimestamp:   pledge.CreatedAt,
		AckTimestamp:      time.Now().UnixMilli(),
		SenderSignature:   pledge.SenderSignature,
	}
	signature, err := h.w.Sign(h.s, ack.signedFields())
	if err != nil {
		return AckMessage{}, err
	}
	ack.ReceiverSignature = signature
	return ack, nil
}

// ProcessAck validates a scanned ack payload on the side that pledged and
// returns the finalized transfer record, status PENDING_SYNC.
// The ack must originate from this wallet's pledge and be addressed to this
// account, otherwise ErrWrongRecipient is returned and nothing is recorded.
func (h Handshake) ProcessAck(payload string) (transfer.Record, error) {
	ack, err := DecodeAck(payload)
	if err != nil {
		return transfer.Record{}, err
	}

	if ack.SenderPublicKey != h.w.PublicKey() {
		return transfer.Record{}, errors.Join(ErrWrongRecipient, errors.New("pledge was not created by this wallet"))
	}
	if ack.From != h.accountID {
		return transfer.Record{}, errors.Join(ErrWrongRecipient, errors.New("ack is not addressed to this sender account"))
	}

	if err := signer.Verify(ack.signedFields(), ack.ReceiverSignature, ack.ReceiverPublicKey); err != nil {
		if errors.Is(err, signer.ErrVerificationFailed) {
			return transfer.Record{}, errors.Join(ErrFakeSignature, err)
		}
		return transfer.Record{}, errors.Join(ErrMalformedMessage, err)
	}

	return ack.Record(), nil
}

// DecodePledge parses and validates a pledge payload.
// Parsing fails fast on a missing required field, there is no fallback
// across alternative field names.
func DecodePledge(payload string) (PledgeMessage, error) {
	var m PledgeMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return PledgeMessage{}, errors.Join(ErrMalformedMessage, err)
	}
	if m.Protocol != ProtocolPledge {
		return PledgeMessage{}, errors.Join(ErrMalformedMessage, errors.New("payload is not a payment pledge"))
	}
	if m.TxID == "" || m.From == "" || m.SenderPublicKey == "" || m.SenderSignature == "" {
		return PledgeMessage{}, errors.Join(ErrMalformedMessage, errors.New("pledge misses a required field"))
	}
	if !m.Amount.IsPositive() {
		return PledgeMessage{}, errors.Join(ErrMalformedMessage, ErrInvalidAmount)
	}
	return m, nil
}

// DecodeAck parses and validates an ack payload.
func DecodeAck(payload string) (AckMessage, error) {
	var m AckMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return AckMessage{}, errors.Join(ErrMalformedMessage, err)
	}
	if m.Protocol != ProtocolAck {
		return AckMessage{}, errors.Join(ErrMalformedMessage, errors.New("payload is not an acknowledgement"))
	}
	if m.TxID == "" || m.From == "" || m.To == "" ||
		m.SenderPublicKey == "" || m.ReceiverPublicKey == "" ||
		m.SenderSignature == "" || m.ReceiverSignature == "" {
		return AckMessage{}, errors.Join(ErrMalformedMessage, errors.New("ack misses a required field"))
	}
	if !m.Amount.IsPositive() {
		return AckMessage{}, errors.Join(ErrMalformedMessage, ErrInvalidAmount)
	}
	return m, nil
}
