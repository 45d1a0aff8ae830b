// Package chain implements the append only, hash linked ledger a wallet
// carries while offline. The full chain is the provenance of the funds,
// the receiver of a payment re-verifies it end to end.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/wallet"
)

const (
	// MaxHops bounds the chain length to keep the QR payload scannable
	// and the re-verification cost constant.
	MaxHops = 11

	// GenesisSender marks blocks minted by the server when funds are
	// loaded from the bank account. Such blocks carry no signature and
	// are trusted as authoritative top-ups.
	GenesisSender = "SYSTEM"

	genesisHash = "GENESIS_HASH"
)

var (
	ErrMalformedChain       = errors.New("malformed chain payload")
	ErrChainFull            = errors.New("chain is full, sync with the server to continue")
	ErrChainIntegrityBroken = errors.New("chain integrity broken")
	ErrFakeSignature        = errors.New("fake block signature")
	ErrInsufficientBalance  = errors.New("insufficient balance")
)

// BlockError names the offending block of a failed chain validation.
type BlockError struct {
	Err   error
	Index int
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d: %s", e.Index, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// Block is one hop of the offline chain. From and To are base64 public
// keys, except for the genesis sender id on top-up blocks.
type Block struct {
	TxID      string          `json:"txId"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Signature string          `json:"signature"`
	PrevHash  string          `json:"prevHash"`
}

// fields lists the block scalars in canonical order with the given
// signature slot. Signing uses the empty slot, linking uses the filled one.
func (b Block) fields(signature string) []string {
	return []string{
		b.TxID, b.From, b.To, b.Amount.String(),
		strconv.FormatInt(b.Timestamp, 10), signature, b.PrevHash,
	}
}

// Hash digests the full block including its signature.
// It is the value the next block carries as PrevHash.
func (b Block) Hash() string {
	return signer.Hash(b.fields(b.Signature))
}

func (b Block) verify() error {
	if b.From == GenesisSender {
		return nil
	}
	if err := signer.Verify(b.fields(""), b.Signature, b.From); err != nil {
		if errors.Is(err, signer.ErrVerificationFailed) {
			return errors.Join(ErrFakeSignature, err)
		}
		return errors.Join(ErrMalformedChain, err)
	}
	return nil
}

// Ledger is one wallet's chain with its pending operation log.
// All mutation is serialized behind a single mutex per wallet.
type Ledger struct {
	s      signer.Signer
	w      *wallet.Wallet
	blocks []Block
	oplog  []Operation
	mux    sync.Mutex
}

// NewLedger creates a Ledger over existing blocks, which may be empty for
// a fresh wallet.
func NewLedger(s signer.Signer, w *wallet.Wallet, blocks []Block) *Ledger {
	return &Ledger{s: s, w: w, blocks: blocks}
}

// Balance sums credits to this wallet minus debits from this wallet over
// the whole chain.
func (l *Ledger) Balance() decimal.Decimal {
	l.mux.Lock()
	defer l.mux.Unlock()
	return balanceOf(l.blocks, l.w.PublicKey())
}

// Blocks returns a copy of the current chain.
func (l *Ledger) Blocks() []Block {
	l.mux.Lock()
	defer l.mux.Unlock()
	blocks := make([]Block, len(l.blocks))
	copy(blocks, l.blocks)
	return blocks
}

// GenerateBlock appends a block paying amount to the receiver public key
// and returns the serialized full chain for the peer to verify.
// Solvency and the hop bound are checked before any signature is produced.
// A refused attempt is kept in the operation log for later replay.
func (l *Ledger) GenerateBlock(receiverPublicKey string, amount decimal.Decimal) (string, error) {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.generate(receiverPublicKey, amount, true)
}

// caller holds the mutex. A replayed operation already sits in the log, so
// its refusal must not be logged again or the transfer would pay out once
// per logged copy.
func (l *Ledger) generate(receiverPublicKey string, amount decimal.Decimal, logRefusal bool) (string, error) {
	if balance := balanceOf(l.blocks, l.w.PublicKey()); balance.LessThan(amount) {
		err := errors.Join(ErrInsufficientBalance,
			fmt.Errorf("balance %s, trying to send %s", balance, amount))
		if logRefusal {
			l.logBlocked(receiverPublicKey, amount, err)
		}
		return "", err
	}
	if len(l.blocks) >= MaxHops {
		err := errors.Join(ErrChainFull, fmt.Errorf("%d of %d hops used", len(l.blocks), MaxHops))
		if logRefusal {
			l.logBlocked(receiverPublicKey, amount, err)
		}
		return "", err
	}

	prevHash := genesisHash
	if len(l.blocks) > 0 {
		prevHash = l.blocks[len(l.blocks)-1].Hash()
	}

	block := Block{
		TxID:      uuid.NewString(),
		From:      l.w.PublicKey(),
		To:        receiverPublicKey,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
		PrevHash:  prevHash,
	}
	signature, err := l.w.Sign(l.s, block.fields(""))
	if err != nil {
		return "", err
	}
	block.Signature = signature

	l.blocks = append(l.blocks, block)
	return encode(l.blocks)
}

// AcceptIncomingChain validates a serialized chain received from a peer
// and, on success, adopts it as this wallet's provenance. The last block
// is the payment to this wallet.
func (l *Ledger) AcceptIncomingChain(payload string) (Block, error) {
	blocks, err := Validate(payload)
	if err != nil {
		return Block{}, err
	}
	last := blocks[len(blocks)-1]
	if last.To != l.w.PublicKey() {
		return Block{}, errors.Join(ErrMalformedChain, errors.New("last block does not pay this wallet"))
	}

	l.mux.Lock()
	defer l.mux.Unlock()
	l.blocks = blocks
	return last, nil
}

// Reset clears the chain history. Call only after the server explicitly
// confirmed a successful sync, never speculatively.
func (l *Ledger) Reset() {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.blocks = nil
}

// Validate parses a serialized chain and verifies every block: signature
// over the cleared signature encoding against the block's sender key
// (genesis top-ups excepted) and the hash link to the previous block.
// A failure names the offending block index.
func Validate(payload string) ([]Block, error) {
	var blocks []Block
	if err := json.Unmarshal([]byte(payload), &blocks); err != nil {
		return nil, errors.Join(ErrMalformedChain, err)
	}
	if len(blocks) == 0 {
		return nil, errors.Join(ErrMalformedChain, errors.New("chain is empty"))
	}
	if len(blocks) > MaxHops {
		return nil, errors.Join(ErrChainFull, fmt.Errorf("chain of %d hops exceeds the %d hop bound", len(blocks), MaxHops))
	}

	for i, block := range blocks {
		if !block.Amount.IsPositive() {
			return nil, &BlockError{Index: i, Err: errors.Join(ErrMalformedChain, errors.New("amount must be positive"))}
		}
		if err := block.verify(); err != nil {
			return nil, &BlockError{Index: i, Err: err}
		}
		if i > 0 {
			if block.PrevHash != blocks[i-1].Hash() {
				return nil, &BlockError{Index: i, Err: ErrChainIntegrityBroken}
			}
		}
	}
	return blocks, nil
}

func balanceOf(blocks []Block, publicKey string) decimal.Decimal {
	balance := decimal.Zero
	for _, block := range blocks {
		if block.To == publicKey {
			balance = balance.Add(block.Amount)
		}
		if block.From == publicKey {
			balance = balance.Sub(block.Amount)
		}
	}
	return balance
}

func encode(blocks []Block) (string, error) {
	raw, err := json.Marshal(blocks)
	if err != nil {
		return "", errors.Join(ErrMalformedChain, err)
	}
	return string(raw), nil
}
