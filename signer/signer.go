package signer

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bartossh/Pecunia/serializer"
)

var (
	ErrNoEntropySource    = errors.New("no secure entropy source provided")
	ErrCrypto             = errors.New("malformed cryptographic material")
	ErrVerificationFailed = errors.New("signature verification failed")
)

// KeyPair holds public and secret key of one party.
// Secret key never leaves the device that generated it.
type KeyPair struct {
	Public ed25519.PublicKey  `json:"public_key"`
	Secret ed25519.PrivateKey `json:"secret_key"`
}

// Signer generates keys and signs canonically encoded fields.
// The entropy source is injected, there is no hidden global PRNG.
type Signer struct {
	random io.Reader
}

// New creates a new Signer with the given secure random source.
func New(random io.Reader) (Signer, error) {
	if random == nil {
		return Signer{}, ErrNoEntropySource
	}
	return Signer{random: random}, nil
}

// GenerateKeyPair produces a fresh ED25519 key pair.
// It fails when the entropy source cannot deliver enough random bytes.
func (s Signer) GenerateKeyPair() (KeyPair, error) {
	public, secret, err := ed25519.GenerateKey(s.random)
	if err != nil {
		return KeyPair{}, errors.Join(ErrNoEntropySource, err)
	}
	return KeyPair{Public: public, Secret: secret}, nil
}

// Canonical serializes ordered scalar fields into an unambiguous byte string.
// Each field is prefixed with its big endian uint32 byte length, so no two
// distinct field sequences share an encoding.
func Canonical(fields []string) []byte {
	size := 0
	for _, f := range fields {
		size += 4 + len(f)
	}
	buf := make([]byte, 0, size)
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(f)))
		buf = append(buf, f...)
	}
	return buf
}

// Sign signs the canonical encoding of fields and returns the detached
// signature in base64.
func (s Signer) Sign(fields []string, secret ed25519.PrivateKey) (string, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return "", errors.Join(ErrCrypto, fmt.Errorf("secret key length %d", len(secret)))
	}
	return serializer.Base64Encode(ed25519.Sign(secret, Canonical(fields))), nil
}

// Verify recomputes the canonical encoding of fields and checks the detached
// base64 signature against the base64 public key.
// Malformed input is reported as ErrCrypto, an authentic-looking but wrong
// signature as ErrVerificationFailed. Verify never panics.
func Verify(fields []string, signature, publicKey string) error {
	sig, err := serializer.Base64Decode(signature)
	if err != nil {
		return errors.Join(ErrCrypto, err)
	}
	pub, err := serializer.Base64Decode(publicKey)
	if err != nil {
		return errors.Join(ErrCrypto, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return errors.Join(ErrCrypto, fmt.Errorf("public key length %d", len(pub)))
	}
	if len(sig) != ed25519.SignatureSize {
		return errors.Join(ErrCrypto, fmt.Errorf("signature length %d", len(sig)))
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), Canonical(fields), sig) {
		return ErrVerificationFailed
	}
	return nil
}

// Hash digests the canonical encoding of fields with SHA-512 and returns the
// digest in base64. It is the linking function of the chain ledger.
func Hash(fields []string) string {
	digest := sha512.Sum512(Canonical(fields))
	return serializer.Base64Encode(digest[:])
}
