package wallet

import (
	"bytes"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/gob"
	"encoding/pem"
	"errors"
	"os"

	"github.com/bartossh/Pecunia/serializer"
	"github.com/bartossh/Pecunia/signer"
)

const (
	checksumLength = 4
	version        = byte(0x00)
)

// Wallet holds public and private key of the wallet owner.
// The private key never leaves the device that generated the wallet.
type Wallet struct {
	Private ed25519.PrivateKey `json:"private" bson:"private"`
	Public  ed25519.PublicKey  `json:"public"  bson:"public"`
}

// New tries to create a new Wallet with keys from the given signer or returns error otherwise.
func New(s signer.Signer) (Wallet, error) {
	pair, err := s.GenerateKeyPair()
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{Private: pair.Secret, Public: pair.Public}, nil
}

// SaveToPem saves wallet private and public key to the PEM format file.
// Saved files are like in the example:
// - PRIVATE: "your/path/name"
// - PUBLIC: "your/path/name.pub"
func (w *Wallet) SaveToPem(filepath string) error {
	prv, err := x509.MarshalPKCS8PrivateKey(w.Private)
	if err != nil {
		return err
	}
	pub, err := x509.MarshalPKIXPublicKey(w.Public)
	if err != nil {
		return err
	}
	blockPrv := &pem.Block{Type: "PRIVATE KEY", Bytes: prv}
	blockPub := &pem.Block{Type: "PUBLIC KEY", Bytes: pub}
	if err := os.WriteFile(filepath, pem.EncodeToMemory(blockPrv), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath+".pub", pem.EncodeToMemory(blockPub), 0644)
}

// ReadFromPem creates Wallet from PEM format files.
// Provide the path to the file without specifying the extension: "your/path/name".
func ReadFromPem(filepath string) (Wallet, error) {
	var w Wallet
	rawPub, err := os.ReadFile(filepath + ".pub")
	if err != nil {
		return w, err
	}
	rawPrv, err := os.ReadFile(filepath)
	if err != nil {
		return w, err
	}

	blockPub, _ := pem.Decode(rawPub)
	if blockPub == nil || blockPub.Type != "PUBLIC KEY" {
		return w, errors.New("cannot decode public key from PEM format")
	}
	pub, err := x509.ParsePKIXPublicKey(blockPub.Bytes)
	if err != nil {
		return w, err
	}
	blockPrv, _ := pem.Decode(rawPrv)
	if blockPrv == nil || blockPrv.Type != "PRIVATE KEY" {
		return w, errors.New("cannot decode private key from PEM format")
	}
	prv, err := x509.ParsePKCS8PrivateKey(blockPrv.Bytes)
	if err != nil {
		return w, err
	}
	var ok bool
	w.Public, ok = pub.(ed25519.PublicKey)
	if !ok {
		return w, errors.New("cannot cast x509 decoded parsed key to ed25519 public key")
	}
	w.Private, ok = prv.(ed25519.PrivateKey)
	if !ok {
		return w, errors.New("cannot cast x509 decoded parsed key to ed25519 private key")
	}
	return w, nil
}

// DecodeGOBWallet tries to decode Wallet from gob representation or returns error otherwise.
func DecodeGOBWallet(data []byte) (Wallet, error) {
	var wallet Wallet
	gob.Register(elliptic.P256())
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// EncodeGOB tries to encode Wallet in to the gob representation or returns error otherwise.
func (w *Wallet) EncodeGOB() ([]byte, error) {
	var content bytes.Buffer

	gob.Register(elliptic.P256())
	encoder := gob.NewEncoder(&content)
	if err := encoder.Encode(w); err != nil {
		return nil, err
	}
	return content.Bytes(), nil
}

// HasKeys reports if the wallet holds a complete key pair.
func (w *Wallet) HasKeys() bool {
	return len(w.Private) == ed25519.PrivateKeySize && len(w.Public) == ed25519.PublicKeySize
}

// PublicKey returns the base64 form of the public key.
// This is the key representation travelling inside QR payloads and chain blocks.
func (w *Wallet) PublicKey() string {
	return serializer.Base64Encode(w.Public)
}

// Address creates address from the public key that contains wallet version and checksum.
// Address is the human readable wallet identity for display and lookups.
func (w *Wallet) Address() string {
	vers := append([]byte{version}, w.Public...)
	cs := checksum(vers)

	full := append(vers, cs...)
	address := serializer.Base58Encode(full)

	return string(address)
}

// Sign signs ordered scalar fields with the wallet private key and
// returns the detached base64 signature.
func (w *Wallet) Sign(s signer.Signer, fields []string) (string, error) {
	return s.Sign(fields, w.Private)
}

func checksum(payload []byte) []byte {
	firstHash := sha256.Sum256(payload)
	secondHash := sha256.Sum256(firstHash[:])

	return secondHash[:checksumLength]
}
