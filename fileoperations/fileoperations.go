package fileoperations

import (
	"crypto/rand"
	"errors"
	"io"
	"os"

	"github.com/bartossh/Pecunia/aeswrapper"
)

// ErrSealedFileCorrupted is returned when a sealed file is too short to
// carry its salt.
var ErrSealedFileCorrupted = errors.New("sealed file corrupted")

// Config holds configuration of the file operator Helper.
type Config struct {
	WalletPath   string `yaml:"wallet_path"`   // wallet path to the wallet file
	WalletPasswd string `yaml:"wallet_passwd"` // password to the sealed files
	QueuePath    string `yaml:"queue_path"`    // path to the pending transfer queue file
	BalancePath  string `yaml:"balance_path"`  // path to the cached balance file
}

// Sealer offers behaviour to seal and open bytes.
type Sealer interface {
	Encrypt(key, data []byte) ([]byte, error)
	Decrypt(key, data []byte) ([]byte, error)
}

// Helper holds all file operation methods.
type Helper struct {
	s   Sealer
	cfg Config
}

// New creates new Helper.
func New(cfg Config, s Sealer) Helper {
	return Helper{
		cfg: cfg,
		s:   s,
	}
}

// seal encrypts data under a key derived from the configured password and a
// fresh salt. The salt prefixes the sealed bytes.
func (h Helper) seal(data []byte) ([]byte, error) {
	salt := make([]byte, aeswrapper.SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	key := aeswrapper.DeriveKey([]byte(h.cfg.WalletPasswd), salt)
	closed, err := h.s.Encrypt(key, data)
	if err != nil {
		return nil, err
	}
	return append(salt, closed...), nil
}

// open splits the salt off the sealed bytes and decrypts the rest.
func (h Helper) open(raw []byte) ([]byte, error) {
	if len(raw) < aeswrapper.SaltSize {
		return nil, ErrSealedFileCorrupted
	}
	salt, closed := raw[:aeswrapper.SaltSize], raw[aeswrapper.SaltSize:]
	key := aeswrapper.DeriveKey([]byte(h.cfg.WalletPasswd), salt)
	return h.s.Decrypt(key, closed)
}

func (h Helper) saveSealed(path string, data []byte) error {
	closed, err := h.seal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, closed, 0600)
}

func (h Helper) readSealed(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.open(raw)
}
