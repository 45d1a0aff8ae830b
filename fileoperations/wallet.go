package fileoperations

import (
	"github.com/bartossh/Pecunia/wallet"
)

// ReadWallet reads wallet from the file.
func (h Helper) ReadWallet() (wallet.Wallet, error) {
	opened, err := h.readSealed(h.cfg.WalletPath)
	if err != nil {
		return wallet.Wallet{}, err
	}

	w, err := wallet.DecodeGOBWallet(opened)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

// SaveWallet saves wallet to the file.
func (h Helper) SaveWallet(w wallet.Wallet) error {
	raw, err := w.EncodeGOB()
	if err != nil {
		return err
	}
	return h.saveSealed(h.cfg.WalletPath, raw)
}
