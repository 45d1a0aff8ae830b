package fileoperations

import (
	"encoding/json"
	"errors"
	"io/fs"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

// SaveTransfers seals the pending transfer list to the queue file.
func (h Helper) SaveTransfers(recs []transfer.Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return h.saveSealed(h.cfg.QueuePath, raw)
}

// ReadTransfers opens the queue file. A missing file is an empty queue.
func (h Helper) ReadTransfers() ([]transfer.Record, error) {
	opened, err := h.readSealed(h.cfg.QueuePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var recs []transfer.Record
	if err := json.Unmarshal(opened, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SaveBalance seals the cached balance to the balance file.
func (h Helper) SaveBalance(balance decimal.Decimal) error {
	raw, err := json.Marshal(balance)
	if err != nil {
		return err
	}
	return h.saveSealed(h.cfg.BalancePath, raw)
}

// ReadBalance opens the balance file. A missing file is a zero balance.
func (h Helper) ReadBalance() (decimal.Decimal, error) {
	opened, err := h.readSealed(h.cfg.BalancePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	var balance decimal.Decimal
	if err := json.Unmarshal(opened, &balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
