// Package emulator runs scripted wallet devices against a central node.
// Two emulated devices exchange value over the offline handshake and sync
// their queues on every tick, which exercises the whole pipeline end to end.
package emulator

import (
	"context"
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/handshake"
	"github.com/bartossh/Pecunia/queue"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
	"github.com/bartossh/Pecunia/walletmiddleware"
)

// Config contains configuration for the emulated devices.
type Config struct {
	ApiURL      string `yaml:"api_url"`      // REST API of the central node.
	Token       string `yaml:"token"`        // Access token for the central node.
	TickSeconds int64  `yaml:"tick_seconds"` // Seconds between exchanges.
	MaxAmount   int64  `yaml:"max_amount"`   // Upper bound of one random transfer.
	Funding     int64  `yaml:"funding"`      // Initial top-up of the paying device.
	Random      bool   `yaml:"random"`       // Random amounts instead of a fixed one.
}

// memStorer keeps emulated device state in memory only, an emulated device
// does not survive restarts.
type memStorer struct {
	recs    []transfer.Record
	balance decimal.Decimal
}

func (m *memStorer) SaveTransfers(recs []transfer.Record) error { m.recs = recs; return nil }
func (m *memStorer) ReadTransfers() ([]transfer.Record, error)  { return m.recs, nil }
func (m *memStorer) SaveBalance(b decimal.Decimal) error        { m.balance = b; return nil }
func (m *memStorer) ReadBalance() (decimal.Decimal, error)      { return m.balance, nil }

type device struct {
	name   string
	client *walletmiddleware.Client
}

func newDevice(name, apiURL, token string, timeout time.Duration) (*device, error) {
	s, err := signer.New(rand.Reader)
	if err != nil {
		return nil, err
	}

	c := walletmiddleware.NewClient(apiURL, token, name, timeout, noopWalletStore{},
		func() (wallet.Wallet, error) { return wallet.New(s) })
	if err := c.NewWallet(); err != nil {
		return nil, err
	}

	q, err := queue.New(name, &memStorer{})
	if err != nil {
		return nil, err
	}
	c.UseQueue(q)

	w, err := c.Wallet()
	if err != nil {
		return nil, err
	}
	h, err := handshake.New(s, &w, name, q)
	if err != nil {
		return nil, err
	}
	c.UseProtocol(h)

	return &device{name: name, client: c}, nil
}

type noopWalletStore struct{}

func (noopWalletStore) ReadWallet() (wallet.Wallet, error) { return wallet.Wallet{}, nil }
func (noopWalletStore) SaveWallet(wallet.Wallet) error     { return nil }

// RunExchange runs the emulated devices until the context is canceled.
func RunExchange(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	defer cancel()

	if cfg.TickSeconds < 1 || cfg.TickSeconds > 60 {
		return fmt.Errorf("wrong tick_seconds parameter, expected value between 1 and 60 inclusive")
	}
	if cfg.MaxAmount < 1 {
		cfg.MaxAmount = 10
	}
	if cfg.Funding < 1 {
		cfg.Funding = 1000
	}

	const timeout = time.Second * 5

	sender, err := newDevice(fmt.Sprintf("emulated-sender-%d", mrand.Intn(1<<16)), cfg.ApiURL, cfg.Token, timeout)
	if err != nil {
		return err
	}
	receiver, err := newDevice(fmt.Sprintf("emulated-receiver-%d", mrand.Intn(1<<16)), cfg.ApiURL, cfg.Token, timeout)
	if err != nil {
		return err
	}

	for _, d := range []*device{sender, receiver} {
		if err := d.client.ValidateApiVersion(); err != nil {
			return err
		}
		if err := d.client.RegisterAccount(); err != nil {
			return err
		}
	}

	if _, err := sender.client.FundAccount(decimal.NewFromInt(cfg.Funding)); err != nil {
		return err
	}
	pterm.Info.Printf("Funded %s with [ %d ].\n", sender.name, cfg.Funding)

	t := time.NewTicker(time.Duration(cfg.TickSeconds) * time.Second)
	defer t.Stop()
	round := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			round++
			if err := exchange(sender, receiver, &cfg); err != nil {
				pterm.Warning.Printf("Round [ %d ] exchange failed: %s\n", round, err)
				continue
			}
			if err := sync(sender); err != nil {
				pterm.Warning.Printf("Round [ %d ] sender sync failed: %s\n", round, err)
			}
			if err := sync(receiver); err != nil {
				pterm.Warning.Printf("Round [ %d ] receiver sync failed: %s\n", round, err)
			}
			pterm.Info.Printf("Round [ %d ] settled.\n", round)
		}
	}
}

func exchange(sender, receiver *device, cfg *Config) error {
	amount := cfg.MaxAmount
	if cfg.Random {
		amount = 1 + mrand.Int63n(cfg.MaxAmount)
	}

	payload, err := sender.client.CreateTransfer(decimal.NewFromInt(amount), receiver.name)
	if err != nil {
		return err
	}
	reply, err := receiver.client.AcceptTransfer(payload)
	if err != nil {
		return err
	}
	rec, err := sender.client.FinalizeTransfer(reply)
	if err != nil {
		return err
	}
	pterm.Info.Printf("Exchanged [ %s ] from %s to %s, transfer %s.\n", rec.Amount, sender.name, receiver.name, rec.TxID)
	return nil
}

func sync(d *device) error {
	res, err := d.client.Sync()
	if err != nil {
		return err
	}
	pterm.Info.Printf("%s synced, balance [ %s ], confirmed %d, failed %d.\n",
		d.name, res.Balance, len(res.Confirmed), len(res.Failed))
	return nil
}
