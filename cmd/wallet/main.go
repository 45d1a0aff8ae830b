package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/bartossh/Pecunia/aeswrapper"
	"github.com/bartossh/Pecunia/configuration"
	"github.com/bartossh/Pecunia/fileoperations"
	"github.com/bartossh/Pecunia/handshake"
	"github.com/bartossh/Pecunia/logging"
	"github.com/bartossh/Pecunia/logo"
	"github.com/bartossh/Pecunia/queue"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/stdoutwriter"
	"github.com/bartossh/Pecunia/wallet"
	"github.com/bartossh/Pecunia/walletmiddleware"
)

const usage = `Wallet is the device side application. It holds the cryptographic wallet,
exchanges value with a peer while offline over copy pasted payloads and syncs
the pending transfers with the central node.`

func main() {
	logo.Display()

	var file string
	configurator := func() (configuration.Configuration, error) {
		if file == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}
		return configuration.Read(file)
	}

	app := &cli.App{
		Name:  "wallet",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &file,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Create a new wallet, register the account on the central node",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, true)
					if err != nil {
						return err
					}
					if err := client.RegisterAccount(); err != nil {
						return err
					}
					pterm.Success.Printf("Account [ %s ] registered.\n", client.AccountID())
					return nil
				},
			},
			{
				Name:  "fund",
				Usage: "Top up the account on the central node",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					amount, err := decimal.NewFromString(c.String("amount"))
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					balance, err := client.FundAccount(amount)
					if err != nil {
						return err
					}
					pterm.Success.Printf("Balance [ %s ].\n", balance)
					return nil
				},
			},
			{
				Name:  "balance",
				Usage: "Show the cached and the settled balance",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					settled, err := client.ReadServerBalance()
					if err != nil {
						return err
					}
					pterm.Info.Printf("Settled balance [ %s ].\n", settled)
					return nil
				},
			},
			{
				Name:  "send",
				Usage: "Create an outgoing transfer, print the payload and finalize the pasted reply",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true},
					&cli.StringFlag{Name: "to", Aliases: []string{"r"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					amount, err := decimal.NewFromString(c.String("amount"))
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					payload, err := client.CreateTransfer(amount, c.String("to"))
					if err != nil {
						return err
					}
					pterm.Info.Println("Present this payload to the receiver:")
					fmt.Println(payload)
					pterm.Info.Println("Paste the receiver's reply:")
					reply, err := readLine()
					if err != nil {
						return err
					}
					rec, err := client.FinalizeTransfer(reply)
					if err != nil {
						return err
					}
					pterm.Success.Printf("Transfer %s queued for sync.\n", rec.TxID)
					return nil
				},
			},
			{
				Name:  "receive",
				Usage: "Accept a pasted incoming payload and print the reply",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					pterm.Info.Println("Paste the sender's payload:")
					payload, err := readLine()
					if err != nil {
						return err
					}
					reply, err := client.AcceptTransfer(payload)
					if err != nil {
						return err
					}
					pterm.Info.Println("Present this reply to the sender:")
					fmt.Println(reply)
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "Show the latest settled transfers for this account",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					records, err := client.ReadTransferHistory(20)
					if err != nil {
						return err
					}
					for _, rec := range records {
						pterm.Info.Printf("[ %s ] %s -> %s amount %s status %s\n",
							rec.TxID, rec.From, rec.To, rec.Amount, rec.Status)
					}
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "Submit pending transfers to the central node and apply the verdict",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					res, err := client.Sync()
					if err != nil {
						return err
					}
					pterm.Success.Printf("Balance [ %s ], confirmed %d, failed %d.\n",
						res.Balance, len(res.Confirmed), len(res.Failed))
					for _, f := range res.Failed {
						pterm.Warning.Printf("Transfer %s failed: %s\n", f.TxID, f.Reason)
					}
					return nil
				},
			},
			{
				Name:  "listen",
				Usage: "Listen for settled outcomes pushed by the central node",
				Action: func(_ *cli.Context) error {
					cfg, err := configurator()
					if err != nil {
						return err
					}
					client, err := buildClient(cfg, false)
					if err != nil {
						return err
					}
					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()
					c := make(chan os.Signal, 1)
					signal.Notify(c, os.Interrupt)
					go func() {
						<-c
						cancel()
					}()
					log := logging.New(func(err error) {
						fmt.Println("error with logger: ", err)
					}, stdoutwriter.Logger{})
					return walletmiddleware.Listen(ctx, client, cfg.Client.WebsocketURL, log)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func readLine() (string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}

// buildClient assembles the device stack: sealed wallet and queue files, the
// pending queue and the handshake strategy bound to the configured account.
func buildClient(cfg configuration.Configuration, fresh bool) (*walletmiddleware.Client, error) {
	s, err := signer.New(rand.Reader)
	if err != nil {
		return nil, err
	}

	fo := fileoperations.New(cfg.FileOperator, aeswrapper.New())
	timeout := time.Duration(cfg.Client.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	client := walletmiddleware.NewClient(
		cfg.Client.CentralNodeURL, cfg.Client.Token, cfg.Client.AccountID,
		timeout, fo, func() (wallet.Wallet, error) { return wallet.New(s) })

	if err := client.ValidateApiVersion(); err != nil {
		return nil, err
	}

	if fresh {
		if err := client.NewWallet(); err != nil {
			return nil, err
		}
	} else if err := client.ReadWalletFromFile(); err != nil {
		return nil, err
	}

	q, err := queue.New(cfg.Client.AccountID, fo)
	if err != nil {
		return nil, err
	}
	client.UseQueue(q)

	w, err := client.Wallet()
	if err != nil {
		return nil, err
	}
	h, err := handshake.New(s, &w, cfg.Client.AccountID, q)
	if err != nil {
		return nil, err
	}
	client.UseProtocol(h)

	return client, nil
}
