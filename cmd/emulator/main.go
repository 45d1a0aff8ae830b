package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/bartossh/Pecunia/configuration"
	"github.com/bartossh/Pecunia/emulator"
	"github.com/bartossh/Pecunia/logo"
	"github.com/bartossh/Pecunia/natsclient"
)

const usage = `Emulator runs two emulated wallet devices that exchange value offline
and sync with the central node on every tick.`

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
		Name:  "emulator",
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Load configuration from `FILE`",
				Destination: &file,
			},
		},
		Action: func(_ *cli.Context) error {
			cfg, err := configurator()
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

			if cfg.Nats.Address != "" {
				sub, err := natsclient.SubscriberConnect(cfg.Nats)
				if err != nil {
					return err
				}
				defer sub.Disconnect()
				err = sub.SubscribeReconciledTransfers(
					func(batch natsclient.ReconciledBatch) {
						pterm.Info.Printf(
							"Reconciled [ %s ], balance %s, confirmed %d, failed %d.\n",
							batch.AccountID, batch.Result.Balance,
							len(batch.Result.Confirmed), len(batch.Result.Failed))
					},
					func(err error) {
						pterm.Warning.Println(err.Error())
					})
				if err != nil {
					return err
				}
			}

			return emulator.RunExchange(ctx, cancel, cfg.Emulator)
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}
