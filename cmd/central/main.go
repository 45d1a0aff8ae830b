package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/bartossh/Pecunia/configuration"
	"github.com/bartossh/Pecunia/logging"
	"github.com/bartossh/Pecunia/logo"
	"github.com/bartossh/Pecunia/natsclient"
	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/repository"
	"github.com/bartossh/Pecunia/stdoutwriter"
	"github.com/bartossh/Pecunia/syncserver"
	"github.com/bartossh/Pecunia/telemetry"
)

const usage = `Central runs the central node that keeps authoritative account balances
and reconciles batches of offline transfers exactly once.`

func main() {
	logo.Display()

	var file string
	configurator := func() (configuration.Configuration, error) {
		if file == "" {
			return configuration.Configuration{}, errors.New("please specify configuration file path with -c <path to file>")
		}

		cfg, err := configuration.Read(file)
		if err != nil {
			return cfg, err
		}

		return cfg, nil
	}

	app := &cli.App{
		Name:  "central",
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
			run(cfg)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err.Error())
	}
}

func run(cfg configuration.Configuration) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		cancel()
	}()

	callbackOnErr := func(err error) {
		fmt.Println("error with logger: ", err)
	}

	db, err := repository.Connect(ctx, cfg.Database)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	defer db.Disconnect(context.Background())

	if err := db.RunMigration(ctx); err != nil {
		pterm.Error.Println(err.Error())
		return
	}

	log := logging.New(callbackOnErr, stdoutwriter.Logger{}, db)

	if cfg.Database.Token != "" {
		expire := time.Now().Add(time.Duration(cfg.Database.TokenExpire) * time.Second).UnixNano()
		if err := db.WriteToken(ctx, cfg.Database.Token, expire); err != nil {
			log.Warn(fmt.Sprintf("seeding access token: %s", err.Error()))
		}
	}

	var pub syncserver.Publisher
	if cfg.Nats.Address != "" {
		p, err := natsclient.PublisherConnect(cfg.Nats)
		if err != nil {
			log.Error(err.Error())
			return
		}
		defer p.Disconnect()
		pub = p
	}

	mes := telemetry.NewMeasurements()
	if cfg.TelemetryPort != 0 {
		go func() {
			if err := telemetry.Run(ctx, cancel, cfg.TelemetryPort); err != nil {
				log.Error(err.Error())
			}
		}()
	}

	engine := reconciliation.New(db, log)

	if err := syncserver.Run(ctx, cfg.Server, db, engine, pub, mes, log); err != nil {
		log.Error(err.Error())
	}
}
