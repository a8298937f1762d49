package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paul/notecache/internal/logging"
	"github.com/paul/notecache/pkg/config"
	"github.com/urfave/cli/v2"
)

const Version = "0.3.0"

var app = &cli.App{
	Name:    "notecache",
	Usage:   "feeds Nostr events through an in-memory event cache",
	Version: Version,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML configuration file",
			EnvVars: []string{"NOTECACHE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error; overrides the configuration",
		},
	},
	Commands: []*cli.Command{
		ingest,
		decode,
	},
}

// setup loads the configuration and builds the logger every command uses
func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, logging.New(cfg.Logging, os.Stderr), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
