package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/sitestore/internal/cli"
	"github.com/dmitrijs2005/sitestore/internal/config"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/dmitrijs2005/sitestore/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sitestore:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	s, err := store.New(cfg, store.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer s.Close()

	app := cli.NewApp(s, os.Stdin, os.Stdout)
	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			app.Usage()
		}
		return err
	}
	return nil
}
