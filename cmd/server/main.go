package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/posebridge/internal/config"
	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "posebridge:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	bridge, cleanup, err := injector.InitializeBridge(&cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = bridge.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Server.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Loop.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bridge.Server.Stop(shutdownCtx)
	})

	bridge.Logger.Info("Bridge running",
		log.String("addr", bridge.Server.Addr()),
		log.Int("characters", len(cfg.Demo.Characters)),
		log.Int("tick_rate", cfg.Tick.Rate))

	if err := g.Wait(); err != nil {
		bridge.Logger.Error("Bridge stopped with error", log.Error(err))
		return err
	}
	bridge.Logger.Info("Bridge stopped")
	return nil
}
