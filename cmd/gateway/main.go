package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/finrelay/gateway/config"
	"github.com/finrelay/gateway/health"
	"github.com/finrelay/gateway/provider"
	"github.com/finrelay/gateway/rpc"
	"github.com/finrelay/gateway/router"
)

const version = "v0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [config-file]\n", os.Args[0])
	}
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gateway %s\n", version)
		os.Exit(0)
	}

	configPath := ""
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	registry := provider.NewRegistry(logger)
	// Concrete Adapter implementations are registered by the deployment's
	// init wiring; registerAdapters is the seam a real build fills in.
	registerAdapters(registry, cfg, logger)

	monitor := health.NewMonitor(logger, cfg.Performance.HealthWindowCap,
		time.Duration(cfg.Performance.HealthRetentionMinutes)*time.Minute)
	rtr := router.New(cfg, registry, monitor, logger)

	srv := rpc.NewServer(rtr, logger, os.Stdout, "gateway", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("gateway starting", zap.String("version", version), zap.Int("providers", len(registry.IDs())))
	if err := srv.Run(ctx, os.Stdin); err != nil {
		logger.Fatal("rpc server error", zap.Error(err))
	}
	logger.Info("gateway shut down")
}
