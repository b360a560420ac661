package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/6529-Collections/arctic/internal/config"
	"github.com/6529-Collections/arctic/internal/rpc"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	zap.L().Info("Starting echo server...", zap.String("Version", Version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")
		cancel()

		<-sigCh
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}()

	// Request bodies go to stdout for the person watching the fixture
	if err := run(ctx, config.Get(), os.Stdout); err != nil {
		zap.L().Fatal("Echo server failed", zap.Error(err))
	}

	zap.L().Info("Shutdown complete")
	_ = zap.L().Sync()
}

// run serves until ctx is canceled.
func run(ctx context.Context, cfg config.Config, diag io.Writer) error {
	closeServer, err := rpc.StartRPCServer(ctx, cfg.EchoHost, cfg.EchoPort, diag)
	if err != nil {
		return err
	}
	<-ctx.Done()
	closeServer()
	return nil
}
