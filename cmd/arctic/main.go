package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/6529-Collections/arctic/internal/config"
	"go.uber.org/zap"
)

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(config.Get()).ExecuteContext(ctx)
	_ = zap.L().Sync()
	if err != nil {
		os.Exit(1)
	}
}
