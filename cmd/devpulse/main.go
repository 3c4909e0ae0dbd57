package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alimgiray/devpulse/pkg/config"
	"github.com/alimgiray/devpulse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatalf("%v", err)
	}
}
