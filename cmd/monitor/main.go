package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kunal-1304/Android-device-monitoring/internal/config"
	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
	"github.com/Kunal-1304/Android-device-monitoring/internal/monitor"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel)

	m := monitor.New(cfg)

	// run monitor in background
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	// wait for termination signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		logger.Logger.Info().Msg("shutting down")
		cancel()
		// let the graceful shutdown run to completion
		if err := <-done; err != nil {
			logger.Logger.Error().Err(err).Msg("monitor exited with error")
		}
	case err := <-done:
		if err != nil {
			logger.Logger.Error().Err(err).Msg("monitor exited")
		}
	}

	logger.Logger.Info().Msg("exited")
}
