package main

import (
	"context"
	"os/signal"
	"syscall"

	"attendtrack/internal/app"
	"attendtrack/internal/config"
	"attendtrack/internal/logger"
)

// Worker drains queued notification jobs and runs the recycle-bin sweep.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	a.Sweeper.Start(ctx)
	defer a.Sweeper.Stop()

	if cfg.QueueBackend == "memory" {
		log.Warn().Msg("memory queue is private to this process, jobs enqueued by the api are dispatched there")
	}
	if a.Queue == nil {
		log.Warn().Msg("no queue configured, running retention only")
		<-ctx.Done()
		return
	}
	messages, err := a.Queue.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	log.Info().Msg("worker started, waiting for messages")
	app.Drain(ctx, messages, a.Notify, log)
	log.Info().Msg("worker stopped")
}
