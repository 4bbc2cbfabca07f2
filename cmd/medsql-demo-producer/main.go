// Command medsql-demo-producer feeds a running API with synthetic vital-sign
// batches so demos and load tests have live data.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/medsql/medsql/internal/demo/producer"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger); err != nil {
		logger.Error("demo producer exiting with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo producer exiting")
}

func run(logger *slog.Logger) error {
	cfg, err := producer.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		return err
	}

	service, err := producer.NewService(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("demo producer started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Duration("interval", cfg.Interval),
	)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
