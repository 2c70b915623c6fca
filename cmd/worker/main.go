package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/commentorder/internal/app"
	"github.com/joao-fontenele/commentorder/internal/config"
	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/messaging"
	"github.com/joao-fontenele/commentorder/internal/validation"
	"github.com/joao-fontenele/commentorder/internal/worker"
)

const serviceName = "comment-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("comment worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS environment variable is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, shutdownTelemetry, err := app.InitTelemetry(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	orchestrator, err := app.NewPipeline(cfg, db, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = orchestrator.Close() }()

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommentTopic, cfg.Kafka.ConsumerGroup,
		messaging.WithRetry(3, 500*time.Millisecond),
		messaging.WithLogger(logger),
	)
	defer func() { _ = consumer.Close() }()

	handler := worker.NewCommentHandler(orchestrator, validation.New(), logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting comment worker", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.CommentTopic)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		return fmt.Errorf("consume %s: %w", cfg.Kafka.CommentTopic, err)
	}
	logger.Info("consumer stopped")
	return nil
}
