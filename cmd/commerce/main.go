package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joao-fontenele/commentorder/internal/app"
	"github.com/joao-fontenele/commentorder/internal/commerce"
	"github.com/joao-fontenele/commentorder/internal/config"
	"github.com/joao-fontenele/commentorder/internal/database"
)

const serviceName = "commerce"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	metricsHandler, shutdownTelemetry, err := app.InitTelemetry(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(ctx)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	handler := commerce.NewHandler(commerce.NewSynchronizer(db), logger)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	server := app.NewServer(cfg.Server, "8081", serviceName, mux)
	if err := app.Serve(server, serviceName, logger); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
