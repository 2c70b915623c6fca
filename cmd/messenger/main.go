package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joao-fontenele/commentorder/internal/app"
	"github.com/joao-fontenele/commentorder/internal/config"
	"github.com/joao-fontenele/commentorder/internal/messenger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := messenger.NewHandler(logger, 200*time.Millisecond)

	mux := http.NewServeMux()
	handler.Register(mux)

	server := app.NewServer(cfg.Server, "8084", "messenger", mux)
	if err := app.Serve(server, "messenger simulator", logger); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
