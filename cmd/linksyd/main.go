package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Paras-00/Real-time-chat-application/internal/server"
	"github.com/Paras-00/Real-time-chat-application/internal/store"
	"github.com/Paras-00/Real-time-chat-application/pkg/config"
	"github.com/Paras-00/Real-time-chat-application/pkg/logging"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	messageStore, err := store.NewSQLiteStore(ctx, cfg.Store.Path)
	if err != nil {
		logger.Error("Failed to open message store", slog.Any("error", err))
		os.Exit(1)
	}
	defer messageStore.Close()
	logger.Info("Message store ready", slog.String("path", cfg.Store.Path))

	app := server.NewApp(logger, ctx, cfg, messageStore)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
