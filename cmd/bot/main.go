package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/romanzzaa/md5-predictor-bot/internal/bootstrap"
	"github.com/romanzzaa/md5-predictor-bot/internal/bot"
	"github.com/romanzzaa/md5-predictor-bot/internal/config"
	"github.com/romanzzaa/md5-predictor-bot/internal/license"
	"github.com/romanzzaa/md5-predictor-bot/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Error("invalid bot config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	repo, closer, err := bootstrap.OpenStateRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closer.Close()

	gateway, err := license.Open(ctx, repo, logger)
	if err != nil {
		logger.Error("failed to load license state", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tgBot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	pool := worker.NewPool(cfg.Workers, 100, logger)
	botHandler := bot.NewHandler(tgBot, gateway, pool, cfg.Telegram.AdminID, cfg.RequestTimeout, logger)

	logger.Info("Starting bot...",
		slog.String("env", cfg.Env),
		slog.String("storage", string(cfg.Storage.Driver)),
		slog.Int("workers", cfg.Workers))

	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()
	go botHandler.Start(ctx, tgBot)

	<-ctx.Done()
	<-poolDone
	logger.Info("Bot stopped gracefully")
}
