package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/romanzzaa/md5-predictor-bot/internal/bootstrap"
	"github.com/romanzzaa/md5-predictor-bot/internal/config"
	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	open := func(ctx context.Context) (domain.StateRepository, io.Closer, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		return bootstrap.OpenStateRepository(ctx, cfg, logger)
	}

	if err := newRootCmd(open, logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
