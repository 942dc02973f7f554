// Package bootstrap собирает зависимости, общие для бота и keyctl.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/romanzzaa/md5-predictor-bot/internal/config"
	"github.com/romanzzaa/md5-predictor-bot/internal/domain"
	"github.com/romanzzaa/md5-predictor-bot/internal/infrastructure/crypto"
	"github.com/romanzzaa/md5-predictor-bot/internal/infrastructure/database"
	"github.com/romanzzaa/md5-predictor-bot/internal/infrastructure/storage"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStateRepository выбирает хранилище по STORAGE_DRIVER
func OpenStateRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.StateRepository, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		var enc *crypto.Encryptor
		if cfg.Storage.EncryptionKey != "" {
			var err error
			enc, err = crypto.NewEncryptor(cfg.Storage.EncryptionKey)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create encryptor: %w", err)
			}
		}
		logger.Info("using file storage",
			slog.String("path", cfg.Storage.StatePath()),
			slog.Bool("encrypted", enc != nil))
		return storage.NewFileRepository(cfg.Storage.StatePath(), enc), nopCloser{}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("failed to create sqlite dir: %w", err)
			}
		}
		db, err := database.NewSQLiteConnection(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite storage", slog.String("path", cfg.Storage.SQLitePath))
		return migrated(ctx, db, logger)

	case config.DriverPostgres:
		db, err := database.NewConnection(database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres storage", slog.String("host", cfg.Database.Host), slog.String("db", cfg.Database.DBName))
		return migrated(ctx, db, logger)
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func migrated(ctx context.Context, db *database.DB, logger *slog.Logger) (domain.StateRepository, io.Closer, error) {
	repo := database.NewStateRepository(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}
