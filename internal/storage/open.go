// Package storage selects the ReadingStore backend named by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/uv-feed-service/internal/adapter/memory"
	"github.com/couchcryptid/uv-feed-service/internal/adapter/minio"
	"github.com/couchcryptid/uv-feed-service/internal/adapter/sqlite"
	"github.com/couchcryptid/uv-feed-service/internal/config"
	"github.com/couchcryptid/uv-feed-service/internal/domain"
)

// Store is an opened backend together with its release function.
type Store struct {
	domain.ReadingStore
	Backend string
	close   func() error
}

// Close releases any resources held by the backend.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	logger = logger.With("backend", cfg.StoreBackend)

	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		logger.Info("using in-memory store")
		return &Store{ReadingStore: memory.NewStore(), Backend: config.BackendMemory}, nil

	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", "path", cfg.SQLitePath)
		return &Store{ReadingStore: s, Backend: config.BackendSQLite, close: s.Close}, nil

	case config.BackendMinIO:
		s, err := minio.NewStore(ctx, minio.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open minio store: %w", err)
		}
		logger.Info("minio store opened", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		return &Store{ReadingStore: s, Backend: config.BackendMinIO}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
