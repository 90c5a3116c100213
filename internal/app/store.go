package app

import (
	"context"
	"fmt"
	"log/slog"

	"gw-audit/internal/config"
	"gw-audit/internal/db"
	"gw-audit/internal/db/repository"
	"gw-audit/internal/domain"
	"gw-audit/internal/kvstore"
)

// OpenKV opens the configured checkpoint store. The returned func closes it.
func OpenKV(ctx context.Context, cfg config.CheckpointConfig, logger *slog.Logger) (domain.KVStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "memory":
		return kvstore.NewMemory(), noop, nil
	case "file":
		return kvstore.NewFile(cfg.Path, logger), noop, nil
	case "sqlite":
		conn, err := db.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		applied, err := db.RunMigrations(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		if applied > 0 {
			logger.Info("checkpoint schema migrated", "path", cfg.Path, "applied", applied)
		}
		return repository.NewKVRepo(conn), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("open checkpoint store: %w", domain.ErrConfig("checkpoint.backend", "unknown backend %q", cfg.Backend))
	}
}
