package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gw-audit/internal/domain"
)

// KVRepo stores checkpoint fields in the checkpoint_kv table.
type KVRepo struct {
	db *sql.DB
}

// NewKVRepo creates a KVRepo over a migrated database.
func NewKVRepo(db *sql.DB) *KVRepo {
	return &KVRepo{db: db}
}

// Get returns the value stored under key.
func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM checkpoint_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapDBError(fmt.Errorf("get %s: %w", key, err))
	}
	return value, true, nil
}

// Set inserts or replaces the value under key.
func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkpoint_kv (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return mapDBError(fmt.Errorf("set %s: %w", key, err))
	}
	return nil
}

// Delete removes keys in one transaction. Missing keys are ignored.
func (r *KVRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_kv WHERE key = ?`, k); err != nil {
			return mapDBError(fmt.Errorf("delete %s: %w", k, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

var _ domain.KVStore = (*KVRepo)(nil)
