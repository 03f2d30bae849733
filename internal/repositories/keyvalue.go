package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/sqlite"
)

// KeyValueRepository stores session data as string values. It implements session.Store.
type KeyValueRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewKeyValueRepository(dbs *sqlite.Database, logger *slog.Logger) *KeyValueRepository {
	return &KeyValueRepository{
		dbs:    dbs,
		logger: logger.With("source", "KeyValueRepository"),
	}
}

// Get returns the value stored under key and whether it exists.
func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.dbs.ReadOnly.GetContext(ctx, &value, `SELECT value FROM kv_entries WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "select value", slog.String("key", key))
	}
	return value, true, nil
}

const upsertStmt = `INSERT INTO kv_entries (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`

// Set inserts or replaces the value under key.
func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, upsertStmt, key, value); err != nil {
		return errors.Wrap(err, "upsert value", slog.String("key", key))
	}
	return nil
}

// SetMany inserts or replaces all values in one transaction. Either every value is stored or none is.
func (r *KeyValueRepository) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for key, value := range values {
		if _, err = tx.ExecContext(ctx, upsertStmt, key, value); err != nil {
			return errors.Wrap(err, "upsert value", slog.String("key", key))
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Remove deletes keys. Missing keys are ignored.
func (r *KeyValueRepository) Remove(ctx context.Context, keys ...string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
			return errors.Wrap(err, "delete value", slog.String("key", key))
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Count returns the number of stored entries whose key starts with prefix.
func (r *KeyValueRepository) Count(ctx context.Context, prefix string) (int, error) {
	var n int
	if err := r.dbs.ReadOnly.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM kv_entries WHERE SUBSTR(key, 1, LENGTH(?)) = ?`, prefix, prefix); err != nil {
		return 0, errors.Wrap(err, "count values")
	}
	return n, nil
}
