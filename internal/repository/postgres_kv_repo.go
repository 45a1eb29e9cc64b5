package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKeyValueRepo はPostgreSQLのkv_storeテーブルを使用したキーバリューリポジトリ。
type PostgresKeyValueRepo struct {
	db *sql.DB
}

// NewPostgresKeyValueRepo はPostgresKeyValueRepoを生成する。
func NewPostgresKeyValueRepo(db *sql.DB) *PostgresKeyValueRepo {
	return &PostgresKeyValueRepo{db: db}
}

// Get は指定キーの値を取得する。
func (r *PostgresKeyValueRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`,
		key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value: %w", err)
	}
	return value, true, nil
}

// Set は指定キーに値を保存する。既存のキーは値と更新日時を上書きする。
func (r *PostgresKeyValueRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// Remove は指定キーを削除する。
func (r *PostgresKeyValueRepo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key = $1`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove value: %w", err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueRepository = (*PostgresKeyValueRepo)(nil)
