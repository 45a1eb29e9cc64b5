package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteKeyValueRepo はSQLiteのkv_storeテーブルを使用したキーバリューリポジトリ。
// 単一ファイルで永続化したいローカル実行向け。
type SQLiteKeyValueRepo struct {
	db *sql.DB
}

// NewSQLiteKeyValueRepo はSQLiteKeyValueRepoを生成する。
func NewSQLiteKeyValueRepo(db *sql.DB) *SQLiteKeyValueRepo {
	return &SQLiteKeyValueRepo{db: db}
}

// Get は指定キーの値を取得する。
func (r *SQLiteKeyValueRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ?`,
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

// Set は指定キーに値を保存する。
func (r *SQLiteKeyValueRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// Remove は指定キーを削除する。
func (r *SQLiteKeyValueRepo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key = ?`,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove value: %w", err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueRepository = (*SQLiteKeyValueRepo)(nil)
