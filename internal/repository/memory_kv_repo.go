package repository

import (
	"context"
	"sync"
)

// MemoryKeyValueRepo はプロセス内メモリにのみ保持するキーバリューリポジトリ。
// テストや永続化が不要な実行で使用する。
type MemoryKeyValueRepo struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKeyValueRepo はMemoryKeyValueRepoを生成する。
func NewMemoryKeyValueRepo() *MemoryKeyValueRepo {
	return &MemoryKeyValueRepo{values: make(map[string]string)}
}

// Get は指定キーの値を取得する。
func (r *MemoryKeyValueRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

// Set は指定キーに値を保存する。
func (r *MemoryKeyValueRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

// Remove は指定キーを削除する。
func (r *MemoryKeyValueRepo) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// compile-time interface check
var _ KeyValueRepository = (*MemoryKeyValueRepo)(nil)
