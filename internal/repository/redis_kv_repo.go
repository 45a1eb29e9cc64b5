package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix はRedisに保存するキーの既定の接頭辞。
const DefaultRedisKeyPrefix = "storefront:"

// RedisKeyValueRepo はRedisを使用したキーバリューリポジトリ。
// 複数のクライアントプロセスで同じ状態を共有する場合に使う。
type RedisKeyValueRepo struct {
	client redis.Cmdable
	prefix string
}

// NewRedisKeyValueRepo はRedisKeyValueRepoを生成する。
// prefixが空の場合はDefaultRedisKeyPrefixを使う。
func NewRedisKeyValueRepo(client redis.Cmdable, prefix string) *RedisKeyValueRepo {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisKeyValueRepo{client: client, prefix: prefix}
}

func (r *RedisKeyValueRepo) key(k string) string {
	return r.prefix + k
}

// Get は指定キーの値を取得する。
func (r *RedisKeyValueRepo) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value: %w", err)
	}
	return v, true, nil
}

// Set は指定キーに値を保存する。有効期限は設定しない。
func (r *RedisKeyValueRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// Remove は指定キーを削除する。
func (r *RedisKeyValueRepo) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove value: %w", err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueRepository = (*RedisKeyValueRepo)(nil)
