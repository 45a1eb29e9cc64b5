package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/repository"
)

// storage はセッショントークンの永続化先と、その疎通確認・解放処理をまとめたもの。
type storage struct {
	repo   repository.KeyValueRepository
	health handler.HealthChecker
	close  func() error
}

// openStorage は設定されたバックエンドのキーバリューストアを開く。
// sqliteは起動時にマイグレーションを適用する。postgresは事前にmigrateコマンドの実行が必要。
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	nop := func() error { return nil }

	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; session will not survive restart")
		return &storage{repo: repository.NewMemoryKeyValueRepo(), close: nop}, nil

	case config.BackendFile:
		repo, err := repository.NewFileKeyValueRepo(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return &storage{repo: repo, close: nop}, nil

	case config.BackendSQLite:
		if err := database.RunMigrations(database.DriverSQLite, database.SQLiteURL(cfg.SQLitePath)); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqlStorage(ctx, db, repository.NewSQLiteKeyValueRepo(db))

	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return sqlStorage(ctx, db, repository.NewPostgresKeyValueRepo(db))

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &storage{
			repo: repository.NewRedisKeyValueRepo(client, ""),
			health: handler.HealthCheckFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
			close: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.StorageBackend)
	}
}

func sqlStorage(ctx context.Context, db *sql.DB, repo repository.KeyValueRepository) (*storage, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &storage{repo: repo, health: db, close: db.Close}, nil
}
