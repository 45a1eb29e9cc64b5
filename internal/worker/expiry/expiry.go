// Package expiry はセッショントークンの有効期限を定期的に確認するジョブを提供する。
// 期限切れを検出した場合はログアウト（設定によりカートのクリア）を行う。
package expiry

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval は確認間隔の既定値。
const DefaultInterval = time.Minute

// SessionChecker はセッション期限の確認インターフェース。
type SessionChecker interface {
	// CheckSessionExpiry はnow時点で期限切れであればログアウトし、trueを返す。
	CheckSessionExpiry(ctx context.Context, now time.Time) (bool, error)
}

// Job はセッション期限の定期確認ジョブ。
type Job struct {
	checker SessionChecker
	logger  *slog.Logger
	now     func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(checker SessionChecker, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{checker: checker, logger: logger, now: time.Now}
}

// Start はinterval間隔でRunOnceを実行する。
// コンテキストがキャンセルされるまで実行を継続する。intervalが0以下の場合はDefaultIntervalを使う。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッション期限確認ジョブを開始しました", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッション期限確認ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("セッション期限確認に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce はセッション期限を1回確認する。
func (j *Job) RunOnce(ctx context.Context) error {
	expired, err := j.checker.CheckSessionExpiry(ctx, j.now())
	if err != nil {
		return err
	}
	if expired {
		j.logger.Info("期限切れのセッションをログアウトしました")
	}
	return nil
}
