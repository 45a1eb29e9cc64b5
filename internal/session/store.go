// Package session はログインセッション（トークンとプロフィール）の保持と永続化を提供する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/notify"
	"github.com/hitoshi/storefront/internal/repository"
)

// TokenKey はトークンを永続化するキー。
const TokenKey = "token"

// Store は現在のセッションを保持する。
// トークンの変更は必ず永続化ストレージへの書き込みを伴い、
// 書き込みが完了してからメモリ上の状態を更新する。
type Store struct {
	mu      sync.RWMutex
	session model.Session

	repo   repository.KeyValueRepository
	hub    *notify.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewStore は新しいStoreを生成する。hubがnilの場合は通知を行わない。
func NewStore(repo repository.KeyValueRepository, hub *notify.Hub, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// Restore は永続化されたトークンを読み込み、プロフィール未解決のセッションを復元する。
// トークンが保存されていない場合はnilを返す。ネットワークI/Oは行わない。
// 旧形式の保存値は正規形に変換して保存し直す。空値や期限切れのトークンは削除する。
func (s *Store) Restore(ctx context.Context) (*model.Session, error) {
	stored, found, err := s.repo.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted token: %w", err)
	}
	if !found {
		return nil, nil
	}

	token := CanonicalToken(stored)
	if token == "" {
		s.logger.Warn("discarding empty persisted token")
		if err := s.repo.Remove(ctx, TokenKey); err != nil {
			return nil, fmt.Errorf("failed to remove empty token: %w", err)
		}
		return nil, nil
	}

	if IsExpired(token, s.now()) {
		s.logger.Info("discarding expired persisted token", slog.String("token", maskToken(token)))
		if err := s.repo.Remove(ctx, TokenKey); err != nil {
			return nil, fmt.Errorf("failed to remove expired token: %w", err)
		}
		return nil, nil
	}

	if token != stored {
		s.logger.Info("rewriting persisted token in canonical form", slog.String("token", maskToken(token)))
		if err := s.repo.Set(ctx, TokenKey, token); err != nil {
			return nil, fmt.Errorf("failed to rewrite token: %w", err)
		}
	}

	s.mu.Lock()
	s.session = model.Session{Token: token}
	restored := s.session
	s.mu.Unlock()

	s.publish()
	return &restored, nil
}

// SetCredentials はプロフィールとトークンを設定し、トークンを永続化する。
// トークンは正規形に変換してから保持と保存を行う。
// 正規形が空、またはプロフィールがnilの場合はINVALID_CREDENTIALSエラーを返す。
// 永続化に失敗した場合、メモリ上の状態は変更しない。
func (s *Store) SetCredentials(ctx context.Context, profile *model.Profile, token string) error {
	token = CanonicalToken(token)
	if token == "" {
		return model.NewInvalidCredentialsError("トークンが空です")
	}
	if profile == nil {
		return model.NewInvalidCredentialsError("プロフィールがありません")
	}

	if err := s.repo.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	p := *profile
	if p.Role == "" {
		p.Role = model.RoleUser
	}

	s.mu.Lock()
	s.session = model.Session{Token: token, Profile: &p, ProfileResolved: true}
	s.mu.Unlock()

	s.logger.Info("session credentials set", slog.String("user_id", p.ID))
	s.publish()
	return nil
}

// Logout はセッションを破棄し、永続化されたトークンを削除する。
// 既にログアウト済みの場合は何もしない。
// ストレージの削除に失敗してもメモリ上のセッションは破棄し、エラーを返す。
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	hadSession := s.session.Token != "" || s.session.Profile != nil
	s.session = model.Session{}
	s.mu.Unlock()

	err := s.repo.Remove(ctx, TokenKey)

	if hadSession {
		s.logger.Info("session logged out")
		s.publish()
	}
	if err != nil {
		return fmt.Errorf("failed to remove persisted token: %w", err)
	}
	return nil
}

// ApplyProfile はtokenが現在のトークンと一致する場合のみプロフィールを反映する。
// 取得中にログアウトやログインがあった場合はfalseを返し、状態を変更しない。
func (s *Store) ApplyProfile(token string, profile model.Profile) bool {
	if profile.Role == "" {
		profile.Role = model.RoleUser
	}

	s.mu.Lock()
	if token == "" || s.session.Token != token {
		s.mu.Unlock()
		return false
	}
	s.session.Profile = &profile
	s.session.ProfileResolved = true
	s.mu.Unlock()

	s.publish()
	return true
}

// IsAuthenticated はトークンが設定されている場合にtrueを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token != ""
}

// IsAdmin はプロフィールのロールがadminの場合にtrueを返す。
// プロフィール未取得の場合はfalse。
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Profile != nil && s.session.Profile.Role == model.RoleAdmin
}

// Token は現在のトークンを返す。
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Profile は現在のプロフィールのコピーを返す。未取得の場合はnil。
func (s *Store) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.Profile == nil {
		return nil
	}
	p := *s.session.Profile
	return &p
}

// Snapshot は現在のセッションのコピーを返す。
func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.session
	if snap.Profile != nil {
		p := *snap.Profile
		snap.Profile = &p
	}
	return snap
}

// Expired は現在のトークンがnow時点で期限切れかを判定する。
func (s *Store) Expired(now time.Time) bool {
	token := s.Token()
	return token != "" && IsExpired(token, now)
}

// Subscribe はセッション変更の通知を購読する。
func (s *Store) Subscribe(fn func(notify.Event)) func() {
	if s.hub == nil {
		return func() {}
	}
	return s.hub.SubscribeTopic(notify.TopicSession, fn)
}

func (s *Store) publish() {
	if s.hub != nil {
		s.hub.Publish(notify.TopicSession)
	}
}
