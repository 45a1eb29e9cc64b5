// Package auth はストアフロントの認証APIクライアントを提供する。
// ログイン・登録でトークンとプロフィールを取得し、トークンからプロフィールを再取得する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/apiclient"
	"github.com/hitoshi/storefront/internal/model"
)

// エンドポイントのパス
const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	profilePath  = "/auth/profile"
)

// Provider は認証APIのインターフェース。
// storefrontパッケージはこのインターフェースを通して認証APIを呼び出す。
type Provider interface {
	// Login はメールアドレスとパスワードで認証し、トークンとプロフィールを返す。
	Login(ctx context.Context, req model.LoginRequest) (*model.Credentials, error)
	// Register はユーザーを登録し、トークンとプロフィールを返す。
	Register(ctx context.Context, req model.RegisterRequest) (*model.Credentials, error)
	// Profile はトークンに対応するプロフィールを返す。
	Profile(ctx context.Context, token string) (*model.Profile, error)
}

// Client は認証APIのHTTPクライアント。
type Client struct {
	api    *apiclient.Client
	logger *slog.Logger
}

// NewClient はClientを生成する。
func NewClient(api *apiclient.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger}
}

// userPayload はAPIが返すユーザー情報。
type userPayload struct {
	ID    apiclient.ID `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Role  string       `json:"role"`
}

func (u userPayload) profile() model.Profile {
	role := model.Role(u.Role)
	if role != model.RoleAdmin {
		role = model.RoleUser
	}
	return model.Profile{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  role,
	}
}

type credentialsPayload struct {
	Token string       `json:"token"`
	User  *userPayload `json:"user"`
}

// Login はメールアドレスとパスワードで認証する。
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.Credentials, error) {
	return c.credentials(ctx, loginPath, req)
}

// Register はユーザーを登録する。
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (*model.Credentials, error) {
	return c.credentials(ctx, registerPath, req)
}

func (c *Client) credentials(ctx context.Context, path string, body any) (*model.Credentials, error) {
	var payload credentialsPayload
	if err := c.api.DoJSON(ctx, http.MethodPost, path, "", body, &payload); err != nil {
		return nil, categorize(err)
	}
	if payload.Token == "" || payload.User == nil {
		return nil, model.NewInvalidCredentialsError("認証APIの応答にトークンまたはユーザー情報がありません")
	}

	creds := &model.Credentials{Token: payload.Token, Profile: payload.User.profile()}
	c.logger.Info("auth api issued credentials",
		slog.String("path", path),
		slog.String("user_id", creds.Profile.ID),
	)
	return creds, nil
}

// Profile はトークンに対応するプロフィールを取得する。
// 応答は {"user": {...}} と ユーザーオブジェクト単体のどちらにも対応する。
func (c *Client) Profile(ctx context.Context, token string) (*model.Profile, error) {
	if token == "" {
		return nil, model.NewInvalidCredentialsError("トークンが空です")
	}

	var payload struct {
		User *userPayload `json:"user"`
		userPayload
	}
	if err := c.api.DoJSON(ctx, http.MethodGet, profilePath, token, nil, &payload); err != nil {
		return nil, categorize(err)
	}

	u := payload.userPayload
	if payload.User != nil {
		u = *payload.User
	}
	if u.ID == "" && u.Email == "" {
		return nil, model.NewUpstreamError(http.StatusOK, "プロフィールの形式が不正です")
	}
	p := u.profile()
	return &p, nil
}

// categorize は認証API固有のステータスをAPIErrorに変換する。
// 400/401/403は認証情報の誤りとして扱う。
func categorize(err error) error {
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		reason := se.Message
		if reason == "" {
			reason = fmt.Sprintf("status %d", se.StatusCode)
		}
		return model.NewInvalidCredentialsError(reason)
	default:
		return se.Upstream()
	}
}

// compile-time interface check
var _ Provider = (*Client)(nil)
