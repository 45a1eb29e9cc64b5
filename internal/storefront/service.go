// Package storefront はセッション・カート・外部APIをまとめたストアフロントのサービス層を提供する。
// 状態の読み書きは全てdispatch.Loop上のリアクションとして実行し、
// 外部APIの呼び出しはループの外で行ってから結果を別のリアクションで反映する。
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/dispatch"
	"github.com/hitoshi/storefront/internal/gateway"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/notify"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/view"
)

// MinPasswordLength はユーザー登録時のパスワードの最小文字数。
const MinPasswordLength = 6

// ErrSessionChanged はプロフィール取得中にログアウトや別ユーザーのログインが行われたことを表す。
var ErrSessionChanged = errors.New("session changed while fetching profile")

// 認証イベント名（メトリクスラベル）
const (
	EventLogin           = "login"
	EventLoginFailed     = "login_failed"
	EventRegister        = "register"
	EventRegisterFailed  = "register_failed"
	EventLogout          = "logout"
	EventRestore         = "restore"
	EventProfileRefresh  = "profile_refresh"
	EventSessionRejected = "session_rejected"
	EventSessionExpired  = "session_expired"
)

// Metrics はサービス層が記録するメトリクスのインターフェース。
type Metrics interface {
	gateway.Recorder
	RecordAuthEvent(event string)
	SetCartItems(count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordCartOperation(string, string) {}
func (noopMetrics) RecordAuthEvent(string)             {}
func (noopMetrics) SetCartItems(int)                   {}

// Config はサービスの動作設定。
type Config struct {
	// ClearCartOnLogout がtrueの場合、ログアウト時にカートを空にする。
	ClearCartOnLogout bool
	// TaxRateBPS は注文サマリーの税率（ベーシスポイント）。
	TaxRateBPS int
}

// DefaultConfig は既定の設定を返す。
func DefaultConfig() Config {
	return Config{ClearCartOnLogout: true, TaxRateBPS: view.DefaultTaxRateBPS}
}

// Deps はServiceの依存関係。
type Deps struct {
	Loop    *dispatch.Loop
	Hub     *notify.Hub
	Session *session.Store
	Cart    *cart.Store
	Auth    auth.Provider
	Catalog catalog.Source
	Metrics Metrics
	Logger  *slog.Logger
	Config  Config
}

// Service はストアフロントのサービス層。
type Service struct {
	loop    *dispatch.Loop
	hub     *notify.Hub
	session *session.Store
	cart    *cart.Store
	gateway *gateway.Gateway
	auth    auth.Provider
	catalog catalog.Source
	metrics Metrics
	logger  *slog.Logger
	config  Config
	stop    func()
}

// NewService はServiceの新しいインスタンスを生成する。
// カート変更時にカート内数量のメトリクスを更新する購読者を登録する。
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	s := &Service{
		loop:    deps.Loop,
		hub:     deps.Hub,
		session: deps.Session,
		cart:    deps.Cart,
		gateway: gateway.New(deps.Session, deps.Cart, deps.Metrics, deps.Logger),
		auth:    deps.Auth,
		catalog: deps.Catalog,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		config:  deps.Config,
	}

	s.stop = s.cart.Subscribe(func(notify.Event) {
		s.metrics.SetCartItems(s.cart.Totals().TotalItems)
	})
	return s
}

// Close はNewServiceで登録した購読を解除する。
func (s *Service) Close() {
	s.stop()
}

// Subscribe はセッションとカートの変更通知を購読する。
// 通知を受けたら読み取り系のメソッドで最新の状態を取得すること。
func (s *Service) Subscribe(fn func(notify.Event)) func() {
	if s.hub == nil {
		return func() {}
	}
	return s.hub.Subscribe(fn)
}

// Login はメールアドレスとパスワードでログインする。
// 認証APIの呼び出しはループの外で行い、成功した場合のみセッションに反映する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.RecordAuthEvent(EventLoginFailed)
		return nil, model.NewInvalidCredentialsError("メールアドレスとパスワードを入力してください")
	}

	creds, err := s.auth.Login(ctx, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.metrics.RecordAuthEvent(EventLoginFailed)
		return nil, err
	}

	if err := s.applyCredentials(ctx, creds); err != nil {
		s.metrics.RecordAuthEvent(EventLoginFailed)
		return nil, err
	}
	s.metrics.RecordAuthEvent(EventLogin)
	return &creds.Profile, nil
}

// Register はユーザーを登録し、そのままログイン状態にする。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.Profile, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		s.metrics.RecordAuthEvent(EventRegisterFailed)
		return nil, model.NewInvalidCredentialsError("名前、メールアドレス、パスワードを入力してください")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		s.metrics.RecordAuthEvent(EventRegisterFailed)
		return nil, model.NewInvalidCredentialsError(fmt.Sprintf("パスワードは%d文字以上にしてください", MinPasswordLength))
	}

	creds, err := s.auth.Register(ctx, model.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		s.metrics.RecordAuthEvent(EventRegisterFailed)
		return nil, err
	}

	if err := s.applyCredentials(ctx, creds); err != nil {
		s.metrics.RecordAuthEvent(EventRegisterFailed)
		return nil, err
	}
	s.metrics.RecordAuthEvent(EventRegister)
	return &creds.Profile, nil
}

func (s *Service) applyCredentials(ctx context.Context, creds *model.Credentials) error {
	var applyErr error
	if err := s.loop.Do(ctx, func() {
		applyErr = s.session.SetCredentials(ctx, &creds.Profile, creds.Token)
	}); err != nil {
		return err
	}
	return applyErr
}

// Logout はセッションを破棄する。設定によりカートも空にする。
// 既にログアウト済みでもエラーにならない。
func (s *Service) Logout(ctx context.Context) error {
	var logoutErr error
	if err := s.loop.Do(ctx, func() {
		logoutErr = s.logoutInReaction(ctx)
	}); err != nil {
		return err
	}
	s.metrics.RecordAuthEvent(EventLogout)
	return logoutErr
}

// logoutInReaction はリアクション内でログアウト処理を行う。
func (s *Service) logoutInReaction(ctx context.Context) error {
	err := s.session.Logout(ctx)
	if s.config.ClearCartOnLogout {
		s.cart.Clear()
	}
	return err
}

// Restore は永続化されたトークンからセッションを復元する。ネットワークI/Oは行わない。
// トークンが保存されていない場合はnilを返す。
func (s *Service) Restore(ctx context.Context) (*model.Session, error) {
	var (
		sess       *model.Session
		restoreErr error
	)
	if err := s.loop.Do(ctx, func() {
		sess, restoreErr = s.session.Restore(ctx)
	}); err != nil {
		return nil, err
	}
	if restoreErr != nil {
		return nil, restoreErr
	}
	if sess != nil {
		s.metrics.RecordAuthEvent(EventRestore)
	}
	return sess, nil
}

// Bootstrap は起動時にセッションを復元し、トークンがあればプロフィールを取得する。
// プロフィール取得の失敗は起動を妨げない。トークンが無効と判定された場合はログアウト済みとなる。
func (s *Service) Bootstrap(ctx context.Context) error {
	sess, err := s.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if sess == nil {
		s.logger.Info("no persisted session")
		return nil
	}

	if _, err := s.RefreshProfile(ctx); err != nil {
		s.logger.Warn("profile refresh after restore failed",
			slog.String("error", err.Error()),
			slog.String("code", model.ErrorCode(err)),
		)
	}
	return nil
}

// RefreshProfile は現在のトークンでプロフィールを取得してセッションに反映する。
// 取得中にトークンが変わった場合は反映せずErrSessionChangedを返す。
// 認証APIがトークンを無効と判定した場合、そのトークンのセッションをログアウトする。
// 通信エラーは再試行せずそのまま返す。
func (s *Service) RefreshProfile(ctx context.Context) (*model.Profile, error) {
	var token string
	if err := s.loop.Do(ctx, func() { token = s.session.Token() }); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	profile, err := s.auth.Profile(ctx, token)
	if err != nil {
		if model.IsCode(err, model.ErrCodeInvalidCredentials) {
			s.rejectToken(ctx, token)
		}
		return nil, err
	}

	var applied bool
	if err := s.loop.Do(ctx, func() { applied = s.session.ApplyProfile(token, *profile) }); err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrSessionChanged
	}
	s.metrics.RecordAuthEvent(EventProfileRefresh)
	return profile, nil
}

// rejectToken はtokenが現在のトークンのままであればログアウトする。
func (s *Service) rejectToken(ctx context.Context, token string) {
	err := s.loop.Do(ctx, func() {
		if s.session.Token() != token {
			return
		}
		s.logger.Info("persisted session rejected by auth api")
		if err := s.logoutInReaction(ctx); err != nil {
			s.logger.Error("failed to logout rejected session", slog.String("error", err.Error()))
		}
		s.metrics.RecordAuthEvent(EventSessionRejected)
	})
	if err != nil {
		s.logger.Error("failed to schedule session rejection", slog.String("error", err.Error()))
	}
}

// CheckSessionExpiry はトークンの有効期限（JWTのexp）がnow時点で切れていればログアウトする。
// ログアウトした場合にtrueを返す。
func (s *Service) CheckSessionExpiry(ctx context.Context, now time.Time) (bool, error) {
	var (
		expired   bool
		logoutErr error
	)
	if err := s.loop.Do(ctx, func() {
		if !s.session.Expired(now) {
			return
		}
		expired = true
		logoutErr = s.logoutInReaction(ctx)
	}); err != nil {
		return false, err
	}
	if expired {
		s.logger.Info("session expired")
		s.metrics.RecordAuthEvent(EventSessionExpired)
	}
	return expired, logoutErr
}

// AddToCart は商品スナップショットをカートに追加する。
func (s *Service) AddToCart(ctx context.Context, product model.ProductSnapshot, quantity int) gateway.Result {
	return s.mutate(ctx, func() gateway.Result { return s.gateway.AddLine(product, quantity) })
}

// AddProductByID はカタログから商品を取得してカートに追加する。
// 未ログインの場合はカタログを呼び出さずに拒否する。
// 取得完了後の追加時にも認証状態を改めて確認するため、取得中にログアウトした場合は追加されない。
func (s *Service) AddProductByID(ctx context.Context, productID string, quantity int) gateway.Result {
	var (
		rejected gateway.Result
		ok       bool
	)
	if err := s.loop.Do(ctx, func() { rejected, ok = s.gateway.Check(gateway.OpAdd) }); err != nil {
		return gateway.Result{Kind: gateway.ResultFailed, Err: err}
	}
	if !ok {
		return rejected
	}
	if quantity < 1 {
		return gateway.Result{Kind: gateway.ResultInvalid, Err: model.NewInvalidQuantityError(quantity)}
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("failed to fetch product for cart",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		kind := gateway.ResultFailed
		if model.IsCode(err, model.ErrCodeProductNotFound) || model.IsCode(err, model.ErrCodeInvalidProduct) {
			kind = gateway.ResultInvalid
		}
		return gateway.Result{Kind: kind, Err: err}
	}

	return s.AddToCart(ctx, *product, quantity)
}

// RemoveFromCart は明細を削除する。
func (s *Service) RemoveFromCart(ctx context.Context, productID string) gateway.Result {
	return s.mutate(ctx, func() gateway.Result { return s.gateway.RemoveLine(productID) })
}

// UpdateQuantity は明細の数量を変更する。0以下の場合は削除する。
func (s *Service) UpdateQuantity(ctx context.Context, productID string, quantity int) gateway.Result {
	return s.mutate(ctx, func() gateway.Result { return s.gateway.SetQuantity(productID, quantity) })
}

// ClearCart はカートを空にする。
func (s *Service) ClearCart(ctx context.Context) gateway.Result {
	return s.mutate(ctx, s.gateway.Clear)
}

func (s *Service) mutate(ctx context.Context, fn func() gateway.Result) gateway.Result {
	var r gateway.Result
	if err := s.loop.Do(ctx, func() { r = fn() }); err != nil {
		return gateway.Result{Kind: gateway.ResultFailed, Err: err}
	}
	return r
}

// Summary はカートの集計ビューを返す。
func (s *Service) Summary(ctx context.Context) (view.Summary, error) {
	var out view.Summary
	err := s.loop.Do(ctx, func() { out = view.Summarize(s.cart.Lines()) })
	return out, err
}

// OrderSummary は税額と送料を含む注文サマリーを返す。
func (s *Service) OrderSummary(ctx context.Context) (view.OrderSummary, error) {
	var out view.OrderSummary
	err := s.loop.Do(ctx, func() { out = view.Order(s.cart.Lines(), s.config.TaxRateBPS) })
	return out, err
}

// CartView は同一時点のカート状態から集計ビューと注文サマリーを返す。
func (s *Service) CartView(ctx context.Context) (view.Summary, view.OrderSummary, error) {
	var (
		summary view.Summary
		order   view.OrderSummary
	)
	err := s.loop.Do(ctx, func() {
		lines := s.cart.Lines()
		summary = view.Summarize(lines)
		order = view.Order(lines, s.config.TaxRateBPS)
	})
	return summary, order, err
}

// Lines はカート明細を追加順で返す。
func (s *Service) Lines(ctx context.Context) ([]model.CartLine, error) {
	var out []model.CartLine
	err := s.loop.Do(ctx, func() { out = s.cart.Lines() })
	return out, err
}

// QuantityOf は指定商品のカート内数量を返す。
func (s *Service) QuantityOf(ctx context.Context, productID string) (int, error) {
	var out int
	err := s.loop.Do(ctx, func() { out = view.QuantityOf(s.cart.Lines(), productID) })
	return out, err
}

// IsInCart は指定商品がカートにあるかを返す。
func (s *Service) IsInCart(ctx context.Context, productID string) (bool, error) {
	var out bool
	err := s.loop.Do(ctx, func() { out = view.IsInCart(s.cart.Lines(), productID) })
	return out, err
}

// CurrentUser は現在のユーザー情報ビューを返す。
func (s *Service) CurrentUser(ctx context.Context) (view.CurrentUser, error) {
	var out view.CurrentUser
	err := s.loop.Do(ctx, func() { out = view.User(s.session.Snapshot()) })
	return out, err
}

// IsAuthenticated はログイン中かを返す。
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	var out bool
	err := s.loop.Do(ctx, func() { out = s.session.IsAuthenticated() })
	return out, err
}

// IsAdmin は管理者としてログイン中かを返す。
func (s *Service) IsAdmin(ctx context.Context) (bool, error) {
	var out bool
	err := s.loop.Do(ctx, func() { out = s.session.IsAdmin() })
	return out, err
}

// Products はカタログの全商品を返す。カタログの読み取りは状態を変更しないためループを経由しない。
func (s *Service) Products(ctx context.Context) ([]model.ProductSnapshot, error) {
	return s.catalog.ListProducts(ctx)
}

// Product は指定IDの商品を返す。
func (s *Service) Product(ctx context.Context, productID string) (*model.ProductSnapshot, error) {
	return s.catalog.GetProduct(ctx, productID)
}
