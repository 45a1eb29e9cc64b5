package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, catalog, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeLineNotFound           = "LINE_NOT_FOUND"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeInvalidProduct         = "INVALID_PRODUCT"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeNetwork                = "NETWORK_ERROR"
	ErrCodeTimeout                = "TIMEOUT"
	ErrCodeUpstream               = "UPSTREAM_ERROR"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
)

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryCart       = "cart"
	CategoryCatalog    = "catalog"
	CategoryNetwork    = "network"
	CategorySystem     = "system"
)

// ErrorCode はエラーチェーンからAPIErrorのコードを取り出す。
// APIErrorを含まない場合は空文字列を返す。
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsCode はエラーチェーンに指定コードのAPIErrorが含まれるかを判定する。
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// NewAuthenticationRequiredError は未ログイン状態でカート操作を試みた場合のエラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "カート機能を利用するにはログインが必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewInvalidQuantityError は数量が不正な場合のエラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: CategoryValidation,
		Action:   "数量には1以上の整数を指定してください。",
	}
}

// NewLineNotFoundError はカートに存在しない商品の数量を変更しようとした場合のエラーを生成する。
func NewLineNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeLineNotFound,
		Message:  fmt.Sprintf("カートに指定された商品がありません: %s", productID),
		Category: CategoryCart,
		Action:   "商品をカートに追加してから数量を変更してください。",
	}
}

// NewInvalidCredentialsError は認証情報が不正な場合のエラーを生成する。
func NewInvalidCredentialsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  fmt.Sprintf("認証情報が正しくありません: %s", reason),
		Category: CategoryAuth,
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewInvalidProductError は商品データが不正な場合のエラーを生成する。
func NewInvalidProductError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProduct,
		Message:  fmt.Sprintf("無効な商品データです: %s", reason),
		Category: CategoryValidation,
		Action:   "商品一覧を再読み込みしてから再度お試しください。",
	}
}

// NewProductNotFoundError は商品がカタログに存在しない場合のエラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: CategoryCatalog,
		Action:   "商品IDを確認してください。",
	}
}

// NewNetworkError は外部APIとの通信に失敗した場合のエラーを生成する。
func NewNetworkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNetwork,
		Message:  fmt.Sprintf("サーバーとの通信に失敗しました: %s", reason),
		Category: CategoryNetwork,
		Action:   "ネットワーク接続を確認し、再度お試しください。",
	}
}

// NewTimeoutError は外部APIの応答がタイムアウトした場合のエラーを生成する。
func NewTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeTimeout,
		Message:  "サーバーの応答がタイムアウトしました。",
		Category: CategoryNetwork,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamError は外部APIがエラーステータスを返した場合のエラーを生成する。
// messageにはAPIが返したメッセージを渡す。空の場合はステータスコードのみを含める。
func NewUpstreamError(statusCode int, message string) *APIError {
	msg := fmt.Sprintf("APIリクエストが失敗しました (status %d)", statusCode)
	if message != "" {
		msg = fmt.Sprintf("%s: %s", msg, message)
	}
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  msg,
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディやパラメータの形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が正しくありません: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}
