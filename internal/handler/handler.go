// Package handler はストアフロントのローカルUI向けHTTP APIを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/gateway"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/notify"
	"github.com/hitoshi/storefront/internal/view"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*model.Profile, error)
	Register(ctx context.Context, name, email, password string) (*model.Profile, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (view.CurrentUser, error)
}

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	Products(ctx context.Context) ([]model.ProductSnapshot, error)
	Product(ctx context.Context, productID string) (*model.ProductSnapshot, error)
}

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	CartView(ctx context.Context) (view.Summary, view.OrderSummary, error)
	QuantityOf(ctx context.Context, productID string) (int, error)
	AddProductByID(ctx context.Context, productID string, quantity int) gateway.Result
	RemoveFromCart(ctx context.Context, productID string) gateway.Result
	UpdateQuantity(ctx context.Context, productID string, quantity int) gateway.Result
	ClearCart(ctx context.Context) gateway.Result
}

// EventSource は変更通知の購読インターフェース。
type EventSource interface {
	Subscribe(fn func(notify.Event)) func()
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗した場合はINVALID_REQUESTを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットで返す。
// APIError以外のエラーは内部エラーとしてログに記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
	}
	middleware.WriteError(w, err)
}

// writeResult はカート操作結果を返す。成功時はbuildの結果を200で返す。
func writeResult(w http.ResponseWriter, r *http.Request, res gateway.Result, build func() (any, error)) {
	if !res.OK() {
		err := res.Err
		if err == nil {
			err = errors.New("cart operation failed: " + res.Kind.String())
		}
		handleServiceError(w, r, err)
		return
	}
	body, err := build()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
