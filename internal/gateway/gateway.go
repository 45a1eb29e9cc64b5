// Package gateway はカート変更操作の前に認証状態を確認する窓口を提供する。
package gateway

import (
	"log/slog"

	"github.com/hitoshi/storefront/internal/model"
)

// Authenticator は認証状態を判定するインターフェース。
type Authenticator interface {
	IsAuthenticated() bool
}

// CartMutator はカートの変更操作インターフェース。
type CartMutator interface {
	AddLine(product model.ProductSnapshot, quantity int) (model.CartLine, error)
	RemoveLine(productID string) bool
	SetQuantity(productID string, quantity int) (*model.CartLine, error)
	Clear()
}

// Recorder は操作結果を記録するインターフェース。メトリクス収集に使う。
type Recorder interface {
	RecordCartOperation(op, result string)
}

// ResultKind は操作結果の種別。
type ResultKind int

const (
	// ResultOK は操作が成功したことを示す。
	ResultOK ResultKind = iota
	// ResultAuthRequired は未ログインのため操作が拒否されたことを示す。
	ResultAuthRequired
	// ResultInvalid は入力値の不備で操作が失敗したことを示す。
	ResultInvalid
	// ResultFailed はその他の理由で操作が失敗したことを示す。
	ResultFailed
)

// String は結果種別の文字列表現を返す。
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultAuthRequired:
		return "auth_required"
	case ResultInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

// Result はカート操作の結果。
// Kindで分岐すればエラーメッセージの文字列比較は不要となる。
type Result struct {
	Kind ResultKind
	// Line は操作後の明細。削除や全削除ではnil。
	Line *model.CartLine
	Err  error
}

// OK は操作が成功したかを返す。
func (r Result) OK() bool {
	return r.Kind == ResultOK
}

// カート操作名
const (
	OpAdd         = "add"
	OpRemove      = "remove"
	OpSetQuantity = "set_quantity"
	OpClear       = "clear"
)

// Gateway は全てのカート変更操作の前に認証状態を確認する。
// 未ログインの場合、カートは一切変更されない。
type Gateway struct {
	auth     Authenticator
	cart     CartMutator
	recorder Recorder
	logger   *slog.Logger
}

// New は新しいGatewayを生成する。recorderはnilでもよい。
func New(auth Authenticator, cart CartMutator, recorder Recorder, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{auth: auth, cart: cart, recorder: recorder, logger: logger}
}

// AddLine は認証済みの場合のみ商品をカートに追加する。
func (g *Gateway) AddLine(product model.ProductSnapshot, quantity int) Result {
	if r, ok := g.requireAuth(OpAdd); !ok {
		return r
	}
	line, err := g.cart.AddLine(product, quantity)
	if err != nil {
		return g.fail(OpAdd, err)
	}
	return g.ok(OpAdd, &line)
}

// RemoveLine は認証済みの場合のみ明細を削除する。
func (g *Gateway) RemoveLine(productID string) Result {
	if r, ok := g.requireAuth(OpRemove); !ok {
		return r
	}
	g.cart.RemoveLine(productID)
	return g.ok(OpRemove, nil)
}

// SetQuantity は認証済みの場合のみ明細の数量を変更する。
func (g *Gateway) SetQuantity(productID string, quantity int) Result {
	if r, ok := g.requireAuth(OpSetQuantity); !ok {
		return r
	}
	line, err := g.cart.SetQuantity(productID, quantity)
	if err != nil {
		return g.fail(OpSetQuantity, err)
	}
	return g.ok(OpSetQuantity, line)
}

// Clear は認証済みの場合のみカートを空にする。
func (g *Gateway) Clear() Result {
	if r, ok := g.requireAuth(OpClear); !ok {
		return r
	}
	g.cart.Clear()
	return g.ok(OpClear, nil)
}

// Check は操作opを実行できる認証状態かを確認する。
// 外部APIの呼び出し前に拒否を判定する場合に使う。拒否した場合のみ結果を記録する。
// Checkに成功しても、実際の変更時には各操作が改めて認証状態を確認する。
func (g *Gateway) Check(op string) (Result, bool) {
	return g.requireAuth(op)
}

func (g *Gateway) requireAuth(op string) (Result, bool) {
	if g.auth.IsAuthenticated() {
		return Result{}, true
	}
	g.logger.Info("cart operation rejected: authentication required", slog.String("op", op))
	r := Result{Kind: ResultAuthRequired, Err: model.NewAuthenticationRequiredError()}
	g.record(op, r.Kind)
	return r, false
}

func (g *Gateway) ok(op string, line *model.CartLine) Result {
	g.record(op, ResultOK)
	return Result{Kind: ResultOK, Line: line}
}

func (g *Gateway) fail(op string, err error) Result {
	kind := ResultFailed
	switch model.ErrorCode(err) {
	case model.ErrCodeInvalidQuantity, model.ErrCodeInvalidProduct, model.ErrCodeLineNotFound:
		kind = ResultInvalid
	}
	g.logger.Warn("cart operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	g.record(op, kind)
	return Result{Kind: kind, Err: err}
}

func (g *Gateway) record(op string, kind ResultKind) {
	if g.recorder != nil {
		g.recorder.RecordCartOperation(op, kind.String())
	}
}
