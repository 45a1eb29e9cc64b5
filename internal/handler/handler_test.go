package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/gateway"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/notify"
	"github.com/hitoshi/storefront/internal/view"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn       func(ctx context.Context, email, password string) (*model.Profile, error)
	registerFn    func(ctx context.Context, name, email, password string) (*model.Profile, error)
	logoutFn      func(ctx context.Context) error
	currentUserFn func(ctx context.Context) (view.CurrentUser, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Profile, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &model.Profile{}, nil
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*model.Profile, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, name, email, password)
	}
	return &model.Profile{}, nil
}

func (m *mockAuthService) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context) (view.CurrentUser, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return view.CurrentUser{Role: model.RoleUser}, nil
}

// mockProductService はProductServiceInterfaceのモック実装。
type mockProductService struct {
	productsFn func(ctx context.Context) ([]model.ProductSnapshot, error)
	productFn  func(ctx context.Context, productID string) (*model.ProductSnapshot, error)
}

func (m *mockProductService) Products(ctx context.Context) ([]model.ProductSnapshot, error) {
	if m.productsFn != nil {
		return m.productsFn(ctx)
	}
	return nil, nil
}

func (m *mockProductService) Product(ctx context.Context, productID string) (*model.ProductSnapshot, error) {
	if m.productFn != nil {
		return m.productFn(ctx, productID)
	}
	return nil, model.NewProductNotFoundError(productID)
}

// mockCartService はCartServiceInterfaceのモック実装。
// 変更操作はlinesを直接更新する。
type mockCartService struct {
	mu    sync.Mutex
	lines []model.CartLine

	addByIDFn func(ctx context.Context, productID string, quantity int) gateway.Result
	removeFn  func(ctx context.Context, productID string) gateway.Result
	updateFn  func(ctx context.Context, productID string, quantity int) gateway.Result
	clearFn   func(ctx context.Context) gateway.Result
}

func (m *mockCartService) snapshot() []model.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CartLine(nil), m.lines...)
}

func (m *mockCartService) CartView(ctx context.Context) (view.Summary, view.OrderSummary, error) {
	lines := m.snapshot()
	return view.Summarize(lines), view.Order(lines, view.DefaultTaxRateBPS), nil
}

func (m *mockCartService) QuantityOf(ctx context.Context, productID string) (int, error) {
	return view.QuantityOf(m.snapshot(), productID), nil
}

// add はスナップショットを明細に加える。
func (m *mockCartService) add(product model.ProductSnapshot, quantity int) gateway.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].ProductID == product.ID {
			m.lines[i].Quantity += quantity
			line := m.lines[i]
			return gateway.Result{Kind: gateway.ResultOK, Line: &line}
		}
	}
	line := model.CartLine{ProductID: product.ID, UnitPrice: product.Price, Quantity: quantity, Title: product.Title}
	m.lines = append(m.lines, line)
	return gateway.Result{Kind: gateway.ResultOK, Line: &line}
}

func (m *mockCartService) AddProductByID(ctx context.Context, productID string, quantity int) gateway.Result {
	if m.addByIDFn != nil {
		return m.addByIDFn(ctx, productID, quantity)
	}
	return m.add(model.ProductSnapshot{ID: productID, Title: "Catalog " + productID, Price: 100}, quantity)
}

func (m *mockCartService) RemoveFromCart(ctx context.Context, productID string) gateway.Result {
	if m.removeFn != nil {
		return m.removeFn(ctx, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			break
		}
	}
	return gateway.Result{Kind: gateway.ResultOK}
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, productID string, quantity int) gateway.Result {
	if m.updateFn != nil {
		return m.updateFn(ctx, productID, quantity)
	}
	if quantity <= 0 {
		return m.RemoveFromCart(ctx, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines[i].Quantity = quantity
			line := m.lines[i]
			return gateway.Result{Kind: gateway.ResultOK, Line: &line}
		}
	}
	return gateway.Result{Kind: gateway.ResultInvalid, Err: model.NewLineNotFoundError(productID)}
}

func (m *mockCartService) ClearCart(ctx context.Context) gateway.Result {
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()
	return gateway.Result{Kind: gateway.ResultOK}
}

// mockEventSource はEventSourceのモック実装。
type mockEventSource struct {
	mu   sync.Mutex
	subs []func(notify.Event)
	// subscribed は購読が登録されるたびに通知される。
	subscribed chan struct{}
}

func newMockEventSource() *mockEventSource {
	return &mockEventSource{subscribed: make(chan struct{}, 4)}
}

func (m *mockEventSource) Subscribe(fn func(notify.Event)) func() {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	idx := len(m.subs) - 1
	m.mu.Unlock()
	m.subscribed <- struct{}{}
	return func() {
		m.mu.Lock()
		m.subs[idx] = nil
		m.mu.Unlock()
	}
}

func (m *mockEventSource) publish(e notify.Event) {
	m.mu.Lock()
	subs := append(([]func(notify.Event))(nil), m.subs...)
	m.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(e)
		}
	}
}

func (m *mockEventSource) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, fn := range m.subs {
		if fn != nil {
			n++
		}
	}
	return n
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
