package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/view"
)

// CartHandler はカート操作のHTTPハンドラー。
// 未ログインでの変更操作は401 AUTHENTICATION_REQUIREDを返すため、UIはログイン画面へ誘導できる。
type CartHandler struct {
	service  CartServiceInterface
	currency string
}

// NewCartHandler はCartHandlerを生成する。currencyは表示用価格の通貨コード。
func NewCartHandler(service CartServiceInterface, currency string) *CartHandler {
	return &CartHandler{service: service, currency: currency}
}

// cartResponse はカート全体のAPIレスポンス。
type cartResponse struct {
	view.Summary
	Order   view.OrderSummary `json:"order"`
	Display cartDisplay       `json:"display"`
}

// cartDisplay は通貨記号付きの表示用金額。
type cartDisplay struct {
	TotalPrice string `json:"totalPrice"`
	Subtotal   string `json:"subtotal"`
	Tax        string `json:"tax"`
	Shipping   string `json:"shipping"`
	Total      string `json:"total"`
}

// addItemRequest はカート追加リクエストのボディ。
// 価格は常にカタログから取得する。productはidのみを参照し、価格などの値は使わない。
type addItemRequest struct {
	ProductID string                 `json:"productId"`
	Product   *model.ProductSnapshot `json:"product,omitempty"`
	Quantity  *int                   `json:"quantity,omitempty"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// itemResponse は商品ごとのカート状態。
type itemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	InCart    bool   `json:"inCart"`
}

// Get はカートの集計と注文サマリーを返す。
// GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	body, err := h.cart(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// AddItem は商品をカートに追加する。quantity省略時は1とする。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	productID := req.ProductID
	if productID == "" && req.Product != nil {
		productID = req.Product.ID
	}
	if productID == "" {
		handleServiceError(w, r, model.NewInvalidRequestError("productIdまたはproductを指定してください"))
		return
	}
	res := h.service.AddProductByID(r.Context(), productID, qty)
	writeResult(w, r, res, func() (any, error) { return h.cart(r) })
}

// UpdateItem は明細の数量を変更する。0以下の場合は明細を削除する。
// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		handleServiceError(w, r, model.NewInvalidRequestError("quantityを指定してください"))
		return
	}

	res := h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), *req.Quantity)
	writeResult(w, r, res, func() (any, error) { return h.cart(r) })
}

// RemoveItem は明細を削除する。存在しない明細の削除も成功とする。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	res := h.service.RemoveFromCart(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, r, res, func() (any, error) { return h.cart(r) })
}

// Clear はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	res := h.service.ClearCart(r.Context())
	writeResult(w, r, res, func() (any, error) { return h.cart(r) })
}

// GetItem は指定商品のカート内数量を返す。
// GET /api/cart/items/{id}
func (h *CartHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	qty, err := h.service.QuantityOf(r.Context(), productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{ProductID: productID, Quantity: qty, InCart: qty > 0})
}

func (h *CartHandler) cart(r *http.Request) (*cartResponse, error) {
	summary, order, err := h.service.CartView(r.Context())
	if err != nil {
		return nil, err
	}

	shipping := "Free"
	if !order.FreeShipping {
		shipping = model.FormatMoney(order.Shipping, h.currency)
	}
	return &cartResponse{
		Summary: summary,
		Order:   order,
		Display: cartDisplay{
			TotalPrice: model.FormatMoney(summary.TotalPrice, h.currency),
			Subtotal:   model.FormatMoney(order.Subtotal, h.currency),
			Tax:        model.FormatMoney(order.Tax, h.currency),
			Shipping:   shipping,
			Total:      model.FormatMoney(order.Total, h.currency),
		},
	}, nil
}
