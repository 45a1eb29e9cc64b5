package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/model"
)

// ProductHandler は商品カタログのHTTPハンドラー。
type ProductHandler struct {
	service  ProductServiceInterface
	currency string
}

// NewProductHandler はProductHandlerを生成する。currencyは表示用価格の通貨コード。
func NewProductHandler(service ProductServiceInterface, currency string) *ProductHandler {
	return &ProductHandler{service: service, currency: currency}
}

type productResponse struct {
	model.ProductSnapshot
	DisplayPrice string `json:"displayPrice"`
}

func (h *ProductHandler) toResponse(p model.ProductSnapshot) productResponse {
	return productResponse{ProductSnapshot: p, DisplayPrice: model.FormatMoney(p.Price, h.currency)}
}

// List は全商品を返す。
// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get は指定IDの商品を返す。
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(*p))
}
