package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/storefront/internal/apiclient"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

// HTTPSource はカタログAPIから商品を取得する。
type HTTPSource struct {
	api       *apiclient.Client
	sanitizer security.ContentSanitizerService
}

// NewHTTPSource はHTTPSourceを生成する。
func NewHTTPSource(api *apiclient.Client, sanitizer security.ContentSanitizerService) *HTTPSource {
	return &HTTPSource{api: api, sanitizer: sanitizer}
}

// productPayload はカタログAPIが返す商品。IDは数値・文字列のどちらも受け付ける。
type productPayload struct {
	ID          apiclient.ID `json:"id"`
	Title       string       `json:"title"`
	Price       model.Money  `json:"price"`
	Category    string       `json:"category"`
	Image       string       `json:"image"`
	Description string       `json:"description"`
}

func (p productPayload) snapshot() model.ProductSnapshot {
	return model.ProductSnapshot{
		ID:          p.ID.String(),
		Title:       p.Title,
		Price:       p.Price,
		Category:    p.Category,
		Image:       p.Image,
		Description: p.Description,
	}
}

// ListProducts は GET /products の結果を返す。
// 応答は配列と {"products": [...]} のどちらにも対応する。
func (s *HTTPSource) ListProducts(ctx context.Context) ([]model.ProductSnapshot, error) {
	var raw json.RawMessage
	if err := s.api.DoJSON(ctx, http.MethodGet, "/products", "", nil, &raw); err != nil {
		return nil, categorize(err, "")
	}

	var payloads []productPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		var wrapped struct {
			Products []productPayload `json:"products"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, model.NewUpstreamError(http.StatusOK, "商品一覧の形式が不正です")
		}
		payloads = wrapped.Products
	}

	products := make([]model.ProductSnapshot, 0, len(payloads))
	for _, p := range payloads {
		if p.ID == "" {
			continue
		}
		products = append(products, clean(s.sanitizer, p.snapshot()))
	}
	return products, nil
}

// GetProduct は GET /products/{id} の結果を返す。
func (s *HTTPSource) GetProduct(ctx context.Context, id string) (*model.ProductSnapshot, error) {
	if id == "" {
		return nil, model.NewInvalidProductError("商品IDが空です")
	}

	var payload productPayload
	path := fmt.Sprintf("/products/%s", url.PathEscape(id))
	if err := s.api.DoJSON(ctx, http.MethodGet, path, "", nil, &payload); err != nil {
		return nil, categorize(err, id)
	}
	// 存在しないIDに対して200と空ボディを返すAPIがある
	if payload.ID == "" {
		return nil, model.NewProductNotFoundError(id)
	}

	p := clean(s.sanitizer, payload.snapshot())
	return &p, nil
}

func categorize(err error, id string) error {
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		return err
	}
	if se.StatusCode == http.StatusNotFound && id != "" {
		return model.NewProductNotFoundError(id)
	}
	return se.Upstream()
}

// compile-time interface check
var _ Source = (*HTTPSource)(nil)
