// Package catalog は商品カタログの取得元（HTTP API、YAMLフィクスチャ）を提供する。
// 取得した商品情報はサニタイズしてからProductSnapshotとして返す。
package catalog

import (
	"context"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

// Source は商品カタログのインターフェース。
type Source interface {
	// ListProducts は全商品を返す。
	ListProducts(ctx context.Context) ([]model.ProductSnapshot, error)
	// GetProduct は指定IDの商品を返す。存在しない場合はPRODUCT_NOT_FOUNDを返す。
	GetProduct(ctx context.Context, id string) (*model.ProductSnapshot, error)
}

// clean は商品情報の各フィールドをサニタイズする。
func clean(s security.ContentSanitizerService, p model.ProductSnapshot) model.ProductSnapshot {
	return model.ProductSnapshot{
		ID:          p.ID,
		Title:       s.SanitizeText(p.Title),
		Price:       p.Price,
		Category:    s.SanitizeText(p.Category),
		Image:       s.SanitizeImageURL(p.Image),
		Description: s.SanitizeDescription(p.Description),
	}
}
