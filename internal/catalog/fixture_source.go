package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

// fixtureFile はYAMLフィクスチャの形式。
//
//	products:
//	  - id: "1"
//	    title: Backpack
//	    price: 109.95
type fixtureFile struct {
	Products []model.ProductSnapshot `yaml:"products"`
}

// FixtureSource はYAMLファイルから読み込んだ商品を返す。
// カタログAPIに接続できない環境での動作確認やテストに使う。
type FixtureSource struct {
	products []model.ProductSnapshot
	index    map[string]int
}

// LoadFixture はYAMLファイルを読み込んでFixtureSourceを生成する。
func LoadFixture(path string, sanitizer security.ContentSanitizerService) (*FixtureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog fixture: %w", err)
	}
	return ParseFixture(data, sanitizer)
}

// ParseFixture はYAMLデータからFixtureSourceを生成する。
// IDが空または重複している商品がある場合はエラーを返す。
func ParseFixture(data []byte, sanitizer security.ContentSanitizerService) (*FixtureSource, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog fixture: %w", err)
	}

	src := &FixtureSource{index: make(map[string]int, len(f.Products))}
	for i, p := range f.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog fixture product %d has no id", i)
		}
		if _, dup := src.index[p.ID]; dup {
			return nil, fmt.Errorf("catalog fixture has duplicate id %q", p.ID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("catalog fixture product %q has negative price", p.ID)
		}
		src.index[p.ID] = len(src.products)
		src.products = append(src.products, clean(sanitizer, p))
	}
	return src, nil
}

// ListProducts は全商品のコピーを返す。
func (s *FixtureSource) ListProducts(ctx context.Context) ([]model.ProductSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.ProductSnapshot, len(s.products))
	copy(out, s.products)
	return out, nil
}

// GetProduct は指定IDの商品を返す。
func (s *FixtureSource) GetProduct(ctx context.Context, id string) (*model.ProductSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i, ok := s.index[id]
	if !ok {
		return nil, model.NewProductNotFoundError(id)
	}
	p := s.products[i]
	return &p, nil
}

// compile-time interface check
var _ Source = (*FixtureSource)(nil)
