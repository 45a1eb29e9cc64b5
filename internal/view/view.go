// Package view はカートとセッションの状態から表示用の値を導出する純粋関数を提供する。
// ここにある関数は状態を一切変更しない。
package view

import (
	"github.com/hitoshi/storefront/internal/model"
)

// DefaultTaxRateBPS は既定の税率（ベーシスポイント、800 = 8%）。
const DefaultTaxRateBPS = 800

// Summary はカート全体の集計ビュー。
type Summary struct {
	Items      []model.CartLine `json:"items"`
	TotalItems int              `json:"totalItems"`
	TotalPrice model.Money      `json:"totalPrice"`
	IsEmpty    bool             `json:"isEmpty"`
	// LineCount は明細（商品種類）の数。
	LineCount int `json:"lineCount"`
}

// OrderSummary は注文確認用の金額内訳。
type OrderSummary struct {
	Subtotal   model.Money `json:"subtotal"`
	Tax        model.Money `json:"tax"`
	Shipping   model.Money `json:"shipping"`
	Total      model.Money `json:"total"`
	TaxRateBPS int         `json:"taxRateBps"`
	// FreeShipping は送料無料の場合にtrue。
	FreeShipping bool `json:"freeShipping"`
}

// QuantityOf は指定商品の数量を返す。カートにない場合は0。
func QuantityOf(lines []model.CartLine, productID string) int {
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// IsInCart は指定商品がカートにあるかを返す。
func IsInCart(lines []model.CartLine, productID string) bool {
	return QuantityOf(lines, productID) > 0
}

// Summarize は明細一覧から集計ビューを生成する。
func Summarize(lines []model.CartLine) Summary {
	totals := model.SumTotals(lines)
	items := make([]model.CartLine, len(lines))
	copy(items, lines)
	return Summary{
		Items:      items,
		TotalItems: totals.TotalItems,
		TotalPrice: totals.TotalPrice,
		IsEmpty:    len(lines) == 0,
		LineCount:  len(lines),
	}
}

// LineTotal は明細の小計を返す。
func LineTotal(line model.CartLine) model.Money {
	return line.Subtotal()
}

// Order は明細一覧と税率から注文金額の内訳を計算する。
// 税額はセント単位で四捨五入する。送料は常に無料。
func Order(lines []model.CartLine, taxRateBPS int) OrderSummary {
	if taxRateBPS < 0 {
		taxRateBPS = 0
	}
	subtotal := model.SumTotals(lines).TotalPrice
	tax := taxOf(subtotal, taxRateBPS)
	return OrderSummary{
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     0,
		Total:        subtotal + tax,
		TaxRateBPS:   taxRateBPS,
		FreeShipping: true,
	}
}

func taxOf(subtotal model.Money, bps int) model.Money {
	v := int64(subtotal) * int64(bps)
	if v >= 0 {
		return model.Money((v + 5000) / 10000)
	}
	return model.Money(-((-v + 5000) / 10000))
}

// UserRole はセッションのロールを返す。プロフィール未取得の場合はuser。
func UserRole(s model.Session) model.Role {
	if s.Profile == nil || s.Profile.Role == "" {
		return model.RoleUser
	}
	return s.Profile.Role
}

// IsAuthenticated はセッションにトークンがあるかを返す。
func IsAuthenticated(s model.Session) bool {
	return s.Token != ""
}

// IsAdmin はセッションのロールがadminかを返す。
func IsAdmin(s model.Session) bool {
	return s.Profile != nil && s.Profile.Role == model.RoleAdmin
}

// CurrentUser はプロフィール情報のビュー。
type CurrentUser struct {
	Authenticated   bool           `json:"authenticated"`
	ProfileResolved bool           `json:"profileResolved"`
	Profile         *model.Profile `json:"profile,omitempty"`
	Role            model.Role     `json:"role"`
	IsAdmin         bool           `json:"isAdmin"`
}

// User はセッションから現在のユーザー情報ビューを生成する。
func User(s model.Session) CurrentUser {
	return CurrentUser{
		Authenticated:   IsAuthenticated(s),
		ProfileResolved: s.ProfileResolved,
		Profile:         s.Profile,
		Role:            UserRole(s),
		IsAdmin:         IsAdmin(s),
	}
}
