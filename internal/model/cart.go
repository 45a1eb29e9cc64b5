package model

import "time"

// ProductSnapshot はカタログから取得した商品情報のスナップショット。
// カート追加時にそのまま取り込まれ、以後再取得はされない。
type ProductSnapshot struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Price       Money  `json:"price" yaml:"price"`
	Category    string `json:"category" yaml:"category"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
}

// CartLine はカート内の1商品（明細）を表す。
// 同一ProductIDの明細は1つのみ存在し、Quantityは常に1以上。
type CartLine struct {
	ProductID string    `json:"productId"`
	UnitPrice Money     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	Category  string    `json:"category"`
	AddedAt   time.Time `json:"addedAt"`
}

// Subtotal は明細の小計（単価×数量）を返す。
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// Totals はカートの集計値を表す。
type Totals struct {
	TotalItems int   `json:"totalItems"`
	TotalPrice Money `json:"totalPrice"`
}

// SumTotals は明細一覧から集計値を計算する。
func SumTotals(lines []CartLine) Totals {
	var t Totals
	for _, l := range lines {
		t.TotalItems += l.Quantity
		t.TotalPrice += l.Subtotal()
	}
	return t
}
