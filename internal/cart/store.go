// Package cart はカート明細を保持する状態コンテナを提供する。
// I/Oは行わず、認証の確認は呼び出し側（gateway）の責務とする。
package cart

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/notify"
)

// Store はカート明細を追加順に保持する。
// 同一ProductIDの明細は1つのみで、数量は常に1以上。
type Store struct {
	mu    sync.RWMutex
	lines []model.CartLine

	hub    *notify.Hub
	logger *slog.Logger
	now    func() time.Time
}

// NewStore は空のStoreを生成する。hubがnilの場合は通知を行わない。
func NewStore(hub *notify.Hub, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// AddLine は商品をカートに追加し、追加後の明細を返す。
// 既に同じ商品の明細がある場合は数量を加算する。価格と表示情報は最初に追加した時点のものを維持する。
// quantityが1未満の場合はINVALID_QUANTITY、商品データが不正な場合はINVALID_PRODUCTを返す。
func (s *Store) AddLine(product model.ProductSnapshot, quantity int) (model.CartLine, error) {
	if quantity < 1 {
		return model.CartLine{}, model.NewInvalidQuantityError(quantity)
	}
	if product.ID == "" {
		return model.CartLine{}, model.NewInvalidProductError("商品IDが空です")
	}
	if product.Price < 0 {
		return model.CartLine{}, model.NewInvalidProductError("価格が負の値です")
	}

	s.mu.Lock()
	var line model.CartLine
	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
		line = s.lines[i]
	} else {
		line = model.CartLine{
			ProductID: product.ID,
			UnitPrice: product.Price,
			Quantity:  quantity,
			Title:     product.Title,
			Image:     product.Image,
			Category:  product.Category,
			AddedAt:   s.now(),
		}
		s.lines = append(s.lines, line)
	}
	s.mu.Unlock()

	s.logger.Debug("cart line added",
		slog.String("product_id", product.ID),
		slog.Int("quantity", line.Quantity),
	)
	s.publish()
	return line, nil
}

// RemoveLine は明細を削除する。存在しない場合は何もしない。
// 削除した場合にtrueを返す。
func (s *Store) RemoveLine(productID string) bool {
	s.mu.Lock()
	removed := s.removeLocked(productID)
	s.mu.Unlock()

	if removed {
		s.logger.Debug("cart line removed", slog.String("product_id", productID))
		s.publish()
	}
	return removed
}

// SetQuantity は明細の数量を置き換える。
// quantityが0以下の場合はRemoveLineと同じ動作となり、nilを返す。
// 明細が存在せずquantityが1以上の場合はLINE_NOT_FOUNDを返す（暗黙の追加は行わない）。
func (s *Store) SetQuantity(productID string, quantity int) (*model.CartLine, error) {
	if quantity <= 0 {
		s.RemoveLine(productID)
		return nil, nil
	}

	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return nil, model.NewLineNotFoundError(productID)
	}
	changed := s.lines[i].Quantity != quantity
	s.lines[i].Quantity = quantity
	line := s.lines[i]
	s.mu.Unlock()

	if changed {
		s.logger.Debug("cart quantity updated",
			slog.String("product_id", productID),
			slog.Int("quantity", quantity),
		)
		s.publish()
	}
	return &line, nil
}

// Clear はカートを空にする。既に空の場合は何もしない。
func (s *Store) Clear() {
	s.mu.Lock()
	hadLines := len(s.lines) > 0
	s.lines = nil
	s.mu.Unlock()

	if hadLines {
		s.logger.Debug("cart cleared")
		s.publish()
	}
}

// Totals は現在の明細から合計数量と合計金額を計算する。
func (s *Store) Totals() model.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.SumTotals(s.lines)
}

// Lines は明細のコピーを追加順で返す。
func (s *Store) Lines() []model.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line は指定商品の明細を返す。存在しない場合はokがfalse。
func (s *Store) Line(productID string) (model.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return model.CartLine{}, false
}

// Subscribe はカート変更の通知を購読する。
func (s *Store) Subscribe(fn func(notify.Event)) func() {
	if s.hub == nil {
		return func() {}
	}
	return s.hub.SubscribeTopic(notify.TopicCart, fn)
}

func (s *Store) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) bool {
	i := s.indexOf(productID)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return true
}

func (s *Store) publish() {
	if s.hub != nil {
		s.hub.Publish(notify.TopicCart)
	}
}
