// Package notify はストアの変更通知を購読者へ配信するハブを提供する。
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 通知トピック
const (
	TopicCart    = "cart.changed"
	TopicSession = "session.changed"
)

// Event はストアの状態が変化したことを表す通知。
// Versionはトピックごとに単調増加する。
type Event struct {
	Topic   string    `json:"topic"`
	At      time.Time `json:"at"`
	Version uint64    `json:"version"`
}

type subscriber struct {
	id string
	fn func(Event)
}

// Hub は購読者の登録と通知の配信を行う。
// 購読者は登録順に同期的に呼び出される。
type Hub struct {
	mu       sync.Mutex
	subs     []subscriber
	versions map[string]uint64
	logger   *slog.Logger
	now      func() time.Time
}

// NewHub は新しいHubを生成する。
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		versions: make(map[string]uint64),
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe は購読者を登録し、登録解除関数を返す。
// 登録解除関数は何度呼び出してもよい。
func (h *Hub) Subscribe(fn func(Event)) func() {
	id := uuid.New().String()

	h.mu.Lock()
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

// SubscribeTopic は指定トピックの通知のみを受け取る購読者を登録する。
func (h *Hub) SubscribeTopic(topic string, fn func(Event)) func() {
	return h.Subscribe(func(e Event) {
		if e.Topic == topic {
			fn(e)
		}
	})
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish はトピックの通知を全購読者へ配信する。
// 購読者のパニックは回復してログに記録し、残りの購読者への配信を続ける。
func (h *Hub) Publish(topic string) Event {
	h.mu.Lock()
	h.versions[topic]++
	e := Event{Topic: topic, At: h.now(), Version: h.versions[topic]}
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		h.deliver(s, e)
	}
	return e
}

func (h *Hub) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("subscriber panic recovered",
				slog.String("topic", e.Topic),
				slog.String("subscriber_id", s.id),
				slog.Any("panic", r),
			)
		}
	}()
	s.fn(e)
}

// Len は現在の購読者数を返す。
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
