package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/notify"
)

const (
	// eventBufferSize は1接続あたりの未送信イベントの上限。超えた分は破棄する。
	eventBufferSize = 16
	// defaultHeartbeat はコメント行によるキープアライブの送信間隔。
	defaultHeartbeat = 25 * time.Second
)

// EventsHandler はストアの変更通知をServer-Sent Eventsで配信する。
// 通知には変更されたトピックのみを含み、UIは通知を受けてから最新の状態を取得する。
type EventsHandler struct {
	source    EventSource
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewEventsHandler はEventsHandlerを生成する。heartbeatが0以下の場合は既定値を使う。
func NewEventsHandler(source EventSource, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{source: source, heartbeat: heartbeat, logger: logger}
}

// Stream はクライアントが切断するまでイベントを送信する。
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteInternalServerError(w)
		return
	}

	// 購読者はストアの更新処理中に呼ばれるためブロックしてはならない
	events := make(chan notify.Event, eventBufferSize)
	unsubscribe := h.source.Subscribe(func(e notify.Event) {
		select {
		case events <- e:
		default:
			h.logger.Warn("dropping event for slow SSE client", slog.String("topic", e.Topic))
		}
	})
	defer unsubscribe()

	// サーバーのWriteTimeoutでストリームが切断されないようにする
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("failed to encode event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Version, e.Topic, data)
			flusher.Flush()
		}
	}
}
