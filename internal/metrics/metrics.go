// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// gateway、storefront、外部APIクライアントから利用する。
type MetricsCollector interface {
	RecordCartOperation(op, result string)
	RecordAuthEvent(event string)
	RecordCollaboratorRequest(collaborator, result string, duration time.Duration)
	SetCartItems(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cartOps       *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
	collabReqs    *prometheus.CounterVec
	collabLatency *prometheus.HistogramVec
	cartItems     prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "カート操作の結果別の合計数",
		}, []string{"op", "result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_events_total",
			Help: "ログイン・ログアウトなど認証イベントの合計数",
		}, []string{"event"}),
		collabReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_collaborator_requests_total",
			Help: "外部API（認証・カタログ）へのリクエスト結果別の合計数",
		}, []string{"collaborator", "result"}),
		collabLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_collaborator_latency_seconds",
			Help:    "外部APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"collaborator"}),
		cartItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "現在カートに入っている商品の合計数量",
		}),
	}

	reg.MustRegister(
		c.cartOps,
		c.authEvents,
		c.collabReqs,
		c.collabLatency,
		c.cartItems,
	)

	return c
}

// RecordCartOperation はカート操作の結果を記録する。
func (c *Collector) RecordCartOperation(op, result string) {
	c.cartOps.WithLabelValues(op, result).Inc()
}

// RecordAuthEvent は認証イベントを記録する。
func (c *Collector) RecordAuthEvent(event string) {
	c.authEvents.WithLabelValues(event).Inc()
}

// RecordCollaboratorRequest は外部APIリクエストの結果とレイテンシを記録する。
func (c *Collector) RecordCollaboratorRequest(collaborator, result string, duration time.Duration) {
	c.collabReqs.WithLabelValues(collaborator, result).Inc()
	c.collabLatency.WithLabelValues(collaborator).Observe(duration.Seconds())
}

// SetCartItems はカート内の合計数量を設定する。
func (c *Collector) SetCartItems(count int) {
	c.cartItems.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
