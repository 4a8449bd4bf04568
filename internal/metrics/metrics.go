// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する。
// HTTPレスポンス、IDプロバイダー呼び出し、セッションリフレッシュ、
// メッセージ操作を計測する。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerFail    *prometheus.CounterVec
	sessionRefresh  *prometheus.CounterVec
	messagesCreated prometheus.Counter
	messagesDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msgboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "msgboard_provider_request_seconds",
			Help:    "IDプロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		providerFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msgboard_provider_fail_total",
			Help: "IDプロバイダー呼び出し失敗の合計数",
		}, []string{"operation"}),
		sessionRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msgboard_session_refresh_total",
			Help: "セッションリフレッシュ試行の結果別合計数",
		}, []string{"outcome"}),
		messagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgboard_messages_created_total",
			Help: "作成されたメッセージの合計数",
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msgboard_messages_deleted_total",
			Help: "削除リクエストが処理されたメッセージの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.providerLatency,
		c.providerFail,
		c.sessionRefresh,
		c.messagesCreated,
		c.messagesDeleted,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProviderCall はIDプロバイダー呼び出しの所要時間と成否を記録する。
func (c *Collector) RecordProviderCall(operation string, err error, duration time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.providerFail.WithLabelValues(operation).Inc()
	}
}

// RecordSessionRefresh はセッションリフレッシュの結果を記録する。
func (c *Collector) RecordSessionRefresh(outcome string) {
	c.sessionRefresh.WithLabelValues(outcome).Inc()
}

// RecordMessageCreated はメッセージ作成を記録する。
func (c *Collector) RecordMessageCreated() {
	c.messagesCreated.Inc()
}

// RecordMessageDeleted はメッセージ削除を記録する。
func (c *Collector) RecordMessageDeleted() {
	c.messagesDeleted.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
