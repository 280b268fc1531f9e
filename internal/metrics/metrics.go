// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordSynthesis(result string, duration time.Duration)
	RecordProfileCreated()
	RecordCheckout(result string)
	RecordCatalogFetchFailure(catalog string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	synthesis        *prometheus.CounterVec
	synthesisLatency prometheus.Histogram
	profilesCreated  prometheus.Counter
	checkoutSessions *prometheus.CounterVec
	catalogFetchFail *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxly_synthesis_total",
			Help: "音声合成リクエストの結果別の合計数",
		}, []string{"result"}),
		synthesisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxly_synthesis_latency_seconds",
			Help:    "音声合成エンドポイントのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}),
		profilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxly_profiles_created_total",
			Help: "新規作成されたプロフィールの合計数",
		}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxly_checkout_sessions_total",
			Help: "決済セッション作成の結果別の合計数",
		}, []string{"result"}),
		catalogFetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxly_catalog_fetch_fail_total",
			Help: "モデルカタログ取得失敗の合計数",
		}, []string{"catalog"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxly_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.synthesis,
		c.synthesisLatency,
		c.profilesCreated,
		c.checkoutSessions,
		c.catalogFetchFail,
		c.httpStatus,
	)

	return c
}

// RecordSynthesis は音声合成の結果とレイテンシを記録する。
// スキップされたリクエストのレイテンシは記録しない。
func (c *Collector) RecordSynthesis(result string, duration time.Duration) {
	c.synthesis.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		c.synthesisLatency.Observe(duration.Seconds())
	}
}

// RecordProfileCreated はプロフィール作成を記録する。
func (c *Collector) RecordProfileCreated() {
	c.profilesCreated.Inc()
}

// RecordCheckout は決済セッション作成の結果を記録する。
func (c *Collector) RecordCheckout(result string) {
	c.checkoutSessions.WithLabelValues(result).Inc()
}

// RecordCatalogFetchFailure はカタログ取得失敗を記録する。
func (c *Collector) RecordCatalogFetchFailure(catalog string) {
	c.catalogFetchFail.WithLabelValues(catalog).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordSynthesis(string, time.Duration) {}
func (NopCollector) RecordProfileCreated()                 {}
func (NopCollector) RecordCheckout(string)                 {}
func (NopCollector) RecordCatalogFetchFailure(string)      {}
func (NopCollector) RecordHTTPStatus(int)                  {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
