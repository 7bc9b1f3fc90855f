// Package metrics 定义推荐链路的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 丢弃原因
const (
	ReasonUnknownItem    = "unknown_item"    // 冷启动物品没有训练编码
	ReasonUnmatchedTitle = "unmatched_title" // 外部目录片名在内部片库中找不到
	ReasonNoCrosswalk    = "no_crosswalk"    // 外部 id 没有映射
	ReasonNoMetadata     = "no_metadata"     // 结果缺少展示元数据
)

// 推荐路径
const (
	PathKnownUser      = "known_user"
	PathColdStart      = "cold_start"
	PathPopularity     = "popularity_fallback"
	PathPreferenceText = "preference_text"
	PathExplicitItems  = "explicit_items"
)

var (
	// DroppedItems 被静默丢弃的输入项，数据质量的观测口径
	DroppedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_dropped_items_total",
			Help: "Total number of input items silently dropped during recommendation",
		},
		[]string{"reason"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_recommendations_total",
			Help: "Total number of recommendation requests by path",
		},
		[]string{"path"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_recommend_duration_seconds",
			Help:    "Duration of recommendation operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// NodeDuration 单个 Pipeline 节点耗时
	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_pipeline_node_duration_seconds",
			Help:    "Duration of a single pipeline node in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"kind", "node"},
	)

	// EmbeddingRequests status: ok / error / rejected（熔断打开）
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_embedding_requests_total",
			Help: "Total number of embedding backend requests by status",
		},
		[]string{"status"},
	)

	// EmbeddingCache 查询向量缓存命中情况，result: hit / miss
	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_embedding_cache_total",
			Help: "Query embedding cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordDropped 记录 n 个被丢弃的输入项，n <= 0 时忽略。
func RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	DroppedItems.WithLabelValues(reason).Add(float64(n))
}
