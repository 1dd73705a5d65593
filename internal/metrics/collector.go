// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器. nil 接收者上的记录方法是空操作,
// 因此调用方可以不接指标直接传 nil.
type Collector struct {
	// 调研循环指标
	researchRunsTotal   *prometheus.CounterVec
	researchRunDuration *prometheus.HistogramVec
	researchLoopsTotal  prometheus.Counter
	queriesTotal        *prometheus.CounterVec

	// 搜索指标
	webSearchErrors prometheus.Counter

	// 知识库指标
	kbCacheHits       *prometheus.CounterVec
	kbCacheMisses     *prometheus.CounterVec
	embeddingDuration *prometheus.HistogramVec

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器. reg 为 nil 时使用默认注册表.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 调研循环指标
	c.researchRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_runs_total",
			Help:      "Total number of research runs",
		},
		[]string{"status"},
	)

	c.researchRunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_run_duration_seconds",
			Help:      "Research run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	c.researchLoopsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_loops_total",
			Help:      "Total number of reflection loops across all runs",
		},
	)

	c.queriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_dispatched_total",
			Help:      "Total number of evidence-gathering queries dispatched",
		},
		[]string{"kind"}, // kind: initial, follow_up
	)

	// 搜索指标
	c.webSearchErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "web_search_errors_total",
			Help:      "Total number of failed web search requests",
		},
	)

	// 知识库指标
	c.kbCacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kb_cache_hits_total",
			Help:      "Total number of knowledge base index cache hits",
		},
		[]string{"backend"},
	)

	c.kbCacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kb_cache_misses_total",
			Help:      "Total number of knowledge base index cache misses",
		},
		[]string{"backend"},
	)

	c.embeddingDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔁 调研循环指标记录
// =============================================================================

// RecordResearchRun 记录一次完整调研运行
func (c *Collector) RecordResearchRun(status string, duration time.Duration, loops int) {
	if c == nil {
		return
	}
	c.researchRunsTotal.WithLabelValues(status).Inc()
	c.researchRunDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.researchLoopsTotal.Add(float64(loops))
}

// RecordQueryDispatched 记录一条已派发的证据查询
func (c *Collector) RecordQueryDispatched(kind string) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(kind).Inc()
}

// =============================================================================
// 🔍 搜索指标记录
// =============================================================================

// RecordWebSearchError 记录一次失败的网络搜索
func (c *Collector) RecordWebSearchError() {
	if c == nil {
		return
	}
	c.webSearchErrors.Inc()
}

// =============================================================================
// 💾 知识库指标记录
// =============================================================================

// RecordKBCacheHit 记录知识库索引缓存命中
func (c *Collector) RecordKBCacheHit(backend string) {
	if c == nil {
		return
	}
	c.kbCacheHits.WithLabelValues(backend).Inc()
}

// RecordKBCacheMiss 记录知识库索引缓存未命中
func (c *Collector) RecordKBCacheMiss(backend string) {
	if c == nil {
		return
	}
	c.kbCacheMisses.WithLabelValues(backend).Inc()
}

// RecordEmbedding 记录一次嵌入请求
func (c *Collector) RecordEmbedding(provider string, duration time.Duration) {
	if c == nil {
		return
	}
	c.embeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
