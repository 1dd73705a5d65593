package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := newTestCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.researchRunsTotal)
	assert.NotNil(t, collector.researchLoopsTotal)
	assert.NotNil(t, collector.queriesTotal)
	assert.NotNil(t, collector.webSearchErrors)
	assert.NotNil(t, collector.kbCacheHits)
	assert.NotNil(t, collector.llmRequestsTotal)
}

func TestCollector_RecordResearchRun(t *testing.T) {
	collector := newTestCollector()

	// 记录两次运行
	collector.RecordResearchRun("ok", 2*time.Second, 2)
	collector.RecordResearchRun("ok", 1*time.Second, 1)

	count := testutil.ToFloat64(collector.researchRunsTotal.WithLabelValues("ok"))
	assert.Equal(t, 2.0, count)

	loops := testutil.ToFloat64(collector.researchLoopsTotal)
	assert.Equal(t, 3.0, loops)
}

func TestCollector_RecordQueryDispatched(t *testing.T) {
	collector := newTestCollector()

	collector.RecordQueryDispatched("initial")
	collector.RecordQueryDispatched("initial")
	collector.RecordQueryDispatched("follow_up")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("initial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("follow_up")))
}

func TestCollector_RecordWebSearchError(t *testing.T) {
	collector := newTestCollector()

	collector.RecordWebSearchError()
	collector.RecordWebSearchError()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.webSearchErrors))
}

func TestCollector_RecordKBCache(t *testing.T) {
	collector := newTestCollector()

	collector.RecordKBCacheHit("dashscope")
	collector.RecordKBCacheMiss("dashscope")
	collector.RecordKBCacheMiss("local")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.kbCacheHits.WithLabelValues("dashscope")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.kbCacheMisses.WithLabelValues("dashscope")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.kbCacheMisses.WithLabelValues("local")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := newTestCollector()

	collector.RecordLLMRequest("dashscope", "success", 500*time.Millisecond)

	count := testutil.CollectAndCount(collector.llmRequestsTotal)
	assert.Greater(t, count, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("dashscope", "success")))
}

func TestCollector_NilReceiverIsNoop(t *testing.T) {
	var collector *Collector

	// nil 接收者不应该 panic
	collector.RecordResearchRun("ok", time.Second, 1)
	collector.RecordQueryDispatched("initial")
	collector.RecordWebSearchError()
	collector.RecordKBCacheHit("local")
	collector.RecordKBCacheMiss("local")
	collector.RecordEmbedding("local", time.Millisecond)
	collector.RecordLLMRequest("dashscope", "success", time.Second)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector()

	// 并发记录多个指标
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordQueryDispatched("initial")
			collector.RecordWebSearchError()
			collector.RecordKBCacheHit("local")
			done <- true
		}()
	}

	// 等待所有 goroutine 完成
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.queriesTotal.WithLabelValues("initial")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.webSearchErrors))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.kbCacheHits.WithLabelValues("local")))
}
