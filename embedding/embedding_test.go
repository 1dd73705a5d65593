package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = (*LocalProvider)(nil)
}

func TestDashScopeProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = (*DashScopeProvider)(nil)
}

func TestLocalProvider_EmptyInput(t *testing.T) {
	t.Parallel()
	p := NewLocalProvider("test-model", 0)

	m, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLocalProvider_SingleInputIsMatrix(t *testing.T) {
	t.Parallel()
	p := NewLocalProvider("test-model", 64)

	m, err := p.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, m, 1)
	assert.Len(t, m[0], 64)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	t.Parallel()
	p := NewLocalProvider("test-model", 128)

	a, err := p.Embed(context.Background(), []string{"semiconductor chips"})
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), []string{"semiconductor chips"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocalProvider_RowsAreNormalized(t *testing.T) {
	t.Parallel()
	p := NewLocalProvider("test-model", 128)

	m, err := p.Embed(context.Background(), []string{"alpha beta gamma", "钢铁 行业"})
	require.NoError(t, err)
	for i, row := range m {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4, "row %d", i)
	}
}

func TestLocalProvider_SimilarTextScoresHigher(t *testing.T) {
	t.Parallel()
	p := NewLocalProvider("test-model", 256)

	m, err := p.Embed(context.Background(), []string{
		"name: A | industry: chips",
		"name: B | industry: steel",
		"chips",
	})
	require.NoError(t, err)

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	assert.Greater(t, dot(m[2], m[0]), dot(m[2], m[1]),
		"query sharing a token must outscore an unrelated row")
}

// fakeDashScope 模拟 DashScope 批量嵌入端点.
func fakeDashScope(t *testing.T, calls *atomic.Int64, batchSizes *[]int, shuffle bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*batchSizes = append(*batchSizes, len(req.Input.Texts))

		var resp embeddingResponse
		for i, text := range req.Input.Texts {
			resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
				TextIndex int       `json:"text_index"`
				Embedding []float32 `json:"embedding"`
			}{TextIndex: i, Embedding: []float32{float32(len(text)), 1}})
		}
		if shuffle && len(resp.Output.Embeddings) > 1 {
			// 模拟远端乱序返回
			resp.Output.Embeddings[0], resp.Output.Embeddings[1] =
				resp.Output.Embeddings[1], resp.Output.Embeddings[0]
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestDashScopeProvider_BatchesCapAtTen(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	var batchSizes []int
	srv := fakeDashScope(t, &calls, &batchSizes, false)
	defer srv.Close()

	p := NewDashScopeProvider(DashScopeConfig{
		APIKey:    "test-key",
		Model:     "text-embedding-v3",
		BaseURL:   srv.URL,
		BatchSize: 99, // must be clamped to the provider limit
	}, zap.NewNop())

	texts := make([]string, 23)
	for i := range texts {
		texts[i] = "row"
	}
	m, err := p.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, m, 23)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, []int{10, 10, 3}, batchSizes)
}

func TestDashScopeProvider_RestoresOrderByTextIndex(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	var batchSizes []int
	srv := fakeDashScope(t, &calls, &batchSizes, true)
	defer srv.Close()

	p := NewDashScopeProvider(DashScopeConfig{
		APIKey:  "test-key",
		Model:   "text-embedding-v3",
		BaseURL: srv.URL,
	}, zap.NewNop())

	// 两条长度不同的文本: 伪向量首个分量编码文本长度, 用它断言顺序.
	m, err := p.Embed(context.Background(), []string{"ab", "abcdef"})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Less(t, m[0][0], m[1][0], "shorter text must stay first despite shuffled response")
}

// 并发 Embed 必须在 -race 下干净: 维度只从首个成功响应置位一次.
func TestDashScopeProvider_ConcurrentEmbed(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var resp embeddingResponse
		for i := range req.Input.Texts {
			resp.Output.Embeddings = append(resp.Output.Embeddings, struct {
				TextIndex int       `json:"text_index"`
				Embedding []float32 `json:"embedding"`
			}{TextIndex: i, Embedding: []float32{1, 2, 3}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	p := NewDashScopeProvider(DashScopeConfig{
		APIKey:  "test-key",
		Model:   "text-embedding-v3",
		BaseURL: srv.URL,
	}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := p.Embed(context.Background(), []string{"a", "b"})
			assert.NoError(t, err)
			assert.Len(t, m, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, p.Dimensions())
}

func TestDashScopeProvider_EmptyInput(t *testing.T) {
	t.Parallel()
	p := NewDashScopeProvider(DashScopeConfig{APIKey: "k", Model: "m"}, zap.NewNop())

	m, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestDashScopeProvider_NonSuccessStatusFailsLoudly(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"Throttling","message":"rate exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewDashScopeProvider(DashScopeConfig{
		APIKey:  "test-key",
		Model:   "text-embedding-v3",
		BaseURL: srv.URL,
	}, zap.NewNop())

	_, err := p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
