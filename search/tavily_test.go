package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTavilyClient_ImplementsProvider(t *testing.T) {
	var _ Provider = (*TavilyClient)(nil)
}

func TestTavilyClient_Search(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "advanced", req.SearchDepth)
		assert.Equal(t, 8, req.MaxResults)
		assert.False(t, req.IncludeAnswer)

		require.NoError(t, json.NewEncoder(w).Encode(tavilyResponse{Results: []Result{
			{Title: "Chip fab expansion", URL: "https://example.com/fab", Content: "snippet", Score: 0.92},
		}}))
	}))
	defer srv.Close()

	c := NewTavilyClient(TavilyConfig{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	results, err := c.Search(context.Background(), "chip fabs", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Chip fab expansion", results[0].Title)
}

func TestTavilyClient_EmptyResultsIsNotAnError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(tavilyResponse{}))
	}))
	defer srv.Close()

	c := NewTavilyClient(TavilyConfig{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	results, err := c.Search(context.Background(), "obscure topic", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTavilyClient_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTavilyClient(TavilyConfig{APIKey: "bad", BaseURL: srv.URL}, zap.NewNop())
	_, err := c.Search(context.Background(), "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTavilyClient_RateLimiterHonorsContext(t *testing.T) {
	t.Parallel()
	c := NewTavilyClient(TavilyConfig{APIKey: "k", RatePerMinute: 1}, zap.NewNop())
	// 一个已取消的上下文必须立刻从限流等待中返回.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 先消耗突发配额, 再在取消的上下文下等待.
	c.limiter.AllowN(time.Now(), 1)
	_, err := c.Search(ctx, "q", Options{})
	require.Error(t, err)
}
