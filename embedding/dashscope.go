package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// dashScopeMaxBatch DashScope 向量接口单批最大条数 (平台硬限制).
const dashScopeMaxBatch = 10

const defaultDashScopeBaseURL = "https://dashscope.aliyuncs.com/api/v1"

// DashScopeConfig 配置 DashScope 嵌入提供者.
type DashScopeConfig struct {
	APIKey    string        `json:"api_key" yaml:"api_key"`
	Model     string        `json:"model" yaml:"model"`         // e.g. "text-embedding-v3"
	BaseURL   string        `json:"base_url" yaml:"base_url"`   // Override for testing
	BatchSize int           `json:"batch_size" yaml:"batch_size"` // Clamped to [1, 10]
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// DashScopeProvider 基于 DashScope 批量接口的远端嵌入提供者.
// Embed 可以被多个 goroutine 并发调用.
type DashScopeProvider struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	dims      atomic.Int32 // 由首个成功响应置位一次
	logger    *zap.Logger
}

// NewDashScopeProvider 创建 DashScope 嵌入提供者.
func NewDashScopeProvider(cfg DashScopeConfig, logger *zap.Logger) *DashScopeProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultDashScopeBaseURL
	}
	batch := cfg.BatchSize
	if batch < 1 {
		batch = dashScopeMaxBatch
	}
	if batch > dashScopeMaxBatch {
		batch = dashScopeMaxBatch
	}
	return &DashScopeProvider{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: batch,
		logger:    logger,
	}
}

func (p *DashScopeProvider) Name() string      { return "dashscope" }
func (p *DashScopeProvider) Model() string     { return p.model }
func (p *DashScopeProvider) Dimensions() int   { return int(p.dims.Load()) }
func (p *DashScopeProvider) MaxBatchSize() int { return p.batchSize }

// embeddingRequest 是 DashScope text-embedding 接口的请求体.
type embeddingRequest struct {
	Model string `json:"model"`
	Input struct {
		Texts []string `json:"texts"`
	} `json:"input"`
}

// embeddingResponse 是 DashScope text-embedding 接口的响应体.
type embeddingResponse struct {
	Output struct {
		Embeddings []struct {
			TextIndex int       `json:"text_index"`
			Embedding []float32 `json:"embedding"`
		} `json:"embeddings"`
	} `json:"output"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Embed 为输入文本生成归一化向量.
// 输入被切为不超过 10 条的批次; 每批结果按 text_index 排序后拼接,
// 保证输出顺序与输入一致.
func (p *DashScopeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) > 0 {
		p.dims.CompareAndSwap(0, int32(len(vectors[0])))
	}
	normalizeRows(vectors)
	return vectors, nil
}

// embedBatch 发送单个批次请求.
func (p *DashScopeProvider) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	reqBody := embeddingRequest{Model: p.model}
	reqBody.Input.Texts = batch

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/services/embeddings/text-embedding/text-embedding", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashscope embedding call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("dashscope embedding request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Int("batch_size", len(batch)))
		return nil, fmt.Errorf("dashscope embedding status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(parsed.Output.Embeddings) != len(batch) {
		return nil, fmt.Errorf("dashscope returned %d embeddings for %d inputs",
			len(parsed.Output.Embeddings), len(batch))
	}

	// 远端可能乱序返回, 按 text_index 还原请求顺序.
	items := parsed.Output.Embeddings
	sort.Slice(items, func(i, j int) bool { return items[i].TextIndex < items[j].TextIndex })

	out := make([][]float32, len(items))
	for i, item := range items {
		out[i] = item.Embedding
	}
	return out, nil
}
