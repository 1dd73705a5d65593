package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// TavilyConfig configures the Tavily client.
type TavilyConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"` // Override for testing
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RatePerMinute caps outgoing search calls; 0 disables limiting.
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`
}

// DefaultTavilyConfig returns sensible defaults.
func DefaultTavilyConfig() TavilyConfig {
	return TavilyConfig{
		Timeout:       15 * time.Second,
		RatePerMinute: 60,
	}
}

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTavilyClient creates a Tavily search provider.
func NewTavilyClient(cfg TavilyConfig, logger *zap.Logger) *TavilyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	return &TavilyClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: limiter,
		logger:  logger,
	}
}

// Name returns the provider name.
func (c *TavilyClient) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	TimeRange         string `json:"time_range,omitempty"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search performs one Tavily search call.
func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tavily rate limit wait: %w", err)
		}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultOptions().MaxResults
	}
	depth := opts.Depth
	if depth == "" {
		depth = DefaultOptions().Depth
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: depth,
		MaxResults:  maxResults,
		TimeRange:   opts.TimeRange,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tavily response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	c.logger.Debug("tavily search completed",
		zap.String("query", query),
		zap.Int("results", len(parsed.Results)),
		zap.Duration("duration", time.Since(start)))
	return parsed.Results, nil
}
