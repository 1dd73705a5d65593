// =============================================================================
// 📦 ProSearch 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Research:      DefaultResearchConfig(),
		KnowledgeBase: DefaultKnowledgeBaseConfig(),
		Embedding:     DefaultEmbeddingConfig(),
		Search:        DefaultSearchConfig(),
		LLM:           DefaultLLMConfig(),
		Log:           DefaultLogConfig(),
		Metrics:       DefaultMetricsConfig(),
	}
}

// DefaultResearchConfig 返回默认调研循环配置
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		InitialQueries:      3,
		MaxLoops:            2,
		SearchSummary:       true,
		EvidenceTokenBudget: 24000,
	}
}

// DefaultKnowledgeBaseConfig 返回默认知识库配置
func DefaultKnowledgeBaseConfig() KnowledgeBaseConfig {
	return KnowledgeBaseConfig{
		Enabled:  false,
		Paths:    nil,
		CacheDir: ".prosearch/kb_cache",
		TopK:     5,
		MinScore: 0,
	}
}

// DefaultEmbeddingConfig 返回默认嵌入配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Backend:    "local",
		Model:      "text-embedding-v3",
		APIKey:     "",
		BaseURL:    "",
		BatchSize:  10,
		Dimensions: 256,
		Timeout:    30 * time.Second,
	}
}

// DefaultSearchConfig 返回默认网络搜索配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		APIKey:        "",
		BaseURL:       "",
		MaxResults:    8,
		Depth:         "advanced",
		TimeRange:     "",
		Timeout:       15 * time.Second,
		RatePerMinute: 60,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "qwen-plus",
		APIKey:      "",
		BaseURL:     "",
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
		MaxRetries:  3,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		Namespace:  "prosearch",
		ListenAddr: "",
	}
}
