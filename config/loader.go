// =============================================================================
// 📦 ProSearch 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("PROSEARCH").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ProSearch 的完整配置结构
type Config struct {
	// Research 调研循环配置
	Research ResearchConfig `yaml:"research" env:"RESEARCH"`

	// KnowledgeBase 本地知识库配置
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base" env:"KB"`

	// Embedding 向量嵌入配置
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Search 网络搜索配置
	Search SearchConfig `yaml:"search" env:"SEARCH"`

	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ResearchConfig 调研循环配置
type ResearchConfig struct {
	// 首轮生成的查询数上限
	InitialQueries int `yaml:"initial_queries" env:"INITIAL_QUERIES"`
	// 反思次数上限（含等于，到达即收束）
	MaxLoops int `yaml:"max_loops" env:"MAX_LOOPS"`
	// 是否对每条查询的证据做模型摘要
	SearchSummary bool `yaml:"search_summary" env:"SEARCH_SUMMARY"`
	// 反思/合成提示词的证据 token 预算，0 表示不限制
	EvidenceTokenBudget int `yaml:"evidence_token_budget" env:"EVIDENCE_TOKEN_BUDGET"`
}

// KnowledgeBaseConfig 知识库配置
type KnowledgeBaseConfig struct {
	// 是否启用知识库检索
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 数据文件路径（CSV / XLSX）
	Paths []string `yaml:"paths" env:"PATHS"`
	// 索引缓存目录
	CacheDir string `yaml:"cache_dir" env:"CACHE_DIR"`
	// 每条查询取回的记录数
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 低于该分数的命中被丢弃，0 表示不过滤
	MinScore float64 `yaml:"min_score" env:"MIN_SCORE"`
}

// EmbeddingConfig 嵌入配置
type EmbeddingConfig struct {
	// 后端类型: dashscope, local
	Backend string `yaml:"backend" env:"BACKEND"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// API Key（dashscope 后端必填）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次请求的文本数上限
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// 向量维度（local 后端使用）
	Dimensions int `yaml:"dimensions" env:"DIMENSIONS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SearchConfig 网络搜索配置
type SearchConfig struct {
	// API Key（为空时禁用网络搜索）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 每条查询的结果数上限
	MaxResults int `yaml:"max_results" env:"MAX_RESULTS"`
	// 搜索深度: basic, advanced
	Depth string `yaml:"depth" env:"DEPTH"`
	// 时间范围（可选）: day, week, month, year
	TimeRange string `yaml:"time_range" env:"TIME_RANGE"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每分钟请求数上限
	RatePerMinute int `yaml:"rate_per_minute" env:"RATE_PER_MINUTE"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// API Key（为空时退化为本地确定性模式）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 指标暴露地址（为空时不启动 HTTP 端点）
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PROSEARCH",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证调研配置
	if c.Research.InitialQueries <= 0 {
		errs = append(errs, "research.initial_queries must be positive")
	}
	if c.Research.MaxLoops <= 0 {
		errs = append(errs, "research.max_loops must be positive")
	}

	// 验证知识库配置
	if c.KnowledgeBase.Enabled && len(c.KnowledgeBase.Paths) == 0 {
		errs = append(errs, "knowledge_base.paths must not be empty when the knowledge base is enabled")
	}
	if c.KnowledgeBase.TopK <= 0 {
		errs = append(errs, "knowledge_base.top_k must be positive")
	}

	// 验证嵌入配置
	switch c.Embedding.Backend {
	case "dashscope":
		if c.Embedding.APIKey == "" {
			errs = append(errs, "embedding.api_key is required for the dashscope backend")
		}
	case "local":
		if c.Embedding.Dimensions <= 0 {
			errs = append(errs, "embedding.dimensions must be positive for the local backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown embedding backend: %s", c.Embedding.Backend))
	}

	// 验证 LLM 配置
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
