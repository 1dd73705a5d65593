// =============================================================================
// ProSearch 主入口
// =============================================================================
// 命令行调研助手: 迭代式网络搜索 + 本地知识库检索 + 带引用的答案合成
//
// 使用方法:
//
//	prosearch run --topic "量子纠错的最新进展"      # 执行一次调研
//	prosearch run --config config.yaml --topic "..."  # 指定配置文件
//	prosearch version                                 # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/prosearch/config"
	"github.com/BaSui01/prosearch/embedding"
	"github.com/BaSui01/prosearch/internal/metrics"
	"github.com/BaSui01/prosearch/kb"
	"github.com/BaSui01/prosearch/llm"
	"github.com/BaSui01/prosearch/research"
	"github.com/BaSui01/prosearch/search"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runResearch(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🔍 run 命令
// =============================================================================

func runResearch(args []string) {
	// 解析命令行参数
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	topic := fs.String("topic", "", "Research topic")
	fs.Parse(args)

	if *topic == "" && fs.NArg() > 0 {
		*topic = fs.Arg(0)
	}
	if *topic == "" {
		fmt.Fprintln(os.Stderr, "A research topic is required (--topic or positional argument)")
		os.Exit(1)
	}

	// 加载配置
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting ProSearch",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// 初始化指标
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, nil, logger)
		if cfg.Metrics.ListenAddr != "" {
			go serveMetrics(cfg.Metrics.ListenAddr, logger)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 构建知识库
	var store *kb.Store
	if cfg.KnowledgeBase.Enabled {
		registry := kb.NewRegistry(logger)
		store, err = registry.Get(kb.StoreConfig{
			Paths:    cfg.KnowledgeBase.Paths,
			CacheDir: cfg.KnowledgeBase.CacheDir,
		}, buildEmbeddingProvider(cfg.Embedding, collector, logger))
		if err != nil {
			logger.Fatal("Failed to build knowledge base", zap.Error(err))
		}
		if store.FromCache() {
			collector.RecordKBCacheHit(cfg.Embedding.Backend)
		} else {
			collector.RecordKBCacheMiss(cfg.Embedding.Backend)
		}
		logger.Info("Knowledge base ready",
			zap.Int("records", store.Len()),
			zap.Bool("from_cache", store.FromCache()))
	}

	// 构建网络搜索
	var web search.Provider
	if cfg.Search.APIKey != "" {
		web = search.NewTavilyClient(search.TavilyConfig{
			APIKey:        cfg.Search.APIKey,
			BaseURL:       cfg.Search.BaseURL,
			Timeout:       cfg.Search.Timeout,
			RatePerMinute: cfg.Search.RatePerMinute,
		}, logger)
	} else {
		logger.Warn("No search API key configured, web evidence disabled")
	}

	// 构建合成器
	synth := buildSynthesizer(cfg.LLM, collector, logger)

	// 执行调研
	controller := research.NewController(research.Config{
		InitialQueries:      cfg.Research.InitialQueries,
		MaxLoops:            cfg.Research.MaxLoops,
		KBEnabled:           cfg.KnowledgeBase.Enabled,
		KBTopK:              cfg.KnowledgeBase.TopK,
		KBMinScore:          cfg.KnowledgeBase.MinScore,
		SearchSummary:       cfg.Research.SearchSummary,
		EvidenceTokenBudget: cfg.Research.EvidenceTokenBudget,
		WebOptions: search.Options{
			MaxResults: cfg.Search.MaxResults,
			Depth:      cfg.Search.Depth,
			TimeRange:  cfg.Search.TimeRange,
		},
	}, synth, web, store, collector, logger)

	result, err := controller.Run(ctx, *topic)
	if err != nil {
		logger.Fatal("Research run failed", zap.Error(err))
	}

	printResult(result)
}

// buildEmbeddingProvider 根据配置选择嵌入后端
func buildEmbeddingProvider(cfg config.EmbeddingConfig, collector *metrics.Collector, logger *zap.Logger) embedding.Provider {
	var provider embedding.Provider
	if cfg.Backend == "dashscope" {
		provider = embedding.NewDashScopeProvider(embedding.DashScopeConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		}, logger)
	} else {
		provider = embedding.NewLocalProvider(cfg.Model, cfg.Dimensions)
	}
	if collector == nil {
		return provider
	}
	return &timedEmbedder{Provider: provider, collector: collector}
}

// timedEmbedder 在嵌入调用外层记录耗时指标
type timedEmbedder struct {
	embedding.Provider
	collector *metrics.Collector
}

func (t *timedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := t.Provider.Embed(ctx, texts)
	t.collector.RecordEmbedding(t.Name(), time.Since(start))
	return vectors, err
}

// buildSynthesizer 有 API Key 时使用模型驱动的合成器，否则退化为本地确定性模式
func buildSynthesizer(cfg config.LLMConfig, collector *metrics.Collector, logger *zap.Logger) research.Synthesizer {
	if cfg.APIKey == "" {
		logger.Warn("No LLM API key configured, running in degraded deterministic mode")
		return research.NewLocalSynthesizer()
	}
	var gen llm.Generator = llm.NewDashScopeGenerator(llm.DashScopeConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, logger)
	if collector != nil {
		gen = &timedGenerator{Generator: gen, collector: collector}
	}
	return research.NewLLMSynthesizer(gen, llm.GenerateOptions{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	}, logger)
}

// timedGenerator 在生成调用外层记录请求数与耗时指标
type timedGenerator struct {
	llm.Generator
	collector *metrics.Collector
}

func (t *timedGenerator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	start := time.Now()
	reply, err := t.Generator.Generate(ctx, prompt, opts)
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.collector.RecordLLMRequest(t.Name(), status, time.Since(start))
	return reply, err
}

// serveMetrics 暴露 Prometheus 指标端点
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("Metrics endpoint stopped", zap.Error(err))
	}
}

// printResult 输出答案与引用来源
func printResult(result *research.Result) {
	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  - %s: %s\n", src.Label, src.Value)
		}
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("ProSearch %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`ProSearch - Research Assistant

Usage:
  prosearch <command> [options]

Commands:
  run       Run a research session
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --topic <text>    Research topic (or pass it as a positional argument)

Examples:
  prosearch run --topic "latest advances in quantum error correction"
  prosearch run --config /etc/prosearch/config.yaml --topic "..."
  prosearch version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	// 构建 logger
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
