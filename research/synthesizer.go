package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/prosearch/evidence"
	"github.com/BaSui01/prosearch/llm"
)

// Synthesizer 封装调研循环中所有依赖语言模型的决策点.
// 有模型时使用 llmSynthesizer; 未配置模型时退化为 localSynthesizer,
// 整个循环仍可端到端运行, 只是产出确定性的清单式结果.
type Synthesizer interface {
	// WriteQueries 为主题生成至多 n 条搜索查询.
	WriteQueries(ctx context.Context, topic string, n int) ([]string, error)
	// SummarizeWeb 把一条查询的网络证据压缩成带 [S#] 引用标记的摘要.
	SummarizeWeb(ctx context.Context, query, section string, sources []evidence.Source) (string, error)
	// SummarizeKB 把一条查询的知识库证据压缩成带 [K#] 引用标记的摘要.
	SummarizeKB(ctx context.Context, query, section string, sources []evidence.Source) (string, error)
	// Reflect 判断已有摘要是否足以回答主题, 不足则给出后续查询.
	Reflect(ctx context.Context, topic, summaries string) (Reflection, error)
	// ComposeAnswer 基于全部摘要合成最终答案.
	ComposeAnswer(ctx context.Context, topic, summaries string) (string, error)
}

// queryPlan 是查询生成的结构化输出.
type queryPlan struct {
	Rationale string   `json:"rationale"`
	Query     []string `json:"query"`
}

// llmSynthesizer 通过 llm.Generator 驱动每个决策点.
type llmSynthesizer struct {
	gen    llm.Generator
	opts   llm.GenerateOptions
	logger *zap.Logger
}

// NewLLMSynthesizer 创建由语言模型驱动的 Synthesizer.
func NewLLMSynthesizer(gen llm.Generator, opts llm.GenerateOptions, logger *zap.Logger) Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &llmSynthesizer{gen: gen, opts: opts, logger: logger}
}

func (s *llmSynthesizer) WriteQueries(ctx context.Context, topic string, n int) ([]string, error) {
	raw, err := s.gen.Generate(ctx, buildQueryWriterPrompt(topic, n), s.opts)
	if err != nil {
		return nil, fmt.Errorf("generate queries: %w", err)
	}
	var plan queryPlan
	if err := llm.ExtractJSON(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse query plan: %w", err)
	}
	queries := make([]string, 0, len(plan.Query))
	for _, q := range plan.Query {
		q = strings.TrimSpace(q)
		if q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) > n {
		queries = queries[:n]
	}
	return queries, nil
}

func (s *llmSynthesizer) SummarizeWeb(ctx context.Context, query, section string, _ []evidence.Source) (string, error) {
	out, err := s.gen.Generate(ctx, buildWebSearcherPrompt(query, section), s.opts)
	if err != nil {
		return "", fmt.Errorf("summarize web evidence: %w", err)
	}
	return out, nil
}

func (s *llmSynthesizer) SummarizeKB(ctx context.Context, query, section string, _ []evidence.Source) (string, error) {
	out, err := s.gen.Generate(ctx, buildKBSearcherPrompt(query, section), s.opts)
	if err != nil {
		return "", fmt.Errorf("summarize kb evidence: %w", err)
	}
	return out, nil
}

func (s *llmSynthesizer) Reflect(ctx context.Context, topic, summaries string) (Reflection, error) {
	raw, err := s.gen.Generate(ctx, buildReflectionPrompt(topic, summaries), s.opts)
	if err != nil {
		return Reflection{}, fmt.Errorf("reflect: %w", err)
	}
	var refl Reflection
	if err := llm.ExtractJSON(raw, &refl); err != nil {
		return Reflection{}, fmt.Errorf("parse reflection: %w", err)
	}
	return refl, nil
}

func (s *llmSynthesizer) ComposeAnswer(ctx context.Context, topic, summaries string) (string, error) {
	out, err := s.gen.Generate(ctx, buildAnswerPrompt(topic, summaries), s.opts)
	if err != nil {
		return "", fmt.Errorf("compose answer: %w", err)
	}
	return out, nil
}

// localSynthesizer 是无模型的确定性降级实现:
// 主题本身作为唯一查询, 证据压缩为要点清单, 反思总是判定充分.
type localSynthesizer struct{}

// NewLocalSynthesizer 创建无需语言模型的降级 Synthesizer.
func NewLocalSynthesizer() Synthesizer {
	return localSynthesizer{}
}

func (localSynthesizer) WriteQueries(_ context.Context, topic string, _ int) ([]string, error) {
	return []string{topic}, nil
}

func (localSynthesizer) SummarizeWeb(_ context.Context, query, _ string, sources []evidence.Source) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Search findings for %q:\n", query)
	for _, src := range sources {
		fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.ShortURL)
	}
	return b.String(), nil
}

func (localSynthesizer) SummarizeKB(_ context.Context, query, _ string, sources []evidence.Source) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Knowledge base findings for %q:\n", query)
	for _, src := range sources {
		fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.ShortURL)
	}
	return b.String(), nil
}

func (localSynthesizer) Reflect(context.Context, string, string) (Reflection, error) {
	return Reflection{IsSufficient: true}, nil
}

func (localSynthesizer) ComposeAnswer(_ context.Context, topic, summaries string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Research notes for %q:\n\n", topic)
	b.WriteString(summaries)
	return b.String(), nil
}
