package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/prosearch/evidence"
	"github.com/BaSui01/prosearch/internal/metrics"
	"github.com/BaSui01/prosearch/kb"
	"github.com/BaSui01/prosearch/search"
)

// 证据缺失或降级时写入结果槽位的占位文本.
// 占位保证每条查询在结果切片中始终占据一个位置.
const (
	placeholderNoWebResults  = "No public information relevant to this query could be retrieved."
	placeholderWebFailed     = "Web search was unavailable for this query."
	placeholderKBEmpty       = "[internal knowledge base] knowledge base missing or empty, nothing to search."
	placeholderKBNoMatch     = "[internal knowledge base] no records relevant to this query."
	placeholderNothingUsable = "No usable evidence was gathered for this query."
)

// Config 控制调研循环的行为.
type Config struct {
	InitialQueries      int     // 首轮生成的查询数上限
	MaxLoops            int     // 反思次数上限, 含等于 (到达即收束)
	KBEnabled           bool    // 是否并行查询知识库
	KBTopK              int     // 每条查询取回的知识库记录数
	KBMinScore          float64 // 低于该分数的知识库命中被丢弃, 0 表示不过滤
	SearchSummary       bool    // 是否对每条查询的证据做模型摘要 (关闭时保留原始格式化区块)
	EvidenceTokenBudget int     // 喂给反思/合成提示词的证据 token 预算, 0 表示不限制
	WebOptions          search.Options
}

// DefaultConfig 返回与生产默认一致的循环配置.
func DefaultConfig() Config {
	return Config{
		InitialQueries:      3,
		MaxLoops:            2,
		KBEnabled:           true,
		KBTopK:              5,
		SearchSummary:       true,
		EvidenceTokenBudget: 24000,
		WebOptions:          search.DefaultOptions(),
	}
}

// Controller 驱动 生成查询 → 收集证据 → 反思 → 合成 的有界循环.
// 所有外部依赖失败时循环降级而非中断: 查询生成失败退回主题本身,
// 单条查询失败只占位, 反思失败视为证据已充分.
type Controller struct {
	cfg     Config
	synth   Synthesizer
	web     search.Provider
	store   *kb.Store
	metrics *metrics.Collector
	tokens  tokenCounter
	logger  *zap.Logger
}

// NewController 创建调研循环控制器.
// store 为 nil 或 cfg.KBEnabled 为 false 时跳过知识库检索.
// collector 可以为 nil.
func NewController(cfg Config, synth Synthesizer, web search.Provider, store *kb.Store, collector *metrics.Collector, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InitialQueries <= 0 {
		cfg.InitialQueries = 3
	}
	if cfg.MaxLoops <= 0 {
		cfg.MaxLoops = 1
	}
	if cfg.KBTopK <= 0 {
		cfg.KBTopK = 5
	}
	return &Controller{
		cfg:     cfg,
		synth:   synth,
		web:     web,
		store:   store,
		metrics: collector,
		tokens:  newTiktokenCounter(""),
		logger:  logger.With(zap.String("component", "research")),
	}
}

// Run 对主题执行一次完整调研, 返回带引用来源的答案.
// 只有上下文取消会使运行整体失败, 其余故障都会降级处理.
func (c *Controller) Run(ctx context.Context, topic string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("research topic is empty")
	}

	started := time.Now()
	runID := uuid.NewString()[:8]
	log := c.logger.With(zap.String("run_id", runID), zap.String("topic", topic))
	log.Info("research run started",
		zap.Int("max_loops", c.cfg.MaxLoops),
		zap.Bool("kb_enabled", c.kbActive()))

	state := &State{Topic: topic}

	queries := c.generateQueries(ctx, log, topic)
	queryKind := "initial"

	for {
		if err := ctx.Err(); err != nil {
			c.metrics.RecordResearchRun("cancelled", time.Since(started), state.LoopCount)
			return nil, fmt.Errorf("research run cancelled: %w", err)
		}

		c.gather(ctx, log, runID, state, queries, queryKind)

		state.LoopCount++
		refl := c.reflect(ctx, log, state)
		state.Sufficient = refl.IsSufficient

		if refl.IsSufficient || state.LoopCount >= c.cfg.MaxLoops || len(refl.FollowUpQueries) == 0 {
			break
		}
		log.Info("continuing research",
			zap.Int("loop", state.LoopCount),
			zap.String("knowledge_gap", refl.KnowledgeGap),
			zap.Int("follow_up_queries", len(refl.FollowUpQueries)))
		queries = refl.FollowUpQueries
		queryKind = "follow_up"
	}

	result := c.finalize(ctx, log, state)
	c.metrics.RecordResearchRun("ok", time.Since(started), state.LoopCount)
	log.Info("research run finished",
		zap.Int("loops", state.LoopCount),
		zap.Int("queries", len(state.Queries)),
		zap.Int("cited_sources", len(result.Sources)),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

func (c *Controller) kbActive() bool {
	return c.cfg.KBEnabled && c.store != nil && !c.store.IsEmpty()
}

// generateQueries 生成首轮查询. 生成失败或结果为空时退回主题本身,
// 保证循环总能启动.
func (c *Controller) generateQueries(ctx context.Context, log *zap.Logger, topic string) []string {
	queries, err := c.synth.WriteQueries(ctx, topic, c.cfg.InitialQueries)
	if err != nil {
		log.Warn("query generation failed, falling back to topic", zap.Error(err))
		return []string{topic}
	}
	if len(queries) == 0 {
		return []string{topic}
	}
	return queries
}

// gather 对一批查询并行收集证据. 每条查询在派发前领取运行内唯一的
// 单元序号, 结果按派发顺序写入固定槽位, 与并发完成顺序无关.
func (c *Controller) gather(ctx context.Context, log *zap.Logger, runID string, state *State, queries []string, kind string) {
	slots := make([]string, len(queries))
	gathered := make([][]evidence.CitedSource, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		unitID := fmt.Sprintf("%s-%d", runID, state.nextUnitID())
		state.Queries = append(state.Queries, query)
		c.metrics.RecordQueryDispatched(kind)

		g.Go(func() error {
			text, cited := c.gatherOne(gctx, log, unitID, query)
			slots[i] = text
			gathered[i] = cited
			return nil
		})
	}
	// 工作协程自身不返回错误, 失败在 gatherOne 内部降级为占位文本.
	_ = g.Wait()

	state.Results = append(state.Results, slots...)
	for _, cited := range gathered {
		state.Gathered = append(state.Gathered, cited...)
	}
}

// gatherOne 为单条查询收集网络与知识库证据并拼接成一个证据块.
func (c *Controller) gatherOne(ctx context.Context, log *zap.Logger, unitID, query string) (string, []evidence.CitedSource) {
	var parts []string
	var cited []evidence.CitedSource

	webText, webCited := c.gatherWeb(ctx, log, unitID, query)
	if webText != "" {
		parts = append(parts, webText)
		cited = append(cited, webCited...)
	}

	if c.cfg.KBEnabled && c.store != nil {
		kbText, kbCited := c.gatherKB(ctx, log, query)
		if kbText != "" {
			parts = append(parts, kbText)
			cited = append(cited, kbCited...)
		}
	}

	if len(parts) == 0 {
		return placeholderNothingUsable, nil
	}
	return strings.Join(parts, "\n\n"), cited
}

func (c *Controller) gatherWeb(ctx context.Context, log *zap.Logger, unitID, query string) (string, []evidence.CitedSource) {
	if c.web == nil {
		return "", nil
	}
	results, err := c.web.Search(ctx, query, c.cfg.WebOptions)
	if err != nil {
		c.metrics.RecordWebSearchError()
		log.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return placeholderWebFailed, nil
	}
	if len(results) == 0 {
		return placeholderNoWebResults, nil
	}

	section, sources := evidence.FormatWebResults(results, unitID)
	if !c.cfg.SearchSummary {
		return section, nil
	}

	summary, err := c.synth.SummarizeWeb(ctx, query, section, sources)
	if err != nil {
		log.Warn("web evidence summary failed, keeping raw section", zap.String("query", query), zap.Error(err))
		return section, nil
	}
	resolved, cited := evidence.ReplaceCitationTokens(summary, sources)
	return resolved, cited
}

func (c *Controller) gatherKB(ctx context.Context, log *zap.Logger, query string) (string, []evidence.CitedSource) {
	if c.store.IsEmpty() {
		return placeholderKBEmpty, nil
	}
	hits, err := c.store.Search(ctx, query, c.cfg.KBTopK)
	if err != nil {
		log.Warn("knowledge base search failed", zap.String("query", query), zap.Error(err))
		return placeholderKBEmpty, nil
	}
	if c.cfg.KBMinScore > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if float64(h.Score) >= c.cfg.KBMinScore {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) == 0 {
		return placeholderKBNoMatch, nil
	}

	section, sources := evidence.FormatKBResults(hits)
	if !c.cfg.SearchSummary {
		return section, nil
	}

	summary, err := c.synth.SummarizeKB(ctx, query, section, sources)
	if err != nil {
		log.Warn("kb evidence summary failed, keeping raw section", zap.String("query", query), zap.Error(err))
		return section, nil
	}
	resolved, cited := evidence.ReplaceCitationTokens(summary, sources)
	return resolved, cited
}

// reflect 评估已收集的摘要. 任何反思故障都判定为证据已充分,
// 使循环收束而不是中断.
func (c *Controller) reflect(ctx context.Context, log *zap.Logger, state *State) Reflection {
	summaries := c.evidenceText(state)
	refl, err := c.synth.Reflect(ctx, state.Topic, summaries)
	if err != nil {
		log.Warn("reflection failed, treating evidence as sufficient", zap.Error(err))
		return Reflection{IsSufficient: true}
	}
	return refl
}

// finalize 合成最终答案, 把短链接还原为真实地址并收集实际被引用的来源.
func (c *Controller) finalize(ctx context.Context, log *zap.Logger, state *State) *Result {
	summaries := c.evidenceText(state)
	answer, err := c.synth.ComposeAnswer(ctx, state.Topic, summaries)
	if err != nil {
		log.Warn("answer composition failed, falling back to evidence digest", zap.Error(err))
		answer = fmt.Sprintf("Research notes for %q:\n\n%s", state.Topic, summaries)
	}

	resolved, cited := evidence.ResolveFinalAnswer(answer, state.Gathered)
	return &Result{
		Answer:    resolved,
		Sources:   cited,
		Queries:   state.Queries,
		LoopCount: state.LoopCount,
	}
}

const evidenceSeparator = "\n\n---\n\n"

// evidenceText 把全部结果槽位拼接为一段文本并裁剪到 token 预算内.
func (c *Controller) evidenceText(state *State) string {
	text := strings.Join(state.Results, evidenceSeparator)
	return truncateToTokens(text, c.cfg.EvidenceTokenBudget, c.tokens)
}
