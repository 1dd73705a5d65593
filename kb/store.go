package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/prosearch/embedding"
	"github.com/BaSui01/prosearch/kb/tabular"
)

// StoreConfig 配置知识库构建.
type StoreConfig struct {
	// Paths 表格源文件列表. 不存在或无法解析的文件会被跳过.
	Paths []string `json:"paths" yaml:"paths"`
	// CacheDir 缓存目录; 为空时禁用磁盘缓存.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// Store 将表格行加载为向量化的知识库并提供 top-k 语义检索.
// 构建在 NewStore 中一次性完成; 之后索引只读, 并发 Search 安全.
type Store struct {
	provider  embedding.Provider
	index     *FlatIndex
	records   []Record
	cache     *diskCache
	cacheDir  string
	fromCache bool
	key       string
	logger    *zap.Logger
}

// NewStore 构建知识库.
// 先计算配置指纹并尝试缓存快路径; 未命中时读取表格、嵌入全部记录、
// 建立内积索引并尽力写回缓存. 零记录得到合法的空库, 不报错.
func NewStore(cfg StoreConfig, provider embedding.Provider, logger *zap.Logger) (*Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("kb: embedding provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		provider: provider,
		index:    NewFlatIndex(),
		logger:   logger,
	}
	s.key = Fingerprint(cfg.Paths, provider.Name(), providerModel(provider))
	if cfg.CacheDir != "" {
		s.cache = newDiskCache(cfg.CacheDir, logger)
		s.cacheDir = cfg.CacheDir
	}

	if s.cache != nil {
		if idx, records, ok := s.cache.load(s.key); ok {
			s.index = idx
			s.records = records
			s.fromCache = true
			logger.Info("knowledge base loaded from cache",
				zap.String("fingerprint", s.key),
				zap.Int("records", len(records)))
			return s, nil
		}
	}

	if err := s.build(cfg.Paths); err != nil {
		return nil, err
	}
	if s.cache != nil && len(s.records) > 0 {
		s.cache.store(s.key, s.index, s.records)
	}
	return s, nil
}

// build 读取全部源文件并建立索引.
func (s *Store) build(paths []string) error {
	start := time.Now()
	for _, path := range paths {
		s.ingest(path)
	}
	if len(s.records) == 0 {
		s.logger.Warn("knowledge base is empty, searches will return no results",
			zap.Int("paths", len(paths)))
		return nil
	}

	texts := make([]string, len(s.records))
	for i, rec := range s.records {
		texts[i] = rec.Text
	}

	// 构建是一次性阻塞操作, 不挂在请求上下文上.
	vectors, err := s.provider.Embed(context.Background(), texts)
	if err != nil {
		return fmt.Errorf("kb: embedding %d records: %w", len(texts), err)
	}
	if len(vectors) != len(s.records) {
		return fmt.Errorf("kb: got %d vectors for %d records", len(vectors), len(s.records))
	}
	if err := s.index.Build(vectors); err != nil {
		return fmt.Errorf("kb: building index: %w", err)
	}

	s.logger.Info("knowledge base built",
		zap.Int("records", len(s.records)),
		zap.Int("dim", s.index.Dim()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// ingest 读取单个表格源. 失败只跳过, 保持尽力而为的装载语义.
func (s *Store) ingest(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	reader, err := tabular.ForPath(path)
	if err != nil {
		s.logger.Warn("knowledge base source skipped", zap.String("path", path), zap.Error(err))
		return
	}
	table, err := reader.Read(path)
	if err != nil {
		s.logger.Warn("knowledge base source unreadable, skipped",
			zap.String("path", path), zap.Error(err))
		return
	}

	header := make([]string, len(table.Header))
	for i, col := range table.Header {
		header[i] = strings.TrimSpace(col)
	}
	source := filepath.Base(path)

	added := 0
	for rowIdx, row := range table.Rows {
		text := rowText(header, row)
		if text == "" {
			continue
		}
		s.records = append(s.records, Record{
			Text:   text,
			Source: source,
			// 表头占第 1 行, 首个数据行的 RowIndex 为 2.
			RowIndex: rowIdx + 2,
		})
		added++
	}
	s.logger.Debug("knowledge base source ingested",
		zap.String("source", source), zap.Int("records", added))
}

// rowText 将一行拼为 "col: value | col: value", 跳过空单元格.
func rowText(header []string, row []string) string {
	var parts []string
	for i, cell := range row {
		if i >= len(header) {
			break
		}
		value := strings.TrimSpace(cell)
		if value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", header[i], value))
	}
	return strings.Join(parts, " | ")
}

// Search 返回与 query 最相似的 min(topK, Len()) 条记录, 按分数降序.
// 空查询、空库或 topK <= 0 返回空结果, 永不报错地返回 nil 切片.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" || s.IsEmpty() || topK <= 0 {
		return nil, nil
	}

	vectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("kb: embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	hits := s.index.Search(vectors[0], topK)
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			Record: s.records[hit.Index],
			Score:  hit.Score,
		})
	}
	return results, nil
}

// IsEmpty 报告知识库是否没有任何记录.
func (s *Store) IsEmpty() bool { return s.index.Size() == 0 }

// Len 返回记录数.
func (s *Store) Len() int { return len(s.records) }

// Fingerprint 返回本次构建的配置指纹.
func (s *Store) Fingerprint() string { return s.key }

// CacheDir 返回缓存目录, 缓存禁用时为空串.
func (s *Store) CacheDir() string { return s.cacheDir }

// FromCache 报告本次构建是否命中了磁盘缓存.
func (s *Store) FromCache() bool { return s.fromCache }

// providerModel 通过可选的 Model() 访问器取得提供者的模型标识参与指纹,
// 未实现时退化为空串.
func providerModel(p embedding.Provider) string {
	if m, ok := p.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
