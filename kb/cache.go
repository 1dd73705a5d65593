package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// cacheVersion 参与指纹计算, 序列化格式变更时递增使旧缓存失效.
const cacheVersion = "1"

// Fingerprint 计算一次知识库构建的确定性指纹.
// 输入: 缓存版本、嵌入后端名、嵌入模型名, 以及每个源路径的
// 绝对路径 + 修改时间(ns) + 文件大小 (缺失文件写入哨兵).
// 指纹相同当且仅当缓存可以复用; 任何不一致都触发全量重建.
func Fingerprint(paths []string, backend, model string) string {
	h := sha256.New()
	fmt.Fprintf(h, "cache_version:%s", cacheVersion)
	fmt.Fprintf(h, "backend:%s", backend)
	fmt.Fprintf(h, "model:%s", model)
	for _, p := range paths {
		resolved, err := filepath.Abs(p)
		if err != nil {
			resolved = p
		}
		fmt.Fprintf(h, "%s", resolved)
		if info, err := os.Stat(resolved); err == nil {
			fmt.Fprintf(h, "%d", info.ModTime().UnixNano())
			fmt.Fprintf(h, "%d", info.Size())
		} else {
			h.Write([]byte("missing"))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// diskCache 以指纹为键持久化索引与记录.
// 每个指纹对应两个工件: <fp>.idx (二进制索引) 与 <fp>.json (记录数组).
// 任一工件缺失或损坏都按未命中处理, 写失败只记日志不影响运行.
type diskCache struct {
	dir    string
	logger *zap.Logger
}

func newDiskCache(dir string, logger *zap.Logger) *diskCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &diskCache{dir: dir, logger: logger}
}

func (c *diskCache) indexPath(fp string) string   { return filepath.Join(c.dir, fp+".idx") }
func (c *diskCache) recordsPath(fp string) string { return filepath.Join(c.dir, fp+".json") }

// load 尝试按指纹恢复索引与记录. 返回 ok=false 表示未命中.
func (c *diskCache) load(fp string) (*FlatIndex, []Record, bool) {
	rawIdx, err := os.ReadFile(c.indexPath(fp))
	if err != nil {
		return nil, nil, false
	}
	rawRecords, err := os.ReadFile(c.recordsPath(fp))
	if err != nil {
		return nil, nil, false
	}

	idx, err := DecodeIndex(rawIdx)
	if err != nil {
		c.logger.Warn("knowledge base cache index corrupt, rebuilding",
			zap.String("fingerprint", fp), zap.Error(err))
		return nil, nil, false
	}
	var records []Record
	if err := json.Unmarshal(rawRecords, &records); err != nil {
		c.logger.Warn("knowledge base cache records corrupt, rebuilding",
			zap.String("fingerprint", fp), zap.Error(err))
		return nil, nil, false
	}
	if idx.Size() != len(records) {
		c.logger.Warn("knowledge base cache inconsistent, rebuilding",
			zap.String("fingerprint", fp),
			zap.Int("index_size", idx.Size()),
			zap.Int("records", len(records)))
		return nil, nil, false
	}
	return idx, records, true
}

// store 持久化索引与记录. 失败只告警, 下次启动重建即可.
func (c *diskCache) store(fp string, idx *FlatIndex, records []Record) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("knowledge base cache dir unavailable", zap.String("dir", c.dir), zap.Error(err))
		return
	}

	rawIdx, err := idx.Encode()
	if err != nil {
		c.logger.Warn("knowledge base index encode failed", zap.Error(err))
		return
	}
	rawRecords, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn("knowledge base records encode failed", zap.Error(err))
		return
	}

	if err := os.WriteFile(c.indexPath(fp), rawIdx, 0o644); err != nil {
		c.logger.Warn("knowledge base cache write failed",
			zap.String("path", c.indexPath(fp)), zap.Error(err))
		return
	}
	if err := os.WriteFile(c.recordsPath(fp), rawRecords, 0o644); err != nil {
		c.logger.Warn("knowledge base cache write failed",
			zap.String("path", c.recordsPath(fp)), zap.Error(err))
		// 半写状态: 删除索引工件, 避免下次读到成对不全的缓存.
		_ = os.Remove(c.indexPath(fp))
		return
	}

	c.logger.Info("knowledge base cache written",
		zap.String("fingerprint", fp),
		zap.Int("records", len(records)))
}
