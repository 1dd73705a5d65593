package kb

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/prosearch/embedding"
)

// Registry 进程级缓存已构建的 Store 实例, 以配置键索引,
// 避免同一配置重复重建. 调用方持有显式句柄而非依赖包级全局状态.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	logger *zap.Logger
}

// NewRegistry 创建空的 Store 注册表.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		stores: make(map[string]*Store),
		logger: logger,
	}
}

// configKey 由路径列表 + 后端名 + 模型名组成.
// 重复构建只是浪费不会出错, 所以这里不追求与磁盘指纹同等的精度
// (mtime 变化由磁盘缓存层处理).
func configKey(cfg StoreConfig, provider embedding.Provider) string {
	return strings.Join(cfg.Paths, ",") + "|" + provider.Name() + "|" + providerModel(provider)
}

// Get 返回配置对应的 Store, 不存在时构建并登记.
// 构建在锁内完成; 构建是幂等的, 与严格去重相比简单性优先.
func (r *Registry) Get(cfg StoreConfig, provider embedding.Provider) (*Store, error) {
	key := configKey(cfg, provider)

	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[key]; ok {
		return store, nil
	}

	store, err := NewStore(cfg, provider, r.logger)
	if err != nil {
		return nil, err
	}
	r.stores[key] = store
	r.logger.Debug("knowledge base registered", zap.String("key", key))
	return store, nil
}

// Len 返回已登记的 Store 数量.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
