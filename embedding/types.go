// Package embedding 提供统一的文本向量化接口和实现.
package embedding

import (
	"context"
	"math"
)

// Provider 定义统一的嵌入提供者接口.
// 所有实现返回 L2 归一化后的向量, 因此内积等价于余弦相似度.
type Provider interface {
	// Embed 为给定输入生成嵌入. 空输入返回空矩阵而非错误.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name 返回提供者名称.
	Name() string

	// Dimensions 返回嵌入维度 (首次调用前可能为 0).
	Dimensions() int

	// MaxBatchSize 返回支持的最大批量大小.
	MaxBatchSize() int
}

// Backend 选择嵌入后端.
type Backend string

const (
	BackendDashScope Backend = "dashscope" // Remote batch API
	BackendLocal     Backend = "local"     // Deterministic local model
)

// normalizeRows 对矩阵逐行做 L2 归一化.
// 加极小 epsilon 避免零向量除零.
func normalizeRows(m [][]float32) {
	for _, row := range m {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		norm := math.Sqrt(sum) + 1e-10
		for i := range row {
			row[i] = float32(float64(row[i]) / norm)
		}
	}
}
