// Package llm 提供研究流程所需的最小文本生成能力.
// 哪个大模型回答提示词不是本包关心的问题: 调用方只依赖 Generator 接口.
package llm

import (
	"context"
)

// Generator 将一段完整格式化好的提示词变成自由文本.
type Generator interface {
	// Generate 返回模型对 prompt 的补全文本.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Name 返回后端名称.
	Name() string
}

// GenerateOptions 控制单次生成.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`       // Override the default model
	Temperature float64 `json:"temperature"`           // Sampling temperature
	MaxRetries  int     `json:"max_retries,omitempty"` // Retries on retryable upstream errors
}
