package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// defaultLocalDimensions 本地哈希嵌入的默认维度.
const defaultLocalDimensions = 256

// LocalProvider 是无需网络的确定性嵌入实现.
// 文本被切分为小写词元, 每个词元经 FNV 哈希映射到固定维度的桶,
// 结果逐行 L2 归一化. 同一文本永远得到同一向量, 适合离线模式和测试.
type LocalProvider struct {
	model string
	dims  int
}

// NewLocalProvider 创建本地嵌入提供者.
// model 仅作标识参与缓存指纹; dims <= 0 时使用默认维度.
func NewLocalProvider(model string, dims int) *LocalProvider {
	if dims <= 0 {
		dims = defaultLocalDimensions
	}
	return &LocalProvider{model: model, dims: dims}
}

func (p *LocalProvider) Name() string      { return "local" }
func (p *LocalProvider) Model() string     { return p.model }
func (p *LocalProvider) Dimensions() int   { return p.dims }
func (p *LocalProvider) MaxBatchSize() int { return 0 } // no batch limit

// Embed 单次处理任意数量的输入.
// 单条输入同样返回 1×dim 的二维矩阵.
func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	matrix := make([][]float32, len(texts))
	for i, text := range texts {
		matrix[i] = p.embedOne(text)
	}
	normalizeRows(matrix)
	return matrix, nil
}

func (p *LocalProvider) embedOne(text string) []float32 {
	vec := make([]float32, p.dims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		bucket := int(h.Sum32()) % p.dims
		if bucket < 0 {
			bucket += p.dims
		}
		vec[bucket]++
	}
	return vec
}

// tokenize 按非字母数字切分并转小写; CJK 字符逐字成词元.
func tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, strings.ToLower(b.String()))
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
