package research

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter 估算文本的 token 数. 测试可注入确定性实现.
type tokenCounter interface {
	count(text string) int
}

// tiktokenCounter 懒加载 tiktoken 编码器, 加载失败时退回到启发式估算,
// 保证离线环境下截断逻辑仍然可用.
type tiktokenCounter struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newTiktokenCounter(encoding string) *tiktokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &tiktokenCounter{encoding: encoding}
}

func (c *tiktokenCounter) count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// estimateTokens 是无编码器时的粗略估算:
// CJK 字符约 1 字符/token, 其余文本约 4 字符/token.
func estimateTokens(text string) int {
	var cjk, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		} else {
			other++
		}
	}
	return cjk + (other+3)/4
}

const truncationMarker = "\n\n[evidence truncated]"

// truncateToTokens 将文本裁剪到 budget 个 token 以内.
// budget <= 0 表示不限制. 裁剪发生在 rune 边界上, 并在二分查找
// 最大可容纳前缀后追加截断标记.
func truncateToTokens(text string, budget int, counter tokenCounter) string {
	if budget <= 0 || text == "" {
		return text
	}
	if counter.count(text) <= budget {
		return text
	}
	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.count(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return strings.TrimRight(string(runes[:lo]), " \n\t") + truncationMarker
}
