// Package evidence 将检索结果统一为带短链接的来源记录,
// 并负责生成文本中引用标记的解析与最终还原.
package evidence

import "fmt"

// DefaultShortLinkPrefix 网络来源短链接前缀.
const DefaultShortLinkPrefix = "https://tav.link/"

// Source 是一次调研迭代中收集到的单条来源.
type Source struct {
	ID       string `json:"id"`        // "S3" (web) or "K2" (knowledge base)
	Title    string `json:"title"`     // Display title
	ShortURL string `json:"short_url"` // Run-unique synthetic locator
	URL      string `json:"url"`       // Original locator
}

// CitedSource 只为 ShortURL 真正出现在生成文本里的来源产生,
// 维持"只引用实际使用的来源"的约束.
type CitedSource struct {
	Label    string `json:"label"`     // Source title
	ShortURL string `json:"short_url"` // Synthetic locator present in the text
	Value    string `json:"value"`     // Original URL to restore at finalize time
}

// ResolveShortLinks 为一组原始 URL 生成运行内唯一的短链接映射.
// 同一 URL 在一次调用内只分配一个序号; unitID 由调用方从全局查询计数器
// 派生, 保证不同查询单元之间短链接互不冲突.
func ResolveShortLinks(urls []string, unitID string) map[string]string {
	resolved := make(map[string]string, len(urls))
	for idx, url := range urls {
		if _, ok := resolved[url]; !ok {
			resolved[url] = fmt.Sprintf("%s%s-%d", DefaultShortLinkPrefix, unitID, idx)
		}
	}
	return resolved
}

// KBShortURL 返回知识库记录的确定性短链接.
// (source, row) 本身已唯一, 不需要额外计数器.
func KBShortURL(source string, rowIndex int) string {
	return fmt.Sprintf("kb://%s#R%d", source, rowIndex)
}
