package evidence

import (
	"fmt"
	"strings"

	"github.com/BaSui01/prosearch/kb"
	"github.com/BaSui01/prosearch/search"
)

// FormatWebResults 将网络搜索结果格式化为提示词用的来源段落.
// 每条结果获得顺序递增的 S{n} 标识和运行内唯一的短链接.
func FormatWebResults(results []search.Result, unitID string) (string, []Source) {
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	resolved := ResolveShortLinks(urls, unitID)

	blocks := make([]string, 0, len(results))
	sources := make([]Source, 0, len(results))
	for i, r := range results {
		id := fmt.Sprintf("S%d", i+1)
		title := r.Title
		if title == "" {
			title = r.URL
		}
		shortURL := resolved[r.URL]

		lines := []string{
			fmt.Sprintf("[%s] %s", id, title),
			fmt.Sprintf("URL: %s", shortURL),
		}
		if r.PublishedAt != "" {
			lines = append(lines, fmt.Sprintf("Published: %s", r.PublishedAt))
		}
		if r.Content != "" {
			lines = append(lines, fmt.Sprintf("Snippet: %s", r.Content))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
		sources = append(sources, Source{ID: id, Title: title, ShortURL: shortURL, URL: r.URL})
	}
	return strings.Join(blocks, "\n\n"), sources
}

// FormatKBResults 将知识库命中格式化为来源段落.
// 标识为 K{n}, 短链接采用确定性的 kb:// 方案.
func FormatKBResults(hits []kb.SearchResult) (string, []Source) {
	blocks := make([]string, 0, len(hits))
	sources := make([]Source, 0, len(hits))
	for i, hit := range hits {
		id := fmt.Sprintf("K%d", i+1)
		title := fmt.Sprintf("%s row %d", hit.Record.Source, hit.Record.RowIndex)
		shortURL := KBShortURL(hit.Record.Source, hit.Record.RowIndex)

		lines := []string{
			fmt.Sprintf("[%s] Source: %s", id, hit.Record.Source),
			fmt.Sprintf("Row: %d", hit.Record.RowIndex),
			fmt.Sprintf("Content: %s", hit.Record.Text),
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
		sources = append(sources, Source{ID: id, Title: title, ShortURL: shortURL, URL: shortURL})
	}
	return strings.Join(blocks, "\n\n"), sources
}
