package evidence

import (
	"fmt"
	"regexp"
	"strings"
)

// citationToken 匹配文本中形如 [S1]、[K12] 的引用标记.
var citationToken = regexp.MustCompile(`\[([SK]\d+)\]`)

// ReplaceCitationTokens 把文本中的引用标记替换为 Markdown 链接,
// 并按首次出现顺序返回被引用的来源 (标记重复出现则条目重复).
// 没有对应来源的标记原样保留; 标记之外的文本一律原样透传.
func ReplaceCitationTokens(text string, sources []Source) (string, []CitedSource) {
	if len(sources) == 0 {
		return text, nil
	}

	byID := make(map[string]Source, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}

	var cited []CitedSource
	rewritten := citationToken.ReplaceAllStringFunc(text, func(token string) string {
		id := token[1 : len(token)-1]
		source, ok := byID[id]
		if !ok {
			return token
		}
		shortURL := source.ShortURL
		if shortURL == "" {
			shortURL = source.URL
		}
		cited = append(cited, CitedSource{
			Label:    source.Title,
			ShortURL: shortURL,
			Value:    source.URL,
		})
		return fmt.Sprintf("[%s](%s)", source.Title, shortURL)
	})
	return rewritten, cited
}

// ResolveFinalAnswer 在最终答案中把短链接还原为原始 URL.
// 只有短链接真正出现在文本里的来源才进入最终引用清单,
// 这同时是整个运行期间唯一的来源去重边界.
func ResolveFinalAnswer(text string, gathered []CitedSource) (string, []CitedSource) {
	var unique []CitedSource
	seen := make(map[string]bool, len(gathered))
	for _, source := range gathered {
		rewritten, found := replaceShortLink(text, source.ShortURL, source.Value)
		if !found {
			continue
		}
		text = rewritten
		if seen[source.ShortURL] {
			continue
		}
		seen[source.ShortURL] = true
		unique = append(unique, source)
	}
	return text, unique
}

// replaceShortLink 把 text 中 link 的每次出现替换为 value, 返回是否命中.
// 短链接以序号数字收尾, 所以 "…-1" 是 "…-12" 的字面前缀;
// 命中位置后面紧跟数字时按更长链接的前缀处理, 不替换也不计入引用.
func replaceShortLink(text, link, value string) (string, bool) {
	var b strings.Builder
	found := false
	rest := text
	for {
		i := strings.Index(rest, link)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		end := i + len(link)
		if end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			b.WriteString(rest[:end])
			rest = rest[end:]
			continue
		}
		b.WriteString(rest[:i])
		b.WriteString(value)
		rest = rest[end:]
		found = true
	}
	if !found {
		return text, false
	}
	return b.String(), true
}
