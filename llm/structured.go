package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON 从模型输出中提取第一个 JSON 对象并反序列化到 v.
// 兼容 ```json 围栏、前后缀解说文本等常见输出形态.
func ExtractJSON(text string, v any) error {
	candidate := strings.TrimSpace(text)

	// 剥掉 Markdown 代码围栏.
	if idx := strings.Index(candidate, "```"); idx >= 0 {
		rest := candidate[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		} else {
			candidate = rest
		}
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object found in model output")
	}

	if err := json.Unmarshal([]byte(candidate[start:end+1]), v); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}
