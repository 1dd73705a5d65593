// Package kb 实现基于表格数据的本地知识库:
// 行记录 → 归一化文本 → 嵌入向量 → 精确内积索引 → 指纹缓存 → top-k 检索.
package kb

// Record 是知识库中的一行记录.
// 构建完成后不可变; 生命周期与 Store 或其磁盘缓存一致.
type Record struct {
	Text     string `json:"text"`      // "col: value | col: value" normalized row text
	Source   string `json:"source"`    // Origin file name (base name only)
	RowIndex int    `json:"row_index"` // 1-based physical row; header is row 1
}

// SearchResult 是一次检索命中.
type SearchResult struct {
	Record Record  `json:"record"`
	Score  float32 `json:"score"` // Raw inner product (cosine for normalized vectors)
}
