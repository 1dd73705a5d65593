// Package research 实现迭代式调研循环:
// 生成查询 → 并行收集网络与知识库证据 → 反思 → 有界迭代 → 合成带引用的答案.
package research

import (
	"github.com/BaSui01/prosearch/evidence"
)

// Phase 是调研状态机的阶段.
type Phase string

const (
	PhaseGeneratingQueries Phase = "generating_queries"
	PhaseGatheringEvidence Phase = "gathering_evidence"
	PhaseReflecting        Phase = "reflecting"
	PhaseFinalizing        Phase = "finalizing"
	PhaseDone              Phase = "done"
)

// State 在一次运行的各个循环阶段之间积累.
// 运行开始时创建, 结束即丢弃, 不做持久化.
type State struct {
	Topic    string                 // Research topic
	Queries  []string               // All generated query strings, in dispatch order
	Results  []string               // Per-unit evidence texts, in dispatch order
	Gathered []evidence.CitedSource // Growing set; dedup happens only at finalize

	LoopCount  int  // Reflection entries so far
	Sufficient bool // Last reflection verdict

	unitCounter int // Running query-unit identity, run-scoped
}

// nextUnitID 为一个证据收集单元分配运行内唯一的序号.
// 跨迭代单调递增, 保证短链接在整个运行内不冲突.
func (s *State) nextUnitID() int {
	id := s.unitCounter
	s.unitCounter++
	return id
}

// Reflection 是一次反思的结构化结果.
type Reflection struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// Result 是一次完整调研运行的产出.
type Result struct {
	Answer    string                 `json:"answer"`
	Sources   []evidence.CitedSource `json:"sources"` // Deduplicated, actually-cited sources
	Queries   []string               `json:"queries"`
	LoopCount int                    `json:"loop_count"`
}
