package kb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// indexMagic 标识序列化索引文件, 版本号变更时旧缓存整体失效.
var indexMagic = [4]byte{'P', 'S', 'I', '1'}

// Hit 是索引层面的一次命中, Index 指向共同下标的记录.
type Hit struct {
	Index int
	Score float32
}

// FlatIndex 是精确内积最近邻索引.
// 向量在 Build 后不再变更, 并发 Search 无需加锁.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// NewFlatIndex 创建空索引.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build 用给定向量重建索引. 所有向量维度必须一致.
func (idx *FlatIndex) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		idx.dim = 0
		idx.vectors = nil
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("flat index: zero-dimension vectors")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("flat index: vector %d has dim %d, want %d", i, len(v), dim)
		}
	}
	idx.dim = dim
	idx.vectors = vectors
	return nil
}

// Search 返回与 query 内积最大的 min(k, Size()) 个命中, 按分数降序.
// 空索引或 k <= 0 返回空结果.
func (idx *FlatIndex) Search(query []float32, k int) []Hit {
	if len(idx.vectors) == 0 || k <= 0 || len(query) != idx.dim {
		return nil
	}
	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}

	hits := make([]Hit, len(idx.vectors))
	for i, v := range idx.vectors {
		var dot float32
		for j := range v {
			dot += v[j] * query[j]
		}
		hits[i] = Hit{Index: i, Score: dot}
	}

	// 稳定排序: 分数相同时保持原始行序.
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:k]
}

// Size 返回索引中的向量数.
func (idx *FlatIndex) Size() int { return len(idx.vectors) }

// Dim 返回向量维度, 空索引为 0.
func (idx *FlatIndex) Dim() int { return idx.dim }

// Encode 将索引序列化为缓存字节: magic + dim + count + little-endian float32.
func (idx *FlatIndex) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(idx.dim)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(idx.vectors))); err != nil {
		return nil, err
	}
	for _, v := range idx.vectors {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeIndex 从缓存字节恢复索引.
func DecodeIndex(data []byte) (*FlatIndex, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("decode index: bad magic %q", magic[:])
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	idx := &FlatIndex{dim: int(dim)}
	idx.vectors = make([][]float32, count)
	for i := range idx.vectors {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("decode index: vector %d: %w", i, err)
		}
		idx.vectors[i] = v
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("decode index: %d trailing bytes", r.Len())
	}
	return idx, nil
}
