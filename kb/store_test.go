package kb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/prosearch/embedding"
)

// countingProvider 包装 LocalProvider 并统计 Embed 调用次数,
// 用于断言缓存命中时不会重新嵌入.
type countingProvider struct {
	*embedding.LocalProvider
	calls int
}

func newCountingProvider(model string) *countingProvider {
	return &countingProvider{LocalProvider: embedding.NewLocalProvider(model, 128)}
}

func (p *countingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	return p.LocalProvider.Embed(ctx, texts)
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const companiesCSV = "name,industry\nA,chips\nB,steel\nC,chips\n"

func TestStore_EmptyPathList(t *testing.T) {
	t.Parallel()
	store, err := NewStore(StoreConfig{}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	assert.True(t, store.IsEmpty())
	results, err := store.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_MissingAndUnsupportedSourcesSkipped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", companiesCSV)
	bogus := writeCSV(t, dir, "notes.txt", "not tabular")

	store, err := NewStore(StoreConfig{
		Paths: []string{filepath.Join(dir, "missing.csv"), bogus, good},
	}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestStore_EmptyQueryAndZeroTopK(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCSV(t, dir, "companies.csv", companiesCSV)

	store, err := NewStore(StoreConfig{Paths: []string{path}}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)
	require.False(t, store.IsEmpty())

	results, err := store.Search(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Search(context.Background(), "chips", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_TopKSemanticSearch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCSV(t, dir, "companies.csv", companiesCSV)

	store, err := NewStore(StoreConfig{Paths: []string{path}}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "chips", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	got := []string{results[0].Record.Text, results[1].Record.Text}
	assert.Contains(t, got[0], "chips")
	assert.Contains(t, got[1], "chips")
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestStore_RowIndexCountsHeaderAsRowOne(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCSV(t, dir, "companies.csv", "name,industry\nA,chips\n,\nC,chips\n")

	store, err := NewStore(StoreConfig{Paths: []string{path}}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	// 全空行被跳过但不影响后续行的物理行号.
	require.Equal(t, 2, store.Len())
	assert.Equal(t, 2, store.records[0].RowIndex)
	assert.Equal(t, 4, store.records[1].RowIndex)
	assert.Equal(t, "companies.csv", store.records[0].Source)
	assert.Equal(t, "name: A | industry: chips", store.records[0].Text)
}

func TestStore_ResultCountIsMinTopKAndSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCSV(t, dir, "companies.csv", companiesCSV)

	store, err := NewStore(StoreConfig{Paths: []string{path}}, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "steel", 100)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestStore_CacheRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeCSV(t, dir, "companies.csv", companiesCSV)
	cfg := StoreConfig{Paths: []string{path}, CacheDir: cacheDir}

	first := newCountingProvider("m")
	fresh, err := NewStore(cfg, first, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, first.calls, "build embeds exactly once")
	assert.False(t, fresh.FromCache())
	assert.Equal(t, cacheDir, fresh.CacheDir())

	freshResults, err := fresh.Search(context.Background(), "chips", 2)
	require.NoError(t, err)

	second := newCountingProvider("m")
	cached, err := NewStore(cfg, second, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, second.calls, "cache hit must not re-embed")
	assert.True(t, cached.FromCache())
	assert.Equal(t, fresh.Fingerprint(), cached.Fingerprint())

	cachedResults, err := cached.Search(context.Background(), "chips", 2)
	require.NoError(t, err)
	assert.Equal(t, freshResults, cachedResults)
	// 查询自身仍需一次嵌入.
	assert.Equal(t, 1, second.calls)
}

func TestStore_ModelChangeInvalidatesCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeCSV(t, dir, "companies.csv", companiesCSV)
	cfg := StoreConfig{Paths: []string{path}, CacheDir: cacheDir}

	_, err := NewStore(cfg, newCountingProvider("model-a"), zap.NewNop())
	require.NoError(t, err)

	other := newCountingProvider("model-b")
	_, err = NewStore(cfg, other, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, other.calls, "different model must force a rebuild")
}

func TestStore_SourceTouchInvalidatesCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeCSV(t, dir, "companies.csv", companiesCSV)
	cfg := StoreConfig{Paths: []string{path}, CacheDir: cacheDir}

	_, err := NewStore(cfg, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	rebuilt := newCountingProvider("m")
	_, err = NewStore(cfg, rebuilt, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.calls, "touched source must force a rebuild")
}

func TestStore_CorruptCacheFallsBackToRebuild(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeCSV(t, dir, "companies.csv", companiesCSV)
	cfg := StoreConfig{Paths: []string{path}, CacheDir: cacheDir}

	built, err := NewStore(cfg, newCountingProvider("m"), zap.NewNop())
	require.NoError(t, err)

	idxPath := filepath.Join(cacheDir, built.Fingerprint()+".idx")
	require.NoError(t, os.WriteFile(idxPath, []byte("garbage"), 0o644))

	rebuilt := newCountingProvider("m")
	store, err := NewStore(cfg, rebuilt, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.calls)
	assert.Equal(t, 3, store.Len())
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCSV(t, dir, "a.csv", companiesCSV)

	fp1 := Fingerprint([]string{path}, "local", "m")
	fp2 := Fingerprint([]string{path}, "local", "m")
	assert.Equal(t, fp1, fp2)
	assert.NotEqual(t, fp1, Fingerprint([]string{path}, "dashscope", "m"))
	assert.NotEqual(t, fp1, Fingerprint([]string{path}, "local", "other"))
	assert.NotEqual(t, fp1, Fingerprint([]string{path, "missing.csv"}, "local", "m"))
}
