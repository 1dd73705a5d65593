package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// runeCounter counts one token per rune, giving tests exact control.
type runeCounter struct{}

func (runeCounter) count(text string) int { return len([]rune(text)) }

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, estimateTokens(""))
	// ASCII text estimates at roughly four characters per token.
	assert.Equal(t, 3, estimateTokens("hello world!"))
	// CJK characters count one token each.
	assert.Equal(t, 4, estimateTokens("知识检索"))
	// Mixed text sums both parts.
	assert.Equal(t, 2+1, estimateTokens("检索 kb"))
}

func TestTruncateToTokensNoBudget(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 100)
	assert.Equal(t, text, truncateToTokens(text, 0, runeCounter{}))
	assert.Equal(t, text, truncateToTokens(text, -1, runeCounter{}))
}

func TestTruncateToTokensUnderBudget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short text", truncateToTokens("short text", 50, runeCounter{}))
}

func TestTruncateToTokensCutsAtBudget(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 100)
	out := truncateToTokens(text, 10, runeCounter{})
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Equal(t, strings.Repeat("x", 10)+truncationMarker, out)
}

func TestTruncateToTokensRuneBoundary(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("知", 20)
	out := truncateToTokens(text, 5, runeCounter{})
	kept := strings.TrimSuffix(out, truncationMarker)
	// Never splits a multi-byte character.
	assert.Equal(t, strings.Repeat("知", 5), kept)
}

func TestTiktokenCounterFallback(t *testing.T) {
	t.Parallel()

	// Whatever encoding backend is available, the counter must return
	// something positive for non-empty text.
	c := newTiktokenCounter("")
	assert.Greater(t, c.count("the quick brown fox"), 0)
}
