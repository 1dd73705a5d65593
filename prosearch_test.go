package prosearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/prosearch/research"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c, err := New()
	require.NoError(t, err)
	require.NotNil(t, c)

	// With no web search and no knowledge base the run still completes.
	res, err := c.Run(context.Background(), "some topic")
	require.NoError(t, err)
	assert.Equal(t, []string{"some topic"}, res.Queries)
	assert.Equal(t, 1, res.LoopCount)
}

func TestNewWithConfig(t *testing.T) {
	t.Parallel()

	cfg := research.DefaultConfig()
	cfg.MaxLoops = 4
	c, err := New(WithConfig(cfg))
	require.NoError(t, err)
	require.NotNil(t, c)
}
