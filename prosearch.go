// Package prosearch provides a top-level convenience entry point for running
// research sessions with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/prosearch"
//
//	c, err := prosearch.New(prosearch.WithTavily("tvly-..."))
//	result, err := c.Run(ctx, "latest advances in quantum error correction")
//
// This is a thin wrapper around [research.NewController]; use the research
// package directly when you need full control over the wiring.
package prosearch

import (
	"go.uber.org/zap"

	"github.com/BaSui01/prosearch/kb"
	"github.com/BaSui01/prosearch/research"
	"github.com/BaSui01/prosearch/search"
)

// Option configures the controller created by [New].
type Option func(*options)

type options struct {
	cfg    research.Config
	synth  research.Synthesizer
	web    search.Provider
	store  *kb.Store
	logger *zap.Logger
}

// New creates a [research.Controller] with minimal configuration.
// Without options it runs fully degraded: deterministic synthesis,
// no web search and no knowledge base.
func New(opts ...Option) (*research.Controller, error) {
	o := &options{
		cfg:   research.DefaultConfig(),
		synth: research.NewLocalSynthesizer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.cfg.KBEnabled = false
	}
	return research.NewController(o.cfg, o.synth, o.web, o.store, nil, o.logger), nil
}

// WithConfig overrides the loop configuration.
func WithConfig(cfg research.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithSynthesizer sets a pre-built synthesizer.
func WithSynthesizer(s research.Synthesizer) Option {
	return func(o *options) { o.synth = s }
}

// WithWebSearch sets a pre-built web search provider.
func WithWebSearch(p search.Provider) Option {
	return func(o *options) { o.web = p }
}

// WithTavily creates a Tavily web search provider with default settings.
func WithTavily(apiKey string) Option {
	return func(o *options) {
		cfg := search.DefaultTavilyConfig()
		cfg.APIKey = apiKey
		o.web = search.NewTavilyClient(cfg, o.logger)
	}
}

// WithKnowledgeBase attaches a pre-built knowledge base store.
func WithKnowledgeBase(store *kb.Store) Option {
	return func(o *options) {
		o.store = store
		o.cfg.KBEnabled = true
	}
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}
