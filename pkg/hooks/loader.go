package hooks

import (
	"context"

	"github.com/jingkaihe/agentkit/pkg/catalog"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// Loader caches the merged hook catalog for one command invocation.
// It is not safe for concurrent use.
type Loader struct {
	discovery *Discovery
	cache     *catalog.Ordered[*Hook]
	problems  error
}

// NewLoader creates a loader backed by discovery
func NewLoader(discovery *Discovery) *Loader {
	return &Loader{discovery: discovery}
}

// LoadAll rebuilds the catalog and returns hooks in merge order
func (l *Loader) LoadAll(ctx context.Context) []*Hook {
	result := l.discovery.Discover(ctx)
	l.cache = result.Hooks
	l.problems = result.Problems.ErrorOrNil()

	logger.G(ctx).WithField("count", l.cache.Len()).Debug("loaded hooks")
	return l.cache.Values()
}

// Reload discards the cached catalog and loads it again
func (l *Loader) Reload(ctx context.Context) []*Hook {
	l.cache = nil
	return l.LoadAll(ctx)
}

// Get returns the hook with the given derived name
func (l *Loader) Get(ctx context.Context, name string) (*Hook, bool) {
	l.ensureLoaded(ctx)
	return l.cache.Get(name)
}

// ListNames returns the hook names in merge order
func (l *Loader) ListNames(ctx context.Context) []string {
	l.ensureLoaded(ctx)
	return l.cache.Names()
}

// Problems returns the non-fatal problems from the last load, or nil
func (l *Loader) Problems() error {
	return l.problems
}

func (l *Loader) ensureLoaded(ctx context.Context) {
	if l.cache == nil {
		l.LoadAll(ctx)
	}
}
