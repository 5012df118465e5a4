package agents

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/catalog"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// Loader resolves agent library entries into a cached, name-keyed catalog.
// It is not safe for concurrent use.
type Loader struct {
	lister    SourceLister
	extension string
	cache     *catalog.Ordered[*Agent]
	problems  error
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithDocumentExtension sets the extension used when an entry is a directory
func WithDocumentExtension(ext string) LoaderOption {
	return func(l *Loader) {
		l.extension = ext
	}
}

// NewLoader creates a loader over the given lister
func NewLoader(lister SourceLister, opts ...LoaderOption) *Loader {
	l := &Loader{
		lister:    lister,
		extension: DefaultExtension,
	}
	if dl, ok := lister.(*DirLister); ok {
		l.extension = dl.Extension()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll rebuilds the catalog and returns agents in merge order.
// Entries that cannot be parsed are logged and skipped; the only error
// returned comes from the lister itself.
func (l *Loader) LoadAll(ctx context.Context) ([]*Agent, error) {
	items, err := l.lister.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agent sources")
	}

	cache := catalog.NewOrdered[*Agent]()
	var problems *multierror.Error

	for _, item := range items {
		agent, err := l.Resolve(ctx, item)
		if err != nil {
			logger.G(ctx).WithField("entry", item.Path).WithError(err).Warn("skipping agent")
			problems = multierror.Append(problems, errors.Wrapf(err, "agent %s", item.Name))
			continue
		}
		cache.Put(agent.Name, agent)
	}

	l.cache = cache
	l.problems = problems.ErrorOrNil()

	logger.G(ctx).WithField("count", cache.Len()).Debug("loaded agents")
	return cache.Values(), nil
}

// Reload discards the cached catalog and loads it again
func (l *Loader) Reload(ctx context.Context) ([]*Agent, error) {
	l.cache = nil
	return l.LoadAll(ctx)
}

// Get returns the agent with the given name, loading the catalog on first use
func (l *Loader) Get(ctx context.Context, name string) (*Agent, bool) {
	if !l.ensureLoaded(ctx) {
		return nil, false
	}
	return l.cache.Get(name)
}

// ListNames returns agent names in merge order
func (l *Loader) ListNames(ctx context.Context) []string {
	if !l.ensureLoaded(ctx) {
		return nil
	}
	return l.cache.Names()
}

// Problems returns the non-fatal problems from the last load, or nil
func (l *Loader) Problems() error {
	return l.problems
}

func (l *Loader) ensureLoaded(ctx context.Context) bool {
	if l.cache != nil {
		return true
	}
	if _, err := l.LoadAll(ctx); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to load agents")
		return false
	}
	return true
}

// Resolve reads and parses the agent document behind a single source entry
func (l *Loader) Resolve(ctx context.Context, item catalog.SourceItem) (*Agent, error) {
	path, err := resolveDocument(item, l.extension)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("path", path).Debug("loading agent document")

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read agent document %s", path)
	}

	agent, err := Parse(ctx, item.Name, string(content))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse agent document %s", path)
	}

	agent.Tier = item.Tier
	agent.Path = path
	return agent, nil
}
