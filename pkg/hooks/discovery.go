package hooks

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/catalog"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// settingsFileNames are the document names looked up in each library entry, in order
var settingsFileNames = []string{"hooks.json", "settings.json"}

// Discovery scans the base and override hook libraries
type Discovery struct {
	dirs map[catalog.Tier]string
}

// DiscoveryOption configures a Discovery
type DiscoveryOption func(*Discovery) error

// WithBaseDir sets the bundled hook library directory
func WithBaseDir(dir string) DiscoveryOption {
	return func(d *Discovery) error {
		d.dirs[catalog.TierBase] = dir
		return nil
	}
}

// WithOverrideDir sets the user hook library directory
func WithOverrideDir(dir string) DiscoveryOption {
	return func(d *Discovery) error {
		d.dirs[catalog.TierOverride] = dir
		return nil
	}
}

// NewDiscovery creates a hook discovery over the configured library directories
func NewDiscovery(opts ...DiscoveryOption) (*Discovery, error) {
	d := &Discovery{dirs: make(map[catalog.Tier]string)}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, errors.Wrap(err, "failed to apply hook discovery option")
		}
	}
	if len(d.dirs) == 0 {
		return nil, errors.New("at least one hook library directory must be specified")
	}
	return d, nil
}

// Result holds the merged hooks and any non-fatal problems hit while scanning
type Result struct {
	Hooks    *catalog.Ordered[*Hook]
	Problems *multierror.Error
}

// Sources lists library entries that contain a settings document, base tier first
func (d *Discovery) Sources(ctx context.Context) ([]catalog.SourceItem, *multierror.Error) {
	var items []catalog.SourceItem
	var problems *multierror.Error

	for _, tier := range catalog.Tiers() {
		dir, ok := d.dirs[tier]
		if !ok || dir == "" {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				logger.G(ctx).WithField("dir", dir).Debug("hook library not found, skipping")
				continue
			}
			logger.G(ctx).WithField("dir", dir).WithError(err).Warn("failed to read hook library")
			problems = multierror.Append(problems, errors.Wrapf(err, "failed to read hook library %s", dir))
			continue
		}

		for _, entry := range entries {
			entryPath := filepath.Join(dir, entry.Name())

			// os.Stat follows symlinked library entries
			info, err := os.Stat(entryPath)
			if err != nil || !info.IsDir() {
				continue
			}

			settingsPath, ok := findSettingsDocument(entryPath)
			if !ok {
				logger.G(ctx).WithField("entry", entryPath).Debug("hook library entry has no settings document")
				continue
			}

			items = append(items, catalog.SourceItem{
				Name: entry.Name(),
				Path: settingsPath,
				Tier: tier,
			})
		}
	}

	return items, problems
}

// Discover decodes every library entry and merges the hooks, base tier first,
// so an override binding replaces a base binding with the same derived name.
func (d *Discovery) Discover(ctx context.Context) Result {
	items, problems := d.Sources(ctx)
	merged := catalog.NewOrdered[*Hook]()

	for _, item := range items {
		hooks, err := decodeFile(ctx, item.Name, item.Path)
		if err != nil {
			logger.G(ctx).WithField("source", item.Name).WithError(err).Warn("skipping hook library entry")
			problems = multierror.Append(problems, err)
			continue
		}

		for _, h := range hooks {
			h.Tier = item.Tier
			merged.Put(h.Name, h)
		}
	}

	return Result{Hooks: merged, Problems: problems}
}

func findSettingsDocument(dir string) (string, bool) {
	for _, name := range settingsFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
