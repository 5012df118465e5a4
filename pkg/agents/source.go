package agents

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/catalog"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// DefaultExtension is the document extension agent libraries use
const DefaultExtension = ".md"

// SourceLister produces agent library entries already merged by precedence:
// a name present in both tiers appears once, at its override position.
type SourceLister interface {
	List(ctx context.Context) ([]catalog.SourceItem, error)
}

// DirLister lists agent entries from a base and an override directory.
// An entry is either a document ("reviewer.md") or a directory ("reviewer/")
// holding one or more documents.
type DirLister struct {
	dirs      map[catalog.Tier]string
	extension string
}

// DirListerOption configures a DirLister
type DirListerOption func(*DirLister) error

// WithBaseDir sets the bundled agent library directory
func WithBaseDir(dir string) DirListerOption {
	return func(l *DirLister) error {
		l.dirs[catalog.TierBase] = dir
		return nil
	}
}

// WithOverrideDir sets the user agent library directory
func WithOverrideDir(dir string) DirListerOption {
	return func(l *DirLister) error {
		l.dirs[catalog.TierOverride] = dir
		return nil
	}
}

// WithExtension sets the document extension, e.g. ".md"
func WithExtension(ext string) DirListerOption {
	return func(l *DirLister) error {
		if ext == "" {
			return errors.New("agent document extension cannot be empty")
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.extension = ext
		return nil
	}
}

// NewDirLister creates a lister over the configured library directories
func NewDirLister(opts ...DirListerOption) (*DirLister, error) {
	l := &DirLister{
		dirs:      make(map[catalog.Tier]string),
		extension: DefaultExtension,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply agent lister option")
		}
	}
	if len(l.dirs) == 0 {
		return nil, errors.New("at least one agent library directory must be specified")
	}
	return l, nil
}

// Extension returns the document extension this lister matches
func (l *DirLister) Extension() string {
	return l.extension
}

// List returns the merged entries, base tier first
func (l *DirLister) List(ctx context.Context) ([]catalog.SourceItem, error) {
	merged := catalog.NewOrdered[catalog.SourceItem]()

	for _, tier := range catalog.Tiers() {
		dir, ok := l.dirs[tier]
		if !ok || dir == "" {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				logger.G(ctx).WithField("dir", dir).Debug("agent library not found, skipping")
				continue
			}
			return nil, errors.Wrapf(err, "failed to read agent library %s", dir)
		}

		for _, entry := range entries {
			entryPath := filepath.Join(dir, entry.Name())
			info, err := os.Stat(entryPath)
			if err != nil {
				continue
			}

			var name string
			switch {
			case info.IsDir():
				name = entry.Name()
			case strings.HasSuffix(entry.Name(), l.extension):
				name = strings.TrimSuffix(entry.Name(), l.extension)
			default:
				continue
			}
			if name == "" || strings.HasPrefix(name, ".") {
				continue
			}

			merged.Put(name, catalog.SourceItem{Name: name, Path: entryPath, Tier: tier})
		}
	}

	return merged.Values(), nil
}

// resolveDocument returns the document path for an entry. Directories are
// searched for documents with the extension, preferring "<name><ext>" and
// otherwise taking the first match in directory order.
func resolveDocument(item catalog.SourceItem, extension string) (string, error) {
	info, err := os.Stat(item.Path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to stat agent entry %s", item.Path)
	}
	if !info.IsDir() {
		return item.Path, nil
	}

	matches, err := doublestar.Glob(os.DirFS(item.Path), "*"+extension, doublestar.WithFilesOnly())
	if err != nil {
		return "", errors.Wrapf(err, "failed to scan agent directory %s", item.Path)
	}
	if len(matches) == 0 {
		return "", errors.Errorf("agent directory %s contains no %s documents", item.Path, extension)
	}

	preferred := item.Name + extension
	for _, match := range matches {
		if match == preferred {
			return filepath.Join(item.Path, match), nil
		}
	}
	return filepath.Join(item.Path, matches[0]), nil
}
