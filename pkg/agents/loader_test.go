package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/agentkit/pkg/catalog"
)

func writeAgent(t *testing.T, path, name, description, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type staticLister []catalog.SourceItem

func (s staticLister) List(context.Context) ([]catalog.SourceItem, error) {
	return s, nil
}

func TestNewDirLister(t *testing.T) {
	_, err := NewDirLister()
	require.Error(t, err)

	l, err := NewDirLister(WithBaseDir("/base"), WithExtension("markdown"))
	require.NoError(t, err)
	assert.Equal(t, ".markdown", l.Extension())

	_, err = NewDirLister(WithBaseDir("/base"), WithExtension(""))
	require.Error(t, err)
}

func TestDirListerMergesTiers(t *testing.T) {
	base := t.TempDir()
	override := t.TempDir()

	writeAgent(t, filepath.Join(base, "architect.md"), "architect", "Designs", "base architect")
	writeAgent(t, filepath.Join(base, "reviewer.md"), "reviewer", "Reviews", "base reviewer")
	writeAgent(t, filepath.Join(base, "tester", "tester.md"), "tester", "Tests", "base tester")
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("ignored"), 0o644))
	writeAgent(t, filepath.Join(override, "reviewer.md"), "reviewer", "Reviews harder", "user reviewer")

	lister, err := NewDirLister(WithBaseDir(base), WithOverrideDir(override))
	require.NoError(t, err)

	items, err := lister.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "architect", items[0].Name)
	assert.Equal(t, "tester", items[1].Name)
	assert.Equal(t, filepath.Join(base, "tester"), items[1].Path)
	assert.Equal(t, "reviewer", items[2].Name)
	assert.Equal(t, catalog.TierOverride, items[2].Tier)
}

func TestDirListerMissingDirs(t *testing.T) {
	lister, err := NewDirLister(WithBaseDir(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)

	items, err := lister.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoaderOverrideReplacesBase(t *testing.T) {
	base := t.TempDir()
	override := t.TempDir()

	writeAgent(t, filepath.Join(base, "reviewer.md"), "reviewer", "Base reviewer", "base body")
	writeAgent(t, filepath.Join(base, "planner.md"), "planner", "Planner", "plan body")
	writeAgent(t, filepath.Join(override, "reviewer.md"), "reviewer", "User reviewer", "user body")

	lister, err := NewDirLister(WithBaseDir(base), WithOverrideDir(override))
	require.NoError(t, err)
	loader := NewLoader(lister)

	agents, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)

	assert.Equal(t, "planner", agents[0].Name)
	assert.Equal(t, "reviewer", agents[1].Name)
	assert.Equal(t, "User reviewer", agents[1].Description)
	assert.Equal(t, "user body", agents[1].Content)
	assert.Equal(t, catalog.TierOverride, agents[1].Tier)
	assert.Equal(t, filepath.Join(override, "reviewer.md"), agents[1].Path)
}

func TestLoaderDirectoryEntries(t *testing.T) {
	base := t.TempDir()

	// preferred document matches the entry name
	writeAgent(t, filepath.Join(base, "writer", "aaa.md"), "other", "Other", "other body")
	writeAgent(t, filepath.Join(base, "writer", "writer.md"), "writer", "Writer", "writer body")
	// no match by name, first in directory order wins
	writeAgent(t, filepath.Join(base, "helper", "b.md"), "helper-b", "B", "b body")
	writeAgent(t, filepath.Join(base, "helper", "a.md"), "helper-a", "A", "a body")
	// no documents at all
	require.NoError(t, os.MkdirAll(filepath.Join(base, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "empty", "README.txt"), []byte("x"), 0o644))

	lister, err := NewDirLister(WithBaseDir(base))
	require.NoError(t, err)
	loader := NewLoader(lister)

	agents, err := loader.LoadAll(context.Background())
	require.NoError(t, err)

	names := loader.ListNames(context.Background())
	assert.Equal(t, []string{"helper-a", "writer"}, names)
	require.Len(t, agents, 2)
	assert.Equal(t, "a body", agents[0].Content)
	assert.Equal(t, "writer body", agents[1].Content)

	problems := loader.Problems()
	require.Error(t, problems)
	assert.Contains(t, problems.Error(), "no .md documents")
}

func TestLoaderSkipsMalformedDocuments(t *testing.T) {
	base := t.TempDir()
	writeAgent(t, filepath.Join(base, "good.md"), "good", "Good", "good body")
	require.NoError(t, os.WriteFile(filepath.Join(base, "bad.md"), []byte("---\nname: bad\nnever closed"), 0o644))

	lister, err := NewDirLister(WithBaseDir(base))
	require.NoError(t, err)
	loader := NewLoader(lister)

	agents, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "good", agents[0].Name)
	assert.Error(t, loader.Problems())
}

func TestLoaderGetAndReload(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "planner.md")
	writeAgent(t, path, "planner", "v1", "body")

	loader := NewLoader(staticLister{{Name: "planner", Path: path, Tier: catalog.TierBase}})
	ctx := context.Background()

	agent, ok := loader.Get(ctx, "planner")
	require.True(t, ok)
	assert.Equal(t, "v1", agent.Description)

	_, ok = loader.Get(ctx, "missing")
	assert.False(t, ok)

	writeAgent(t, path, "planner", "v2", "body")
	agent, _ = loader.Get(ctx, "planner")
	assert.Equal(t, "v1", agent.Description)

	_, err := loader.Reload(ctx)
	require.NoError(t, err)
	agent, _ = loader.Get(ctx, "planner")
	assert.Equal(t, "v2", agent.Description)
}

func TestLoaderResolve(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "planner")
	writeAgent(t, filepath.Join(dir, "notes.md"), "notes", "Notes", "body")
	writeAgent(t, filepath.Join(dir, "planner.md"), "", "Plans", "body")

	loader := NewLoader(staticLister{})
	agent, err := loader.Resolve(context.Background(), catalog.SourceItem{Name: "planner", Path: dir, Tier: catalog.TierOverride})
	require.NoError(t, err)
	assert.Equal(t, "Plans", agent.Description)
	assert.Equal(t, catalog.TierOverride, agent.Tier)
	assert.Equal(t, filepath.Join(dir, "planner.md"), agent.Path)

	_, err = loader.Resolve(context.Background(), catalog.SourceItem{Name: "empty", Path: t.TempDir()})
	assert.Error(t, err)
}
