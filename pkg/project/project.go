// Package project describes the destination configuration tree that agents
// and hooks are installed into.
package project

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
)

const (
	configDirName    = ".claude"
	agentsDirName    = "agents"
	hooksDirName     = "hooks"
	settingsFileName = "settings.json"

	// ProjectDirVar is expanded to the project root when a hook runs, keeping
	// installed settings portable across checkouts.
	ProjectDirVar = "$CLAUDE_PROJECT_DIR"
)

// Layout resolves paths inside a project's configuration tree
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at root
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// ConfigDir is the project's configuration directory
func (l Layout) ConfigDir() string {
	return filepath.Join(l.Root, configDirName)
}

// AgentsDir holds installed agent documents
func (l Layout) AgentsDir() string {
	return filepath.Join(l.ConfigDir(), agentsDirName)
}

// AgentPath is where the named agent is installed
func (l Layout) AgentPath(name string) string {
	return filepath.Join(l.AgentsDir(), name+".md")
}

// HooksDir holds installed hook scripts
func (l Layout) HooksDir() string {
	return filepath.Join(l.ConfigDir(), hooksDirName)
}

// ScriptPath is where a hook script with the given file name is installed
func (l Layout) ScriptPath(fileName string) string {
	return filepath.Join(l.HooksDir(), fileName)
}

// SettingsPath is the project's settings document
func (l Layout) SettingsPath() string {
	return filepath.Join(l.ConfigDir(), settingsFileName)
}

// ScriptReference is the portable command string settings use to run an
// installed hook script
func ScriptReference(fileName string) string {
	return path.Join(ProjectDirVar, configDirName, hooksDirName, fileName)
}

// Detector reports whether a directory has been initialized as a project
type Detector interface {
	Initialized(root string) bool
}

// DirDetector treats a directory as initialized when its configuration directory exists
type DirDetector struct{}

// Initialized implements Detector
func (DirDetector) Initialized(root string) bool {
	info, err := os.Stat(NewLayout(root).ConfigDir())
	return err == nil && info.IsDir()
}

// Init creates the configuration tree under root. It reports whether the
// configuration directory was newly created.
func Init(ctx context.Context, root string) (bool, error) {
	layout := NewLayout(root)
	created := !(DirDetector{}).Initialized(root)

	for _, dir := range []string{layout.AgentsDir(), layout.HooksDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	logger.G(ctx).WithField("root", root).WithField("created", created).Debug("initialized project")
	return created, nil
}
