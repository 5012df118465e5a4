package install

import (
	"context"
	"os"

	"github.com/jingkaihe/agentkit/pkg/hooks"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/project"
)

const scriptHeader = "#!/usr/bin/env bash\n# Managed by agentkit. Reinstall the hook to update this script.\n"

// HookResult reports the two steps of a hook installation
type HookResult struct {
	ScriptPath string
	Script     Outcome
	Reference  string
	Binding    Outcome
}

// ScriptContent is the script installed for a hook
func ScriptContent(h *hooks.Hook) string {
	return scriptHeader + "\n" + h.Command + "\n"
}

// InstallHook writes the hook's script and binds it in the project settings.
// The settings step runs even when an existing script is kept.
func (i *Installer) InstallHook(ctx context.Context, h *hooks.Hook) (*HookResult, error) {
	fileName := h.ScriptFileName()
	res := &HookResult{
		ScriptPath: i.layout.ScriptPath(fileName),
		Reference:  project.ScriptReference(fileName),
	}

	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("hook", h.Name))

	var err error
	res.Script, err = i.ensureArtifact(ctx, res.ScriptPath, ScriptContent(h), 0o755)
	if err != nil {
		return res, err
	}
	if res.Script.Wrote() {
		makeExecutable(ctx, res.ScriptPath)
	}

	res.Binding, err = i.updateSettings(ctx, mergeBinding(h, res.Reference))
	if err != nil {
		return res, err
	}
	return res, nil
}

// RemoveHook deletes the hook's script and its settings binding
func (i *Installer) RemoveHook(ctx context.Context, h *hooks.Hook) (*HookResult, error) {
	fileName := h.ScriptFileName()
	res := &HookResult{
		ScriptPath: i.layout.ScriptPath(fileName),
		Reference:  project.ScriptReference(fileName),
	}

	var err error
	res.Script, err = removeArtifact(ctx, res.ScriptPath)
	if err != nil {
		return res, err
	}

	if _, statErr := os.Stat(i.layout.SettingsPath()); os.IsNotExist(statErr) {
		res.Binding = NotPresent
		return res, nil
	}
	res.Binding, err = i.updateSettings(ctx, removeBinding(h.EventType, res.Reference))
	return res, err
}

// makeExecutable sets the executable bits on a script. Failure is logged and
// the installation continues.
func makeExecutable(ctx context.Context, path string) {
	if err := os.Chmod(path, 0o755); err != nil {
		logger.G(ctx).WithField("path", path).WithError(err).Warn("failed to mark hook script executable")
	}
}
