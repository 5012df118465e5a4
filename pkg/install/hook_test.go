package install

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jingkaihe/agentkit/pkg/hooks"
)

func bashGuard() *hooks.Hook {
	timeout := 30
	return &hooks.Hook{
		Name:        "guards-PreToolUse-0-0",
		Description: "Blocks rm -rf",
		EventType:   hooks.EventPreToolUse,
		Matcher:     "Bash",
		Command:     "./guard.sh",
		Timeout:     &timeout,
	}
}

func stopNotifier() *hooks.Hook {
	return &hooks.Hook{
		Name:        "notify-Stop-*",
		Description: "Stop hook from notify",
		EventType:   hooks.EventStop,
		Command:     "say done",
	}
}

func writeSettings(t *testing.T, inst *Installer, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(inst.Layout().ConfigDir(), 0o755))
	require.NoError(t, os.WriteFile(inst.Layout().SettingsPath(), []byte(content), 0o644))
}

func readSettings(t *testing.T, inst *Installer) string {
	t.Helper()
	data, err := os.ReadFile(inst.Layout().SettingsPath())
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(data), "settings must stay valid JSON:\n%s", data)
	return string(data)
}

func TestScriptContent(t *testing.T) {
	content := ScriptContent(bashGuard())
	assert.Equal(t, scriptHeader+"\n./guard.sh\n", content)
}

func TestInstallHookWithMatcher(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	h := bashGuard()

	res, err := inst.InstallHook(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, Created, res.Script)
	assert.Equal(t, Created, res.Binding)
	assert.Equal(t, "$CLAUDE_PROJECT_DIR/.claude/hooks/guards-PreToolUse-0-0.sh", res.Reference)
	assert.Equal(t, filepath.Join(inst.Layout().HooksDir(), "guards-PreToolUse-0-0.sh"), res.ScriptPath)

	script, err := os.ReadFile(res.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, ScriptContent(h), string(script))
	if runtime.GOOS != "windows" {
		info, err := os.Stat(res.ScriptPath)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0o111)
	}

	settings := readSettings(t, inst)
	group := gjson.Get(settings, "hooks.PreToolUse.0")
	assert.Equal(t, "Bash", group.Get("matcher").String())
	assert.Equal(t, "command", group.Get("hooks.0.type").String())
	assert.Equal(t, res.Reference, group.Get("hooks.0.command").String())
	assert.Equal(t, "Blocks rm -rf", group.Get("hooks.0.description").String())
	assert.Equal(t, int64(30), group.Get("hooks.0.timeout").Int())
}

func TestInstallHookIsIdempotent(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())

	for _, h := range []*hooks.Hook{bashGuard(), stopNotifier()} {
		_, err := inst.InstallHook(ctx, h)
		require.NoError(t, err)
	}
	first := readSettings(t, inst)

	for _, h := range []*hooks.Hook{bashGuard(), stopNotifier()} {
		res, err := inst.InstallHook(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, Verified, res.Script)
		assert.Equal(t, Verified, res.Binding)
	}

	settings := readSettings(t, inst)
	assert.Equal(t, first, settings)
	assert.Equal(t, int64(1), gjson.Get(settings, "hooks.PreToolUse.#").Int())
	assert.Equal(t, int64(1), gjson.Get(settings, "hooks.PreToolUse.0.hooks.#").Int())
	assert.Len(t, gjson.Get(settings, "hooks.Stop").Map(), 1)
}

func TestInstallHookWithoutMatcherUsesWildcard(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())

	res, err := inst.InstallHook(ctx, stopNotifier())
	require.NoError(t, err)
	assert.Equal(t, "notify-Stop-_.sh", filepath.Base(res.ScriptPath))

	settings := readSettings(t, inst)
	assert.True(t, gjson.Get(settings, "hooks.Stop").IsObject())
	assert.Equal(t, res.Reference, gjson.Get(settings, `hooks.Stop.\*`).String())
}

func TestInstallHookPreservesUnrelatedSettings(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	writeSettings(t, inst, `{
  "model": "opus",
  "permissions": {"allow": ["Bash(git status)"]},
  "hooks": {
    "Stop": [{"hooks": [{"type": "command", "command": "echo bye"}]}]
  },
  "env": {"FOO": "bar"}
}`)

	res, err := inst.InstallHook(ctx, bashGuard())
	require.NoError(t, err)
	assert.Equal(t, Created, res.Binding)

	settings := readSettings(t, inst)
	var keys []string
	gjson.Parse(settings).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	assert.Equal(t, []string{"model", "permissions", "hooks", "env"}, keys)
	assert.Equal(t, "opus", gjson.Get(settings, "model").String())
	assert.Equal(t, "Bash(git status)", gjson.Get(settings, "permissions.allow.0").String())
	assert.Equal(t, "bar", gjson.Get(settings, "env.FOO").String())
	assert.Equal(t, "echo bye", gjson.Get(settings, "hooks.Stop.0.hooks.0.command").String())
	assert.Equal(t, res.Reference, gjson.Get(settings, "hooks.PreToolUse.0.hooks.0.command").String())
}

func TestInstallHookJoinsExistingGroup(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	writeSettings(t, inst, `{"hooks": {"PreToolUse": [
  {"matcher": "Edit", "hooks": [{"type": "command", "command": "lint"}]},
  {"matcher": "Bash", "hooks": [{"type": "command", "command": "audit"}]}
]}}`)

	res, err := inst.InstallHook(ctx, bashGuard())
	require.NoError(t, err)

	settings := readSettings(t, inst)
	assert.Equal(t, int64(2), gjson.Get(settings, "hooks.PreToolUse.#").Int())
	assert.Equal(t, "audit", gjson.Get(settings, "hooks.PreToolUse.1.hooks.0.command").String())
	assert.Equal(t, res.Reference, gjson.Get(settings, "hooks.PreToolUse.1.hooks.1.command").String())
	assert.Equal(t, int64(1), gjson.Get(settings, "hooks.PreToolUse.0.hooks.#").Int())
}

func TestInstallHookConvertsFlatMap(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	writeSettings(t, inst, `{"hooks": {"PreToolUse": {"Bash": "audit", "*": "log-all"}}}`)

	res, err := inst.InstallHook(ctx, bashGuard())
	require.NoError(t, err)
	assert.Equal(t, Created, res.Binding)

	settings := readSettings(t, inst)
	require.True(t, gjson.Get(settings, "hooks.PreToolUse").IsArray())

	decoded := hooks.Decode(ctx, "project", []byte(settings))
	require.Len(t, decoded, 3)

	byCommand := map[string]*hooks.Hook{}
	for _, h := range decoded {
		byCommand[h.Command] = h
	}
	assert.Equal(t, "Bash", byCommand["audit"].Matcher)
	assert.Equal(t, "", byCommand["log-all"].Matcher)
	assert.Equal(t, "Bash", byCommand[res.Reference].Matcher)
}

func TestInstallHookWithoutMatcherIntoFlatMap(t *testing.T) {
	ctx := context.Background()

	t.Run("wildcard free", func(t *testing.T) {
		inst := NewInstaller(t.TempDir())
		writeSettings(t, inst, `{"hooks": {"Stop": {"Bash": "audit"}}}`)

		res, err := inst.InstallHook(ctx, stopNotifier())
		require.NoError(t, err)

		settings := readSettings(t, inst)
		assert.Equal(t, "audit", gjson.Get(settings, "hooks.Stop.Bash").String())
		assert.Equal(t, res.Reference, gjson.Get(settings, `hooks.Stop.\*`).String())
	})

	t.Run("wildcard taken", func(t *testing.T) {
		inst := NewInstaller(t.TempDir())
		writeSettings(t, inst, `{"hooks": {"Stop": {"*": "say bye"}}}`)

		res, err := inst.InstallHook(ctx, stopNotifier())
		require.NoError(t, err)

		settings := readSettings(t, inst)
		require.True(t, gjson.Get(settings, "hooks.Stop").IsArray())
		assert.Equal(t, int64(1), gjson.Get(settings, "hooks.Stop.#").Int())
		assert.False(t, gjson.Get(settings, "hooks.Stop.0.matcher").Exists())
		assert.Equal(t, "say bye", gjson.Get(settings, "hooks.Stop.0.hooks.0.command").String())
		assert.Equal(t, res.Reference, gjson.Get(settings, "hooks.Stop.0.hooks.1.command").String())
	})
}

func TestInstallHookVerifiesExistingFlatReference(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	h := stopNotifier()
	original := `{"hooks": {"Stop": {"Bash": "$CLAUDE_PROJECT_DIR/.claude/hooks/notify-Stop-_.sh"}}}`
	writeSettings(t, inst, original)

	res, err := inst.InstallHook(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, Verified, res.Binding)
	assert.Equal(t, original, readSettings(t, inst))
}

func TestInstallHookDeclinedScriptStillMerges(t *testing.T) {
	ctx := context.Background()
	confirmer := &recordingConfirmer{answer: false}
	inst := NewInstaller(t.TempDir(), WithConfirmer(confirmer))
	h := bashGuard()

	scriptPath := inst.Layout().ScriptPath(h.ScriptFileName())
	require.NoError(t, os.MkdirAll(inst.Layout().HooksDir(), 0o755))
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\necho custom\n"), 0o755))

	res, err := inst.InstallHook(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, KeptExisting, res.Script)
	assert.Equal(t, Created, res.Binding)
	require.Len(t, confirmer.conflicts, 1)

	script, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho custom\n", string(script))

	settings := readSettings(t, inst)
	assert.Equal(t, res.Reference, gjson.Get(settings, "hooks.PreToolUse.0.hooks.0.command").String())
}

func TestInstallHookCancelledSkipsSettings(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir(), WithConfirmer(&recordingConfirmer{err: ErrCancelled}))
	h := bashGuard()

	scriptPath := inst.Layout().ScriptPath(h.ScriptFileName())
	require.NoError(t, os.MkdirAll(inst.Layout().HooksDir(), 0o755))
	require.NoError(t, os.WriteFile(scriptPath, []byte("custom\n"), 0o755))

	res, err := inst.InstallHook(ctx, h)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, res.Binding)
	assert.NoFileExists(t, inst.Layout().SettingsPath())
}

func TestInstallHookRejectsMalformedSettings(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		settings string
	}{
		{name: "invalid json", settings: `{"hooks": {`},
		{name: "not an object", settings: `["hooks"]`},
		{name: "hooks not an object", settings: `{"hooks": ["PreToolUse"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := NewInstaller(t.TempDir())
			writeSettings(t, inst, tt.settings)

			res, err := inst.InstallHook(ctx, bashGuard())
			require.Error(t, err)
			assert.Equal(t, Created, res.Script)

			data, readErr := os.ReadFile(inst.Layout().SettingsPath())
			require.NoError(t, readErr)
			assert.Equal(t, tt.settings, string(data))
		})
	}
}

func TestRemoveHook(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())
	writeSettings(t, inst, `{"hooks": {"PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "audit"}]}]}}`)

	guard := bashGuard()
	res, err := inst.InstallHook(ctx, guard)
	require.NoError(t, err)

	removed, err := inst.RemoveHook(ctx, guard)
	require.NoError(t, err)
	assert.Equal(t, Removed, removed.Script)
	assert.Equal(t, Removed, removed.Binding)
	assert.NoFileExists(t, res.ScriptPath)

	settings := readSettings(t, inst)
	assert.Equal(t, int64(1), gjson.Get(settings, "hooks.PreToolUse.0.hooks.#").Int())
	assert.Equal(t, "audit", gjson.Get(settings, "hooks.PreToolUse.0.hooks.0.command").String())

	again, err := inst.RemoveHook(ctx, guard)
	require.NoError(t, err)
	assert.Equal(t, NotPresent, again.Script)
	assert.Equal(t, NotPresent, again.Binding)
}

func TestRemoveHookPrunesEmptySections(t *testing.T) {
	ctx := context.Background()
	inst := NewInstaller(t.TempDir())

	for _, h := range []*hooks.Hook{bashGuard(), stopNotifier()} {
		_, err := inst.InstallHook(ctx, h)
		require.NoError(t, err)
		_, err = inst.RemoveHook(ctx, h)
		require.NoError(t, err)
	}

	settings := readSettings(t, inst)
	assert.False(t, gjson.Get(settings, "hooks.PreToolUse").Exists())
	assert.False(t, gjson.Get(settings, "hooks.Stop").Exists())
	assert.True(t, gjson.Get(settings, "hooks").IsObject())
}

func TestRemoveHookWithoutSettings(t *testing.T) {
	inst := NewInstaller(t.TempDir())

	res, err := inst.RemoveHook(context.Background(), bashGuard())
	require.NoError(t, err)
	assert.Equal(t, NotPresent, res.Script)
	assert.Equal(t, NotPresent, res.Binding)
	assert.NoFileExists(t, inst.Layout().SettingsPath())
}
