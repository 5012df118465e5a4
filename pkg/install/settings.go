package install

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/jingkaihe/agentkit/pkg/hooks"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

const hooksKey = "hooks"

var prettyOptions = &pretty.Options{Width: 80, Indent: "  "}

type settingsBinding struct {
	Type        string `json:"type"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Timeout     *int   `json:"timeout,omitempty"`
}

type settingsGroup struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []settingsBinding `json:"hooks"`
}

// settingsEdit mutates a settings document. Returning Verified or NotPresent
// leaves the file untouched.
type settingsEdit func(ctx context.Context, data []byte) ([]byte, Outcome, error)

// updateSettings runs edit against the settings document under an exclusive
// file lock. Malformed documents are reported, never rewritten.
func (i *Installer) updateSettings(ctx context.Context, edit settingsEdit) (Outcome, error) {
	path := i.layout.SettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for %s", path)
	}

	f, err := lockedfile.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	updated, outcome, err := edit(ctx, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to update %s", path)
	}
	if !outcome.Wrote() {
		return outcome, nil
	}

	if err := f.Truncate(0); err != nil {
		return "", errors.Wrapf(err, "failed to truncate %s", path)
	}
	if _, err := f.WriteAt(updated, 0); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return outcome, nil
}

func normalizeSettings(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("existing settings document is not valid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, errors.New("existing settings document is not a JSON object")
	}

	section := gjson.GetBytes(data, hooksKey)
	switch {
	case !section.Exists(), section.Type == gjson.Null:
		return sjson.SetRawBytes(data, hooksKey, []byte("{}"))
	case !section.IsObject():
		return nil, errors.Errorf("existing %q section is not a JSON object", hooksKey)
	}
	return data, nil
}

func eventPath(event hooks.EventType) string {
	return hooksKey + "." + gjson.Escape(string(event))
}

// mergeBinding returns an edit that ensures the settings document runs ref
// for the hook's event and matcher.
func mergeBinding(h *hooks.Hook, ref string) settingsEdit {
	return func(ctx context.Context, data []byte) ([]byte, Outcome, error) {
		data, err := normalizeSettings(data)
		if err != nil {
			return nil, "", err
		}

		path := eventPath(h.EventType)
		slot := gjson.GetBytes(data, path)
		if containsReference(slot, ref) {
			return data, Verified, nil
		}

		if useWildcardEntry(h, slot) {
			if !slot.IsObject() {
				if data, err = sjson.SetRawBytes(data, path, []byte("{}")); err != nil {
					return nil, "", errors.Wrap(err, "failed to add event section")
				}
			}
			data, err = sjson.SetBytes(data, path+"."+gjson.Escape(hooks.Wildcard), ref)
		} else {
			data, err = appendToGroup(ctx, data, path, h, ref)
		}
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to add hook binding")
		}

		return pretty.PrettyOptions(data, prettyOptions), Created, nil
	}
}

// useWildcardEntry reports whether an unmatched hook can be recorded as a
// "*" entry of the flat-map shape without displacing anything.
func useWildcardEntry(h *hooks.Hook, slot gjson.Result) bool {
	if h.HasMatcher() {
		return false
	}
	if !slot.Exists() || slot.Type == gjson.Null {
		return true
	}
	return slot.IsObject() && !slot.Get(gjson.Escape(hooks.Wildcard)).Exists()
}

func containsReference(slot gjson.Result, ref string) bool {
	found := false
	switch {
	case slot.IsArray():
		for _, group := range slot.Array() {
			for _, entry := range group.Get(hooksKey).Array() {
				if entry.Get("command").Str == ref {
					found = true
				}
			}
		}
	case slot.IsObject():
		slot.ForEach(func(_, value gjson.Result) bool {
			found = value.Type == gjson.String && value.Str == ref
			return !found
		})
	}
	return found
}

func appendToGroup(ctx context.Context, data []byte, path string, h *hooks.Hook, ref string) ([]byte, error) {
	slot := gjson.GetBytes(data, path)

	var err error
	switch {
	case slot.IsArray():
	case slot.IsObject():
		raw, convErr := json.Marshal(flatToGroups(ctx, slot))
		if convErr != nil {
			return nil, convErr
		}
		if data, err = sjson.SetRawBytes(data, path, raw); err != nil {
			return nil, err
		}
		slot = gjson.GetBytes(data, path)
	default:
		if data, err = sjson.SetRawBytes(data, path, []byte("[]")); err != nil {
			return nil, err
		}
		slot = gjson.GetBytes(data, path)
	}

	binding, err := json.Marshal(settingsBinding{
		Type:        "command",
		Command:     ref,
		Description: h.Description,
		Timeout:     h.Timeout,
	})
	if err != nil {
		return nil, err
	}

	for gi, group := range slot.Array() {
		if groupMatcher(group) != h.Matcher || !group.Get(hooksKey).IsArray() {
			continue
		}
		return sjson.SetRawBytes(data, fmt.Sprintf("%s.%d.%s.-1", path, gi, hooksKey), binding)
	}

	group, err := json.Marshal(settingsGroup{
		Matcher: h.Matcher,
		Hooks: []settingsBinding{{
			Type:        "command",
			Command:     ref,
			Description: h.Description,
			Timeout:     h.Timeout,
		}},
	})
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(data, path+".-1", group)
}

func groupMatcher(group gjson.Result) string {
	if m := group.Get("matcher"); m.Type == gjson.String {
		return m.Str
	}
	return ""
}

func isEmptySection(section gjson.Result) bool {
	switch {
	case section.IsArray():
		return len(section.Array()) == 0
	case section.IsObject():
		return len(section.Map()) == 0
	}
	return false
}

// flatToGroups converts the flat-map shape into equivalent array groups
func flatToGroups(ctx context.Context, slot gjson.Result) []settingsGroup {
	groups := []settingsGroup{}
	slot.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			logger.G(ctx).WithField("pattern", key.String()).Warn("dropping non-string flat-map hook entry during conversion")
			return true
		}
		matcher := key.String()
		if matcher == hooks.Wildcard {
			matcher = ""
		}
		groups = append(groups, settingsGroup{
			Matcher: matcher,
			Hooks:   []settingsBinding{{Type: "command", Command: value.Str}},
		})
		return true
	})
	return groups
}

// removeBinding returns an edit that deletes every entry running ref, pruning
// groups and event sections left empty.
func removeBinding(event hooks.EventType, ref string) settingsEdit {
	return func(_ context.Context, data []byte) ([]byte, Outcome, error) {
		if len(bytes.TrimSpace(data)) == 0 {
			return data, NotPresent, nil
		}
		data, err := normalizeSettings(data)
		if err != nil {
			return nil, "", err
		}

		path := eventPath(event)
		slot := gjson.GetBytes(data, path)
		if !containsReference(slot, ref) {
			return data, NotPresent, nil
		}

		if slot.IsArray() {
			data, err = removeFromGroups(data, path, slot, ref)
		} else {
			data, err = removeFromPatterns(data, path, slot, ref)
		}
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to remove hook binding")
		}

		if isEmptySection(gjson.GetBytes(data, path)) {
			if data, err = sjson.DeleteBytes(data, path); err != nil {
				return nil, "", errors.Wrap(err, "failed to remove empty event section")
			}
		}
		return pretty.PrettyOptions(data, prettyOptions), Removed, nil
	}
}

func removeFromGroups(data []byte, path string, slot gjson.Result, ref string) ([]byte, error) {
	groups := slot.Array()
	var err error
	for gi := len(groups) - 1; gi >= 0; gi-- {
		entries := groups[gi].Get(hooksKey).Array()
		removed := 0
		for hi := len(entries) - 1; hi >= 0; hi-- {
			if entries[hi].Get("command").Str != ref {
				continue
			}
			if data, err = sjson.DeleteBytes(data, fmt.Sprintf("%s.%d.%s.%d", path, gi, hooksKey, hi)); err != nil {
				return nil, err
			}
			removed++
		}
		if removed > 0 && removed == len(entries) {
			if data, err = sjson.DeleteBytes(data, fmt.Sprintf("%s.%d", path, gi)); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

func removeFromPatterns(data []byte, path string, slot gjson.Result, ref string) ([]byte, error) {
	var keys []string
	slot.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String && value.Str == ref {
			keys = append(keys, key.String())
		}
		return true
	})

	var err error
	for _, key := range keys {
		if data, err = sjson.DeleteBytes(data, path+"."+gjson.Escape(key)); err != nil {
			return nil, err
		}
	}
	return data, nil
}
