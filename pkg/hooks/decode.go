package hooks

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jingkaihe/agentkit/pkg/logger"
)

const bindingTypeCommand = "command"

// Decode flattens the "hooks" section of a settings document into hooks named
// after source. Malformed input yields no hooks and a logged warning; Decode
// never fails.
func Decode(ctx context.Context, source string, data []byte) []*Hook {
	hooks, err := decode(ctx, source, data)
	if err != nil {
		logger.G(ctx).WithField("source", source).WithError(err).Warn("skipping hook settings document")
	}
	return hooks
}

// DecodeFile reads and decodes the settings document at path.
// Read failures are logged and yield no hooks.
func DecodeFile(ctx context.Context, source, path string) []*Hook {
	hooks, err := decodeFile(ctx, source, path)
	if err != nil {
		logger.G(ctx).WithField("path", path).WithError(err).Warn("skipping hook settings document")
	}
	return hooks
}

func decodeFile(ctx context.Context, source, path string) ([]*Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read hook settings %s", path)
	}

	hooks, err := decode(ctx, source, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode hook settings %s", path)
	}
	for _, h := range hooks {
		h.Path = path
	}
	return hooks, nil
}

func decode(ctx context.Context, source string, data []byte) ([]*Hook, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("document is not valid JSON")
	}

	section := gjson.GetBytes(data, "hooks")
	if !section.IsObject() {
		return nil, nil
	}

	log := logger.G(ctx).WithField("source", source)

	var hooks []*Hook
	section.ForEach(func(key, value gjson.Result) bool {
		event := EventType(key.String())
		switch {
		case value.IsArray():
			hooks = append(hooks, decodeGroups(source, event, value)...)
		case value.IsObject():
			hooks = append(hooks, decodePatterns(source, event, value)...)
		default:
			log.WithField("event", event).Debug("ignoring hook event with unsupported shape")
		}
		return true
	})

	return hooks, nil
}

// decodeGroups handles the array-of-groups shape:
// [{"matcher": "Bash", "hooks": [{"type": "command", "command": "..."}]}]
func decodeGroups(source string, event EventType, groups gjson.Result) []*Hook {
	var hooks []*Hook
	for gi, group := range groups.Array() {
		if !group.IsObject() {
			continue
		}

		var matcher string
		if m := group.Get("matcher"); m.Type == gjson.String {
			matcher = m.Str
		}

		entries := group.Get("hooks")
		if !entries.IsArray() {
			continue
		}

		for hi, entry := range entries.Array() {
			if entry.Get("type").Str != bindingTypeCommand {
				continue
			}
			command := entry.Get("command")
			if command.Type != gjson.String || command.Str == "" {
				continue
			}

			h := &Hook{
				Name:        fmt.Sprintf("%s-%s-%d-%d", source, event, gi, hi),
				Description: defaultDescription(source, event),
				EventType:   event,
				Matcher:     matcher,
				Command:     command.Str,
				Source:      source,
			}
			if d := entry.Get("description"); d.Type == gjson.String && d.Str != "" {
				h.Description = d.Str
			}
			if t := entry.Get("timeout"); t.Type == gjson.Number {
				timeout := int(t.Int())
				h.Timeout = &timeout
			}
			hooks = append(hooks, h)
		}
	}
	return hooks
}

// decodePatterns handles the flat-map shape: {"Bash": "command", "*": "command"}
func decodePatterns(source string, event EventType, patterns gjson.Result) []*Hook {
	var hooks []*Hook
	patterns.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String || value.Str == "" {
			return true
		}

		pattern := key.String()
		matcher := pattern
		if pattern == Wildcard {
			matcher = ""
		}

		hooks = append(hooks, &Hook{
			Name:        fmt.Sprintf("%s-%s-%s", source, event, pattern),
			Description: defaultDescription(source, event),
			EventType:   event,
			Matcher:     matcher,
			Command:     value.Str,
			Source:      source,
		})
		return true
	})
	return hooks
}

func defaultDescription(source string, event EventType) string {
	return fmt.Sprintf("%s hook from %s", event, source)
}
