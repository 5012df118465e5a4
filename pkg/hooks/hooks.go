// Package hooks resolves hook bindings from settings documents found in the
// base and override hook libraries. Every binding decoded from a document is
// flattened into a Hook with a mechanically derived name, so a single binding
// can be selected and installed on its own.
package hooks

import (
	"regexp"

	"github.com/jingkaihe/agentkit/pkg/catalog"
)

// EventType is the lifecycle event a hook binding is attached to
type EventType string

// Event types understood by the destination settings format
const (
	EventPreToolUse       EventType = "PreToolUse"
	EventPostToolUse      EventType = "PostToolUse"
	EventNotification     EventType = "Notification"
	EventUserPromptSubmit EventType = "UserPromptSubmit"
	EventStop             EventType = "Stop"
	EventSubagentStop     EventType = "SubagentStop"
	EventPreCompact       EventType = "PreCompact"
	EventSessionStart     EventType = "SessionStart"
)

// AllEvents returns every known event type
func AllEvents() []EventType {
	return []EventType{
		EventPreToolUse,
		EventPostToolUse,
		EventNotification,
		EventUserPromptSubmit,
		EventStop,
		EventSubagentStop,
		EventPreCompact,
		EventSessionStart,
	}
}

// Known reports whether e is one of the enumerated event types.
// Unknown names are still decoded and carried as opaque strings.
func (e EventType) Known() bool {
	for _, known := range AllEvents() {
		if e == known {
			return true
		}
	}
	return false
}

// Wildcard is the flat-map key that applies a command to every tool
const Wildcard = "*"

// Hook is a single command binding resolved from a hook library
type Hook struct {
	Name        string
	Description string
	EventType   EventType
	Matcher     string // empty when the binding applies to all tools
	Command     string
	Timeout     *int
	Source      string // library entry (directory) the binding came from
	Tier        catalog.Tier
	Path        string // settings document the binding was decoded from
}

// HasMatcher reports whether the hook is restricted to matching tools
func (h *Hook) HasMatcher() bool {
	return h.Matcher != ""
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ScriptFileName is the file name the hook's script is installed under
func (h *Hook) ScriptFileName() string {
	return unsafeFileChars.ReplaceAllString(h.Name, "_") + ".sh"
}
