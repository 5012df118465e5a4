// Package frontmatter splits markdown documents into a flat key/value header
// and a body. The header is a deliberately small YAML-like subset: one
// "key: value" pair per line between two "---" lines. Values stay strings;
// callers coerce them.
package frontmatter

import (
	"context"
	"strings"

	"github.com/jingkaihe/agentkit/pkg/logger"
)

// Delimiter opens and closes a frontmatter header
const Delimiter = "---"

// Document is the result of parsing a markdown document
type Document struct {
	Fields    map[string]string
	Body      string
	HasHeader bool
}

// Field is a single header entry used when rendering a document
type Field struct {
	Key   string
	Value string
}

// Parse extracts the optional frontmatter header from text.
// Parse never fails: an unterminated header is logged and the whole text is
// returned as the body with no fields.
func Parse(ctx context.Context, text string) Document {
	first, rest, more := strings.Cut(text, "\n")
	if !isDelimiter(first) {
		return Document{Fields: map[string]string{}, Body: text}
	}

	fields := make(map[string]string)
	remaining := rest
	lineNo := 1
	for more {
		var line string
		line, remaining, more = strings.Cut(remaining, "\n")
		lineNo++

		if isDelimiter(line) {
			body := remaining
			if !more {
				body = ""
			}
			return Document{Fields: fields, Body: body, HasHeader: true}
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			logger.G(ctx).WithField("line", lineNo).Debug("ignoring frontmatter line without a key")
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	logger.G(ctx).Warn("frontmatter header is not terminated, treating document as plain body")
	return Document{Fields: map[string]string{}, Body: text}
}

// Render produces a document whose header holds fields in the given order
// followed by body. Newlines inside values are folded into spaces so the
// result always parses back to the same fields.
func Render(fields []Field, body string) string {
	var sb strings.Builder
	sb.WriteString(Delimiter + "\n")
	for _, f := range fields {
		sb.WriteString(strings.TrimSpace(f.Key))
		sb.WriteString(": ")
		sb.WriteString(foldValue(f.Value))
		sb.WriteString("\n")
	}
	sb.WriteString(Delimiter + "\n")

	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, "\r") == Delimiter
}

func foldValue(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
