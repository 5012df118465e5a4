// Package agents resolves agent definitions from the base and override agent
// libraries. An agent is a markdown document whose frontmatter names and
// describes it and whose body is the agent's system prompt.
package agents

import (
	"context"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/agentkit/pkg/catalog"
	"github.com/jingkaihe/agentkit/pkg/frontmatter"
)

// Metadata holds the frontmatter fields an agent understands
type Metadata struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Model       string `mapstructure:"model"`
	Color       string `mapstructure:"color"`
	Tools       string `mapstructure:"tools"`
}

// Agent is a resolved agent definition
type Agent struct {
	Metadata
	Content string // document body, frontmatter stripped and trimmed
	Tier    catalog.Tier
	Path    string
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName checks that name can be used as an installed file name
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return errors.Errorf("invalid agent name %q: use letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// Parse builds an agent from a markdown document. fallbackName is used when
// the frontmatter carries no name.
func Parse(ctx context.Context, fallbackName, text string) (*Agent, error) {
	doc := frontmatter.Parse(ctx, text)
	if !doc.HasHeader && startsWithDelimiter(text) {
		return nil, errors.New("frontmatter header is not terminated")
	}
	return fromDocument(fallbackName, doc)
}

func fromDocument(fallbackName string, doc frontmatter.Document) (*Agent, error) {
	var meta Metadata
	if err := mapstructure.Decode(doc.Fields, &meta); err != nil {
		return nil, errors.Wrap(err, "failed to decode agent frontmatter")
	}

	if meta.Name == "" {
		meta.Name = fallbackName
	}
	if err := ValidateName(meta.Name); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(doc.Body)
	if meta.Description == "" {
		meta.Description = summarize(content)
	}

	return &Agent{
		Metadata: meta,
		Content:  content,
	}, nil
}

// Fields returns the frontmatter in installation order: name, description,
// then model, color and tools when set.
func (a *Agent) Fields() []frontmatter.Field {
	fields := []frontmatter.Field{
		{Key: "name", Value: a.Name},
		{Key: "description", Value: a.Description},
	}
	if a.Model != "" {
		fields = append(fields, frontmatter.Field{Key: "model", Value: a.Model})
	}
	if a.Color != "" {
		fields = append(fields, frontmatter.Field{Key: "color", Value: a.Color})
	}
	if a.Tools != "" {
		fields = append(fields, frontmatter.Field{Key: "tools", Value: a.Tools})
	}
	return fields
}

// Document renders the agent as it is written into a project
func (a *Agent) Document() string {
	return frontmatter.Render(a.Fields(), a.Content)
}

// ToolNames coerces the tools field into a list. Both a YAML flow sequence
// ("[Read, Grep]") and a comma separated string are accepted.
func (a *Agent) ToolNames() []string {
	raw := strings.TrimSpace(a.Tools)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := yaml.Unmarshal([]byte(raw), &list); err == nil {
			return compact(list)
		}
		raw = strings.Trim(raw, "[]")
	}

	return compact(strings.Split(raw, ","))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func startsWithDelimiter(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimRight(first, "\r") == frontmatter.Delimiter
}
