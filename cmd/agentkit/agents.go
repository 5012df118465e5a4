package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/agents"
	"github.com/jingkaihe/agentkit/pkg/config"
	"github.com/jingkaihe/agentkit/pkg/install"
	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/project"
)

// AgentInstallConfig holds the flags of `agents install`
type AgentInstallConfig struct {
	Force bool
	All   bool
}

// AgentNewConfig holds the flags of `agents new`
type AgentNewConfig struct {
	Description string
	Model       string
	Color       string
	Tools       string
	Prompt      string
	Force       bool
}

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Aliases: []string{"agent"},
	Short:   "Manage agents",
	Long:    `List, inspect, install and remove agents from the bundled and user libraries.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agents",
	Long: `List the agents available for installation. When an agent exists in both
libraries the user copy is listed.

Examples:
  agentkit agents list
  agentkit agents list --filter 'code-*'`,
	Run: func(cmd *cobra.Command, _ []string) {
		filter, _ := cmd.Flags().GetString("filter")
		if err := listAgentsCmd(cmd.Context(), presenter.Default(), appConfig, filter); err != nil {
			presenter.Error(err, "Failed to list agents")
			os.Exit(1)
		}
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an agent definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, _ := cmd.Flags().GetBool("raw")
		if err := showAgentCmd(cmd.Context(), presenter.Default(), appConfig, args[0], raw); err != nil {
			presenter.Error(err, "Failed to show agent")
			os.Exit(1)
		}
	},
}

var agentsInstallCmd = &cobra.Command{
	Use:   "install [name...]",
	Short: "Install agents into the project",
	Long: `Install one or more agents into the project's .claude/agents directory.
Without names an interactive menu is shown.

Examples:
  agentkit agents install code-reviewer
  agentkit agents install --all --force`,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := projectRoot(cmd)
		if err != nil {
			presenter.Error(err, "Failed to install agents")
			os.Exit(1)
		}
		opts := getAgentInstallConfigFromFlags(cmd)
		if err := installAgentsCmd(cmd.Context(), presenter.Default(), appConfig, root, args, opts); err != nil {
			presenter.Error(err, "Failed to install agents")
			os.Exit(1)
		}
	},
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <name...>",
	Short: "Remove installed agents from the project",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := projectRoot(cmd)
		if err != nil {
			presenter.Error(err, "Failed to remove agents")
			os.Exit(1)
		}
		if err := removeAgentsCmd(cmd.Context(), presenter.Default(), root, args); err != nil {
			presenter.Error(err, "Failed to remove agents")
			os.Exit(1)
		}
	},
}

var agentsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an agent in the user library",
	Long: `Create a new agent document in the user library. Missing values are asked for
interactively. A user agent with the same name as a bundled one replaces it.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		opts := getAgentNewConfigFromFlags(cmd)
		if err := newAgentCmd(cmd.Context(), presenter.Default(), appConfig, name, opts); err != nil {
			presenter.Error(err, "Failed to create agent")
			os.Exit(1)
		}
	},
}

func init() {
	agentsListCmd.Flags().StringP("filter", "f", "", "glob pattern agent names must match")
	agentsShowCmd.Flags().Bool("raw", false, "print the document instead of rendering it")

	agentsInstallCmd.Flags().Bool("force", false, "overwrite changed files without asking")
	agentsInstallCmd.Flags().Bool("all", false, "install every available agent")

	agentsNewCmd.Flags().String("description", "", "what the agent is for")
	agentsNewCmd.Flags().String("model", "", "model the agent runs on")
	agentsNewCmd.Flags().String("color", "", "display color")
	agentsNewCmd.Flags().String("tools", "", "comma separated tools the agent may use")
	agentsNewCmd.Flags().String("prompt", "", "system prompt of the agent")
	agentsNewCmd.Flags().Bool("force", false, "replace an existing user agent")

	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
	agentsCmd.AddCommand(agentsInstallCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
	agentsCmd.AddCommand(agentsNewCmd)
	rootCmd.AddCommand(agentsCmd)
}

func getAgentInstallConfigFromFlags(cmd *cobra.Command) AgentInstallConfig {
	var opts AgentInstallConfig
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.All, _ = cmd.Flags().GetBool("all")
	return opts
}

func getAgentNewConfigFromFlags(cmd *cobra.Command) AgentNewConfig {
	var opts AgentNewConfig
	opts.Description, _ = cmd.Flags().GetString("description")
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.Color, _ = cmd.Flags().GetString("color")
	opts.Tools, _ = cmd.Flags().GetString("tools")
	opts.Prompt, _ = cmd.Flags().GetString("prompt")
	opts.Force, _ = cmd.Flags().GetBool("force")
	return opts
}

func listAgentsCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, filter string) error {
	match, err := nameMatcher(filter)
	if err != nil {
		return err
	}
	loader, err := newAgentLoader(cfg)
	if err != nil {
		return err
	}
	all, err := loader.LoadAll(ctx)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, agent := range all {
		if !match(agent.Name) {
			continue
		}
		rows = append(rows, []string{agent.Name, string(agent.Tier), agent.Model, truncate(agent.Description, 60)})
	}

	if len(rows) == 0 {
		out.Info("No agents found.")
	} else {
		out.Table([]string{"NAME", "TIER", "MODEL", "DESCRIPTION"}, rows)
	}
	reportProblems(out, loader.Problems())
	return nil
}

func showAgentCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, name string, raw bool) error {
	loader, err := newAgentLoader(cfg)
	if err != nil {
		return err
	}
	agent, ok := loader.Get(ctx, name)
	if !ok {
		out.Warning(fmt.Sprintf("Agent %q not found.", name))
		return nil
	}

	if raw {
		out.Info(strings.TrimRight(agent.Document(), "\n"))
		return nil
	}

	out.Section(agent.Name)
	rows := [][]string{
		{"Description", agent.Description},
		{"Tier", string(agent.Tier)},
		{"Path", agent.Path},
	}
	if agent.Model != "" {
		rows = append(rows, []string{"Model", agent.Model})
	}
	if tools := agent.ToolNames(); len(tools) > 0 {
		rows = append(rows, []string{"Tools", strings.Join(tools, ", ")})
	}
	out.Table(nil, rows)

	rendered, err := renderMarkdown(agent.Content)
	if err != nil {
		return err
	}
	out.Info(rendered)
	return nil
}

func renderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to create markdown renderer")
	}
	rendered, err := r.Render(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to render agent")
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// ensureProject offers to initialize root when it has no configuration
// directory. It reports whether installation may continue.
func ensureProject(ctx context.Context, out presenter.Presenter, root string) (bool, error) {
	if (project.DirDetector{}).Initialized(root) {
		return true, nil
	}

	answer := strings.ToLower(out.Prompt(fmt.Sprintf("%s is not set up for agents yet. Initialize it?", root), "y", "N"))
	if answer != "y" && answer != "yes" {
		out.Info("Installation cancelled.")
		return false, nil
	}
	if _, err := project.Init(ctx, root); err != nil {
		return false, err
	}
	return true, nil
}

func installAgentsCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, root string, names []string, opts AgentInstallConfig) error {
	ok, err := ensureProject(ctx, out, root)
	if err != nil || !ok {
		return err
	}

	loader, err := newAgentLoader(cfg)
	if err != nil {
		return err
	}
	if _, err := loader.LoadAll(ctx); err != nil {
		return err
	}

	switch {
	case opts.All:
		names = loader.ListNames(ctx)
	case len(names) == 0:
		names, err = selectNames(out, "agents", loader.ListNames(ctx))
		if errors.Is(err, install.ErrCancelled) {
			out.Info("Installation cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	inst := newInstaller(out, root, opts.Force)
	for _, name := range names {
		agent, found := loader.Get(ctx, name)
		if !found {
			out.Warning(fmt.Sprintf("Agent %q not found, skipping.", name))
			continue
		}

		outcome, err := inst.InstallAgent(ctx, agent)
		if errors.Is(err, install.ErrCancelled) {
			out.Info("Installation cancelled.")
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "failed to install agent %s", name)
		}
		reportOutcome(out, "agent "+name, outcome)
	}
	return nil
}

func removeAgentsCmd(ctx context.Context, out presenter.Presenter, root string, names []string) error {
	inst := install.NewInstaller(root)
	for _, name := range names {
		outcome, err := inst.RemoveAgent(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "failed to remove agent %s", name)
		}
		reportOutcome(out, "agent "+name, outcome)
	}
	return nil
}

func newAgentCmd(_ context.Context, out presenter.Presenter, cfg *config.Config, name string, opts AgentNewConfig) error {
	if name == "" {
		name = out.Prompt("Agent name")
	}
	if name == "" {
		out.Info("Cancelled.")
		return nil
	}
	if err := agents.ValidateName(name); err != nil {
		return err
	}

	ext := cfg.Agents.Extension
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(cfg.Agents.OverrideDir, name+ext)
	if _, err := os.Stat(path); err == nil && !opts.Force {
		out.Warning(fmt.Sprintf("%s already exists, use --force to replace it.", path))
		return nil
	}

	if opts.Description == "" {
		opts.Description = out.Prompt("Description")
	}
	if opts.Prompt == "" {
		opts.Prompt = out.Prompt("System prompt")
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		out.Info("Cancelled.")
		return nil
	}

	agent := &agents.Agent{
		Metadata: agents.Metadata{
			Name:        name,
			Description: opts.Description,
			Model:       opts.Model,
			Color:       opts.Color,
			Tools:       opts.Tools,
		},
		Content: strings.TrimSpace(opts.Prompt),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(agent.Document()), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	out.Success(fmt.Sprintf("Created agent %s at %s", name, path))
	return nil
}
