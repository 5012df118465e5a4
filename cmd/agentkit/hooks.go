package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/config"
	"github.com/jingkaihe/agentkit/pkg/hooks"
	"github.com/jingkaihe/agentkit/pkg/install"
	"github.com/jingkaihe/agentkit/pkg/presenter"
)

// HookListConfig holds the flags of `hooks list`
type HookListConfig struct {
	Filter string
	Event  string
}

// HookInstallConfig holds the flags of `hooks install`
type HookInstallConfig struct {
	Force bool
	All   bool
}

var hooksCmd = &cobra.Command{
	Use:     "hooks",
	Aliases: []string{"hook"},
	Short:   "Manage hooks",
	Long: `List, install and remove hooks from the bundled and user libraries. Every
command binding in a library settings document is addressable on its own under a
derived name such as guards-PreToolUse-0-0.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var hooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available hooks",
	Long: `List the hooks available for installation.

Examples:
  agentkit hooks list
  agentkit hooks list --event PreToolUse --filter 'guards-*'`,
	Run: func(cmd *cobra.Command, _ []string) {
		opts := getHookListConfigFromFlags(cmd)
		if err := listHooksCmd(cmd.Context(), presenter.Default(), appConfig, opts); err != nil {
			presenter.Error(err, "Failed to list hooks")
			os.Exit(1)
		}
	},
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install [name...]",
	Short: "Install hooks into the project",
	Long: `Install hooks into the project. Each hook is written as a script under
.claude/hooks and bound in .claude/settings.json. Without names an interactive
menu is shown.`,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := projectRoot(cmd)
		if err != nil {
			presenter.Error(err, "Failed to install hooks")
			os.Exit(1)
		}
		opts := getHookInstallConfigFromFlags(cmd)
		if err := installHooksCmd(cmd.Context(), presenter.Default(), appConfig, root, args, opts); err != nil {
			presenter.Error(err, "Failed to install hooks")
			os.Exit(1)
		}
	},
}

var hooksRemoveCmd = &cobra.Command{
	Use:   "remove <name...>",
	Short: "Remove installed hooks from the project",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := projectRoot(cmd)
		if err != nil {
			presenter.Error(err, "Failed to remove hooks")
			os.Exit(1)
		}
		if err := removeHooksCmd(cmd.Context(), presenter.Default(), appConfig, root, args); err != nil {
			presenter.Error(err, "Failed to remove hooks")
			os.Exit(1)
		}
	},
}

func init() {
	hooksListCmd.Flags().StringP("filter", "f", "", "glob pattern hook names must match")
	hooksListCmd.Flags().StringP("event", "e", "", "only list hooks for this event")

	hooksInstallCmd.Flags().Bool("force", false, "overwrite changed scripts without asking")
	hooksInstallCmd.Flags().Bool("all", false, "install every available hook")

	hooksCmd.AddCommand(hooksListCmd)
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksRemoveCmd)
	rootCmd.AddCommand(hooksCmd)
}

func getHookListConfigFromFlags(cmd *cobra.Command) HookListConfig {
	var opts HookListConfig
	opts.Filter, _ = cmd.Flags().GetString("filter")
	opts.Event, _ = cmd.Flags().GetString("event")
	return opts
}

func getHookInstallConfigFromFlags(cmd *cobra.Command) HookInstallConfig {
	var opts HookInstallConfig
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.All, _ = cmd.Flags().GetBool("all")
	return opts
}

func listHooksCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, opts HookListConfig) error {
	match, err := nameMatcher(opts.Filter)
	if err != nil {
		return err
	}
	loader, err := newHookLoader(cfg)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, h := range loader.LoadAll(ctx) {
		if !match(h.Name) || (opts.Event != "" && string(h.EventType) != opts.Event) {
			continue
		}
		matcher := h.Matcher
		if !h.HasMatcher() {
			matcher = hooks.Wildcard
		}
		rows = append(rows, []string{h.Name, string(h.EventType), matcher, string(h.Tier), truncate(h.Command, 50)})
	}

	if len(rows) == 0 {
		out.Info("No hooks found.")
	} else {
		out.Table([]string{"NAME", "EVENT", "MATCHER", "TIER", "COMMAND"}, rows)
	}
	reportProblems(out, loader.Problems())
	return nil
}

func installHooksCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, root string, names []string, opts HookInstallConfig) error {
	ok, err := ensureProject(ctx, out, root)
	if err != nil || !ok {
		return err
	}

	loader, err := newHookLoader(cfg)
	if err != nil {
		return err
	}
	loader.LoadAll(ctx)

	switch {
	case opts.All:
		names = loader.ListNames(ctx)
	case len(names) == 0:
		names, err = selectNames(out, "hooks", loader.ListNames(ctx))
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
		h, found := loader.Get(ctx, name)
		if !found {
			out.Warning(fmt.Sprintf("Hook %q not found, skipping.", name))
			continue
		}
		if !h.EventType.Known() {
			out.Warning(fmt.Sprintf("Hook %s uses unknown event %q.", name, h.EventType))
		}

		res, err := inst.InstallHook(ctx, h)
		if errors.Is(err, install.ErrCancelled) {
			out.Info("Installation cancelled.")
			return nil
		}
		if res != nil && res.Script != "" {
			reportOutcome(out, fmt.Sprintf("hook %s script", name), res.Script)
		}
		if err != nil {
			return errors.Wrapf(err, "failed to install hook %s", name)
		}
		reportOutcome(out, fmt.Sprintf("hook %s settings", name), res.Binding)
	}
	return nil
}

func removeHooksCmd(ctx context.Context, out presenter.Presenter, cfg *config.Config, root string, names []string) error {
	loader, err := newHookLoader(cfg)
	if err != nil {
		return err
	}

	inst := install.NewInstaller(root)
	for _, name := range names {
		h, found := loader.Get(ctx, name)
		if !found {
			out.Warning(fmt.Sprintf("Hook %q not found, skipping.", name))
			continue
		}

		res, err := inst.RemoveHook(ctx, h)
		if err != nil {
			return errors.Wrapf(err, "failed to remove hook %s", name)
		}
		reportOutcome(out, fmt.Sprintf("hook %s script", name), res.Script)
		reportOutcome(out, fmt.Sprintf("hook %s settings", name), res.Binding)
	}
	return nil
}
