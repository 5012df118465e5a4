package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/agentkit/pkg/agents"
	"github.com/jingkaihe/agentkit/pkg/config"
	"github.com/jingkaihe/agentkit/pkg/hooks"
	"github.com/jingkaihe/agentkit/pkg/install"
	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/presenter"
)

// appConfig is resolved once per invocation before any subcommand runs
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "agentkit",
	Short: "Install agents and hooks into a project's .claude directory",
	Long: `agentkit resolves agents and hooks from a bundled library and a user library,
then installs the selected ones into a project. Installs are idempotent: unchanged
files are left alone and changed files are only replaced after confirmation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupRuntime(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./agentkit.yaml or $HOME/.agentkit/config.yaml)")
	flags.StringP("project", "C", ".", "project root to install into")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (text or json)")
	flags.BoolP("quiet", "q", false, "only print errors and prompts")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}

func setupRuntime(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	if err := config.Init(viper.GetViper(), configFile); err != nil {
		return err
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := logger.Configure(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	presenter.SetQuiet(quiet)

	appConfig = cfg
	return nil
}

func projectRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("project")
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve project root %s", root)
	}
	return abs, nil
}

func newAgentLoader(cfg *config.Config) (*agents.Loader, error) {
	lister, err := agents.NewDirLister(
		agents.WithBaseDir(cfg.Agents.BaseDir),
		agents.WithOverrideDir(cfg.Agents.OverrideDir),
		agents.WithExtension(cfg.Agents.Extension),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure agent sources")
	}
	return agents.NewLoader(lister), nil
}

func newHookLoader(cfg *config.Config) (*hooks.Loader, error) {
	discovery, err := hooks.NewDiscovery(
		hooks.WithBaseDir(cfg.Hooks.BaseDir),
		hooks.WithOverrideDir(cfg.Hooks.OverrideDir),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure hook sources")
	}
	return hooks.NewLoader(discovery), nil
}

func newInstaller(p presenter.Presenter, root string, force bool) *install.Installer {
	return install.NewInstaller(root,
		install.WithConfirmer(&promptConfirmer{out: p}),
		install.WithForce(force),
	)
}
