package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/agentkit/pkg/presenter"
	"github.com/jingkaihe/agentkit/pkg/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up a project for agents and hooks",
	Long:  `Create the .claude/agents and .claude/hooks directories in the project root.`,
	Run: func(cmd *cobra.Command, _ []string) {
		root, err := projectRoot(cmd)
		if err == nil {
			err = initProjectCmd(cmd.Context(), presenter.Default(), root)
		}
		if err != nil {
			presenter.Error(err, "Failed to initialize project")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initProjectCmd(ctx context.Context, out presenter.Presenter, root string) error {
	created, err := project.Init(ctx, root)
	if err != nil {
		return err
	}

	layout := project.NewLayout(root)
	if created {
		out.Success(fmt.Sprintf("Initialized %s", layout.ConfigDir()))
	} else {
		out.Info(fmt.Sprintf("%s is already initialized", layout.ConfigDir()))
	}
	return nil
}
