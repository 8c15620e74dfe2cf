/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/workspace"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [workspace]",
	Short: "Show recorded terraform runs",
	Long: `Show the terraform runs recorded in the history database, newest first.
Without a workspace, runs across all workspaces are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.History.Enabled {
			return fmt.Errorf("run history is disabled (history.enabled)")
		}

		filter := ""
		if len(args) > 0 {
			if err := workspace.ValidateID(args[0]); err != nil {
				return err
			}
			filter = args[0]
		}

		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), filter, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No runs recorded"))
			return nil
		}

		t := newTable("RUN", "WORKSPACE", "ACTION", "STATUS", "EXIT", "STARTED", "DURATION")
		for _, run := range runs {
			t.Row(run.ID, run.Workspace, run.Action, statusText(run.Status),
				strconv.Itoa(run.ExitCode), run.StartedAt.Format(time.DateTime),
				run.Duration().Round(time.Millisecond).String())
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func statusText(status string) string {
	switch status {
	case "succeeded":
		return successStyle.Render(status)
	case "failed", "errored":
		return errorStyle.Render(status)
	case "cancelled", history.StatusInterrupted:
		return warningStyle.Render(status)
	default:
		return status
	}
}
