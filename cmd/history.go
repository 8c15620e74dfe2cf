/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <workspace>",
	Short: "Show the generation snapshots of a workspace",
	Long: `Show the generated configuration snapshots recorded in the workspace's
git repository, newest first. Inspect one with git inside the workspace:

  git -C client_workspaces/client_alpha show <hash>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ws, err := store.Open(args[0])
		if err != nil {
			return err
		}

		snaps, err := store.History(ws, historyLimit)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No snapshots for "+ws.ID))
			return nil
		}

		t := newTable("HASH", "WHEN", "MESSAGE")
		for _, snap := range snaps {
			t.Row(snap.Hash[:7], snap.When.Format(time.DateTime), strings.TrimSpace(snap.Message))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of snapshots to show")
	rootCmd.AddCommand(historyCmd)
}
