/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/tfstate"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state <workspace>",
	Short: "Summarize the terraform state of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		ws, err := store.Open(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		summary, err := tfstate.Load(ws.StatePath())
		if errors.Is(err, tfstate.ErrNoState) {
			fmt.Fprintln(out, mutedStyle.Render("No state yet for "+ws.ID+"; run tfpanel apply first"))
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s  serial %d, terraform %s, %d instances\n",
			headerStyle.Render(ws.ID), summary.Serial, summary.TerraformVersion, summary.InstanceCount())

		t := newTable("ADDRESS", "MODE", "INSTANCES")
		for _, r := range summary.Resources {
			t.Row(r.Address, r.Mode, strconv.Itoa(r.Instances))
		}
		fmt.Fprintln(out, t)

		if len(summary.Outputs) > 0 {
			fmt.Fprintln(out, headerStyle.Render("Outputs"))
			for _, name := range summary.Outputs {
				fmt.Fprintln(out, "  "+name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
