/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/render"
	"github.com/sony-level/tfpanel/internal/workspace"
)

// workspacesCmd represents the workspaces command
var workspacesCmd = &cobra.Command{
	Use:     "workspaces",
	Aliases: []string{"ls"},
	Short:   "List client workspaces",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		infos, err := store.List(render.FileNames)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No workspaces under "+store.Root()))
			return nil
		}

		t := newTable("WORKSPACE", "FILES", "STATE", "MODIFIED")
		for _, info := range infos {
			state := "-"
			if info.HasState {
				state = "yes"
			}
			files := strings.Join(info.Files, ", ")
			if files == "" {
				files = "-"
			}
			t.Row(info.ID, files, state, info.ModTime.Format(time.DateTime))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workspacesCmd)
}

// openStore opens the workspace store without the rest of the app
func openStore() (*workspace.Store, error) {
	return workspace.NewStore(&workspace.StoreConfig{
		Root:    cfg.Workspace.Root,
		History: cfg.Workspace.History,
		Author:  cfg.Workspace.Author,
		Email:   cfg.Workspace.Email,
	})
}

// newTable returns a borderless table with styled headers
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
}
