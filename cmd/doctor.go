/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/modsrc"
	"github.com/sony-level/tfpanel/internal/prereq"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that terraform and git are installed",
	Long: `Check the toolchain tfpanel shells out to and print install guides
for anything missing. Also reports where workspaces and modules are read from.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeDoctor(cmd)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func executeDoctor(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	checker := prereq.NewChecker(cfg.Terraform.Binary)
	summary := checker.Check(cmd.Context())

	fmt.Fprintln(out, headerStyle.Render("Toolchain"))
	for _, r := range summary.Results {
		switch {
		case r.Found:
			fmt.Fprintf(out, "  %s %-10s %s\n", successStyle.Render("✓"), r.Name, mutedStyle.Render(r.Version+" "+r.Path))
		case r.Required:
			fmt.Fprintf(out, "  %s %-10s %s\n", errorStyle.Render("✗"), r.Name, "not found ("+r.Command+")")
		default:
			fmt.Fprintf(out, "  %s %-10s %s\n", warningStyle.Render("!"), r.Name, "not found (optional)")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Paths"))
	fmt.Fprintf(out, "  workspaces  %s\n", cfg.Workspace.Root)
	fmt.Fprintf(out, "  modules     %s%s\n", cfg.Modules.Dir, missingSuffix(cfg.Modules.Dir))
	if cfg.History.Enabled {
		fmt.Fprintf(out, "  history     %s\n", cfg.History.DBPath)
	}
	if cfgFile != "" {
		fmt.Fprintf(out, "  config      %s\n", cfgFile)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Modules"))
	report := modsrc.Verify(cfg.Modules.Dir)
	printModuleReport(out, report)

	if !summary.AllFound {
		fmt.Fprintln(out)
		fmt.Fprint(out, checker.FormatMissing(summary))
	}
	if !summary.Ready {
		return fmt.Errorf("required tools are missing")
	}
	if !report.Ready {
		return fmt.Errorf("module sources are incomplete; run tfpanel modules sync")
	}
	return nil
}

func missingSuffix(path string) string {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return warningStyle.Render("  (missing)")
	}
	return ""
}
