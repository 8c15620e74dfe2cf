/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/modsrc"
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Manage the terraform module sources generated configuration points at",
}

var modulesSyncCmd = &cobra.Command{
	Use:   "sync [source]",
	Short: "Fetch module sources into the modules directory",
	Long: `Clone a git repository (GitHub, GitLab or any clone URL) or copy a local
directory into modules.dir. The source defaults to modules.source.
The previous modules directory is only replaced once the new copy is complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeModulesSync(cmd, args)
	},
}

var modulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every catalog module has a source directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := modsrc.Verify(cfg.Modules.Dir)
		printModuleReport(cmd.OutOrStdout(), report)
		if !report.Ready {
			return fmt.Errorf("%d module source(s) missing", len(report.Missing))
		}
		return nil
	},
}

var (
	syncRef  string
	syncFull bool
)

func init() {
	modulesSyncCmd.Flags().StringVar(&syncRef, "ref", "", "branch or tag to sync (default modules.ref)")
	modulesSyncCmd.Flags().BoolVar(&syncFull, "full", false, "clone the full history instead of a shallow clone")
	modulesCmd.AddCommand(modulesSyncCmd, modulesCheckCmd)
	rootCmd.AddCommand(modulesCmd)
}

func executeModulesSync(cmd *cobra.Command, args []string) error {
	source := cfg.Modules.Source
	if len(args) == 1 {
		source = args[0]
	}
	ref := cfg.Modules.Ref
	if syncRef != "" {
		ref = syncRef
	}

	out := cmd.OutOrStdout()
	progress := io.Discard
	if verbose {
		progress = cmd.ErrOrStderr()
	}

	logger.Info("syncing modules", zap.String("source", source), zap.String("ref", ref), zap.String("dir", cfg.Modules.Dir))
	result, err := modsrc.Sync(&modsrc.SyncConfig{
		Source:      source,
		Destination: cfg.Modules.Dir,
		Ref:         ref,
		Progress:    progress,
		Shallow:     !syncFull,
	})
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Synced %d files from %s (%s)", result.Files, result.Source, result.SourceType)
	if result.Revision != "" {
		summary += " at " + result.Revision[:7]
	}
	fmt.Fprintln(out, successStyle.Render("✅ "+summary))
	printModuleReport(out, result.Report)
	return nil
}

func printModuleReport(out io.Writer, report *modsrc.Report) {
	for _, m := range report.Modules {
		if m.Found {
			fmt.Fprintf(out, "  %s %-24s %s\n", successStyle.Render("✓"), m.Flag, mutedStyle.Render(m.Dir))
			continue
		}
		fmt.Fprintf(out, "  %s %-24s %s\n", warningStyle.Render("!"), m.Flag, m.Problem+" ("+m.Dir+")")
	}
}
