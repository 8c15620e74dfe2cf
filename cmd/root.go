/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/config"
	"github.com/sony-level/tfpanel/internal/logging"
)

var (
	// Global flags
	configPath    string
	verbose       bool
	logLevel      string
	logFormat     string
	workspaceRoot string
	modulesDir    string
	terraformBin  string
	noHistory     bool

	// Loaded in PersistentPreRunE
	cfg       *config.Config
	cfgFile   string // file the configuration came from, empty when none
	logger    *zap.Logger
	logLevels *zap.AtomicLevel
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tfpanel",
	Short: "Terraform control panel for per-client data platform workspaces",
	Long: `tfpanel renders infrastructure module selections into a Terraform
configuration per client workspace and drives terraform init, plan and
apply against it, streaming the console output back to the operator.

Run "tfpanel serve" for the browser panel, or use the subcommands to do
the same from a terminal.

Examples:
  tfpanel serve
  tfpanel generate client_alpha --module object-storage --env dev
  tfpanel plan client_alpha
  tfpanel runs client_alpha
  tfpanel doctor`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags - available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./.tfpanel.yaml, ~/.config/tfpanel/config.yaml, /etc/tfpanel/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace-root", "", "Directory holding one subdirectory per client workspace")
	rootCmd.PersistentFlags().StringVar(&modulesDir, "modules-dir", "", "Directory holding the Terraform module sources")
	rootCmd.PersistentFlags().StringVar(&terraformBin, "terraform", "", "Terraform binary to run")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record runs or generation snapshots")
}

// setup loads the configuration and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	loaded, err := loader.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(loaded)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := loaded.Resolve(); err != nil {
		return err
	}

	cfgFile = configPath
	if cfgFile == "" {
		cfgFile, _ = loader.FindConfigFile()
	}

	l, atom, err := logging.New(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}

	cfg, logger, logLevels = loaded, l, atom
	logger.Debug("configuration loaded", zap.String("file", cfgFile))
	return nil
}

// applyFlagOverrides gives command line flags the last word over files and environment
func applyFlagOverrides(c *config.Config) {
	if verbose {
		c.Log.Level = "debug"
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if workspaceRoot != "" {
		c.Workspace.Root = workspaceRoot
	}
	if modulesDir != "" {
		c.Modules.Dir = modulesDir
	}
	if terraformBin != "" {
		c.Terraform.Binary = terraformBin
	}
	if noHistory {
		c.History.Enabled = false
		c.Workspace.History = false
	}
}
