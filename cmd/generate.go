/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/render"
	"github.com/sony-level/tfpanel/internal/session"
)

var (
	// Form flags shared by generate and the terraform commands
	formRegion           string
	formEnvironment      string
	formModules          []string
	formBucketPrefix     string
	formSnowflakeAccount string
	formDBTProject       string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [workspace]",
	Short: "Render main.tf, variables.tf and terraform.tfvars for a workspace",
	Long: `Render the selected modules into a Terraform configuration inside the
workspace directory, creating it when needed. Regenerating replaces the
three files; unchanged output is not recorded again in the history.

Modules:
  object-storage, data-warehouse, transformation-project,
  workflow-orchestration, version-control

Examples:
  tfpanel generate client_alpha --module object-storage
  tfpanel generate client_beta -m object-storage -m data-warehouse --snowflake-account acme --env prod`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeGenerate(cmd, args)
	},
}

func init() {
	addFormFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func addFormFlags(c *cobra.Command) {
	c.Flags().StringVarP(&formRegion, "region", "r", "", "AWS region (default: first configured region)")
	c.Flags().StringVarP(&formEnvironment, "env", "e", "", "Environment (default: first configured environment)")
	c.Flags().StringSliceVarP(&formModules, "module", "m", nil, "Module to enable (repeatable)")
	c.Flags().StringVar(&formBucketPrefix, "bucket-prefix", "", "S3 bucket prefix (default: <workspace>-data-lake)")
	c.Flags().StringVar(&formSnowflakeAccount, "snowflake-account", "", "Snowflake account identifier")
	c.Flags().StringVar(&formDBTProject, "dbt-project", "", "dbt Cloud project name (default: <workspace>_analytics)")
}

// formFromFlags builds the session form for a workspace from the command line
func formFromFlags(args []string) session.Form {
	form := session.DefaultForm(settingsFrom(cfg))
	if len(args) > 0 {
		form.Workspace = args[0]
	}
	if formRegion != "" {
		form.Region = formRegion
	}
	if formEnvironment != "" {
		form.Environment = formEnvironment
	}
	form.Modules = append([]string{}, formModules...)
	form.Inputs = render.Inputs{
		BucketPrefix:     formBucketPrefix,
		SnowflakeAccount: formSnowflakeAccount,
		DBTProjectName:   formDBTProject,
	}
	return form
}

func executeGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.manager.Create()
	s.SetForm(formFromFlags(args))
	printer := newConsolePrinter(cmd.OutOrStdout(), s.Log)

	gen, err := a.manager.Generate(s)
	printer.flush()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if verbose {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render(gen.Path+"/main.tf"))
		fmt.Fprint(cmd.OutOrStdout(), gen.Rendered.Declarations)
	}
	return nil
}
