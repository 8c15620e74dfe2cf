/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sony-level/tfpanel/internal/exec"
)

var (
	generateFirst bool
	assumeYes     bool
)

func init() {
	for _, action := range exec.Actions {
		rootCmd.AddCommand(newActionCommand(action))
	}
}

// newActionCommand builds the init, plan and apply commands
func newActionCommand(action exec.Action) *cobra.Command {
	c := &cobra.Command{
		Use:   string(action) + " [workspace]",
		Short: fmt.Sprintf("Run terraform %s in a workspace", action),
		Long: fmt.Sprintf(`Run terraform %[1]s in the workspace directory and stream its output.
Ctrl-C interrupts terraform and stops it for good after the grace period.

Examples:
  tfpanel %[1]s client_alpha
  tfpanel %[1]s client_alpha --generate --module object-storage`, action),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeAction(cmd, action, args)
		},
	}
	c.Flags().BoolVarP(&generateFirst, "generate", "g", false, "Regenerate the configuration from the form flags first")
	if action == exec.ActionApply {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Apply without asking for confirmation")
	}
	addFormFlags(c)
	return c
}

func executeAction(cmd *cobra.Command, action exec.Action, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.manager.Create()
	s.SetForm(formFromFlags(args))
	printer := newConsolePrinter(cmd.OutOrStdout(), s.Log)

	if generateFirst {
		_, err := a.manager.Generate(s)
		printer.flush()
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
	}

	if action == exec.ActionApply && !assumeYes {
		command := a.manager.Settings().Terraform.Command(action)
		if !confirmApply(cmd.InOrStdin(), cmd.OutOrStdout(), s.Form().Workspace, command.String()) {
			return fmt.Errorf("apply aborted")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.manager.Start(s, action); err != nil {
		printer.flush()
		return err
	}

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			a.manager.Cancel(s)
		case <-done:
		}
	}()
	printer.follow(done)

	last := s.LastRun()
	if last == nil {
		return fmt.Errorf("terraform %s did not run", action)
	}
	if last.Status != exec.StatusSucceeded {
		return fmt.Errorf("terraform %s %s", action, last.Status)
	}
	return nil
}
