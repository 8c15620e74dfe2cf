// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Terraform subcommands

package exec

import (
	"fmt"
	"strings"
)

// DefaultTerraformBinary is looked up on PATH when no binary is configured
const DefaultTerraformBinary = "terraform"

// Action is a provisioning step the panel can trigger
type Action string

const (
	ActionInit  Action = "init"
	ActionPlan  Action = "plan"
	ActionApply Action = "apply"
)

// Actions lists the supported actions in the order an operator runs them
var Actions = []Action{ActionInit, ActionPlan, ActionApply}

// ParseAction validates an action name
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q (want init, plan or apply)", name)
}

// Terraform builds provisioning commands
type Terraform struct {
	Binary string
	Color  bool // keep ANSI colours in the output
}

// Command returns the command line for an action.
// Input prompts are disabled because nothing is attached to stdin.
func (t Terraform) Command(a Action) Command {
	binary := t.Binary
	if binary == "" {
		binary = DefaultTerraformBinary
	}

	args := []string{string(a)}
	if a == ActionApply {
		args = append(args, "-auto-approve")
	}
	args = append(args, "-input=false")
	if !t.Color {
		args = append(args, "-no-color")
	}

	return Command{
		Name: binary,
		Args: args,
		Env:  []string{"TF_IN_AUTOMATION=1"},
	}
}
