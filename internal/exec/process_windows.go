// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Windows process handling

//go:build windows

package exec

import (
	"os/exec"
)

// setPlatformProcessGroup is a no-op; Windows has no Unix-style process groups
func setPlatformProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the direct child via TerminateProcess
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// interruptProcessGroup falls back to Kill; console-less children cannot receive Ctrl+C
func interruptProcessGroup(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}
