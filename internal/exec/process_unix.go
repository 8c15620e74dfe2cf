// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Unix process group handling so cancellation reaches terraform's providers too

//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// setPlatformProcessGroup starts the command as the leader of a new process group
func setPlatformProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to every process in the command's group
func killProcessGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGKILL)
}

// interruptProcessGroup sends SIGINT, which terraform treats as a graceful stop request
func interruptProcessGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGINT)
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Group already gone or not ours; fall back to the direct child
		return cmd.Process.Signal(sig)
	}

	// Negative pid addresses the whole group
	return syscall.Kill(-pgid, sig)
}
