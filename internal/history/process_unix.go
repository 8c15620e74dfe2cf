// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Process liveness on Unix

//go:build !windows

package history

import (
	"errors"
	"syscall"
)

// processAlive reports whether pid names a running process.
// Signal 0 checks existence without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
