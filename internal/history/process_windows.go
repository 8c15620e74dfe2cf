// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Process liveness on Windows

//go:build windows

package history

import "os"

// processAlive reports whether pid names a running process.
// FindProcess opens a handle on Windows and fails for exited processes.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
