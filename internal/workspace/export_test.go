// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Test hooks into package internals

package workspace

// ResetRunIDState clears the run ID generator between tests
func ResetRunIDState() {
	idMutex.Lock()
	defer idMutex.Unlock()
	lastTimestamp = ""
	lastCounter = 0
}
