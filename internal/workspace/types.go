// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// workspace types/constants

package workspace

import (
	"errors"
	"time"
)

const (
	RunIDPrefix   = "run"
	DirPerm       = 0o755
	FilePerm      = 0o644
	StateFile     = "terraform.tfstate"
	MaxIDLength   = 64
	DefaultAuthor = "tfpanel"
	DefaultEmail  = "tfpanel@localhost"
	LockDir       = ".locks" // under the root; never a valid workspace id
)

var (
	// ErrInvalidID is returned for identifiers that are not a single safe path segment
	ErrInvalidID = errors.New("invalid workspace identifier")

	// ErrNotFound is returned when a workspace directory does not exist
	ErrNotFound = errors.New("workspace not found")

	// ErrLocked is returned when another run or process holds the workspace lock
	ErrLocked = errors.New("workspace is locked")
)

// Workspace is a directory holding one set of generated configuration files
type Workspace struct {
	ID      string
	Path    string
	Created bool // true when Ensure created the directory
}

// StoreConfig holds configuration for the workspace store
type StoreConfig struct {
	Root    string
	History bool   // commit generated files into a per-workspace git repository
	Author  string // commit author name
	Email   string // commit author email
}

// Info describes a workspace found on disk
type Info struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Files    []string  `json:"files"`
	HasState bool      `json:"has_state"`
	ModTime  time.Time `json:"mod_time"`
}

// Snapshot is one recorded generation of a workspace
type Snapshot struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}
