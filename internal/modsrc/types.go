// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Module source types and constants

package modsrc

import (
	"io"
	"regexp"

	"github.com/sony-level/tfpanel/internal/render"
)

// Source type constants
const (
	SourceTypeUnknown = "unknown"
	SourceTypeGitHub  = "github"
	SourceTypeGitLab  = "gitlab"
	SourceTypeGit     = "git" // any other clone URL
	SourceTypeLocal   = "local"
)

// Common patterns for hosted git URLs
var (
	// HTTPS: https://github.com/org/repo or https://github.com/org/repo.git
	githubHTTPSPattern = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// SSH: git@github.com:org/repo.git
	githubSSHPattern = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
	// HTTPS: https://gitlab.com/group/repo or https://gitlab.com/group/repo.git
	gitlabHTTPSPattern = regexp.MustCompile(`^https?://gitlab\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// SSH: git@gitlab.com:group/repo.git
	gitlabSSHPattern = regexp.MustCompile(`^git@gitlab\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
	// Anything else a clone can start from: scheme URLs and scp-style user@host:path
	genericGitPattern = regexp.MustCompile(`^(?:(?:https?|ssh|git|file)://|[\w.-]+@[\w.-]+:)`)
)

// SyncConfig holds configuration for syncing module sources
type SyncConfig struct {
	Source      string    // git URL or local directory
	Destination string    // modules directory the renderer points at
	Ref         string    // branch or tag, remote default when empty
	Progress    io.Writer // clone progress (optional, defaults to io.Discard)
	Shallow     bool      // depth=1 clone for remote repositories
}

// SyncResult contains the result of a sync
type SyncResult struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	SourceType  string  `json:"source_type"`
	Revision    string  `json:"revision,omitempty"` // commit synced from git sources
	Files       int     `json:"files"`
	Bytes       int64   `json:"bytes"`
	Report      *Report `json:"report"`
}

// GitRepoInfo contains parsed hosted repository information
type GitRepoInfo struct {
	Owner    string
	Repo     string
	URL      string
	Platform string // "github" or "gitlab"
}

// ModuleCheck is the presence of one catalog module's source directory
type ModuleCheck struct {
	Flag     render.Flag `json:"flag"`
	Dir      string      `json:"dir"`
	Found    bool        `json:"found"`
	TFFiles  int         `json:"tf_files"`
	Problem  string      `json:"problem,omitempty"`
}

// Report lists which catalog modules can be referenced from generated configuration
type Report struct {
	Dir     string        `json:"dir"`
	Modules []ModuleCheck `json:"modules"`
	Ready   bool          `json:"ready"` // every module has a source
	Missing []render.Flag `json:"missing,omitempty"`
}
