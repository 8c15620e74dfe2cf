// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Module source sync: detection, staging and swap

package modsrc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Sync replaces the modules directory with a fresh copy of the source.
// The new tree is staged next to the destination and only swapped in once
// complete, so a failed sync leaves the previous modules untouched.
func Sync(config *SyncConfig) (*SyncResult, error) {
	if config == nil {
		return nil, fmt.Errorf("sync config is nil")
	}
	if config.Source == "" {
		return nil, fmt.Errorf("module source is empty (set modules.source)")
	}
	if config.Destination == "" {
		return nil, fmt.Errorf("modules directory is empty")
	}
	if config.Progress == nil {
		config.Progress = io.Discard
	}

	dest, err := filepath.Abs(config.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve modules directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	staging, err := os.MkdirTemp(filepath.Dir(dest), ".modules-sync-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)
	tree := filepath.Join(staging, "tree")

	sourceType := DetectSourceType(config.Source)
	var result *SyncResult
	switch sourceType {
	case SourceTypeGitHub, SourceTypeGitLab, SourceTypeGit:
		result, err = syncFromGit(config, sourceType, tree)
	case SourceTypeLocal:
		result, err = syncFromLocal(config, tree)
	default:
		return nil, fmt.Errorf("unknown source type for: %s", config.Source)
	}
	if err != nil {
		return nil, err
	}

	if err := swap(tree, dest); err != nil {
		return nil, err
	}
	result.Destination = dest
	result.Report = Verify(dest)
	return result, nil
}

// swap moves tree to dest, replacing whatever was there
func swap(tree, dest string) error {
	old := dest + ".old"
	_ = os.RemoveAll(old)

	hadPrevious := false
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, old); err != nil {
			return fmt.Errorf("failed to move previous modules aside: %w", err)
		}
		hadPrevious = true
	}

	if err := os.Rename(tree, dest); err != nil {
		if hadPrevious {
			_ = os.Rename(old, dest)
		}
		return fmt.Errorf("failed to install synced modules: %w", err)
	}
	if hadPrevious {
		_ = os.RemoveAll(old)
	}
	return nil
}

// DetectSourceType determines if the source is a git URL or local path
func DetectSourceType(source string) string {
	switch {
	case IsGitHubURL(source):
		return SourceTypeGitHub
	case IsGitLabURL(source):
		return SourceTypeGitLab
	case genericGitPattern.MatchString(source):
		return SourceTypeGit
	case isLocalPath(source):
		return SourceTypeLocal
	default:
		return SourceTypeUnknown
	}
}

// IsGitHubURL checks if the source is a valid GitHub URL
func IsGitHubURL(source string) bool {
	return githubHTTPSPattern.MatchString(source) || githubSSHPattern.MatchString(source)
}

// IsGitLabURL checks if the source is a valid GitLab URL
func IsGitLabURL(source string) bool {
	return gitlabHTTPSPattern.MatchString(source) || gitlabSSHPattern.MatchString(source)
}

// ParseGitURL extracts owner and repo from a GitHub or GitLab URL
func ParseGitURL(url string) (*GitRepoInfo, error) {
	patterns := []struct {
		re       *regexp.Regexp
		platform string
	}{
		{githubHTTPSPattern, SourceTypeGitHub},
		{githubSSHPattern, SourceTypeGitHub},
		{gitlabHTTPSPattern, SourceTypeGitLab},
		{gitlabSSHPattern, SourceTypeGitLab},
	}

	for _, p := range patterns {
		if matches := p.re.FindStringSubmatch(url); matches != nil {
			return &GitRepoInfo{
				Owner:    matches[1],
				Repo:     strings.TrimSuffix(matches[2], ".git"),
				URL:      url,
				Platform: p.platform,
			}, nil
		}
	}
	return nil, fmt.Errorf("invalid git URL: %s", url)
}

// NormalizeGitURL converts hosted git URLs to HTTPS; other URLs pass through
func NormalizeGitURL(url string) string {
	info, err := ParseGitURL(url)
	if err != nil {
		return url
	}

	switch info.Platform {
	case SourceTypeGitHub:
		return fmt.Sprintf("https://github.com/%s/%s.git", info.Owner, info.Repo)
	case SourceTypeGitLab:
		return fmt.Sprintf("https://gitlab.com/%s/%s.git", info.Owner, info.Repo)
	default:
		return url
	}
}

// isLocalPath checks if the source appears to be a local path
func isLocalPath(source string) bool {
	if filepath.IsAbs(source) {
		return true
	}
	if source == "." || source == ".." {
		return true
	}
	if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		return true
	}
	if _, err := os.Stat(source); err == nil {
		return true
	}
	return !strings.Contains(source, "://") && !strings.Contains(source, "@")
}

// ValidateLocalPath validates that a local path exists and is a directory
func ValidateLocalPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", absPath)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", absPath)
		}
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}
	return nil
}
