// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Git cloning of module sources

package modsrc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// syncFromGit clones the module repository into tree without its .git directory
func syncFromGit(config *SyncConfig, sourceType, tree string) (*SyncResult, error) {
	cloneURL := NormalizeGitURL(config.Source)
	fmt.Fprintf(config.Progress, "Cloning %s\n", cloneURL)

	cloneOpts := &git.CloneOptions{
		URL:      cloneURL,
		Progress: config.Progress,
	}
	if config.Ref != "" {
		cloneOpts.ReferenceName = referenceName(config.Ref)
		cloneOpts.SingleBranch = true
	}
	// Local file transports do not negotiate shallow clones
	if config.Shallow && !strings.HasPrefix(cloneURL, "file://") {
		cloneOpts.Depth = 1
		cloneOpts.SingleBranch = true
	}

	repo, err := git.PlainClone(tree, false, cloneOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone module repository: %w", err)
	}

	revision := ""
	if head, err := repo.Head(); err == nil {
		revision = head.Hash().String()
	}

	// Only the module files matter; the history would be copied into every sync
	if err := os.RemoveAll(filepath.Join(tree, ".git")); err != nil {
		return nil, fmt.Errorf("failed to strip git metadata: %w", err)
	}

	files, bytes, err := countFiles(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to count synced files: %w", err)
	}
	fmt.Fprintf(config.Progress, "Cloned %d files (%d bytes)\n", files, bytes)

	return &SyncResult{
		Source:     config.Source,
		SourceType: sourceType,
		Revision:   revision,
		Files:      files,
		Bytes:      bytes,
	}, nil
}

// referenceName accepts short branch or tag names as well as full references
func referenceName(ref string) plumbing.ReferenceName {
	switch {
	case strings.HasPrefix(ref, "refs/"):
		return plumbing.ReferenceName(ref)
	case strings.HasPrefix(ref, "tags/"):
		return plumbing.NewTagReferenceName(strings.TrimPrefix(ref, "tags/"))
	default:
		return plumbing.NewBranchReferenceName(ref)
	}
}

// countFiles counts files and total bytes in a directory
func countFiles(dir string) (int, int64, error) {
	var fileCount int
	var byteCount int64

	err := walkDir(dir, func(path string, info os.FileInfo) error {
		if !info.IsDir() {
			fileCount++
			byteCount += info.Size()
		}
		return nil
	})

	return fileCount, byteCount, err
}
