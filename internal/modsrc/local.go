// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Local module directory copying

package modsrc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Paths never copied into the modules directory
var defaultSkipPatterns = []string{
	".git",
	".terraform",
	".terraform.lock.hcl",
	"terraform.tfstate",
	"terraform.tfstate.backup",
}

// syncFromLocal copies a local modules checkout into tree
func syncFromLocal(config *SyncConfig, tree string) (*SyncResult, error) {
	if err := ValidateLocalPath(config.Source); err != nil {
		return nil, err
	}

	srcPath, err := filepath.Abs(config.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}

	ignorePatterns := loadGitignore(srcPath)
	ignorePatterns = append(ignorePatterns, defaultSkipPatterns...)
	fmt.Fprintf(config.Progress, "Copying modules from %s\n", srcPath)

	var filesCopied int
	var bytesCopied int64

	err = walkDir(srcPath, func(path string, info os.FileInfo) error {
		relPath, err := filepath.Rel(srcPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath != "." && shouldSkip(relPath, ignorePatterns) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		destPath := filepath.Join(tree, relPath)
		if info.IsDir() {
			if err := os.MkdirAll(destPath, info.Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", destPath, err)
			}
			return nil
		}

		copied, err := copyFile(path, destPath, info)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", relPath, err)
		}
		filesCopied++
		bytesCopied += copied
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy modules: %w", err)
	}

	fmt.Fprintf(config.Progress, "Copied %d files (%d bytes)\n", filesCopied, bytesCopied)

	return &SyncResult{
		Source:     config.Source,
		SourceType: SourceTypeLocal,
		Files:      filesCopied,
		Bytes:      bytesCopied,
	}, nil
}

// walkDir walks a directory tree, calling walkFn for each file or directory
func walkDir(root string, walkFn func(path string, info os.FileInfo) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return walkFn(path, info)
	})
}

// shouldSkip checks if a path should be skipped based on patterns
func shouldSkip(relPath string, patterns []string) bool {
	relPath = filepath.ToSlash(relPath)
	parts := strings.Split(relPath, "/")

	for _, pattern := range patterns {
		if relPath == pattern || strings.HasPrefix(relPath, pattern+"/") {
			return true
		}
		for _, part := range parts {
			if part == pattern {
				return true
			}
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

// loadGitignore loads patterns from the source's .gitignore file
func loadGitignore(dir string) []string {
	file, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimPrefix(strings.TrimSuffix(line, "/"), "/")
		patterns = append(patterns, line)
	}
	return patterns
}

// copyFile copies a single file preserving permissions
func copyFile(src, dst string, info os.FileInfo) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return 0, err
		}
		return 0, os.Symlink(target, dst)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	defer dstFile.Close()

	return io.Copy(dstFile, srcFile)
}
