// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Generation history kept as git commits inside each workspace

package workspace

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// terraform's own working files stay out of status scans
var ignoredPatterns = []string{".terraform", "*.tfstate", "*.tfstate.*", "*.tfplan", "crash.log"}

// Snapshot commits the named files of a workspace.
// It returns nil when none of them changed since the last snapshot.
func (s *Store) Snapshot(ws *Workspace, message string, files []string) (*Snapshot, error) {
	repo, err := openOrInit(ws.Path)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	for _, p := range ignoredPatterns {
		wt.Excludes = append(wt.Excludes, gitignore.ParsePattern(p, nil))
	}

	for _, name := range files {
		if _, err := wt.Add(name); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", name, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	changed := false
	for _, name := range files {
		if fs, ok := status[name]; ok && fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			changed = true
			break
		}
	}
	if !changed {
		return nil, nil
	}

	when := time.Now()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: s.author, Email: s.email, When: when},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return &Snapshot{Hash: hash.String(), Message: message, When: when}, nil
}

// History returns up to limit snapshots of a workspace, newest first.
// A workspace that was never snapshotted has an empty history.
func (s *Store) History(ws *Workspace, limit int) ([]Snapshot, error) {
	repo, err := git.PlainOpen(ws.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()

	var out []Snapshot
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(out) >= limit {
			return storer.ErrStop
		}
		out = append(out, Snapshot{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}

	return out, nil
}

func openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to init history repository: %w", err)
		}
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history repository: %w", err)
	}
	return repo, nil
}
