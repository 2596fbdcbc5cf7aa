// Package gitsource is the external revision driver for the `simulate`
// subcommand (spec.md §6): it walks a tracked file's commit history and
// yields the `(content, timestamp)` pairs the ingestion algorithm
// (spec.md §4.5) consumes, oldest revision first.
package gitsource

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Snapshot is one revision of a tracked file.
type Snapshot struct {
	Content   []byte
	Timestamp time.Time
}

// UnixTimestamp is s.Timestamp truncated to whole seconds, the unit
// [internal/chunkref.Ref.Timestamp] and [internal/reconcile.Diff] use.
func (s Snapshot) UnixTimestamp() int64 { return s.Timestamp.Unix() }

// Open opens the git repository rooted at dir.
func Open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("gitsource: open %s: %w", dir, err)
	}
	return repo, nil
}

// Walk opens the repository at dir and walks path's history on HEAD,
// oldest commit first.
func Walk(dir, path string) ([]Snapshot, error) {
	repo, err := Open(dir)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("gitsource: resolve HEAD in %s: %w", dir, err)
	}
	return WalkRepo(repo, head.Hash(), path)
}

// WalkRepo walks path's history starting at from, oldest commit first.
// Commits that did not touch path are skipped; a missing path at a given
// commit (it was deleted, or not yet created) is not an error.
func WalkRepo(repo *git.Repository, from plumbing.Hash, path string) ([]Snapshot, error) {
	commits, err := repo.Log(&git.LogOptions{From: from, FileName: &path})
	if err != nil {
		return nil, fmt.Errorf("gitsource: log %s: %w", path, err)
	}

	var snaps []Snapshot
	err = commits.ForEach(func(c *object.Commit) error {
		f, err := c.File(path)
		if err != nil {
			if errors.Is(err, object.ErrFileNotFound) {
				return nil
			}
			return fmt.Errorf("commit %s: %w", c.Hash, err)
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.Hash, err)
		}
		snaps = append(snaps, Snapshot{
			Content:   []byte(content),
			Timestamp: c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gitsource: walk %s: %w", path, err)
	}

	// repo.Log yields newest-first; the ingestion pipeline needs oldest
	// first (spec.md §4.5 processes revisions in chronological order).
	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}
