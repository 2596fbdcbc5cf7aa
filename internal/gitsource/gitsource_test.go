package gitsource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

func commitFile(t *testing.T, wt *git.Worktree, name, content string, when time.Time) {
	t.Helper()
	f, err := wt.Filesystem.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = wt.Add(name)
	require.NoError(t, err)

	_, err = wt.Commit("revision", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: when},
	})
	require.NoError(t, err)
}

func TestWalkRepoYieldsOldestFirst(t *testing.T) {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	commitFile(t, wt, "file.txt", "v1\n", t1)
	commitFile(t, wt, "file.txt", "v2\n", t2)
	commitFile(t, wt, "file.txt", "v3\n", t3)

	head, err := repo.Head()
	require.NoError(t, err)

	snaps, err := WalkRepo(repo, head.Hash(), "file.txt")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, "v1\n", string(snaps[0].Content))
	assert.Equal(t, "v2\n", string(snaps[1].Content))
	assert.Equal(t, "v3\n", string(snaps[2].Content))
	assert.True(t, snaps[0].Timestamp.Before(snaps[1].Timestamp))
	assert.True(t, snaps[1].Timestamp.Before(snaps[2].Timestamp))
	assert.Equal(t, t1.Unix(), snaps[0].UnixTimestamp())
}

func TestWalkRepoIgnoresUnrelatedFiles(t *testing.T) {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	commitFile(t, wt, "tracked.txt", "a\n", t1)
	commitFile(t, wt, "other.txt", "b\n", t2)

	head, err := repo.Head()
	require.NoError(t, err)

	snaps, err := WalkRepo(repo, head.Hash(), "tracked.txt")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "a\n", string(snaps[0].Content))
}
