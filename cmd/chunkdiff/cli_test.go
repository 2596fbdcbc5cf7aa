package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/hashid"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it. The subcommands under test write straight to
// os.Stdout (as the teacher's own CLI output does), so this is the
// simplest way to assert on their output without threading a writer
// through cobra's RunE signature.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestRunChunkProducesOneLinePerChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc\ncde\n"), 0o644))

	chunkMaxChars = 4096
	out := captureStdout(t, func() {
		require.NoError(t, runChunk(chunkCmd, []string{path}))
	})
	assert.Len(t, splitLines(out), 1) // splits to one chunk under the default budget
}

func TestRunDiffThenReconstructRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	diffPath := filepath.Join(dir, "a.diff")
	require.NoError(t, os.WriteFile(path, []byte("abcdefghijkl\na\ncdefgh\n"), 0o644))

	chunkMaxChars = 10
	chunkOut := captureStdout(t, func() {
		require.NoError(t, runChunk(chunkCmd, []string{path}))
	})
	require.NoError(t, os.WriteFile(diffPath, []byte(chunkOut), 0o644))

	// An edit to the interior line should leave the first chunk matched
	// and only the second re-chunked (spec.md scenario S5).
	require.NoError(t, os.WriteFile(path, []byte("abcdefghijkl\nb\ncdefgh\n"), 0o644))
	diffMaxChars = 10
	diffOut := captureStdout(t, func() {
		require.NoError(t, runDiff(diffCmd, []string{path, diffPath}))
	})
	lines := splitLines(diffOut)
	require.Len(t, lines, 2)
	assert.Contains(t, diffOut, " M ")
	assert.Contains(t, diffOut, " U ")

	newDiffPath := filepath.Join(dir, "a2.diff")
	require.NoError(t, os.WriteFile(newDiffPath, []byte(diffOut), 0o644))

	reconOut := captureStdout(t, func() {
		require.NoError(t, runReconstruct(reconstructCmd, []string{path, newDiffPath}))
	})
	require.Len(t, splitLines(reconOut), 2)
}

func TestRunReconstructBrokenChainFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	diffPath := filepath.Join(dir, "broken.diff")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	// A dangling ref: FIRST -> H("x\n"), with nothing continuing on to
	// LAST. Reconstruct must fail with ErrBrokenChain.
	line := chunkref.Line{
		Ref: chunkref.Ref{
			Start:     hashid.First,
			End:       hashid.H("x\n"),
			Hash:      hashid.H("x\n"),
			Timestamp: 1,
		},
		Flag: chunkref.FlagUnmatched,
	}
	require.NoError(t, os.WriteFile(diffPath, []byte(line.Encode()+"\n"), 0o644))

	err := runReconstruct(reconstructCmd, []string{path, diffPath})
	assert.Error(t, err)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
