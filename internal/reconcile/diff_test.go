package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/hashid"
	"github.com/arlobridge/chunkdiff/internal/lineset"
)

func TestCreateOneRefPerChunk(t *testing.T) {
	cs := chunk.Segment(lineset.New("abc\ncde\n"))
	d := Create(cs, 42)
	require.Equal(t, len(cs), d.Len())
	for _, r := range d.Refs() {
		assert.EqualValues(t, 42, r.Timestamp)
	}
}

func TestReconstructSingleRevision(t *testing.T) {
	cs := chunk.Segment(lineset.New("a\nb\nc\na\nd\n"))
	d := Create(cs, 1)
	got, err := d.Reconstruct()
	require.NoError(t, err)
	require.Equal(t, d.Len(), got.Len())
	assert.Equal(t, hashid.First, got.Refs()[0].Start)
	assert.Equal(t, hashid.Last, got.Refs()[got.Len()-1].End)
}

func TestReconstructLatestTimestampWins(t *testing.T) {
	// Revision 1: S5/S6-style two-chunk split of the original text.
	before := chunk.Segment(lineset.New("abcdefghijkl\na\ncdefgh\n")).Split(10)
	older := Create(before, 1)

	// Revision 2: only the interior line changes, producing three chunks
	// whose boundaries win every conflict with the older revision's refs.
	after := chunk.Segment(lineset.New("abcdefghijkl\nb\ncdefgh\n"))
	newer := Create(after, 2)

	merged, err := older.Merge(newer)
	require.NoError(t, err)

	require.Equal(t, len(after), merged.Len())
	for i, r := range merged.Refs() {
		assert.Equal(t, after[i].Start, r.Start, "chunk %d start", i)
		assert.Equal(t, after[i].End, r.End, "chunk %d end", i)
		assert.EqualValues(t, 2, r.Timestamp, "chunk %d should come from the newer revision", i)
	}
}

func TestReconstructRejectedRefsDoNotBreakTheChain(t *testing.T) {
	// A stale ref whose Start collides with an accepted, newer ref must be
	// dropped silently rather than produce a duplicate or broken chain.
	before := chunk.Segment(lineset.New("abcdefghijkl\na\ncdefgh\n")).Split(10)
	older := Create(before, 1)
	after := chunk.Segment(lineset.New("abcdefghijkl\nb\ncdefgh\n"))
	newer := Create(after, 2)

	combined := FromRefs(append(append([]chunkref.Ref(nil), older.Refs()...), newer.Refs()...))
	got, err := combined.Reconstruct()
	require.NoError(t, err)

	// every accepted ref must come from the newer revision.
	for _, r := range got.Refs() {
		assert.EqualValues(t, 2, r.Timestamp)
	}
	// chain still walks cleanly from FIRST to LAST.
	assert.Equal(t, hashid.First, got.Refs()[0].Start)
	assert.Equal(t, hashid.Last, got.Refs()[got.Len()-1].End)
}

func TestReconstructBrokenChain(t *testing.T) {
	refs := []chunkref.Ref{
		{Start: hashid.First, End: hashid.H("x\n"), Hash: hashid.H("x\n"), Timestamp: 1},
		// Gap: nothing continues from H("x\n") to LAST.
		{Start: hashid.H("y\n"), End: hashid.Last, Hash: hashid.H("y\n"), Timestamp: 1},
	}
	_, err := FromRefs(refs).Reconstruct()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrokenChain))
}

func TestReconstructEmptyDiffIsBrokenChain(t *testing.T) {
	_, err := FromRefs(nil).Reconstruct()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrokenChain))
}

func TestContains(t *testing.T) {
	cs := chunk.Segment(lineset.New("abc\ncde\n"))
	d := Create(cs, 7)
	assert.True(t, d.Contains(d.Refs()[0]))

	other := chunkref.Ref{Start: hashid.First, End: hashid.H("zzz"), Hash: hashid.H("zzz"), Timestamp: 7}
	assert.False(t, d.Contains(other))
}

func TestExtractDelegatesToChunkExtract(t *testing.T) {
	cs := chunk.Segment(lineset.New("a\nb\nc\na\nd\n"))
	d := Create(cs, 1)
	matched, remainder := d.Extract(cs)
	assert.Len(t, matched, len(cs))
	assert.Empty(t, remainder)
}

func TestEncodeDecodeLinesRoundTrip(t *testing.T) {
	cs := chunk.Segment(lineset.New("abc\ncde\n"))
	d := Create(cs, 99)

	lines := d.EncodeLines(99)
	require.Len(t, lines, d.Len())
	for _, l := range lines {
		assert.Equal(t, chunkref.FlagUnmatched, l.Flag)
	}

	var decoded []chunkref.Line
	for _, l := range lines {
		parsed, err := chunkref.Parse(l.Encode())
		require.NoError(t, err)
		decoded = append(decoded, parsed)
	}

	roundTripped := FromLines(decoded)
	require.Equal(t, d.Len(), roundTripped.Len())
	for i, r := range roundTripped.Refs() {
		assert.Equal(t, d.Refs()[i], r)
	}
}

func TestEncodeLinesFlagsCurrentTimestampRefsAsUnmatched(t *testing.T) {
	before := chunk.Segment(lineset.New("abcdefghijkl\na\ncdefgh\n")).Split(10)
	older := Create(before, 1)
	after := chunk.Segment(lineset.New("abcdefghijkl\nb\ncdefgh\n"))
	newer := Create(after, 2)

	merged, err := older.Merge(newer)
	require.NoError(t, err)

	lines := merged.EncodeLines(2)
	for _, l := range lines {
		assert.Equal(t, chunkref.FlagUnmatched, l.Flag, "every surviving ref came from the ts=2 revision")
	}
}
