package chunkref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/chunkdiff/internal/hashid"
)

func TestIDRoundTrip(t *testing.T) {
	r := Ref{Start: hashid.First, End: hashid.H("abc\n"), Hash: hashid.H("xyz"), Timestamp: 42}
	id := r.ID()
	assert.Len(t, id, HeaderWidth())

	l := Line{Ref: r, Flag: FlagUnmatched, Description: Description(10, 0, 3)}
	enc := l.Encode()

	got, err := Parse(enc)
	require.NoError(t, err)
	assert.Equal(t, r, got.Ref)
	assert.Equal(t, FlagUnmatched, got.Flag)
	assert.Equal(t, "10 0 3", got.Description)
}

func TestParseNoDescription(t *testing.T) {
	r := Ref{Start: hashid.First, End: hashid.Last, Hash: hashid.H(""), Timestamp: 0}
	l := Line{Ref: r, Flag: FlagMatched}
	got, err := Parse(l.Encode())
	require.NoError(t, err)
	assert.Equal(t, r, got.Ref)
	assert.Equal(t, "", got.Description)
}

func TestParseMalformed(t *testing.T) {
	tt := []string{
		"",
		"short",
		string(make([]byte, HeaderWidth())), // no space, no flag
	}
	for _, in := range tt {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrMalformed)
	}
}

func TestParseBadHex(t *testing.T) {
	r := Ref{Start: hashid.First, End: hashid.Last, Hash: hashid.H(""), Timestamp: 0}
	l := Line{Ref: r, Flag: FlagMatched}
	enc := l.Encode()
	// corrupt a hex digit in the start field.
	bad := "z" + enc[1:]
	_, err := Parse(bad)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseBadFlag(t *testing.T) {
	r := Ref{Start: hashid.First, End: hashid.Last, Hash: hashid.H(""), Timestamp: 0}
	l := Line{Ref: r, Flag: FlagMatched}
	enc := l.Encode()
	idx := HeaderWidth() + 1
	bad := enc[:idx] + "X" + enc[idx+1:]
	_, err := Parse(bad)
	assert.ErrorIs(t, err, ErrMalformed)
}
