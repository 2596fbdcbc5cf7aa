// Package chunkref defines the pointer-to-a-chunk value used to describe a
// file's history without carrying line content: four fixed-width fields
// whose concatenation is the wire-format header spec.md §6 defines.
package chunkref

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arlobridge/chunkdiff/internal/hashid"
)

// timestampWidth is the fixed width, in decimal digits, of the serialized
// Unix-seconds timestamp field.
const timestampWidth = 10

// ErrMalformed is returned by Parse when a line does not match the
// fixed-width wire format.
var ErrMalformed = errors.New("chunkref: malformed input")

// Ref is a pointer to a [chunk.Chunk]: its boundary identities, its content
// hash, and the timestamp of the revision it was produced from.
type Ref struct {
	Start     hashid.Digest
	End       hashid.Digest
	Hash      hashid.Digest
	Timestamp int64
}

// ID returns the fixed-width concatenation of Start, End, Hash and
// Timestamp — the textual identity of the ref, and the header of its
// serialized wire-format line.
func (r Ref) ID() string {
	var b strings.Builder
	b.Grow(3*hashid.Width + timestampWidth)
	b.WriteString(string(r.Start))
	b.WriteString(string(r.End))
	b.WriteString(string(r.Hash))
	fmt.Fprintf(&b, "%0*d", timestampWidth, r.Timestamp)
	return b.String()
}

// HeaderWidth is the width in characters of Ref.ID(): 3*hashid.Width+10.
func HeaderWidth() int { return 3*hashid.Width + timestampWidth }

// Flag distinguishes, in the serialized wire format, whether a ref was
// matched from an earlier revision ([FlagMatched]) or is new/unchanged at
// the current timestamp ([FlagUnmatched]).
type Flag byte

const (
	FlagUnmatched Flag = 'U'
	FlagMatched   Flag = 'M'
)

// Line is one serialized diff-line: a Ref plus its flag and free-text,
// informational description.
type Line struct {
	Ref         Ref
	Flag        Flag
	Description string
}

// Encode renders l in the fixed-width wire format described in spec.md §6:
//
//	<start><end><hash><timestamp> <flag> <description>
func (l Line) Encode() string {
	var b strings.Builder
	b.WriteString(l.Ref.ID())
	b.WriteByte(' ')
	b.WriteByte(byte(l.Flag))
	if l.Description != "" {
		b.WriteByte(' ')
		b.WriteString(l.Description)
	}
	return b.String()
}

// Parse decodes one wire-format line produced by [Line.Encode]. It returns
// [ErrMalformed] wrapped with context on any width mismatch or non-hex
// digest field — an [InputError] per spec.md §7.
func Parse(line string) (Line, error) {
	hw := hashid.Width
	header := HeaderWidth()
	if len(line) < header+2 {
		return Line{}, fmt.Errorf("%w: line too short (%d bytes, want at least %d)", ErrMalformed, len(line), header+2)
	}
	start, end, hash := line[:hw], line[hw:2*hw], line[2*hw:3*hw]
	tsField := line[3*hw : header]
	rest := line[header:]
	if !strings.HasPrefix(rest, " ") {
		return Line{}, fmt.Errorf("%w: missing space after header", ErrMalformed)
	}
	rest = rest[1:]

	for _, f := range [...]string{start, end, hash} {
		if _, err := hex.DecodeString(f); err != nil {
			return Line{}, fmt.Errorf("%w: non-hex digest %q: %v", ErrMalformed, f, err)
		}
	}
	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return Line{}, fmt.Errorf("%w: bad timestamp %q: %v", ErrMalformed, tsField, err)
	}

	if len(rest) == 0 {
		return Line{}, fmt.Errorf("%w: missing flag", ErrMalformed)
	}
	flag := Flag(rest[0])
	if flag != FlagUnmatched && flag != FlagMatched {
		return Line{}, fmt.Errorf("%w: invalid flag %q", ErrMalformed, rest[0])
	}
	desc := strings.TrimPrefix(rest[1:], " ")

	return Line{
		Ref: Ref{
			Start:     hashid.Digest(start),
			End:       hashid.Digest(end),
			Hash:      hashid.Digest(hash),
			Timestamp: ts,
		},
		Flag:        flag,
		Description: desc,
	}, nil
}

// Description builds the informational "<characterCount> <firstLineIndex>
// <lastLineIndex>" free-text field spec.md §6 describes.
func Description(characterCount, firstLineIndex, lastLineIndex int) string {
	return fmt.Sprintf("%d %d %d", characterCount, firstLineIndex, lastLineIndex)
}
