// Package lineset splits a snapshot's text into indexed, hashed lines and
// derives the subset of lines that uniquely identify themselves within the
// file — the segmentation oracle the chunker anchors boundaries on.
package lineset

import (
	"strings"

	"github.com/arlobridge/chunkdiff/internal/hashid"
)

// Line is a single line of a snapshot: its position, its text (newline
// included, except possibly for the final line), and its content hash.
type Line struct {
	Index int
	Value string
	Hash  hashid.Digest
}

// LineSet is an ordered, contiguous, zero-indexed sequence of [Line]s.
type LineSet struct {
	lines []Line
}

// New splits text into lines, preserving original newlines, and hashes each
// one. Every line except possibly the last retains its trailing "\n"; the
// final line is included even if it has no trailing newline.
func New(text string) LineSet {
	if text == "" {
		return LineSet{}
	}
	var raw []string
	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			if text != "" {
				raw = append(raw, text)
			}
			break
		}
		raw = append(raw, text[:idx+1])
		text = text[idx+1:]
	}
	lines := make([]Line, len(raw))
	for i, v := range raw {
		lines[i] = Line{Index: i, Value: v, Hash: hashid.H(v)}
	}
	return LineSet{lines: lines}
}

// FromLines builds a LineSet from already-split line values, assigning
// fresh zero-based indices and hashes. To keep the original per-snapshot
// indices of lines taken from other LineSets, use [FromExisting].
func FromLines(values []string) LineSet {
	lines := make([]Line, len(values))
	for i, v := range values {
		lines[i] = Line{Index: i, Value: v, Hash: hashid.H(v)}
	}
	return LineSet{lines: lines}
}

// Lines returns all lines in index order. The returned slice must not be
// mutated by callers.
func (l LineSet) Lines() []Line { return l.lines }

// Len reports the number of lines.
func (l LineSet) Len() int { return len(l.lines) }

// First returns the first line, or the zero Line and false if empty.
func (l LineSet) First() (Line, bool) {
	if len(l.lines) == 0 {
		return Line{}, false
	}
	return l.lines[0], true
}

// Last returns the final line, or the zero Line and false if empty.
func (l LineSet) Last() (Line, bool) {
	if len(l.lines) == 0 {
		return Line{}, false
	}
	return l.lines[len(l.lines)-1], true
}

// Unique returns a new LineSet containing only the lines whose hash appears
// exactly once in the set, in index order. Unique lines are the chunk
// boundaries: a local edit cannot perturb a line's identity unless it makes
// a formerly-unique line non-unique or vice versa, which is precisely the
// case where the adjacent chunks are expected to change too.
func (l LineSet) Unique() LineSet {
	counts := make(map[hashid.Digest]int, len(l.lines))
	for _, ln := range l.lines {
		counts[ln.Hash]++
	}
	out := make([]Line, 0, len(l.lines))
	for _, ln := range l.lines {
		if counts[ln.Hash] == 1 {
			out = append(out, ln)
		}
	}
	return LineSet{lines: out}
}

// ConcatHash returns H of the concatenation of all line values, in index
// order — the content identity of the whole set.
func (l LineSet) ConcatHash() hashid.Digest {
	return hashid.HBytes([]byte(l.Concat()))
}

// Concat returns the concatenation of all line values, in index order.
func (l LineSet) Concat() string {
	var b strings.Builder
	for _, ln := range l.lines {
		b.WriteString(ln.Value)
	}
	return b.String()
}

// CharacterCount returns the total length of all lines, counted in bytes
// of their UTF-8 encoding (not runes), matching how the budget in spec
// chunk-splitting is measured against raw text.
func (l LineSet) CharacterCount() int {
	n := 0
	for _, ln := range l.lines {
		n += len(ln.Value)
	}
	return n
}

// FromExisting builds a LineSet from lines that already carry their index
// and hash (e.g. lines pulled out of one or more other LineSets), without
// recomputing either. Used when concatenating chunks, where the lines'
// original per-snapshot indices must be preserved.
func FromExisting(lines []Line) LineSet {
	out := make([]Line, len(lines))
	copy(out, lines)
	return LineSet{lines: out}
}

// Slice returns the sub-LineSet spanning lines [fromIndex, toIndex]
// inclusive, re-using the same underlying Line values (their Index still
// reflects their position in the originating snapshot).
func (l LineSet) Slice(fromIndex, toIndex int) LineSet {
	if fromIndex > toIndex || len(l.lines) == 0 {
		return LineSet{}
	}
	out := make([]Line, 0, toIndex-fromIndex+1)
	for _, ln := range l.lines {
		if ln.Index >= fromIndex && ln.Index <= toIndex {
			out = append(out, ln)
		}
	}
	return LineSet{lines: out}
}
