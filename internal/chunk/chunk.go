// Package chunk implements the uniqueness-based segmentation (spec.md
// §4.3, the "Chunker") and the ordered, boundary-chained collection of
// chunks it produces (spec.md §4.4, "ChunkCollection"). The two share one
// representation — a [Collection] is just an ordered []Chunk — so they are
// kept in a single package rather than introducing an import edge between
// two packages that always travel together.
package chunk

import (
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/hashid"
	"github.com/arlobridge/chunkdiff/internal/lineset"
)

// Chunk is a contiguous run of lines bounded by FIRST/LAST sentinels or
// unique-line hashes on either side (spec.md §3).
type Chunk struct {
	Start hashid.Digest
	End   hashid.Digest
	Lines lineset.LineSet
	// Timestamp is non-nil when the chunk is attached to a revision (e.g.
	// produced by [Collection.Find] on behalf of a [chunkref.Ref]); nil
	// when freshly computed from a file by [Segment].
	Timestamp *int64
}

// Hash is the content identity of c: H of its lines' concatenated values.
func (c Chunk) Hash() hashid.Digest { return c.Lines.ConcatHash() }

// Ref reduces c to its four-field pointer identity. ts is used verbatim as
// the ref's timestamp; c.Timestamp is not consulted, since the same chunk
// may be stamped for several revisions (see [Diff.Create] equivalent,
// internal/reconcile).
func (c Chunk) Ref(ts int64) chunkref.Ref {
	return chunkref.Ref{Start: c.Start, End: c.End, Hash: c.Hash(), Timestamp: ts}
}

// Collection is an ordered list of chunks. When derived from a single
// snapshot by [Segment], it satisfies the boundary-chain invariant:
// Collection[0].Start == FIRST, Collection[len-1].End == LAST, and
// Collection[i].End == Collection[i+1].Start for every adjacent pair.
type Collection []Chunk

// Segment walks ls's unique lines in order, anchoring a chunk boundary at
// each one, per spec.md §4.3. An empty ls yields an empty Collection (no
// chunk for an empty file). A file with no unique lines yields exactly one
// chunk spanning FIRST..LAST.
func Segment(ls lineset.LineSet) Collection {
	lines := ls.Lines()
	if len(lines) == 0 {
		return nil
	}
	unique := ls.Unique().Lines()
	lastLineIndex := lines[len(lines)-1].Index

	var out Collection
	previousBoundary := hashid.First
	startIndex := lines[0].Index
	haveStart := true

	for i, u := range unique {
		end := u.Hash
		if i == len(unique)-1 && u.Index == lastLineIndex {
			end = hashid.Last
		}
		out = append(out, Chunk{
			Start: previousBoundary,
			End:   end,
			Lines: ls.Slice(startIndex, u.Index),
		})
		previousBoundary = end
		if u.Index < lastLineIndex {
			startIndex = u.Index + 1
			haveStart = true
		} else {
			haveStart = false
		}
	}

	if haveStart {
		out = append(out, Chunk{
			Start: previousBoundary,
			End:   hashid.Last,
			Lines: ls.Slice(startIndex, lastLineIndex),
		})
	}

	return out
}
