// Package reconcile implements the timestamp-ordered Diff/Reconstructor
// (spec.md §4.5): a set of chunk refs collected across revisions, merged
// and reconciled into a single chain from FIRST to LAST with
// latest-timestamp-wins conflict resolution.
package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/hashid"
)

// ErrBrokenChain is returned by Reconstruct when the FIRST-to-LAST walk
// cannot be completed: data corruption, not a transient condition
// (spec.md §7).
var ErrBrokenChain = errors.New("reconcile: broken chain")

// Diff is a multiset of chunk refs representing the recorded history of a
// file. The zero value is an empty Diff.
type Diff struct {
	refs []chunkref.Ref
}

// Create builds a Diff with one ref per chunk, all stamped with ts,
// regardless of any timestamp already carried by the chunk (fresh chunking
// always stamps with the revision currently being ingested).
func Create(chunks chunk.Collection, ts int64) Diff {
	d := Diff{refs: make([]chunkref.Ref, len(chunks))}
	for i, c := range chunks {
		d.refs[i] = c.Ref(ts)
	}
	return d
}

// FromRefs builds a Diff directly from an existing ref list, e.g. after
// parsing a stored diff-file. The refs are taken as-is; call Reconstruct
// to verify/normalize the chain.
func FromRefs(refs []chunkref.Ref) Diff {
	return Diff{refs: append([]chunkref.Ref(nil), refs...)}
}

// Refs returns the refs currently held, in their stored order.
func (d Diff) Refs() []chunkref.Ref { return d.refs }

// Len reports the number of refs.
func (d Diff) Len() int { return len(d.refs) }

// Contains reports whether ref (by full ID equality) is present in d.
func (d Diff) Contains(ref chunkref.Ref) bool {
	id := ref.ID()
	for _, r := range d.refs {
		if r.ID() == id {
			return true
		}
	}
	return false
}

// Extract delegates to chunks.Extract using d's refs (spec.md §4.5).
func (d Diff) Extract(chunks chunk.Collection) (matched, remainder chunk.Collection) {
	return chunks.Extract(d.refs)
}

// EncodeLines renders d as the wire-format lines persisted to a diff-file
// (spec.md §6). Refs stamped with currentTimestamp are flagged U (new or
// unchanged as of this ingestion); every older ref is flagged M. The flag
// is informational only, per spec.md §7 — it plays no role in Reconstruct.
func (d Diff) EncodeLines(currentTimestamp int64) []chunkref.Line {
	lines := make([]chunkref.Line, len(d.refs))
	for i, r := range d.refs {
		flag := chunkref.FlagMatched
		if r.Timestamp == currentTimestamp {
			flag = chunkref.FlagUnmatched
		}
		lines[i] = chunkref.Line{Ref: r, Flag: flag}
	}
	return lines
}

// FromLines builds a Diff from parsed diff-file lines, discarding their
// flags (informational only; see EncodeLines).
func FromLines(lines []chunkref.Line) Diff {
	refs := make([]chunkref.Ref, len(lines))
	for i, l := range lines {
		refs[i] = l.Ref
	}
	return Diff{refs: refs}
}

// Merge concatenates d's refs with other's and reconstructs the result
// (spec.md §4.5: "Diff.merge(other)").
func (d Diff) Merge(other Diff) (Diff, error) {
	combined := Diff{refs: append(append([]chunkref.Ref(nil), d.refs...), other.refs...)}
	return combined.Reconstruct()
}

// Reconstruct performs the core reconciliation (spec.md §4.5):
//
//  1. Group refs by timestamp, iterating groups in descending order
//     (latest first).
//  2. Within each group, accept a ref under its Start unless some
//     already-accepted-or-rejected ref shares its Start or its End, in
//     which case it is rejected.
//  3. Walk the chain from the accepted FIRST ref to LAST.
//
// If the walk cannot reach LAST, Reconstruct returns ErrBrokenChain.
func (d Diff) Reconstruct() (Diff, error) {
	groups := make(map[int64][]chunkref.Ref)
	for _, r := range d.refs {
		groups[r.Timestamp] = append(groups[r.Timestamp], r)
	}
	timestamps := make([]int64, 0, len(groups))
	for ts := range groups {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })

	accepted := make(map[hashid.Digest]chunkref.Ref)
	usedStarts := make(map[hashid.Digest]bool)
	usedEnds := make(map[hashid.Digest]bool)

	for _, ts := range timestamps {
		for _, r := range groups[ts] {
			if usedStarts[r.Start] || usedEnds[r.End] {
				// BoundaryConflict: resolved silently by the rejection
				// rule, never surfaced to the caller (spec.md §7). A
				// rejected ref's boundaries still count as used.
				usedStarts[r.Start] = true
				usedEnds[r.End] = true
				continue
			}
			accepted[r.Start] = r
			usedStarts[r.Start] = true
			usedEnds[r.End] = true
		}
	}

	start, ok := accepted[hashid.First]
	if !ok {
		return Diff{}, fmt.Errorf("%w: no accepted ref starts at FIRST", ErrBrokenChain)
	}

	chain := make([]chunkref.Ref, 0, len(accepted))
	visited := make(map[hashid.Digest]bool)
	cur := start
	for {
		if visited[cur.Start] {
			return Diff{}, fmt.Errorf("%w: cycle detected at boundary %s", ErrBrokenChain, cur.Start)
		}
		visited[cur.Start] = true
		chain = append(chain, cur)
		if cur.End == hashid.Last {
			return Diff{refs: chain}, nil
		}
		next, ok := accepted[cur.End]
		if !ok {
			return Diff{}, fmt.Errorf("%w: no ref continues from boundary %s", ErrBrokenChain, cur.End)
		}
		cur = next
	}
}
