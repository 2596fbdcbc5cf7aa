package chunk

import "github.com/arlobridge/chunkdiff/internal/chunkref"

// Find locates the contiguous, boundary-consistent run [i..j] in c such
// that c[i].Start == ref.Start, c[j].End == ref.End, and the run's
// concatenated content hash equals ref.Hash, per spec.md §4.4. If no such
// run exists, or more than one candidate run satisfies the boundary
// constraints (an ambiguous match, spec.md §7), Find returns false rather
// than erroring: ambiguity is absorbed into "unmatched" by design.
func (c Collection) Find(ref chunkref.Ref) (Chunk, bool) {
	ch, _, _, ok := c.findRun(ref)
	return ch, ok
}

// findRun is Find plus the [start,end] index range of the matched run,
// used by Extract to remove it from the remainder.
func (c Collection) findRun(ref chunkref.Ref) (merged Chunk, start, end int, ok bool) {
	type span struct{ i, j int }
	var matches []span

	for i, ch := range c {
		if ch.Start != ref.Start {
			continue
		}
		j := i
		for {
			if c[j].End == ref.End {
				matches = append(matches, span{i, j})
			}
			if j+1 < len(c) && c[j].End == c[j+1].Start {
				j++
				continue
			}
			break
		}
	}

	if len(matches) != 1 {
		return Chunk{}, 0, 0, false
	}
	m := matches[0]
	candidate := mergeRun(c[m.i : m.j+1])
	if candidate.Hash() != ref.Hash {
		return Chunk{}, 0, 0, false
	}
	ts := ref.Timestamp
	candidate.Timestamp = &ts
	return candidate, m.i, m.j, true
}

// Extract applies Find for each ref, in order, over the *current*
// remainder, collecting matched chunks and non-destructively removing each
// matched run from the remainder before considering the next ref (spec.md
// §4.4). Unmatched refs — including ambiguous matches — are silently
// dropped from matched; they do not fail the operation.
func (c Collection) Extract(refs []chunkref.Ref) (matched, remainder Collection) {
	remainder = append(Collection(nil), c...)
	for _, ref := range refs {
		ch, start, end, ok := remainder.findRun(ref)
		if !ok {
			continue
		}
		matched = append(matched, ch)
		next := append(Collection(nil), remainder[:start]...)
		remainder = append(next, remainder[end+1:]...)
	}
	return matched, remainder
}
