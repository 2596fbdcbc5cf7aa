package chunk

import "github.com/arlobridge/chunkdiff/internal/lineset"

// Split enforces a length budget over c by merging or dividing maximal
// runs of boundary-adjacent chunks (spec.md §4.3's "length-bounded split").
// Non-adjacent runs — i.e. places where the chain is already broken, as
// in the remainder left by [Collection.Extract] or a Collection assembled
// from more than one snapshot's chunks — are split independently of one
// another.
func (c Collection) Split(maxChars int) Collection {
	if len(c) == 0 {
		return nil
	}
	var out Collection
	runStart := 0
	for i := 1; i <= len(c); i++ {
		if i == len(c) || c[i-1].End != c[i].Start {
			out = append(out, splitRun(c[runStart:i], maxChars)...)
			runStart = i
		}
	}
	return out
}

// splitRun recursively halves a single boundary-adjacent run until every
// emitted chunk either fits under maxChars or is a single, unsplittable
// source chunk larger than the budget (spec.md §4.3).
func splitRun(run Collection, maxChars int) Collection {
	if len(run) <= 1 {
		return append(Collection(nil), run...)
	}

	total := 0
	for _, ch := range run {
		total += ch.Lines.CharacterCount()
	}
	if total <= maxChars {
		return Collection{mergeRun(run)}
	}

	// Pivot: the first chunk whose running character total crosses half
	// of the run's total. Guarded so that both halves stay non-empty (the
	// spec's pivot rule is otherwise silent on the degenerate case where
	// the crossing point is the run's last chunk).
	half := total / 2
	running := 0
	pivot := 0
	for i, ch := range run {
		running += ch.Lines.CharacterCount()
		if running >= half {
			pivot = i
			break
		}
	}
	if pivot >= len(run)-1 {
		pivot = len(run) - 2
	}

	left := splitRun(run[:pivot+1], maxChars)
	right := splitRun(run[pivot+1:], maxChars)
	return append(left, right...)
}

// mergeRun collapses a boundary-adjacent run into one chunk, inheriting
// Start from the leftmost input and End from the rightmost, per spec.md
// §4.3's boundary-identity-preservation rule.
func mergeRun(run Collection) Chunk {
	first, last := run[0], run[len(run)-1]
	n := 0
	for _, ch := range run {
		n += len(ch.Lines.Lines())
	}
	lines := make([]lineset.Line, 0, n)
	for _, ch := range run {
		lines = append(lines, ch.Lines.Lines()...)
	}
	return Chunk{
		Start: first.Start,
		End:   last.End,
		Lines: lineset.FromExisting(lines),
	}
}
