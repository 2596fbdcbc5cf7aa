package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
)

// readSnapshot reads the file at path whole, as a line-oriented text
// snapshot. Binary files are out of scope (spec.md Non-goals); no
// detection is attempted, matching the teacher's trust-the-caller style.
func readSnapshot(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// readDiffFile parses a stored diff-file (spec.md §6) into its lines.
func readDiffFile(path string) ([]chunkref.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []chunkref.Line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		raw := sc.Text()
		if raw == "" {
			continue
		}
		line, err := chunkref.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// writeLines writes one wire-format line per chunkref.Line to w, in order.
func writeLines(w io.Writer, lines []chunkref.Line) error {
	buf := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintln(buf, l.Encode()); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// describeChunk builds the informational description field (spec.md §6)
// for c: its character count and its first/last line index in the
// snapshot it was cut from.
func describeChunk(c chunk.Chunk) string {
	first, _ := c.Lines.First()
	last, _ := c.Lines.Last()
	return chunkref.Description(c.Lines.CharacterCount(), first.Index, last.Index)
}

// logf writes a diagnostic line to stderr when --verbose is set.
func logf(format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
