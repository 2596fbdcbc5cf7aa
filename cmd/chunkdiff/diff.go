package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/lineset"
	"github.com/arlobridge/chunkdiff/internal/reconcile"
)

var diffMaxChars int

var diffCmd = &cobra.Command{
	Use:   "diff <path> <diff-file>",
	Short: "Emit M lines for matched chunks, U lines for unmatched ones",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().IntVar(&diffMaxChars, "max-chars", 4096, "length budget applied to the unmatched remainder")
	rootCmd.AddCommand(diffCmd)
}

// runDiff implements one step of the end-to-end ingestion algorithm
// (spec.md §4.5): the existing diff-file's refs are extracted against the
// new snapshot's unsplit chunking, matched chunks keep their stored
// timestamp, and the unmatched remainder is re-chunked and stamped with
// now.
func runDiff(cmd *cobra.Command, args []string) error {
	path, diffFile := args[0], args[1]

	content, err := readSnapshot(path)
	if err != nil {
		return err
	}
	existingLines, err := readDiffFile(diffFile)
	if err != nil {
		return err
	}
	existing := reconcile.FromLines(existingLines)

	unsplit := chunk.Segment(lineset.New(content))
	matched, remainder := existing.Extract(unsplit)
	logf("%s: %d matched against %s, %d chunks unmatched", path, len(matched), diffFile, len(remainder))

	ts := time.Now().Unix()
	unmatched := remainder.Split(diffMaxChars)

	out := make([]chunkref.Line, 0, len(matched)+len(unmatched))
	for _, c := range matched {
		refTS := ts
		if c.Timestamp != nil {
			refTS = *c.Timestamp
		}
		out = append(out, chunkref.Line{
			Ref:         c.Ref(refTS),
			Flag:        chunkref.FlagMatched,
			Description: describeChunk(c),
		})
	}
	for _, c := range unmatched {
		out = append(out, chunkref.Line{
			Ref:         c.Ref(ts),
			Flag:        chunkref.FlagUnmatched,
			Description: describeChunk(c),
		})
	}
	return writeLines(os.Stdout, out)
}
