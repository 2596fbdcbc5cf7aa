package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/gitsource"
	"github.com/arlobridge/chunkdiff/internal/lineset"
	"github.com/arlobridge/chunkdiff/internal/reconcile"
)

var (
	simulateMaxChars int
	simulateOut      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <repo> <path>",
	Short: "Replay a file's git history through chunk/diff/reconstruct to produce a cumulative diff",
	Args:  cobra.ExactArgs(2),
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simulateMaxChars, "max-chars", 4096, "length budget for Collection.Split")
	simulateCmd.Flags().StringVar(&simulateOut, "out", "", "write the cumulative diff-file here instead of stdout")
	rootCmd.AddCommand(simulateCmd)
}

// runSimulate is the external driver of spec.md §6: it walks repo's
// history of path (oldest revision first, via internal/gitsource) and
// feeds it through simulatePipeline, which applies the end-to-end
// ingestion algorithm of spec.md §4.5 one revision at a time.
func runSimulate(cmd *cobra.Command, args []string) error {
	repo, path := args[0], args[1]

	snaps, err := gitsource.Walk(repo, path)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("simulate: %s has no history for %s", repo, path)
	}
	logf("%s: %d revisions of %s", repo, len(snaps), path)

	lines, err := simulatePipeline(snaps, simulateMaxChars)
	if err != nil {
		return err
	}

	out := os.Stdout
	if simulateOut != "" {
		f, err := os.Create(simulateOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", simulateOut, err)
		}
		defer f.Close()
		out = f
	}
	return writeLines(out, lines)
}

// simulatePipeline is the git-independent core of the simulate driver: it
// takes snapshots oldest-first and replays spec.md §4.5's end-to-end
// ingestion algorithm, returning the final reconciled diff-file lines.
// Split out from runSimulate so it can be exercised without a git
// checkout.
func simulatePipeline(snaps []gitsource.Snapshot, maxChars int) ([]chunkref.Line, error) {
	first := snaps[0]
	firstChunks := chunk.Segment(lineset.New(string(first.Content))).Split(maxChars)
	diff, err := reconcile.Create(firstChunks, first.UnixTimestamp()).Reconstruct()
	if err != nil {
		return nil, err
	}
	logf("t=%d: %d chunks (initial)", first.UnixTimestamp(), len(firstChunks))

	lastTimestamp := first.UnixTimestamp()
	for _, snap := range snaps[1:] {
		ts := snap.UnixTimestamp()
		unsplit := chunk.Segment(lineset.New(string(snap.Content)))
		matched, remainder := diff.Extract(unsplit)
		unmatched := remainder.Split(maxChars)
		logf("t=%d: %d matched, %d new chunks", ts, len(matched), len(unmatched))

		diff, err = diff.Merge(reconcile.Create(unmatched, ts))
		if err != nil {
			return nil, err
		}
		lastTimestamp = ts
	}

	return diff.EncodeLines(lastTimestamp), nil
}
