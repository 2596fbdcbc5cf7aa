package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/lineset"
	"github.com/arlobridge/chunkdiff/internal/reconcile"
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <path> <diff-file>",
	Short: "Walk the reconstructed chain, printing a located chunk or a bare ref id",
	Args:  cobra.ExactArgs(2),
	RunE:  runReconstruct,
}

func init() {
	rootCmd.AddCommand(reconstructCmd)
}

// runReconstruct reconstructs the diff-file into a single FIRST..LAST
// chain (spec.md §4.5) and, for each ref in it, looks it up against the
// current file: a full chunk (flagged U) if the file still contains it,
// otherwise the bare ref id, per spec.md §6.
func runReconstruct(cmd *cobra.Command, args []string) error {
	path, diffFile := args[0], args[1]

	storedLines, err := readDiffFile(diffFile)
	if err != nil {
		return err
	}
	chainDiff, err := reconcile.FromLines(storedLines).Reconstruct()
	if err != nil {
		return err
	}

	content, err := readSnapshot(path)
	if err != nil {
		return err
	}
	segmented := chunk.Segment(lineset.New(content))

	refs := chainDiff.Refs()
	logf("%s: chain of %d refs against %s", diffFile, len(refs), path)

	w := bufio.NewWriter(os.Stdout)
	for _, ref := range refs {
		ch, ok := segmented.Find(ref)
		if !ok {
			if _, err := fmt.Fprintln(w, ref.ID()); err != nil {
				return err
			}
			continue
		}
		line := chunkref.Line{
			Ref:         ch.Ref(ref.Timestamp),
			Flag:        chunkref.FlagUnmatched,
			Description: describeChunk(ch),
		}
		if _, err := fmt.Fprintln(w, line.Encode()); err != nil {
			return err
		}
	}
	return w.Flush()
}
