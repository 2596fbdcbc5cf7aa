package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arlobridge/chunkdiff/internal/chunk"
	"github.com/arlobridge/chunkdiff/internal/chunkref"
	"github.com/arlobridge/chunkdiff/internal/lineset"
)

var chunkMaxChars int

var chunkCmd = &cobra.Command{
	Use:   "chunk <path>",
	Short: "Print one U line per chunk for the file at the current timestamp",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkMaxChars, "max-chars", 4096, "length budget for Collection.Split")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := readSnapshot(path)
	if err != nil {
		return err
	}

	ts := time.Now().Unix()
	chunks := chunk.Segment(lineset.New(content)).Split(chunkMaxChars)
	logf("%s: %d chunks", path, len(chunks))

	lines := make([]chunkref.Line, len(chunks))
	for i, c := range chunks {
		lines[i] = chunkref.Line{
			Ref:         c.Ref(ts),
			Flag:        chunkref.FlagUnmatched,
			Description: describeChunk(c),
		}
	}
	return writeLines(os.Stdout, lines)
}
