package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arlobridge/chunkdiff/internal/reconcile"
)

// verbose is shared by every subcommand; when set, each one logs summary
// counts (chunks, matched/unmatched chunks, chain length) to stderr.
// Ambiguous matches and rejected boundaries are absorbed into "unmatched"
// outcomes and are not logged, with or without --verbose.
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "chunkdiff",
	Short: "Content-addressed line-chunking and diff-reconstruction engine",
	Long: `chunkdiff segments a text file into hash-identified chunks bounded by
unique lines, reconciles chunks across revisions into a single
boundary-chained diff, and reconstructs a file's history by walking that
chain from a synthetic FIRST boundary to a synthetic LAST boundary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostic detail to stderr")
}

// Execute runs the root command and translates the error taxonomy of
// spec.md §7 into the exit codes of spec.md §6: 0 on success, 1 for an
// InputError (bad argument, unreadable file, malformed diff line), 2 for
// BrokenChain during reconstruct.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chunkdiff:", err)
		var code int
		switch {
		case errors.Is(err, reconcile.ErrBrokenChain):
			code = 2
		default:
			code = 1
		}
		os.Exit(code)
	}
}
