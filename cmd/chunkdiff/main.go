// Command chunkdiff drives the content-addressed chunking/diff/reconstruct
// engine (spec.md §6): chunk a single snapshot, reconcile it against a
// stored diff-file, reconstruct a file's history from one, replay an
// entire git history through the pipeline, or serve the web viewer.
package main

func main() {
	Execute()
}
