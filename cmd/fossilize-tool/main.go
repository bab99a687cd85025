// Command fossilize-tool inspects and transforms Fossilize archives:
// copying entries between backends, merging and splitting concurrent
// shards, listing contents, pruning unreachable entries, and rehashing an
// archive onto the current wire format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "fossilize-tool",
		Short:         "Inspect and transform Fossilize pipeline cache archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newConvertCommand(),
		newMergeCommand(),
		newUnmergeCommand(),
		newListCommand(),
		newPruneCommand(),
		newRehashCommand(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fossilize-tool:", err)
		os.Exit(1)
	}
}
