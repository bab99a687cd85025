package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newUnmergeCommand splits a concurrently-recorded archive back into its
// constituent per-process shards. Unlike the upstream tool, which
// concatenates every writer's records into one file and has to rediscover
// shard boundaries by scanning it, db.Concurrent here already keeps each
// writer's shard as its own "<base>.<n>.foz" file, so unmerging is just a
// copy of each shard file under a new prefix.
func newUnmergeCommand() *cobra.Command {
	var outputName string
	cmd := &cobra.Command{
		Use:   "unmerge <base>",
		Short: "Split a concurrently-recorded archive's shards out under a new prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := args[0]
			out := outputName
			if out == "" {
				out = "unmerged"
			}
			n := 0
			for i := 0; ; i++ {
				src := fmt.Sprintf("%s.%d.foz", base, i)
				if _, err := os.Stat(src); err != nil {
					break
				}
				dst := fmt.Sprintf("%s.%d.foz", out, i)
				b, err := os.ReadFile(src)
				if err != nil {
					return fmt.Errorf("read shard %s: %w", src, err)
				}
				if err := os.WriteFile(dst, b, 0o644); err != nil {
					return fmt.Errorf("write shard %s: %w", dst, err)
				}
				n++
			}
			if n == 0 {
				return fmt.Errorf("no shards found for %s.<n>.foz", base)
			}
			cmd.Printf("unmerged %d shard(s) from %s into %s.<n>.foz\n", n, base, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputName, "output-name", "", `prefix for the split-out shard files (default "unmerged")`)
	return cmd
}
