package main

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/fossilize/fossilize/recorder"
)

func newMergeCommand() *cobra.Command {
	var lastUse bool
	cmd := &cobra.Command{
		Use:   "merge <out> <in...>",
		Short: "Union one or more archives into out",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, srcPaths := args[0], args[1:]

			lock := flock.New(outPath + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("lock %s: %w", outPath, err)
			}
			if !locked {
				return fmt.Errorf("%s is locked by another merge/prune/rehash run", outPath)
			}
			defer lock.Unlock()

			ctx := context.Background()
			dst, err := openPrepared(ctx, outPath)
			if err != nil {
				return err
			}
			defer dst.Close()

			total := 0
			for _, p := range srcPaths {
				src, err := openPrepared(ctx, p)
				if err != nil {
					return err
				}
				n, err := copyEntries(src, dst, 0)
				src.Close()
				if err != nil {
					return fmt.Errorf("merge %s: %w", p, err)
				}
				total += n
			}

			if lastUse {
				if err := mergeLastUse(outPath, srcPaths); err != nil {
					return fmt.Errorf("merge on-use timestamps: %w", err)
				}
			}

			cmd.Printf("merged %d entries from %d archive(s) into %s\n", total, len(srcPaths), outPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lastUse, "last-use", false, "reconcile on-use timestamps alongside the entries, keeping the most recent")
	return cmd
}

// mergeLastUse reconciles the on-use journals sitting alongside outPath and
// every source archive, keeping the maximum timestamp per hash, then
// rewrites outPath's journal with the result.
func mergeLastUse(outPath string, srcPaths []string) error {
	merged, err := recorder.ReadSideLog(outPath + ".onuse.log")
	if err != nil {
		return err
	}
	for _, p := range srcPaths {
		m, err := recorder.ReadSideLog(p + ".onuse.log")
		if err != nil {
			return err
		}
		merged = recorder.MergeLastUse(merged, m)
	}
	return recorder.RewriteOnUseDB(outPath+".onuse.log", merged)
}
