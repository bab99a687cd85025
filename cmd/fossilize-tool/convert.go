package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fossilize/fossilize/db"
)

func newConvertCommand() *cobra.Command {
	var best bool
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Copy every entry of one archive into another, recompressing as needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			src, err := openPrepared(ctx, args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := openPrepared(ctx, args[1])
			if err != nil {
				return err
			}
			defer dst.Close()

			var flags db.WriteFlags
			if best {
				flags |= db.WriteBestCompression
			}
			n, err := copyEntries(src, dst, flags)
			if err != nil {
				return err
			}
			cmd.Printf("converted %d entries into %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&best, "best-compression", false, "use maximum compression effort on the destination archive")
	return cmd
}
