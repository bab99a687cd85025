package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/db"
	"github.com/fossilize/fossilize/serialize"
)

func newListCommand() *cobra.Command {
	var tagFilter int
	var showSize bool
	var connectivity bool
	cmd := &cobra.Command{
		Use:   "list <archive>",
		Short: "Print every entry in an archive, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openPrepared(ctx, args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			tags := allTags
			if tagFilter >= 0 {
				if tagFilter >= fossilize.ResourceTagCount {
					return fmt.Errorf("--tag %d out of range (0..%d)", tagFilter, fossilize.ResourceTagCount-1)
				}
				tags = []fossilize.ResourceTag{fossilize.ResourceTag(tagFilter)}
			}

			for _, tag := range tags {
				hashes, err := d.GetHashListForResourceTag(tag)
				if err != nil {
					return err
				}
				for _, h := range hashes {
					line := fmt.Sprintf("%s %016x", tag, uint64(h))
					if showSize {
						size, err := d.EntrySize(tag, h)
						if err != nil {
							return err
						}
						line += fmt.Sprintf(" %d bytes", size)
					}
					if connectivity {
						deps, err := connectivityOf(d, tag, h)
						if err != nil {
							return err
						}
						if len(deps) > 0 {
							line += " -> " + strings.Join(deps, ", ")
						}
					}
					cmd.Println(line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&tagFilter, "tag", -1, "restrict the listing to one resource tag index")
	cmd.Flags().BoolVar(&showSize, "size", false, "print each entry's decompressed payload size")
	cmd.Flags().BoolVar(&connectivity, "connectivity", false, "print each entry's resolved dependency hashes")
	return cmd
}

// connectivityOf decodes a single entry and returns the hex hashes of the
// other entries it references, mirroring the playback-order dependency
// edges replay.Parser walks.
func connectivityOf(d db.Database, tag fossilize.ResourceTag, hash fossilize.Hash64) ([]string, error) {
	buf, err := readEntry(d, tag, hash)
	if err != nil {
		return nil, err
	}

	var deps []fossilize.Hash64
	switch tag {
	case fossilize.ResourceDescriptorSetLayout:
		info, err := serialize.DecodeDescriptorSetLayout(buf)
		if err != nil {
			return nil, err
		}
		for _, b := range info.Bindings {
			deps = append(deps, b.ImmutableSamplers...)
		}
	case fossilize.ResourcePipelineLayout:
		info, err := serialize.DecodePipelineLayout(buf)
		if err != nil {
			return nil, err
		}
		deps = append(deps, info.SetLayouts...)
	case fossilize.ResourceGraphicsPipeline:
		info, err := serialize.DecodeGraphicsPipeline(buf)
		if err != nil {
			return nil, err
		}
		deps = appendNonZero(deps, info.Layout, info.RenderPass, info.BasePipeline)
		deps = append(deps, info.Libraries...)
		for _, s := range info.Stages {
			deps = appendNonZero(deps, s.Module)
		}
	case fossilize.ResourceComputePipeline:
		info, err := serialize.DecodeComputePipeline(buf)
		if err != nil {
			return nil, err
		}
		deps = appendNonZero(deps, info.Layout, info.BasePipeline, info.Stage.Module)
	case fossilize.ResourceRaytracingPipeline:
		info, err := serialize.DecodeRaytracingPipeline(buf)
		if err != nil {
			return nil, err
		}
		deps = appendNonZero(deps, info.Layout, info.BasePipeline)
		deps = append(deps, info.Libraries...)
		for _, s := range info.Stages {
			deps = appendNonZero(deps, s.Module)
		}
	case fossilize.ResourceApplicationBlobLink:
		info, err := serialize.DecodeApplicationBlobLink(buf)
		if err != nil {
			return nil, err
		}
		deps = appendNonZero(deps, info.ApplicationInfo)
	}

	out := make([]string, len(deps))
	for i, dep := range deps {
		out[i] = fmt.Sprintf("%016x", uint64(dep))
	}
	return out, nil
}

func appendNonZero(deps []fossilize.Hash64, hs ...fossilize.Hash64) []fossilize.Hash64 {
	for _, h := range hs {
		if h != 0 {
			deps = append(deps, h)
		}
	}
	return deps
}
