package main

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/db"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/serialize"
)

func newPruneCommand() *cobra.Command {
	var whitelistPath, blacklistPath string
	cmd := &cobra.Command{
		Use:   "prune <in> <out>",
		Short: "Copy only the entries reachable from a non-library pipeline into out",
		Long: `prune walks every graphics, compute and raytracing pipeline in <in>
that is not itself a library-only pipeline part (VK_PIPELINE_CREATE_LIBRARY_BIT_KHR
set and no shader stages of its own) and copies it, along with everything it
depends on transitively, into <out>. A library-only pipeline survives if and
only if some other pipeline's library list still references it: the archive
never treats a default library as a root in its own right.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			lock := flock.New(args[1] + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("lock %s: %w", args[1], err)
			}
			if !locked {
				return fmt.Errorf("%s is locked by another merge/prune/rehash run", args[1])
			}
			defer lock.Unlock()

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

			var whitelist, blacklist db.Database
			if whitelistPath != "" {
				whitelist, err = openPrepared(ctx, whitelistPath)
				if err != nil {
					return err
				}
				defer whitelist.Close()
			}
			if blacklistPath != "" {
				blacklist, err = openPrepared(ctx, blacklistPath)
				if err != nil {
					return err
				}
				defer blacklist.Close()
			}

			keep := make(map[reachKey]struct{})
			roots := []fossilize.ResourceTag{
				fossilize.ResourceGraphicsPipeline,
				fossilize.ResourceComputePipeline,
				fossilize.ResourceRaytracingPipeline,
			}
			for _, tag := range roots {
				hashes, err := src.GetHashListForResourceTag(tag)
				if err != nil {
					return err
				}
				for _, h := range hashes {
					if tag == fossilize.ResourceGraphicsPipeline {
						isLib, err := isLibraryOnlyGraphicsPipeline(src, h)
						if err != nil {
							return err
						}
						if isLib {
							continue
						}
					}
					if err := closeOver(src, tag, h, keep); err != nil {
						return err
					}
				}
			}

			copied := 0
			for key := range keep {
				tag, h := key.tag, key.hash
				if whitelist != nil && !whitelist.HasEntry(tag, h) {
					continue
				}
				if blacklist != nil && blacklist.HasEntry(tag, h) {
					continue
				}
				if dst.HasEntry(tag, h) {
					continue
				}
				buf, err := readEntry(src, tag, h)
				if err != nil {
					return err
				}
				if err := dst.WriteEntry(tag, h, buf, 0); err != nil {
					return fmt.Errorf("write %s %016x: %w", tag, uint64(h), err)
				}
				copied++
			}

			cmd.Printf("pruned %s: kept %d of %d reachable entries\n", args[0], copied, len(keep))
			return nil
		},
	}
	cmd.Flags().StringVar(&whitelistPath, "whitelist", "", "only keep entries also present in this archive")
	cmd.Flags().StringVar(&blacklistPath, "blacklist", "", "drop entries present in this archive")
	return cmd
}

func isLibraryOnlyGraphicsPipeline(d db.Database, hash fossilize.Hash64) (bool, error) {
	buf, err := readEntry(d, fossilize.ResourceGraphicsPipeline, hash)
	if err != nil {
		return false, err
	}
	info, err := serialize.DecodeGraphicsPipeline(buf)
	if err != nil {
		return false, err
	}
	return descriptor.IsLibraryOnly(info.Flags, len(info.Stages)), nil
}

type reachKey struct {
	tag  fossilize.ResourceTag
	hash fossilize.Hash64
}

// closeOver marks (tag, hash) and everything it transitively references as
// reachable, recursing through the same cross-references replay.Parser
// follows to establish dependency order.
func closeOver(d db.Database, tag fossilize.ResourceTag, hash fossilize.Hash64, keep map[reachKey]struct{}) error {
	key := reachKey{tag, hash}
	if _, ok := keep[key]; ok {
		return nil
	}
	keep[key] = struct{}{}

	buf, err := readEntry(d, tag, hash)
	if err != nil {
		return err
	}

	switch tag {
	case fossilize.ResourceDescriptorSetLayout:
		info, err := serialize.DecodeDescriptorSetLayout(buf)
		if err != nil {
			return err
		}
		for _, b := range info.Bindings {
			for _, s := range b.ImmutableSamplers {
				if s != 0 {
					if err := closeOver(d, fossilize.ResourceSampler, s, keep); err != nil {
						return err
					}
				}
			}
		}
	case fossilize.ResourcePipelineLayout:
		info, err := serialize.DecodePipelineLayout(buf)
		if err != nil {
			return err
		}
		for _, s := range info.SetLayouts {
			if s != 0 {
				if err := closeOver(d, fossilize.ResourceDescriptorSetLayout, s, keep); err != nil {
					return err
				}
			}
		}
	case fossilize.ResourceGraphicsPipeline:
		info, err := serialize.DecodeGraphicsPipeline(buf)
		if err != nil {
			return err
		}
		for _, s := range info.Stages {
			if s.Module != 0 {
				if err := closeOver(d, fossilize.ResourceShaderModule, s.Module, keep); err != nil {
					return err
				}
			}
		}
		if info.Layout != 0 {
			if err := closeOver(d, fossilize.ResourcePipelineLayout, info.Layout, keep); err != nil {
				return err
			}
		}
		if info.RenderPass != 0 {
			if err := closeOver(d, fossilize.ResourceRenderPass, info.RenderPass, keep); err != nil {
				return err
			}
		}
		if info.BasePipeline != 0 {
			if err := closeOver(d, fossilize.ResourceGraphicsPipeline, info.BasePipeline, keep); err != nil {
				return err
			}
		}
		for _, lib := range info.Libraries {
			if err := closeOver(d, fossilize.ResourceGraphicsPipeline, lib, keep); err != nil {
				return err
			}
		}
	case fossilize.ResourceComputePipeline:
		info, err := serialize.DecodeComputePipeline(buf)
		if err != nil {
			return err
		}
		if info.Stage.Module != 0 {
			if err := closeOver(d, fossilize.ResourceShaderModule, info.Stage.Module, keep); err != nil {
				return err
			}
		}
		if info.Layout != 0 {
			if err := closeOver(d, fossilize.ResourcePipelineLayout, info.Layout, keep); err != nil {
				return err
			}
		}
		if info.BasePipeline != 0 {
			if err := closeOver(d, fossilize.ResourceComputePipeline, info.BasePipeline, keep); err != nil {
				return err
			}
		}
	case fossilize.ResourceRaytracingPipeline:
		info, err := serialize.DecodeRaytracingPipeline(buf)
		if err != nil {
			return err
		}
		for _, s := range info.Stages {
			if s.Module != 0 {
				if err := closeOver(d, fossilize.ResourceShaderModule, s.Module, keep); err != nil {
					return err
				}
			}
		}
		if info.Layout != 0 {
			if err := closeOver(d, fossilize.ResourcePipelineLayout, info.Layout, keep); err != nil {
				return err
			}
		}
		if info.BasePipeline != 0 {
			if err := closeOver(d, fossilize.ResourceRaytracingPipeline, info.BasePipeline, keep); err != nil {
				return err
			}
		}
		for _, lib := range info.Libraries {
			if err := closeOver(d, fossilize.ResourceRaytracingPipeline, lib, keep); err != nil {
				return err
			}
		}
	}
	return nil
}
