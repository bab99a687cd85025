package main

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/db"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/recorder"
	"github.com/fossilize/fossilize/replay"
)

// newRehashCommand re-serializes every entity in <in> through a fresh
// Recorder, writing it to <out>. Cross-references between entities are
// already carried as content hashes rather than live handles (§3), so no
// renumbering is needed: re-recording each entity just brings its payload
// and hash up to the current wire format.
func newRehashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rehash <in> <out>",
		Short: "Re-serialize every entity onto the current archive format",
		Args:  cobra.ExactArgs(2),
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

			rec := recorder.NewSynchronized(dst, fossilize.NopLogger)
			creator := &rehashCreator{rec: rec, arena: fossilize.NewArena()}
			parser := replay.NewParser(dbResolver{src}, creator)

			if err := parser.ReplayAll(); err != nil {
				rec.Close()
				return fmt.Errorf("rehash: %w", err)
			}
			if err := rec.Close(); err != nil {
				return err
			}
			if err := dst.Close(); err != nil {
				return err
			}
			cmd.Printf("rehashed %d entities into %s\n", creator.count, args[1])
			return nil
		},
	}
	return cmd
}

// dbResolver adapts a db.Database to replay.Resolver.
type dbResolver struct {
	d db.Database
}

func (r dbResolver) Resolve(tag fossilize.ResourceTag, hash fossilize.Hash64) ([]byte, error) {
	return readEntry(r.d, tag, hash)
}

func (r dbResolver) HashesForTag(tag fossilize.ResourceTag) ([]fossilize.Hash64, error) {
	return r.d.GetHashListForResourceTag(tag)
}

// rehashCreator drives a Recorder from replay's EnqueueCreate* callbacks
// instead of a live graphics API: every entity decoded out of the source
// archive is immediately re-recorded into the destination one. The arena is
// reset between entities since nothing here needs the copies to outlive a
// single Record call.
type rehashCreator struct {
	rec   *recorder.Recorder
	arena *fossilize.Arena
	count int
}

func (c *rehashCreator) record(fn func() error) error {
	defer c.arena.Reset()
	if err := fn(); err != nil {
		return err
	}
	c.count++
	return nil
}

func (c *rehashCreator) EnqueueCreateSampler(hash fossilize.Hash64, info *descriptor.Sampler) error {
	return c.record(func() error {
		_, err := c.rec.RecordSampler(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateDescriptorSetLayout(hash fossilize.Hash64, info *descriptor.DescriptorSetLayout) error {
	return c.record(func() error {
		_, err := c.rec.RecordDescriptorSetLayout(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreatePipelineLayout(hash fossilize.Hash64, info *descriptor.PipelineLayout) error {
	return c.record(func() error {
		_, err := c.rec.RecordPipelineLayout(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateShaderModule(hash fossilize.Hash64, info *descriptor.ShaderModule) error {
	return c.record(func() error {
		_, err := c.rec.RecordShaderModule(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateRenderPass(hash fossilize.Hash64, info *descriptor.RenderPass) error {
	return c.record(func() error {
		_, err := c.rec.RecordRenderPass(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateGraphicsPipeline(hash fossilize.Hash64, info *descriptor.GraphicsPipeline) error {
	return c.record(func() error {
		_, err := c.rec.RecordGraphicsPipeline(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateComputePipeline(hash fossilize.Hash64, info *descriptor.ComputePipeline) error {
	return c.record(func() error {
		_, err := c.rec.RecordComputePipeline(c.arena, fossilize.Handle(hash), info)
		return err
	})
}

func (c *rehashCreator) EnqueueCreateRaytracingPipeline(hash fossilize.Hash64, info *descriptor.RaytracingPipeline) error {
	return c.record(func() error {
		_, err := c.rec.RecordRaytracingPipeline(c.arena, fossilize.Handle(hash), info)
		return err
	})
}
