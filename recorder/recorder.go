// Package recorder drives the runtime side of Fossilize: an application
// calls Record* as it creates Vulkan objects; each call canonically
// hashes, deep-copies and serializes the object on the caller's goroutine,
// and a background worker writes the result into a Database.
package recorder

import (
	"sync"
	"time"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/canonhash"
	"github.com/fossilize/fossilize/db"
	"github.com/fossilize/fossilize/deepcopy"
	"github.com/fossilize/fossilize/descriptor"
	"github.com/fossilize/fossilize/serialize"
)

// fnvKey folds an arbitrary byte identifier down to a Hash64 so it can key
// the same handles/identifierToHash maps as content hashes, using the
// package's own hash function rather than pulling in a second one.
func fnvKey(b []byte) fossilize.Hash64 {
	h := fossilize.NewHasher()
	h.Bytes(b)
	return h.Sum()
}

// WorkItem is a single unit of recording work queued to the worker
// goroutine.
type WorkItem struct {
	Tag     fossilize.ResourceTag
	Hash    fossilize.Hash64
	Payload []byte
}

// Recorder records descriptor graphs as they are created, maintaining a
// handle-to-hash map per resource kind so callers can reference earlier
// objects by the same Handle the application used when creating them.
//
// Recording is asynchronous by default: Record* calls hash and enqueue
// work, returning immediately, while a worker goroutine drains the queue
// and flushes to the database. A recorder built with NewSynchronized
// blocks every call until written, for tests and short-lived CLI tools
// where the extra goroutine buys nothing.
type Recorder struct {
	database db.Database
	logger   fossilize.Logger

	mu      sync.Mutex
	handles map[fossilize.ResourceTag]map[fossilize.Handle]fossilize.Hash64

	queue         chan WorkItem
	flushInterval time.Duration
	synchronized  bool

	wg       sync.WaitGroup
	done     chan struct{}
	closeErr error

	// moduleIdents and onUse are the optional write-only side databases
	// of §4.7. Either may be nil, in which case the corresponding
	// recording step is skipped.
	moduleIdents *ModuleIdentifierDB
	onUse        *OnUseDB

	// identifierToHash lets RecordShaderModuleIdentifier short-circuit a
	// session that only has a driver-stable identifier (no SPIR-V) for a
	// module this process already recorded by full hash earlier.
	identifierMu     sync.Mutex
	identifierToHash map[fossilize.Hash64]fossilize.Hash64

	// subpassMeta caches the per-render-pass subpass usage computed at
	// RecordRenderPass time, keyed by the render pass's content hash and
	// read back through SubpassMetaFor. RecordGraphicsPipeline does not
	// consult it.
	subpassMu   sync.Mutex
	subpassMeta map[fossilize.Hash64]*SubpassMeta
}

// WithSideDatabases attaches the module-identifier and on-use side
// databases to r. Either argument may be nil to leave that side channel
// disabled. Must be called before any Record* call that should be
// reflected in the side databases.
func (r *Recorder) WithSideDatabases(moduleIdents *ModuleIdentifierDB, onUse *OnUseDB) *Recorder {
	r.moduleIdents = moduleIdents
	r.onUse = onUse
	return r
}

// RecordShaderModuleIdentifier registers a driver-stable identifier for an
// already-known module hash, and appends it to the module-identifier side
// database if one is attached. A later call to
// LookupByModuleIdentifier(identifier) resolves back to hash without
// needing the SPIR-V again.
func (r *Recorder) RecordShaderModuleIdentifier(hash fossilize.Hash64, identifier []byte) error {
	r.identifierMu.Lock()
	if r.identifierToHash == nil {
		r.identifierToHash = make(map[fossilize.Hash64]fossilize.Hash64)
	}
	r.identifierToHash[fnvKey(identifier)] = hash
	r.identifierMu.Unlock()
	if r.moduleIdents != nil {
		return r.moduleIdents.Record(hash, identifier)
	}
	return nil
}

// LookupByModuleIdentifier resolves a driver-stable shader module
// identifier back to the content hash it was registered under, if any.
func (r *Recorder) LookupByModuleIdentifier(identifier []byte) (fossilize.Hash64, bool) {
	r.identifierMu.Lock()
	defer r.identifierMu.Unlock()
	h, ok := r.identifierToHash[fnvKey(identifier)]
	return h, ok
}

// RecordSubpassMeta caches meta as the subpass usage info for a render
// pass already recorded under hash.
func (r *Recorder) RecordSubpassMeta(hash fossilize.Hash64, meta *SubpassMeta) {
	r.subpassMu.Lock()
	defer r.subpassMu.Unlock()
	if r.subpassMeta == nil {
		r.subpassMeta = make(map[fossilize.Hash64]*SubpassMeta)
	}
	r.subpassMeta[hash] = meta
}

// SubpassMetaFor returns the cached subpass usage info for a previously
// recorded render pass hash, if any.
func (r *Recorder) SubpassMetaFor(hash fossilize.Hash64) (*SubpassMeta, bool) {
	r.subpassMu.Lock()
	defer r.subpassMu.Unlock()
	m, ok := r.subpassMeta[hash]
	return m, ok
}

// touchOnUse records a use of hash in the on-use side database, using the
// caller-supplied clock so tests can avoid wall-clock nondeterminism. A
// nil side database makes this a no-op.
func (r *Recorder) touchOnUse(hash fossilize.Hash64, nowUnixNano int64) {
	if r.onUse == nil {
		return
	}
	if err := r.onUse.Touch(hash, nowUnixNano); err != nil {
		r.logger.Warnf("recorder: on-use touch %016x: %v", uint64(hash), err)
	}
}

// New returns a Recorder writing to database through a background
// worker. flushInterval is the period of the worker's idle timer; each
// queued item is written as soon as the worker receives it, so writes are
// not batched.
func New(database db.Database, logger fossilize.Logger, flushInterval time.Duration) *Recorder {
	if logger == nil {
		logger = fossilize.NopLogger
	}
	r := &Recorder{
		database:      database,
		logger:        logger,
		handles:       make(map[fossilize.ResourceTag]map[fossilize.Handle]fossilize.Hash64),
		queue:         make(chan WorkItem, 256),
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// NewSynchronized returns a Recorder that performs every write inline on
// the calling goroutine instead of queueing it, matching the original
// implementation's single-threaded mode.
func NewSynchronized(database db.Database, logger fossilize.Logger) *Recorder {
	if logger == nil {
		logger = fossilize.NopLogger
	}
	return &Recorder{
		database:     database,
		logger:       logger,
		handles:      make(map[fossilize.ResourceTag]map[fossilize.Handle]fossilize.Hash64),
		synchronized: true,
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	timer := time.NewTimer(r.flushInterval)
	defer timer.Stop()
	for {
		select {
		case item, ok := <-r.queue:
			if !ok {
				return
			}
			r.write(item)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(r.flushInterval)
		case <-timer.C:
			timer.Reset(r.flushInterval)
		case <-r.done:
			// Drain whatever is left before exiting.
			for {
				select {
				case item, ok := <-r.queue:
					if !ok {
						return
					}
					r.write(item)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(item WorkItem) {
	if r.database.HasEntry(item.Tag, item.Hash) {
		return
	}
	if err := r.database.WriteEntry(item.Tag, item.Hash, item.Payload, 0); err != nil {
		r.logger.Warnf("recorder: write %s %016x: %v", item.Tag, uint64(item.Hash), err)
	}
}

func (r *Recorder) enqueue(tag fossilize.ResourceTag, hash fossilize.Hash64, payload []byte) {
	if r.synchronized {
		r.write(WorkItem{Tag: tag, Hash: hash, Payload: payload})
		return
	}
	r.queue <- WorkItem{Tag: tag, Hash: hash, Payload: payload}
}

func (r *Recorder) bind(tag fossilize.ResourceTag, handle fossilize.Handle, hash fossilize.Hash64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.handles[tag]
	if !ok {
		m = make(map[fossilize.Handle]fossilize.Hash64)
		r.handles[tag] = m
	}
	m[handle] = hash
}

// Lookup returns the hash a previously recorded handle resolved to,
// touching the on-use side database (if attached) to mark hash as
// referenced again.
func (r *Recorder) Lookup(tag fossilize.ResourceTag, handle fossilize.Handle) (fossilize.Hash64, bool) {
	r.mu.Lock()
	h, ok := r.handles[tag][handle]
	r.mu.Unlock()
	if ok {
		r.touchOnUse(h, time.Now().UnixNano())
	}
	return h, ok
}

// Forget removes a handle's hash binding, matching a Vulkan object's
// destruction; the underlying cached entry is unaffected.
func (r *Recorder) Forget(tag fossilize.ResourceTag, handle fossilize.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles[tag], handle)
}

// RecordSampler canonically hashes, deep-copies, serializes and enqueues
// info, binding handle to the resulting hash.
func (r *Recorder) RecordSampler(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.Sampler) (fossilize.Hash64, error) {
	hash, err := canonhash.Sampler(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.Sampler(arena, info)
	payload, err := serialize.EncodeSampler(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceSampler, handle, hash)
	r.enqueue(fossilize.ResourceSampler, hash, payload)
	return hash, nil
}

// RecordDescriptorSetLayout canonically hashes, deep-copies, serializes
// and enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordDescriptorSetLayout(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.DescriptorSetLayout) (fossilize.Hash64, error) {
	hash, err := canonhash.DescriptorSetLayout(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.DescriptorSetLayout(arena, info)
	payload, err := serialize.EncodeDescriptorSetLayout(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceDescriptorSetLayout, handle, hash)
	r.enqueue(fossilize.ResourceDescriptorSetLayout, hash, payload)
	return hash, nil
}

// RecordPipelineLayout canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordPipelineLayout(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.PipelineLayout) (fossilize.Hash64, error) {
	hash, err := canonhash.PipelineLayout(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.PipelineLayout(arena, info)
	payload, err := serialize.EncodePipelineLayout(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourcePipelineLayout, handle, hash)
	r.enqueue(fossilize.ResourcePipelineLayout, hash, payload)
	return hash, nil
}

// RecordShaderModule canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordShaderModule(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.ShaderModule) (fossilize.Hash64, error) {
	hash, err := canonhash.ShaderModule(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.ShaderModule(arena, info)
	payload, err := serialize.EncodeShaderModule(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceShaderModule, handle, hash)
	r.enqueue(fossilize.ResourceShaderModule, hash, payload)
	return hash, nil
}

// RecordRenderPass canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordRenderPass(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.RenderPass) (fossilize.Hash64, error) {
	hash, err := canonhash.RenderPass(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.RenderPass(arena, info)
	payload, err := serialize.EncodeRenderPass(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceRenderPass, handle, hash)
	r.enqueue(fossilize.ResourceRenderPass, hash, payload)
	r.RecordSubpassMeta(hash, subpassMetaOf(info))
	return hash, nil
}

// subpassMetaOf derives which subpasses of info use a color and/or
// depth-stencil attachment, from the subpass's own attachment references.
func subpassMetaOf(info *descriptor.RenderPass) *SubpassMeta {
	colorCounts := make([]int, len(info.Subpasses))
	hasDS := make([]bool, len(info.Subpasses))
	for i, s := range info.Subpasses {
		colorCounts[i] = len(s.ColorAttachments)
		hasDS[i] = s.DepthStencilAttachment != nil
	}
	return BuildSubpassMeta(len(info.Subpasses), colorCounts, hasDS)
}

// RecordGraphicsPipeline canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordGraphicsPipeline(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.GraphicsPipeline) (fossilize.Hash64, error) {
	hash, err := canonhash.GraphicsPipeline(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.GraphicsPipeline(arena, info)
	payload, err := serialize.EncodeGraphicsPipeline(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceGraphicsPipeline, handle, hash)
	r.enqueue(fossilize.ResourceGraphicsPipeline, hash, payload)
	return hash, nil
}

// RecordComputePipeline canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordComputePipeline(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.ComputePipeline) (fossilize.Hash64, error) {
	hash, err := canonhash.ComputePipeline(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.ComputePipeline(arena, info)
	payload, err := serialize.EncodeComputePipeline(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceComputePipeline, handle, hash)
	r.enqueue(fossilize.ResourceComputePipeline, hash, payload)
	return hash, nil
}

// RecordRaytracingPipeline canonically hashes, deep-copies, serializes and
// enqueues info, binding handle to the resulting hash.
func (r *Recorder) RecordRaytracingPipeline(arena *fossilize.Arena, handle fossilize.Handle, info *descriptor.RaytracingPipeline) (fossilize.Hash64, error) {
	hash, err := canonhash.RaytracingPipeline(info)
	if err != nil {
		return 0, err
	}
	copied := deepcopy.RaytracingPipeline(arena, info)
	payload, err := serialize.EncodeRaytracingPipeline(copied)
	if err != nil {
		return 0, err
	}
	r.bind(fossilize.ResourceRaytracingPipeline, handle, hash)
	r.enqueue(fossilize.ResourceRaytracingPipeline, hash, payload)
	return hash, nil
}

// Close stops the background worker after draining its queue, then closes
// any attached side databases. A recorder from NewSynchronized has no
// worker, so Close only closes its side databases.
func (r *Recorder) Close() error {
	if !r.synchronized {
		close(r.done)
		close(r.queue)
		r.wg.Wait()
	}
	if r.moduleIdents != nil {
		if err := r.moduleIdents.Close(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
	}
	if r.onUse != nil {
		if err := r.onUse.Close(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
	}
	return r.closeErr
}
