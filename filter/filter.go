// Package filter implements the JSON-driven application allow/deny list
// and bucketing rules the recorder consults before writing any data for a
// session: an application or engine can be blacklisted outright, gated on
// a minimum version, or bucketed into a hash-suffixed shard derived from a
// chosen subset of its device/feature state.
package filter

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/fossilize/fossilize"
	"github.com/fossilize/fossilize/descriptor"
)

// EnvPredicate tests one environment variable. At least one of Contains,
// Equals or NonNull should be set; all set predicates must hold for the
// variable to match.
type EnvPredicate struct {
	Contains string `json:"contains,omitempty"`
	Equals   string `json:"equals,omitempty"`
	NonNull  bool   `json:"nonnull,omitempty"`
}

func (p EnvPredicate) matches(value string, present bool) bool {
	if p.NonNull && !present {
		return false
	}
	if p.Equals != "" && value != p.Equals {
		return false
	}
	if p.Contains != "" && !strings.Contains(value, p.Contains) {
		return false
	}
	return true
}

// EntryRule is the set of gates applied to one application or engine name.
type EntryRule struct {
	MinimumApplicationVersion uint32                  `json:"minimumApplicationVersion,omitempty"`
	MinimumEngineVersion      uint32                  `json:"minimumEngineVersion,omitempty"`
	MinimumAPIVersion         uint32                  `json:"minimumApiVersion,omitempty"`
	BlacklistedEnvironments   map[string]EnvPredicate `json:"blacklistedEnvironments,omitempty"`
	RecordImmutableSamplers   *bool                   `json:"recordImmutableSamplers,omitempty"`
	BucketVariantDependencies []string                `json:"bucketVariantDependencies,omitempty"`
}

// Document is the on-disk shape of the application filter file, matching
// the upstream implementation's JSON schema field-for-field.
type Document struct {
	Asset                   string               `json:"asset"`
	Version                 int                  `json:"version"`
	BlacklistedApplications []string             `json:"blacklistedApplicationNames,omitempty"`
	BlacklistedEngines      []string             `json:"blacklistedEngineNames,omitempty"`
	ApplicationFilters      map[string]EntryRule `json:"applicationFilters,omitempty"`
	EngineFilters           map[string]EntryRule `json:"engineFilters,omitempty"`
}

// BucketDependency names one axis get_bucket_hash can be asked to fold in.
// The string values match the JSON the upstream filter file uses verbatim
// in bucketVariantDependencies arrays; unrecognized strings are accepted
// and ignored so a filter file written for a newer feature set degrades
// gracefully instead of failing the whole parse.
const (
	DependencyVendorID              = "VendorID"
	DependencyApplicationName       = "ApplicationName"
	DependencyEngineName            = "EngineName"
	DependencyBindlessUBO           = "BindlessUBO"
	DependencyMutableDescriptorType = "MutableDescriptorType"
	DependencyBufferDeviceAddress   = "BufferDeviceAddress"
	DependencyFragmentShadingRate   = "FragmentShadingRate"
	DependencyDynamicRendering      = "DynamicRendering"
	DependencyDescriptorBuffer      = "DescriptorBuffer"
)

// Rules is a parsed application filter document, ready to be queried. A
// Rules is safe for concurrent use by many recorder/CLI goroutines once
// loaded.
type Rules struct {
	doc Document

	blacklistedApps     map[string]struct{}
	blacklistedEngines  map[string]struct{}
}

func newRules(doc Document) *Rules {
	r := &Rules{
		doc:                doc,
		blacklistedApps:    make(map[string]struct{}, len(doc.BlacklistedApplications)),
		blacklistedEngines: make(map[string]struct{}, len(doc.BlacklistedEngines)),
	}
	for _, n := range doc.BlacklistedApplications {
		r.blacklistedApps[n] = struct{}{}
	}
	for _, n := range doc.BlacklistedEngines {
		r.blacklistedEngines[n] = struct{}{}
	}
	return r
}

// Loader parses a filter document asynchronously in the background,
// matching the upstream design where the recorder's worker thread starts
// the parse at construction time but only blocks on it the first time a
// session actually needs to test an application. A Loader with no path
// configured (an empty string) resolves immediately to an empty, always-
// permissive Rules set.
type Loader struct {
	once  sync.Once
	ready chan struct{}
	rules *Rules
	err   error
}

// Load begins parsing the filter document at path in the background and
// returns immediately; callers block on the result the first time they
// call Wait or TestApplicationInfo.
func Load(path string) *Loader {
	l := &Loader{ready: make(chan struct{})}
	go func() {
		defer close(l.ready)
		if path == "" {
			l.rules = newRules(Document{})
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			l.err = err
			return
		}
		var doc Document
		if err := json.Unmarshal(b, &doc); err != nil {
			l.err = err
			return
		}
		l.rules = newRules(doc)
	}()
	return l
}

// Wait blocks until the background parse completes and returns the parsed
// Rules, or the parse error if the document was malformed or unreadable.
// A caller that gets an error should treat the filter as absent (permit
// everything) rather than failing the application, per spec.md §4.8: "on
// failure is permissive (log error, return true)".
func (l *Loader) Wait() (*Rules, error) {
	<-l.ready
	return l.rules, l.err
}

// TestApplicationInfo blocks on the parse and then reports whether info
// should be recorded, as Rules.Test decides it. A parse failure is
// permissive: it logs nothing itself (callers own logging) but returns
// true so a broken filter file never silently stops caching.
func TestApplicationInfo(l *Loader, info *descriptor.ApplicationInfo, getenv func(string) string) bool {
	rules, err := l.Wait()
	if err != nil || rules == nil {
		return true
	}
	return rules.Test(info, getenv)
}

// Test reports whether info should be recorded, applying blacklists,
// minimum-version gates and environment-variable predicates for both the
// application and engine name, if either has a matching entry. Each
// predicate reads the variable from the process environment first; getenv
// is consulted only when the process value is empty or unset.
func (r *Rules) Test(info *descriptor.ApplicationInfo, getenv func(string) string) bool {
	if _, blocked := r.blacklistedApps[info.ApplicationName]; blocked {
		return false
	}
	if _, blocked := r.blacklistedEngines[info.EngineName]; blocked {
		return false
	}
	if rule, ok := r.doc.ApplicationFilters[info.ApplicationName]; ok {
		if !r.testEntry(rule, info, getenv) {
			return false
		}
	}
	if rule, ok := r.doc.EngineFilters[info.EngineName]; ok {
		if !r.testEntry(rule, info, getenv) {
			return false
		}
	}
	return true
}

func (r *Rules) testEntry(rule EntryRule, info *descriptor.ApplicationInfo, getenv func(string) string) bool {
	if rule.MinimumApplicationVersion != 0 && info.ApplicationVersion < rule.MinimumApplicationVersion {
		return false
	}
	if rule.MinimumEngineVersion != 0 && info.EngineVersion < rule.MinimumEngineVersion {
		return false
	}
	if rule.MinimumAPIVersion != 0 && info.APIVersion < rule.MinimumAPIVersion {
		return false
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	for name, pred := range rule.BlacklistedEnvironments {
		value, present := os.LookupEnv(name)
		if value == "" && getenv != nil {
			if v := getenv(name); v != "" {
				value, present = v, true
			}
		}
		if pred.matches(value, present) {
			return false
		}
	}
	return true
}

// lookupEntry returns the application's or, failing that, the engine's
// rule entry for info, whichever is more specific. Bucketing and the
// immutable-sampler opt-in are both keyed this way upstream.
func (r *Rules) lookupEntry(info *descriptor.ApplicationInfo) (EntryRule, bool) {
	if rule, ok := r.doc.ApplicationFilters[info.ApplicationName]; ok {
		return rule, true
	}
	if rule, ok := r.doc.EngineFilters[info.EngineName]; ok {
		return rule, true
	}
	return EntryRule{}, false
}

// NeedsBuckets reports whether info's matching entry declares
// bucketVariantDependencies, meaning recorded blobs for this
// application/engine should be shunted into a dependency-hash-suffixed
// archive rather than the default one.
func (r *Rules) NeedsBuckets(info *descriptor.ApplicationInfo) bool {
	rule, ok := r.lookupEntry(info)
	return ok && len(rule.BucketVariantDependencies) > 0
}

// BucketHash computes the dependency hash NeedsBuckets callers append to
// their output path. vendorID and features are supplied by the caller
// (vendorID comes from VkPhysicalDeviceProperties2, features from the
// enabled feature chain) since neither lives on descriptor.ApplicationInfo
// itself. Dependencies not present in the matching entry's
// bucketVariantDependencies list are excluded from the hash so that two
// engines requesting different dependency subsets never collide.
func (r *Rules) BucketHash(info *descriptor.ApplicationInfo, vendorID uint32, features map[string]bool) fossilize.Hash64 {
	rule, _ := r.lookupEntry(info)
	h := fossilize.NewHasher()
	for _, dep := range rule.BucketVariantDependencies {
		switch dep {
		case DependencyVendorID:
			h.U32(vendorID)
		case DependencyApplicationName:
			h.String(info.ApplicationName)
		case DependencyEngineName:
			h.String(info.EngineName)
		default:
			// Feature-flag-shaped dependency: fold in whether the named
			// feature bit was enabled, defaulting to false if the caller
			// didn't supply it.
			h.String(dep).Bool(features[dep])
		}
	}
	return h.Sum()
}

// ShouldRecordImmutableSamplers reports whether info's matching entry
// opts in or out of recording the contents of immutable samplers attached
// to descriptor set layout bindings. Default is true: most applications
// benefit from having their immutable samplers resolved during replay.
func (r *Rules) ShouldRecordImmutableSamplers(info *descriptor.ApplicationInfo) bool {
	rule, ok := r.lookupEntry(info)
	if !ok || rule.RecordImmutableSamplers == nil {
		return true
	}
	return *rule.RecordImmutableSamplers
}
