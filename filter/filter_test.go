package filter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fossilize/fossilize/descriptor"
)

func writeFilterFile(t *testing.T, doc Document) string {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "filter.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEmptyPathIsPermissive(t *testing.T) {
	l := Load("")
	rules, err := l.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if !rules.Test(&descriptor.ApplicationInfo{ApplicationName: "anything"}, nil) {
		t.Fatal("an empty filter path should permit every application")
	}
}

func TestLoadMalformedDocumentReturnsErrorButTestApplicationInfoStaysPermissive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := Load(path)
	if _, err := l.Wait(); err == nil {
		t.Fatal("expected a parse error for malformed JSON")
	}
	if !TestApplicationInfo(l, &descriptor.ApplicationInfo{ApplicationName: "app"}, nil) {
		t.Fatal("a broken filter file must fail permissive, not block recording")
	}
}

func TestBlacklistedApplicationIsRejected(t *testing.T) {
	path := writeFilterFile(t, Document{BlacklistedApplications: []string{"BadApp"}})
	l := Load(path)
	rules, err := l.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if rules.Test(&descriptor.ApplicationInfo{ApplicationName: "BadApp"}, nil) {
		t.Fatal("a blacklisted application should be rejected")
	}
	if !rules.Test(&descriptor.ApplicationInfo{ApplicationName: "GoodApp"}, nil) {
		t.Fatal("an unlisted application should be permitted")
	}
}

func TestBlacklistedEngineIsRejected(t *testing.T) {
	path := writeFilterFile(t, Document{BlacklistedEngines: []string{"BadEngine"}})
	l := Load(path)
	rules, _ := l.Wait()
	if rules.Test(&descriptor.ApplicationInfo{EngineName: "BadEngine"}, nil) {
		t.Fatal("a blacklisted engine should be rejected")
	}
}

func TestMinimumApplicationVersionGate(t *testing.T) {
	path := writeFilterFile(t, Document{
		ApplicationFilters: map[string]EntryRule{
			"App": {MinimumApplicationVersion: 5},
		},
	})
	l := Load(path)
	rules, _ := l.Wait()

	if rules.Test(&descriptor.ApplicationInfo{ApplicationName: "App", ApplicationVersion: 4}, nil) {
		t.Fatal("a version below the minimum should be rejected")
	}
	if !rules.Test(&descriptor.ApplicationInfo{ApplicationName: "App", ApplicationVersion: 5}, nil) {
		t.Fatal("a version meeting the minimum should be permitted")
	}
}

func TestBlacklistedEnvironmentPredicate(t *testing.T) {
	path := writeFilterFile(t, Document{
		ApplicationFilters: map[string]EntryRule{
			"App": {
				BlacklistedEnvironments: map[string]EnvPredicate{
					"MY_TOGGLE": {Equals: "1"},
				},
			},
		},
	})
	l := Load(path)
	rules, _ := l.Wait()

	getenv := func(name string) string {
		if name == "MY_TOGGLE" {
			return "1"
		}
		return ""
	}
	if rules.Test(&descriptor.ApplicationInfo{ApplicationName: "App"}, getenv) {
		t.Fatal("a matching blacklisted-environment predicate should reject the application")
	}

	getenvOff := func(name string) string { return "" }
	if !rules.Test(&descriptor.ApplicationInfo{ApplicationName: "App"}, getenvOff) {
		t.Fatal("a non-matching predicate should permit the application")
	}
}

func TestNeedsBucketsAndBucketHashStability(t *testing.T) {
	path := writeFilterFile(t, Document{
		ApplicationFilters: map[string]EntryRule{
			"App": {BucketVariantDependencies: []string{DependencyVendorID, DependencyApplicationName}},
		},
	})
	l := Load(path)
	rules, _ := l.Wait()

	info := &descriptor.ApplicationInfo{ApplicationName: "App"}
	if !rules.NeedsBuckets(info) {
		t.Fatal("an entry with bucketVariantDependencies should need bucketing")
	}
	if rules.NeedsBuckets(&descriptor.ApplicationInfo{ApplicationName: "Other"}) {
		t.Fatal("an application with no matching entry should not need bucketing")
	}

	h1 := rules.BucketHash(info, 0x1234, nil)
	h2 := rules.BucketHash(info, 0x1234, nil)
	if h1 != h2 {
		t.Fatal("BucketHash must be deterministic for identical inputs")
	}
	h3 := rules.BucketHash(info, 0x5678, nil)
	if h1 == h3 {
		t.Fatal("BucketHash should change when a listed dependency (VendorID) changes")
	}
}

func TestShouldRecordImmutableSamplersDefaultsTrue(t *testing.T) {
	path := writeFilterFile(t, Document{
		ApplicationFilters: map[string]EntryRule{
			"NoSamplers": {RecordImmutableSamplers: boolPtr(false)},
		},
	})
	l := Load(path)
	rules, _ := l.Wait()

	if rules.ShouldRecordImmutableSamplers(&descriptor.ApplicationInfo{ApplicationName: "NoSamplers"}) {
		t.Fatal("an explicit opt-out should be honored")
	}
	if !rules.ShouldRecordImmutableSamplers(&descriptor.ApplicationInfo{ApplicationName: "Unlisted"}) {
		t.Fatal("default should be true for an application with no matching entry")
	}
}

func boolPtr(b bool) *bool { return &b }
