package vmapi

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/brand"
)

func TestEmptyFilterOmitsEverything(t *testing.T) {
	t.Parallel()

	f := NewFilter().Build()
	if got := f.Encode(); got != "" {
		t.Fatalf("Encode() = %q, want empty", got)
	}
	if !f.IsEmpty() {
		t.Fatalf("IsEmpty() = false, want true")
	}
}

func TestFilterValues(t *testing.T) {
	t.Parallel()

	owner := uuid.MustParse("930896af-bf8c-48d4-885c-6573a94b1853")
	a := uuid.MustParse("0f3e1a52-5d0c-4bbb-9a0b-3b0f1b1c8b01")
	b := uuid.MustParse("0f3e1a52-5d0c-4bbb-9a0b-3b0f1b1c8b02")
	created := time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))

	f := NewFilter().
		WithAlias("web").
		WithBrand(brand.JoyentMinimal).
		WithState(StateShuttingDown).
		WithCreateTimestamp(created).
		WithDocker(false).
		WithFields("uuid", "alias").
		WithOwner(owner).
		WithRAM(1024).
		WithTagKey("role").
		WithUUIDs(a, b).
		WithInternalMetadata(map[string]string{"sdc:operator-script": "x"}).
		Build()

	want := url.Values{
		"alias":             {"web"},
		"brand":             {"joyent-minimal"},
		"state":             {"shutting_down"},
		"create_timestamp":  {"2024-03-01T12:00:00Z"},
		"docker":            {"false"},
		"fields":            {"uuid,alias"},
		"owner_uuid":        {owner.String()},
		"ram":               {"1024"},
		"tag_key":           {"role"},
		"uuids":             {a.String() + "," + b.String()},
		"internal_metadata": {`{"sdc:operator-script":"x"}`},
	}
	if diff := cmp.Diff(want, f.Values()); diff != "" {
		t.Fatalf("Values() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterUUIDKeys(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name  string
		build func(FilterBuilder) FilterBuilder
		key   string
	}{
		{"billing", func(b FilterBuilder) FilterBuilder { return b.WithBillingID(id) }, "billing_id"},
		{"image", func(b FilterBuilder) FilterBuilder { return b.WithImage(id) }, "image_uuid"},
		{"owner", func(b FilterBuilder) FilterBuilder { return b.WithOwner(id) }, "owner_uuid"},
		{"uuid", func(b FilterBuilder) FilterBuilder { return b.WithUUID(id) }, "uuid"},
		{"server", func(b FilterBuilder) FilterBuilder { return b.WithServer(id) }, "server_uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			values := tt.build(NewFilter()).Build().Values()
			if len(values) != 1 {
				t.Fatalf("Values() = %v, want exactly one key", values)
			}
			if got := values.Get(tt.key); got != id.String() {
				t.Fatalf("Values().Get(%q) = %q, want %q", tt.key, got, id)
			}
		})
	}
}

func TestFilterBranchesAreIndependent(t *testing.T) {
	t.Parallel()

	base := NewFilter().WithAlias("web")
	left := base.WithState(StateRunning).Build()
	right := base.WithBrand(brand.KVM).Build()

	if left.Values().Has("brand") {
		t.Fatalf("left filter observed brand: %v", left.Values())
	}
	if right.Values().Has("state") {
		t.Fatalf("right filter observed state: %v", right.Values())
	}
	if got := base.Build().Encode(); got != "alias=web" {
		t.Fatalf("base Encode() = %q, want %q", got, "alias=web")
	}
}

func TestFilterCopiesCallerSlices(t *testing.T) {
	t.Parallel()

	fields := []string{"uuid", "state"}
	md := map[string]string{"k": "v"}
	base := NewFilter().WithFields(fields...).WithInternalMetadata(md)
	f := base.Build()

	fields[0] = "alias"
	md["k"] = "changed"
	branched := base.WithFields("brand").Build()

	if got := f.Values().Get("fields"); got != "uuid,state" {
		t.Fatalf("fields = %q after mutating caller slice", got)
	}
	if got := f.Values().Get("internal_metadata"); got != `{"k":"v"}` {
		t.Fatalf("internal_metadata = %q after mutating caller map", got)
	}
	if got := branched.Values().Get("fields"); got != "brand" {
		t.Fatalf("branched fields = %q, want %q", got, "brand")
	}
}

func TestFilterCreateTimestampKeepsSubSecond(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	f := NewFilter().WithCreateTimestamp(created).Build()

	raw := f.Values().Get("create_timestamp")
	if raw != "2024-03-01T12:00:00.123Z" {
		t.Fatalf("create_timestamp = %q, want %q", raw, "2024-03-01T12:00:00.123Z")
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Fatalf("time.Parse(%q) error = %v", raw, err)
	}
	if !parsed.Equal(created) {
		t.Fatalf("create_timestamp round trip = %v, want %v", parsed, created)
	}
}

func TestFilterEmptyCollectionsAreUnset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(FilterBuilder) FilterBuilder
	}{
		{"no uuids", func(b FilterBuilder) FilterBuilder { return b.WithUUIDs() }},
		{"empty uuids", func(b FilterBuilder) FilterBuilder { return b.WithUUIDs([]uuid.UUID{}...) }},
		{"empty fields", func(b FilterBuilder) FilterBuilder { return b.WithFields([]string{}...) }},
		{"empty internal metadata", func(b FilterBuilder) FilterBuilder {
			return b.WithInternalMetadata(map[string]string{})
		}},
		{"cleared uuids", func(b FilterBuilder) FilterBuilder { return b.WithUUIDs(uuid.New()).WithUUIDs() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := tt.build(NewFilter()).Build()
			if got := f.Encode(); got != "" {
				t.Fatalf("Encode() = %q, want empty", got)
			}
			if !f.IsEmpty() {
				t.Fatalf("IsEmpty() = false, want true")
			}
		})
	}
}
