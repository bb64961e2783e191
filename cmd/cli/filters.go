package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/cochaviz/sdc-clients/brand"
	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

// filterFlags maps list flags 1:1 onto filter criteria. Only flags the user
// actually set become criteria.
type filterFlags struct {
	alias            string
	billingID        string
	brand            string
	created          string
	docker           bool
	fields           []string
	image            string
	internalMetadata map[string]string
	owner            string
	uuid             string
	ram              int
	server           string
	state            string
	tagKey           string
	uuids            []string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.alias, "alias", "", "Match machines whose alias contains this value")
	fs.StringVar(&f.billingID, "billing-id", "", "Match a billing (package) uuid")
	fs.StringVar(&f.brand, "brand", "", "Match a brand ("+joinBrands()+")")
	fs.StringVar(&f.created, "created", "", "Match a creation timestamp (RFC 3339)")
	fs.BoolVar(&f.docker, "docker", false, "Match docker (true) or non-docker (false) machines")
	fs.StringSliceVar(&f.fields, "fields", nil, "Only return these fields (comma separated)")
	fs.StringVar(&f.image, "image", "", "Match an image uuid")
	fs.StringToStringVar(&f.internalMetadata, "internal-metadata", nil, "Match internal metadata key=value pairs")
	fs.StringVar(&f.owner, "owner", "", "Match an owner uuid")
	fs.StringVar(&f.uuid, "uuid", "", "Match one machine uuid")
	fs.IntVar(&f.ram, "ram", 0, "Match memory size in MiB")
	fs.StringVar(&f.server, "server", "", "Match a compute node uuid")
	fs.StringVar(&f.state, "state", "", "Match a VMAPI state (e.g. running, shutting_down)")
	fs.StringVar(&f.tagKey, "tag-key", "", "Match machines carrying this tag key")
	fs.StringSliceVar(&f.uuids, "uuids", nil, "Match any of these machine uuids (comma separated)")
}

func (f *filterFlags) build(fs *pflag.FlagSet) (vmapi.Filter, error) {
	b := vmapi.NewFilter()
	set := fs.Changed

	if set("alias") {
		b = b.WithAlias(f.alias)
	}
	if set("billing-id") {
		id, err := parseUUIDFlag("billing-id", f.billingID)
		if err != nil {
			return vmapi.Filter{}, err
		}
		b = b.WithBillingID(id)
	}
	if set("brand") {
		v, err := brand.Parse(f.brand)
		if err != nil {
			return vmapi.Filter{}, fmt.Errorf("--brand: %w", err)
		}
		b = b.WithBrand(v)
	}
	if set("created") {
		ts, err := time.Parse(time.RFC3339, f.created)
		if err != nil {
			return vmapi.Filter{}, fmt.Errorf("--created: %w", err)
		}
		b = b.WithCreateTimestamp(ts)
	}
	if set("docker") {
		b = b.WithDocker(f.docker)
	}
	if set("fields") {
		b = b.WithFields(f.fields...)
	}
	if set("image") {
		id, err := parseUUIDFlag("image", f.image)
		if err != nil {
			return vmapi.Filter{}, err
		}
		b = b.WithImage(id)
	}
	if set("internal-metadata") {
		b = b.WithInternalMetadata(f.internalMetadata)
	}
	if set("owner") {
		id, err := parseUUIDFlag("owner", f.owner)
		if err != nil {
			return vmapi.Filter{}, err
		}
		b = b.WithOwner(id)
	}
	if set("uuid") {
		id, err := parseUUIDFlag("uuid", f.uuid)
		if err != nil {
			return vmapi.Filter{}, err
		}
		b = b.WithUUID(id)
	}
	if set("ram") {
		b = b.WithRAM(f.ram)
	}
	if set("server") {
		id, err := parseUUIDFlag("server", f.server)
		if err != nil {
			return vmapi.Filter{}, err
		}
		b = b.WithServer(id)
	}
	if set("state") {
		s, err := vmapi.ParseState(f.state)
		if err != nil {
			return vmapi.Filter{}, fmt.Errorf("--state: %w", err)
		}
		b = b.WithState(s)
	}
	if set("tag-key") {
		b = b.WithTagKey(f.tagKey)
	}
	if set("uuids") {
		ids := make([]uuid.UUID, 0, len(f.uuids))
		for _, raw := range f.uuids {
			id, err := parseUUIDFlag("uuids", raw)
			if err != nil {
				return vmapi.Filter{}, err
			}
			ids = append(ids, id)
		}
		b = b.WithUUIDs(ids...)
	}
	return b.Build(), nil
}

func parseUUIDFlag(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: invalid uuid %q", name, raw)
	}
	return id, nil
}

func joinBrands() string {
	names := make([]string, 0, len(brand.Supported()))
	for _, b := range brand.Supported() {
		names = append(names, b.String())
	}
	return strings.Join(names, ", ")
}
