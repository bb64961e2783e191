package vmapi

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/brand"
)

// Query keys understood by GET /vms.
const (
	keyAlias            = "alias"
	keyBillingID        = "billing_id"
	keyBrand            = "brand"
	keyCreateTimestamp  = "create_timestamp"
	keyDocker           = "docker"
	keyFields           = "fields"
	keyImageUUID        = "image_uuid"
	keyInternalMetadata = "internal_metadata"
	keyOwnerUUID        = "owner_uuid"
	keyUUID             = "uuid"
	keyRAM              = "ram"
	keyServerUUID       = "server_uuid"
	keyState            = "state"
	keyTagKey           = "tag_key"
	keyUUIDs            = "uuids"
)

type criteria struct {
	alias            *string
	billingID        *uuid.UUID
	brand            *brand.Brand
	createTimestamp  *time.Time
	docker           *bool
	fields           []string
	imageUUID        *uuid.UUID
	internalMetadata map[string]string
	ownerUUID        *uuid.UUID
	uuid             *uuid.UUID
	ram              *int
	serverUUID       *uuid.UUID
	state            *State
	tagKey           *string
	uuids            []uuid.UUID
}

// FilterBuilder accumulates list criteria. It is a value: every With method
// returns a new builder and leaves the receiver untouched, so a partial
// builder can be shared and branched freely.
type FilterBuilder struct {
	c criteria
}

// Filter is a finished set of list criteria. Unset criteria are left out of
// the query entirely.
type Filter struct {
	c criteria
}

// NewFilter returns a builder with no criteria set.
func NewFilter() FilterBuilder {
	return FilterBuilder{}
}

// Build freezes the accumulated criteria.
func (b FilterBuilder) Build() Filter {
	return Filter{c: b.c.clone()}
}

func (b FilterBuilder) with(set func(c *criteria)) FilterBuilder {
	next := b.c.clone()
	set(&next)
	return FilterBuilder{c: next}
}

// WithAlias matches machines whose alias contains alias.
func (b FilterBuilder) WithAlias(alias string) FilterBuilder {
	return b.with(func(c *criteria) { c.alias = &alias })
}

// WithBillingID matches machines provisioned from one package.
func (b FilterBuilder) WithBillingID(id uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.billingID = &id })
}

// WithBrand matches one brand.
func (b FilterBuilder) WithBrand(v brand.Brand) FilterBuilder {
	return b.with(func(c *criteria) { c.brand = &v })
}

// WithCreateTimestamp matches machines created at ts. Sub-second precision is
// kept.
func (b FilterBuilder) WithCreateTimestamp(ts time.Time) FilterBuilder {
	return b.with(func(c *criteria) { c.createTimestamp = &ts })
}

// WithDocker matches docker or non-docker machines.
func (b FilterBuilder) WithDocker(docker bool) FilterBuilder {
	return b.with(func(c *criteria) { c.docker = &docker })
}

// WithFields limits the attributes VMAPI returns for each record. No fields
// clears the criterion.
func (b FilterBuilder) WithFields(fields ...string) FilterBuilder {
	return b.with(func(c *criteria) { c.fields = nonEmpty(slices.Clone(fields)) })
}

// WithImage matches machines provisioned from one image.
func (b FilterBuilder) WithImage(id uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.imageUUID = &id })
}

// WithInternalMetadata matches internal metadata pairs. An empty map clears
// the criterion.
func (b FilterBuilder) WithInternalMetadata(md map[string]string) FilterBuilder {
	return b.with(func(c *criteria) {
		c.internalMetadata = nil
		if len(md) > 0 {
			c.internalMetadata = maps.Clone(md)
		}
	})
}

// WithOwner matches machines owned by one account.
func (b FilterBuilder) WithOwner(id uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.ownerUUID = &id })
}

// WithUUID matches a single machine.
func (b FilterBuilder) WithUUID(id uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.uuid = &id })
}

// WithRAM matches machines with exactly ram MiB of memory.
func (b FilterBuilder) WithRAM(ram int) FilterBuilder {
	return b.with(func(c *criteria) { c.ram = &ram })
}

// WithServer matches machines on one compute node.
func (b FilterBuilder) WithServer(id uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.serverUUID = &id })
}

// WithState matches one raw VMAPI state.
func (b FilterBuilder) WithState(s State) FilterBuilder {
	return b.with(func(c *criteria) { c.state = &s })
}

// WithTagKey matches machines carrying the tag key.
func (b FilterBuilder) WithTagKey(key string) FilterBuilder {
	return b.with(func(c *criteria) { c.tagKey = &key })
}

// WithUUIDs matches any of ids. No ids clears the criterion.
func (b FilterBuilder) WithUUIDs(ids ...uuid.UUID) FilterBuilder {
	return b.with(func(c *criteria) { c.uuids = nonEmpty(slices.Clone(ids)) })
}

func nonEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return s
}

func (c criteria) clone() criteria {
	c.alias = clonePtr(c.alias)
	c.billingID = clonePtr(c.billingID)
	c.brand = clonePtr(c.brand)
	c.createTimestamp = clonePtr(c.createTimestamp)
	c.docker = clonePtr(c.docker)
	c.fields = slices.Clone(c.fields)
	c.imageUUID = clonePtr(c.imageUUID)
	c.internalMetadata = maps.Clone(c.internalMetadata)
	c.ownerUUID = clonePtr(c.ownerUUID)
	c.uuid = clonePtr(c.uuid)
	c.ram = clonePtr(c.ram)
	c.serverUUID = clonePtr(c.serverUUID)
	c.state = clonePtr(c.state)
	c.tagKey = clonePtr(c.tagKey)
	c.uuids = slices.Clone(c.uuids)
	return c
}

// IsEmpty reports whether no criterion is set.
func (f Filter) IsEmpty() bool {
	return len(f.Values()) == 0
}

// Values renders the set criteria as query parameters.
func (f Filter) Values() url.Values {
	c := f.c
	values := url.Values{}
	setString := func(key string, v *string) {
		if v != nil {
			values.Set(key, *v)
		}
	}
	setUUID := func(key string, v *uuid.UUID) {
		if v != nil {
			values.Set(key, v.String())
		}
	}

	setString(keyAlias, c.alias)
	setUUID(keyBillingID, c.billingID)
	if c.brand != nil {
		values.Set(keyBrand, c.brand.String())
	}
	if c.createTimestamp != nil {
		values.Set(keyCreateTimestamp, c.createTimestamp.UTC().Format(time.RFC3339Nano))
	}
	if c.docker != nil {
		values.Set(keyDocker, strconv.FormatBool(*c.docker))
	}
	if len(c.fields) > 0 {
		values.Set(keyFields, strings.Join(c.fields, ","))
	}
	setUUID(keyImageUUID, c.imageUUID)
	if len(c.internalMetadata) > 0 {
		// map[string]string always marshals.
		encoded, _ := json.Marshal(c.internalMetadata)
		values.Set(keyInternalMetadata, string(encoded))
	}
	setUUID(keyOwnerUUID, c.ownerUUID)
	setUUID(keyUUID, c.uuid)
	if c.ram != nil {
		values.Set(keyRAM, strconv.Itoa(*c.ram))
	}
	setUUID(keyServerUUID, c.serverUUID)
	if c.state != nil {
		values.Set(keyState, c.state.String())
	}
	setString(keyTagKey, c.tagKey)
	if len(c.uuids) > 0 {
		ids := make([]string, len(c.uuids))
		for i, id := range c.uuids {
			ids[i] = id.String()
		}
		values.Set(keyUUIDs, strings.Join(ids, ","))
	}
	return values
}

// Encode renders the filter as a URL query string with keys sorted.
func (f Filter) Encode() string {
	return f.Values().Encode()
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	return f.Encode()
}
