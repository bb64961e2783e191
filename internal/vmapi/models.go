package vmapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/brand"
)

// ZFSCompression is a ZFS compression algorithm as accepted by vmadm.
type ZFSCompression string

// Supported compression values.
const (
	CompressionGzip  ZFSCompression = "gzip"
	CompressionGzip1 ZFSCompression = "gzip-1"
	CompressionGzip2 ZFSCompression = "gzip-2"
	CompressionGzip3 ZFSCompression = "gzip-3"
	CompressionGzip4 ZFSCompression = "gzip-4"
	CompressionGzip5 ZFSCompression = "gzip-5"
	CompressionGzip6 ZFSCompression = "gzip-6"
	CompressionGzip7 ZFSCompression = "gzip-7"
	CompressionGzip8 ZFSCompression = "gzip-8"
	CompressionGzip9 ZFSCompression = "gzip-9"
	CompressionOn    ZFSCompression = "on"
	CompressionOff   ZFSCompression = "off"
	CompressionLZ4   ZFSCompression = "lz4"
	CompressionLZJB  ZFSCompression = "lzjb"
	CompressionZLE   ZFSCompression = "zle"
)

// DiskModel is the emulated disk controller of an HVM disk.
type DiskModel string

const (
	DiskModelVirtio DiskModel = "virtio"
	DiskModelIDE    DiskModel = "ide"
	DiskModelSCSI   DiskModel = "scsi"
)

// NICModel is the emulated network card of an HVM NIC.
type NICModel string

const (
	NICModelVirtio  NICModel = "virtio"
	NICModelE1000   NICModel = "e1000"
	NICModelRTL8139 NICModel = "rtl8139"
)

// VM is a raw VMAPI record. Only UUID is guaranteed; every other field is
// optional and depends on brand, platform version and how complete the record
// is. Fields marked HVM or zone are only populated for that kind of machine.
type VM struct {
	UUID uuid.UUID `json:"uuid"`

	Alias          *string      `json:"alias,omitempty"`
	Autoboot       *bool        `json:"autoboot,omitempty"`
	BillingID      *uuid.UUID   `json:"billing_id,omitempty"`
	Brand          *brand.Brand `json:"brand,omitempty"`
	CPUCap         *int         `json:"cpu_cap,omitempty"`
	CPUShares      *int         `json:"cpu_shares,omitempty"`
	CPUType        *string      `json:"cpu_type,omitempty"` // HVM
	Datasets       []string     `json:"datasets,omitempty"`
	DatacenterName *string      `json:"datacenter_name,omitempty"`
	Disks          []Disk       `json:"disks,omitempty"` // HVM

	CreateTimestamp *time.Time `json:"create_timestamp,omitempty"`
	Destroyed       *time.Time `json:"destroyed,omitempty"`
	LastModified    *time.Time `json:"last_modified,omitempty"`
	ExitTimestamp   *time.Time `json:"exit_timestamp,omitempty"`
	ExitStatus      *int       `json:"exit_status,omitempty"`

	DelegateDataset  *bool   `json:"delegate_dataset,omitempty"` // zone
	DNSDomain        *string `json:"dns_domain,omitempty"`
	DoNotInventory   *bool   `json:"do_not_inventory,omitempty"`
	Docker           *bool   `json:"docker,omitempty"`
	FlexibleDiskSize *int    `json:"flexible_disk_size,omitempty"` // zone
	FirewallEnabled  *bool   `json:"firewall_enabled,omitempty"`
	FreeSpace        *int    `json:"free_space,omitempty"`
	FSAllowed        *string `json:"fs_allowed,omitempty"`
	Hostname         *string `json:"hostname,omitempty"`

	ImageUUID        *uuid.UUID     `json:"image_uuid,omitempty"`
	CustomerMetadata map[string]any `json:"customer_metadata,omitempty"`
	InternalMetadata map[string]any `json:"internal_metadata,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`

	IndestructibleDelegated *bool `json:"indestructible_delegated,omitempty"` // zone
	IndestructibleZoneroot  *bool `json:"indestructible_zoneroot,omitempty"`  // zone

	LimitPriv          *string    `json:"limit_priv,omitempty"`
	MaintainResolvers  *bool      `json:"maintain_resolvers,omitempty"`
	MaxLockedMemory    *int       `json:"max_locked_memory,omitempty"`
	MaxLWPs            *int       `json:"max_lwps,omitempty"`
	MaxPhysicalMemory  *int       `json:"max_physical_memory,omitempty"`
	MaxSwap            *int       `json:"max_swap,omitempty"`
	MdataExecTimeout   *int       `json:"mdata_exec_timeout,omitempty"`
	NICs               []NIC      `json:"nics,omitempty"`
	OwnerUUID          *uuid.UUID `json:"owner_uuid,omitempty"`
	PlatformBuildstamp *string    `json:"platform_buildstamp,omitempty"`
	Quota              *int       `json:"quota,omitempty"`
	RAM                *int       `json:"ram,omitempty"`
	Resolvers          []string   `json:"resolvers,omitempty"`
	Snapshots          []string   `json:"snapshots,omitempty"`
	Tmpfs              *int       `json:"tmpfs,omitempty"`
	VCPUs              *int       `json:"vcpus,omitempty"`

	ZFSDataCompression *ZFSCompression `json:"zfs_data_compression,omitempty"`
	ZFSIOPriority      *int            `json:"zfs_io_priority,omitempty"`
	ZFSSnapshotLimit   *int            `json:"zfs_snapshot_limit,omitempty"`
	ZlogMaxSize        *int            `json:"zlog_max_size,omitempty"`
	ZlogMode           *string         `json:"zlog_mode,omitempty"`
	ZlogName           *string         `json:"zlog_name,omitempty"`
	ZonePath           *string         `json:"zone_path,omitempty"`
	ZoneDID            *int            `json:"zonedid,omitempty"`
	ZoneID             *int            `json:"zoneid,omitempty"`
	COM1               *string         `json:"com1,omitempty"`
	COM2               *string         `json:"com2,omitempty"`
	DiskDriver         *DiskModel      `json:"disk_driver,omitempty"`
	NICDriver          *NICModel       `json:"nic_driver,omitempty"`

	ServerUUID *uuid.UUID `json:"server_uuid,omitempty"`
	State      *State     `json:"state,omitempty"`
	ZoneState  *State     `json:"zone_state,omitempty"`
}

// Disk is one entry of an HVM disk list. By fleet convention index 0 is the
// boot disk cloned from the image and index 1 the first data disk.
type Disk struct {
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	BlockSize      *int            `json:"block_size,omitempty"`
	Boot           *bool           `json:"boot,omitempty"`
	Compression    *ZFSCompression `json:"compression,omitempty"`
	ImageName      *string         `json:"image_name,omitempty"`
	ImageSize      *int            `json:"image_size,omitempty"`
	ImageUUID      *uuid.UUID      `json:"image_uuid,omitempty"`
	Media          *string         `json:"media,omitempty"`
	Model          *DiskModel      `json:"model,omitempty"`
	Path           *string         `json:"path,omitempty"`
	PCISlot        *string         `json:"pci_slot,omitempty"`
	Refreservation *int            `json:"refreservation,omitempty"`
	Size           *int            `json:"size,omitempty"`
}

// NIC is a network interface attached to a VM. Addresses stay strings because
// VMAPI reports non-address values such as "dhcp" in the ip field.
type NIC struct {
	Interface   string     `json:"interface"`
	MAC         string     `json:"mac"`
	VLANID      *int       `json:"vlan_id,omitempty"`
	NICTag      *string    `json:"nic_tag,omitempty"`
	IP          *string    `json:"ip,omitempty"`
	IPs         []string   `json:"ips,omitempty"`
	Netmask     *string    `json:"netmask,omitempty"`
	Gateway     *string    `json:"gateway,omitempty"`
	Gateways    []string   `json:"gateways,omitempty"`
	Primary     *bool      `json:"primary,omitempty"`
	Model       *NICModel  `json:"model,omitempty"`
	NetworkUUID *uuid.UUID `json:"network_uuid,omitempty"`
	MTU         *int       `json:"mtu,omitempty"`
}

// ErrMissingUUID is returned when a VMAPI record carries no usable uuid.
var ErrMissingUUID = errors.New("vm record has no uuid")

// UnmarshalJSON decodes a VMAPI record. A record without a uuid is rejected,
// while a malformed server_uuid is dropped rather than failing the record.
func (vm *VM) UnmarshalJSON(data []byte) error {
	type vmAlias VM
	aux := struct {
		*vmAlias
		ServerUUID json.RawMessage `json:"server_uuid,omitempty"`
	}{vmAlias: (*vmAlias)(vm)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode vm: %w", err)
	}
	if vm.UUID == uuid.Nil {
		return ErrMissingUUID
	}

	vm.ServerUUID = lenientUUID(aux.ServerUUID)
	return nil
}

func lenientUUID(raw json.RawMessage) *uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func (d Disk) clone() Disk {
	return Disk{
		UUID:           clonePtr(d.UUID),
		BlockSize:      clonePtr(d.BlockSize),
		Boot:           clonePtr(d.Boot),
		Compression:    clonePtr(d.Compression),
		ImageName:      clonePtr(d.ImageName),
		ImageSize:      clonePtr(d.ImageSize),
		ImageUUID:      clonePtr(d.ImageUUID),
		Media:          clonePtr(d.Media),
		Model:          clonePtr(d.Model),
		Path:           clonePtr(d.Path),
		PCISlot:        clonePtr(d.PCISlot),
		Refreservation: clonePtr(d.Refreservation),
		Size:           clonePtr(d.Size),
	}
}

func (n NIC) clone() NIC {
	return NIC{
		Interface:   n.Interface,
		MAC:         n.MAC,
		VLANID:      clonePtr(n.VLANID),
		NICTag:      clonePtr(n.NICTag),
		IP:          clonePtr(n.IP),
		IPs:         cloneSlice(n.IPs),
		Netmask:     clonePtr(n.Netmask),
		Gateway:     clonePtr(n.Gateway),
		Gateways:    cloneSlice(n.Gateways),
		Primary:     clonePtr(n.Primary),
		Model:       clonePtr(n.Model),
		NetworkUUID: clonePtr(n.NetworkUUID),
		MTU:         clonePtr(n.MTU),
	}
}
