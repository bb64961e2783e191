package vmapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/brand"
)

const kvmRecord = `{
  "uuid": "6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01",
  "alias": "build-42",
  "brand": "kvm",
  "state": "shutting_down",
  "ram": 4096,
  "server_uuid": "44454c4c-3200-1042-804d-c2c04f575231",
  "create_timestamp": "2023-11-02T08:15:00.123Z",
  "disks": [
    {"image_uuid": "1f2b8f6e-6b1b-11ea-9d6d-0f3d2c6b7a01", "size": 10240, "boot": true, "model": "virtio"},
    {"size": 102400, "compression": "lz4"}
  ],
  "nics": [{"interface": "net0", "mac": "90:b8:d0:aa:bb:cc", "ip": "dhcp", "primary": true, "model": "virtio"}],
  "customer_metadata": {"user-script": "#!/bin/sh"},
  "zfs_data_compression": "gzip-6",
  "some_future_field": {"nested": true}
}`

func TestDecodeVM(t *testing.T) {
	t.Parallel()

	var vm VM
	if err := json.Unmarshal([]byte(kvmRecord), &vm); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if vm.UUID != uuid.MustParse("6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01") {
		t.Fatalf("UUID = %s", vm.UUID)
	}
	if vm.Brand == nil || *vm.Brand != brand.KVM {
		t.Fatalf("Brand = %v, want kvm", vm.Brand)
	}
	if vm.State == nil || *vm.State != StateShuttingDown {
		t.Fatalf("State = %v, want shutting_down", vm.State)
	}
	if vm.ServerUUID == nil || vm.ServerUUID.String() != "44454c4c-3200-1042-804d-c2c04f575231" {
		t.Fatalf("ServerUUID = %v", vm.ServerUUID)
	}
	if len(vm.Disks) != 2 || vm.Disks[1].Compression == nil || *vm.Disks[1].Compression != CompressionLZ4 {
		t.Fatalf("Disks = %+v", vm.Disks)
	}
	if vm.ZFSDataCompression == nil || *vm.ZFSDataCompression != CompressionGzip6 {
		t.Fatalf("ZFSDataCompression = %v", vm.ZFSDataCompression)
	}
	if len(vm.NICs) != 1 || vm.NICs[0].IP == nil || *vm.NICs[0].IP != "dhcp" {
		t.Fatalf("NICs = %+v", vm.NICs)
	}
	if vm.FlexibleDiskSize != nil || vm.Docker != nil {
		t.Fatalf("absent fields decoded as set: %+v", vm)
	}
}

func TestDecodeVMRequiresUUID(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"alias":"x"}`, `{"uuid":"00000000-0000-0000-0000-000000000000"}`} {
		var vm VM
		err := json.Unmarshal([]byte(raw), &vm)
		if !errors.Is(err, ErrMissingUUID) {
			t.Fatalf("Unmarshal(%s) error = %v, want ErrMissingUUID", raw, err)
		}
	}

	var vm VM
	if err := json.Unmarshal([]byte(`{"uuid":"not-a-uuid"}`), &vm); err == nil {
		t.Fatalf("Unmarshal() with malformed uuid succeeded")
	}
}

func TestDecodeVMToleratesBadServerUUID(t *testing.T) {
	t.Parallel()

	tests := []string{
		`{"uuid":"6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01","server_uuid":""}`,
		`{"uuid":"6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01","server_uuid":"garbage"}`,
		`{"uuid":"6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01","server_uuid":null}`,
		`{"uuid":"6e6fa5a8-9a09-4b88-a4ab-3d2f8c1a1a01","server_uuid":42}`,
	}
	for _, raw := range tests {
		var vm VM
		if err := json.Unmarshal([]byte(raw), &vm); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		if vm.ServerUUID != nil {
			t.Fatalf("Unmarshal(%s) ServerUUID = %s, want nil", raw, vm.ServerUUID)
		}
	}
}

func TestMachineJSONShape(t *testing.T) {
	t.Parallel()

	var vm VM
	if err := json.Unmarshal([]byte(kvmRecord), &vm); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	m, err := Normalize(vm)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for key, want := range map[string]any{
		"type":             "virtualmachine",
		"state":            "stopping",
		"brand":            "kvm",
		"image":            "1f2b8f6e-6b1b-11ea-9d6d-0f3d2c6b7a01",
		"compute_node":     "44454c4c-3200-1042-804d-c2c04f575231",
		"disk":             float64(102400),
		"docker":           false,
		"delegate_dataset": false,
	} {
		if generic[key] != want {
			t.Fatalf("machine[%q] = %v, want %v", key, generic[key], want)
		}
	}
	if _, ok := generic["firewall_enabled"]; ok {
		t.Fatalf("absent firewall_enabled serialized: %s", data)
	}
}
