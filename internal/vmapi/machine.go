package vmapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/brand"
)

// Machine is the brand-agnostic view of a VM record. Type and State are always
// drawn from their canonical sets; Brand keeps the raw tag for diagnostics.
type Machine struct {
	ID              uuid.UUID         `json:"id"`
	Name            *string           `json:"name,omitempty"`
	Type            brand.MachineType `json:"type"`
	Brand           *brand.Brand      `json:"brand,omitempty"`
	State           MachineState      `json:"state"`
	Memory          *int              `json:"memory,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	Tags            map[string]any    `json:"tags,omitempty"`
	Created         *time.Time        `json:"created,omitempty"`
	Updated         *time.Time        `json:"updated,omitempty"`
	FirewallEnabled *bool             `json:"firewall_enabled,omitempty"`
	ComputeNode     *uuid.UUID        `json:"compute_node,omitempty"`
	DelegateDataset bool              `json:"delegate_dataset"`
	Docker          bool              `json:"docker"`
	NICs            []NIC             `json:"nics,omitempty"`
	Disks           []Disk            `json:"disks,omitempty"`
	Disk            *int              `json:"disk,omitempty"`
	Image           uuid.UUID         `json:"image"`
}
