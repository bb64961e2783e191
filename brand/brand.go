package brand

import (
	"fmt"
	"sort"
	"strings"
)

// Brand is the virtualization brand VMAPI reports for a VM or zone.
type Brand string

const (
	Bhyve         Brand = "bhyve"
	KVM           Brand = "kvm"
	LX            Brand = "lx"
	Joyent        Brand = "joyent"
	JoyentMinimal Brand = "joyent-minimal"
)

// MachineType is the brand-agnostic kind of machine.
type MachineType string

const (
	// VirtualMachine is a hardware-virtualized guest running its own kernel.
	VirtualMachine MachineType = "virtualmachine"
	// SmartMachine is an OS-virtualized zone sharing the host kernel.
	SmartMachine MachineType = "smartmachine"
	Unknown      MachineType = "unknown"
)

// Supported returns the full list of recognised brands.
func Supported() []Brand {
	return []Brand{
		Bhyve,
		KVM,
		LX,
		Joyent,
		JoyentMinimal,
	}
}

// IsValid reports whether b is a recognised brand.
func (b Brand) IsValid() bool {
	switch b {
	case Bhyve, KVM, LX, Joyent, JoyentMinimal:
		return true
	default:
		return false
	}
}

// String returns the brand in the provider vocabulary.
func (b Brand) String() string {
	return string(b)
}

// MachineType maps the brand to its machine type. Unrecognised brands map to
// Unknown so that new provider brands never break normalization.
func (b Brand) MachineType() MachineType {
	switch b {
	case Bhyve, KVM:
		return VirtualMachine
	case LX, Joyent, JoyentMinimal:
		return SmartMachine
	default:
		return Unknown
	}
}

// Classify is MachineType for an optional brand; nil yields Unknown.
func Classify(b *Brand) MachineType {
	if b == nil {
		return Unknown
	}
	return b.MachineType()
}

// Parse returns the canonical Brand for value or an error if it is not recognised.
func Parse(value string) (Brand, error) {
	if b := Normalize(value); b != "" {
		return b, nil
	}
	return "", fmt.Errorf("unsupported brand %q (supported: %s)", value, strings.Join(supportedStrings(), ", "))
}

// Normalize maps loosely formatted input onto a Brand. Returns "" when the
// value cannot be normalized.
func Normalize(value string) Brand {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case string(Bhyve):
		return Bhyve
	case string(KVM):
		return KVM
	case string(LX):
		return LX
	case string(Joyent):
		return Joyent
	case string(JoyentMinimal), "joyent_minimal":
		return JoyentMinimal
	default:
		return ""
	}
}

// String returns the machine type as string.
func (t MachineType) String() string {
	return string(t)
}

func supportedStrings() []string {
	all := Supported()
	out := make([]string, 0, len(all))
	for _, b := range all {
		out = append(out, b.String())
	}
	sort.Strings(out)
	return out
}
