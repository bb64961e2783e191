package vmapi

import "github.com/google/uuid"

// Indices into an HVM disk list.
const (
	bootDiskIndex = 0
	dataDiskIndex = 1
)

// Reasons reported by UnresolvableImageError.
const (
	ReasonNoDisks         = "no_disks"
	ReasonEmptyDiskList   = "empty_disk_list"
	ReasonBootDiskNoImage = "boot_disk_without_image"
)

// diskLayout is the part of a VM record the disk and image resolvers look at.
// Zones report FlexibleDiskSize, HVMs report Disks; either may carry the top
// level image.
type diskLayout struct {
	FlexibleDiskSize *int
	Disks            []Disk
	ImageUUID        *uuid.UUID
}

func layoutOf(vm VM) diskLayout {
	return diskLayout{
		FlexibleDiskSize: vm.FlexibleDiskSize,
		Disks:            vm.Disks,
		ImageUUID:        vm.ImageUUID,
	}
}

// ResolveDiskSize picks the primary disk size: the flexible disk size when
// present, otherwise the size of the first data disk. Nil means the size is
// not known, which is not an error.
func ResolveDiskSize(flexible *int, disks []Disk) *int {
	return diskLayout{FlexibleDiskSize: flexible, Disks: disks}.diskSize()
}

// ResolveImage picks the primary image: the top level image uuid when present,
// otherwise the image of the boot disk. ok is false when neither exists.
func ResolveImage(top *uuid.UUID, disks []Disk) (id uuid.UUID, ok bool) {
	id, reason := diskLayout{ImageUUID: top, Disks: disks}.image()
	return id, reason == ""
}

func (l diskLayout) diskSize() *int {
	if l.FlexibleDiskSize != nil {
		return clonePtr(l.FlexibleDiskSize)
	}
	if len(l.Disks) > dataDiskIndex {
		return clonePtr(l.Disks[dataDiskIndex].Size)
	}
	return nil
}

// image returns the resolved image, or the reason it could not be resolved.
func (l diskLayout) image() (uuid.UUID, string) {
	if l.ImageUUID != nil {
		return *l.ImageUUID, ""
	}
	switch {
	case l.Disks == nil:
		return uuid.Nil, ReasonNoDisks
	case len(l.Disks) == 0:
		return uuid.Nil, ReasonEmptyDiskList
	}
	if boot := l.Disks[bootDiskIndex].ImageUUID; boot != nil {
		return *boot, ""
	}
	return uuid.Nil, ReasonBootDiskNoImage
}
