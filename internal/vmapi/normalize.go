package vmapi

import (
	"errors"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cochaviz/sdc-clients/brand"
)

// Normalize maps a raw VM record onto a Machine. The only failure is an
// image that cannot be resolved, reported as *UnresolvableImageError. The
// returned Machine shares no memory with vm.
func Normalize(vm VM) (Machine, error) {
	layout := layoutOf(vm)

	image, reason := layout.image()
	if reason != "" {
		return Machine{}, &UnresolvableImageError{UUID: vm.UUID, Reason: reason}
	}

	return Machine{
		ID:              vm.UUID,
		Name:            clonePtr(vm.Alias),
		Type:            brand.Classify(vm.Brand),
		Brand:           clonePtr(vm.Brand),
		State:           ClassifyState(vm.State),
		Memory:          clonePtr(vm.RAM),
		Metadata:        cloneMap(vm.CustomerMetadata),
		Tags:            cloneMap(vm.Tags),
		Created:         clonePtr(vm.CreateTimestamp),
		Updated:         clonePtr(vm.LastModified),
		FirewallEnabled: clonePtr(vm.FirewallEnabled),
		ComputeNode:     clonePtr(vm.ServerUUID),
		DelegateDataset: boolOrFalse(vm.DelegateDataset),
		Docker:          boolOrFalse(vm.Docker),
		NICs:            cloneNICs(vm.NICs),
		Disks:           cloneDisks(vm.Disks),
		Disk:            layout.diskSize(),
		Image:           image,
	}, nil
}

// BatchResult holds the outcome of NormalizeAll. Machines keeps the input
// order of the records that normalised; Failed keeps the input order of the
// ones that did not, and Errors maps each of those to its error.
type BatchResult struct {
	Machines []Machine
	Failed   []uuid.UUID
	Errors   map[uuid.UUID]error
}

// Err joins the per-record errors in input order, or returns nil.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, id := range r.Failed {
		errs = append(errs, r.Errors[id])
	}
	return errors.Join(errs...)
}

// Partial reports whether some but not all records failed.
func (r BatchResult) Partial() bool {
	return len(r.Failed) > 0 && len(r.Machines) > 0
}

// NormalizeAll normalises every record independently on at most workers
// goroutines (GOMAXPROCS when workers <= 0). A failing record never affects
// the others.
func NormalizeAll(vms []VM, workers int) BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	machines := make([]Machine, len(vms))
	errs := make([]error, len(vms))

	var group errgroup.Group
	group.SetLimit(workers)
	for i := range vms {
		group.Go(func() error {
			machines[i], errs[i] = Normalize(vms[i])
			return nil
		})
	}
	_ = group.Wait()

	result := BatchResult{
		Machines: make([]Machine, 0, len(vms)),
		Errors:   make(map[uuid.UUID]error),
	}
	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, vms[i].UUID)
			result.Errors[vms[i].UUID] = err
			continue
		}
		result.Machines = append(result.Machines, machines[i])
	}
	return result
}

func boolOrFalse(b *bool) bool {
	return b != nil && *b
}

func cloneDisks(in []Disk) []Disk {
	if in == nil {
		return nil
	}
	out := make([]Disk, len(in))
	for i, d := range in {
		out[i] = d.clone()
	}
	return out
}

func cloneNICs(in []NIC) []NIC {
	if in == nil {
		return nil
	}
	out := make([]NIC, len(in))
	for i, n := range in {
		out[i] = n.clone()
	}
	return out
}
