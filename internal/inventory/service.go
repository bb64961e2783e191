package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cochaviz/sdc-clients/internal/events"
	"github.com/cochaviz/sdc-clients/internal/logging"
	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

// ErrNotFound is returned by Get when VMAPI has no record for the uuid.
var ErrNotFound = errors.New("machine not found")

// EventPublisher receives every normalised machine.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Service lists VMs from a Fetcher and turns them into machines. Metrics and
// Publisher are optional.
type Service struct {
	Logger    *slog.Logger
	Fetcher   vmapi.Fetcher
	Metrics   *Metrics
	Publisher EventPublisher
	Subject   string
	Workers   int
}

func (s *Service) logger() *slog.Logger {
	return logging.Ensure(s.Logger)
}

// Raw lists VM records without normalising them.
func (s *Service) Raw(ctx context.Context, filter vmapi.Filter) ([]vmapi.VM, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("inventory: no fetcher configured")
	}
	started := time.Now()
	vms, err := s.Fetcher.ListVMs(ctx, filter)
	s.Metrics.observeFetch(started, err)
	if err != nil {
		return nil, fmt.Errorf("list vms: %w", err)
	}
	return vms, nil
}

// List fetches the VMs matching filter and normalises each of them. A
// transport failure is returned as the error; records that fail to normalise
// are reported in the result and never fail the call.
func (s *Service) List(ctx context.Context, filter vmapi.Filter) (vmapi.BatchResult, error) {
	logger := s.logger().With("filter", filter.Encode())

	vms, err := s.Raw(ctx, filter)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return vmapi.BatchResult{}, err
	}

	result := vmapi.NormalizeAll(vms, s.Workers)

	for _, id := range result.Failed {
		err := result.Errors[id]
		s.Metrics.observeFailure(err)
		logger.Warn("vm record not normalised", "machine_uuid", id, "error", err)
	}
	for _, m := range result.Machines {
		s.Metrics.observeMachine(m.Type, m.State)
	}

	s.publish(ctx, logger, result.Machines)

	logger.Info("listed machines",
		"records", len(vms),
		"machines", len(result.Machines),
		"failed", len(result.Failed),
	)
	return result, nil
}

// Get returns the machine with the given uuid.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (vmapi.Machine, error) {
	result, err := s.List(ctx, vmapi.NewFilter().WithUUID(id).Build())
	if err != nil {
		return vmapi.Machine{}, err
	}
	if err, ok := result.Errors[id]; ok {
		return vmapi.Machine{}, err
	}
	for _, m := range result.Machines {
		if m.ID == id {
			return m, nil
		}
	}
	return vmapi.Machine{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, machines []vmapi.Machine) {
	if s.Publisher == nil {
		return
	}
	published := 0
	for _, m := range machines {
		payload, err := json.Marshal(m)
		if err != nil {
			logger.Warn("encode machine event", "machine_uuid", m.ID, "error", err)
			continue
		}
		subject := events.Subject(s.Subject, m.State.String())
		if err := s.Publisher.Publish(ctx, subject, payload); err != nil {
			logger.Warn("publish machine event", "machine_uuid", m.ID, "subject", subject, "error", err)
			continue
		}
		published++
	}
	logger.Debug("published machine events", "count", published)
}
