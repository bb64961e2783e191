package config

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cochaviz/sdc-clients/internal/events"
	"github.com/cochaviz/sdc-clients/internal/inventory"
	"github.com/cochaviz/sdc-clients/internal/logging"
	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

// Inventory is a wired inventory service plus whatever has to be closed
// when the caller is done with it.
type Inventory struct {
	*inventory.Service
	Client   *vmapi.Client
	Registry *prometheus.Registry

	publisher *events.Publisher
}

// Close releases the event publisher, if any.
func (i *Inventory) Close() error {
	if i == nil || i.publisher == nil {
		return nil
	}
	return i.publisher.Close()
}

// NewInventory builds the VMAPI client, metrics and optional NATS publisher
// described by settings.
func NewInventory(settings Settings, logger *slog.Logger) (*Inventory, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	client, err := vmapi.NewClient(settings.VMAPIURL, settings.WFAPIURL,
		vmapi.WithTimeout(settings.Timeout.Duration),
		vmapi.WithLogger(logger.With("service", "vmapi")),
	)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := inventory.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	inv := &Inventory{
		Service: &inventory.Service{
			Logger:  logger.With("service", "inventory"),
			Fetcher: client,
			Metrics: metrics,
			Subject: settings.Events.Subject,
			Workers: settings.Workers,
		},
		Client:   client,
		Registry: registry,
	}

	if settings.Events.NATSURL != "" {
		publisher, err := events.NewPublisher(settings.Events.NATSURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connect events: %w", err)
		}
		inv.publisher = publisher
		inv.Service.Publisher = publisher
		logger.Info("publishing machine events", "subject", settings.Events.Subject)
	}

	return inv, nil
}
