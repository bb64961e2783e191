package inventory

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cochaviz/sdc-clients/brand"
	"github.com/cochaviz/sdc-clients/internal/vmapi"
)

const namespace = "vmapi_client"

// Failure reasons used as the "reason" label.
const (
	reasonTransport = "transport"
	reasonOther     = "other"
)

// Metrics groups the collectors updated by Service.
type Metrics struct {
	normalized    *prometheus.CounterVec
	failed        *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		normalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "machines_normalized_total",
			Help:      "Number of VM records normalised, by machine type and canonical state.",
		}, []string{"type", "state"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Number of fetches or records that could not be turned into machines, by reason.",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent listing VMs from VMAPI.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.normalized, m.failed, m.fetchDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeFetch(started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.failed.WithLabelValues(reasonTransport).Inc()
	}
	m.fetchDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeMachine(t brand.MachineType, s vmapi.MachineState) {
	if m == nil {
		return
	}
	m.normalized.WithLabelValues(t.String(), s.String()).Inc()
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(failureReason(err)).Inc()
}

func failureReason(err error) string {
	var unresolvable *vmapi.UnresolvableImageError
	if errors.As(err, &unresolvable) {
		return unresolvable.Reason
	}
	return reasonOther
}
