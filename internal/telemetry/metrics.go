// Package telemetry holds the Prometheus collectors for the dashboard.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FacadeRequests counts metric requests by category, mode and outcome
	FacadeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intakedash_facade_requests_total",
		Help: "Metric requests served by the data-source facade",
	}, []string{"category", "mode", "status"})

	FacadeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intakedash_facade_latency_seconds",
		Help:    "Time to fetch and aggregate one metric category",
		Buckets: prometheus.DefBuckets,
	}, []string{"category", "mode"})

	SnapshotFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intakedash_snapshot_fetches_total",
		Help: "Snapshot bundle fetch attempts",
	}, []string{"result"})

	OrganizationSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intakedash_snapshot_active_org_switches_total",
		Help: "Explicit active organization switches",
	})

	// QueryLayerUp is 1 when the last health probe succeeded
	QueryLayerUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intakedash_query_layer_up",
		Help: "Whether the query layer answered its last health probe",
	})
)
