// Package metrics provides Prometheus metrics for serial allocation and lineage tracing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SerialsAllocatedTotal tracks allocations by mode and outcome
	SerialsAllocatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotcom",
			Subsystem: "allocator",
			Name:      "serials_total",
			Help:      "Total number of serial allocation attempts by mode and status",
		},
		[]string{"mode", "status"},
	)

	// SerialWrapsTotal tracks counters that reached their limit and restarted at 1
	SerialWrapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotcom",
			Subsystem: "allocator",
			Name:      "wraps_total",
			Help:      "Total number of serial counters that wrapped at their limit",
		},
		[]string{"mode"},
	)

	// AllocationDuration tracks the full ledger read-modify-write time
	AllocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lotcom",
			Subsystem: "allocator",
			Name:      "allocation_duration_seconds",
			Help:      "Duration of serial allocations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	// LedgerUp reports the last ping result per ledger
	LedgerUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lotcom",
			Subsystem: "allocator",
			Name:      "ledger_up",
			Help:      "Whether the ledger was readable at the last ping (1) or not (0)",
		},
		[]string{"mode"},
	)

	// UnitEventsRecordedTotal tracks recorded prints and scans
	UnitEventsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotcom",
			Subsystem: "production",
			Name:      "unit_events_total",
			Help:      "Total number of recorded unit events by kind and status",
		},
		[]string{"kind", "status"},
	)

	// LineageChecksTotal tracks lineage trace outcomes by deciding step
	LineageChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lotcom",
			Subsystem: "lineage",
			Name:      "checks_total",
			Help:      "Total number of lineage traces by result and failed step",
		},
		[]string{"result", "step"},
	)
)

// Status label values
const (
	StatusSuccess   = "success"
	StatusNotFound  = "not_found"
	StatusError     = "error"
	StatusDuplicate = "duplicate"
	StatusInvalid   = "invalid"
)

// Lineage result label values
const (
	LineageLinked   = "linked"
	LineageOrphaned = "orphaned"
)
