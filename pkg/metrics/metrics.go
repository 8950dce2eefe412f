// Package metrics provides Prometheus observability for the columnar engine.
//
// The engine records allocation and materialization activity through a small
// set of pre-registered collectors. Recording is lock-free and cheap enough
// to sit on the buffer-allocation path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BufferAllocations counts heap buffer allocations by the buffer layer.
	BufferAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "buffer",
		Name:      "allocations_total",
		Help:      "Total number of heap buffers allocated",
	})

	// BufferBytesAllocated counts bytes allocated for heap buffers.
	BufferBytesAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "buffer",
		Name:      "allocated_bytes_total",
		Help:      "Total bytes allocated for heap buffers",
	})

	// BufferCopyOnWrites counts implicit clones triggered by writable access
	// to a shared buffer.
	BufferCopyOnWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "buffer",
		Name:      "copy_on_writes_total",
		Help:      "Total number of copy-on-write buffer clones",
	})

	// BufferMappedBytes tracks bytes currently memory-mapped.
	BufferMappedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tabular",
		Subsystem: "buffer",
		Name:      "mapped_bytes",
		Help:      "Bytes currently memory-mapped from files",
	})

	// Materializations counts virtual columns collapsed into physical storage.
	Materializations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "column",
		Name:      "materializations_total",
		Help:      "Total number of column materializations",
	}, []string{"stype"})

	// RowsMaterialized counts logical rows written out by materialization.
	RowsMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "column",
		Name:      "rows_materialized_total",
		Help:      "Total logical rows written during materialization",
	})

	// ParallelRegions counts parallel loops entered, by scheduling discipline.
	ParallelRegions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "parallel",
		Name:      "regions_total",
		Help:      "Total parallel regions entered",
	}, []string{"schedule"})

	// ParallelInterrupts counts parallel loops abandoned at a chunk boundary.
	ParallelInterrupts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tabular",
		Subsystem: "parallel",
		Name:      "interrupts_total",
		Help:      "Total parallel regions cancelled before completion",
	})
)
