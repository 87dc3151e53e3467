// Package metrics exposes Prometheus instruments for planner operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/starford/planner/internal/apperr"
)

// Operation status labels.
const (
	StatusOK           = "ok"
	StatusInvalid      = "invalid"
	StatusWriteFailed  = "write_failed"
	StatusNoop         = "noop"
	StatusError        = "error"
	StatusReadRecovery = "read_recovered"
)

var (
	TaskOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_task_operations_total",
			Help: "Task operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_task_operation_duration_seconds",
			Help:    "Duration of task operations including the storage round trip",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	TaskTextLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planner_task_text_length_chars",
			Help:    "Length distribution of accepted task texts",
			Buckets: []float64{10, 25, 50, 100, 150, 200},
		},
	)

	PlanReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_plan_reads_total",
			Help: "Reads of the plan mapping by outcome",
		},
		[]string{"status"},
	)
)

// Observe records the outcome of one task operation started at start.
func Observe(op string, start time.Time, status string) {
	TaskOperations.WithLabelValues(op, status).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// StatusOf classifies an operation error.
func StatusOf(err error) string {
	var ve *apperr.ValidationError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &ve):
		return StatusInvalid
	case apperr.IsWriteFailure(err):
		return StatusWriteFailed
	}
	return StatusError
}
