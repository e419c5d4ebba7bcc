// Package metrics provides Prometheus metrics for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal counts workflow executions by final status.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Total number of workflow executions by final status",
		},
		[]string{"status"}, // "completed", "failed"
	)

	// ExecutionsActive tracks currently running executions.
	ExecutionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "executions_active",
			Help:      "Number of currently running workflow executions",
		},
	)

	// ExecutionDuration tracks workflow execution duration.
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "execution_duration_seconds",
			Help:      "Workflow execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	// NodesTotal counts node executions by node type and status.
	NodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "nodes_total",
			Help:      "Total number of nodes executed by type and status",
		},
		[]string{"type", "status"}, // status: "completed", "failed"
	)

	// NodeDuration tracks node execution duration by node type.
	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// CreditsSpent counts credits deducted by node type.
	CreditsSpent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "engine",
			Name:      "credits_spent_total",
			Help:      "Total credits deducted by node type",
		},
		[]string{"type"},
	)

	// RouterSubmissions counts GPU job submissions by endpoint and outcome.
	RouterSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "gpu",
			Name:      "submissions_total",
			Help:      "Total GPU job submissions by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "ok", "error"
	)

	// RouterFallbacks counts serverless fallbacks by trigger.
	RouterFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "gpu",
			Name:      "fallbacks_total",
			Help:      "Total routing fallbacks by trigger",
		},
		[]string{"trigger"}, // "health", "submit", "serverless"
	)

	// RouterLoRAReroutes counts submissions rerouted for LoRA affinity.
	RouterLoRAReroutes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "gpu",
			Name:      "lora_reroutes_total",
			Help:      "Submissions routed to serverless to avoid a LoRA swap",
		},
	)

	// ScheduledTriggersTotal counts schedule firings by outcome.
	ScheduledTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vixxxen",
			Subsystem: "scheduler",
			Name:      "triggers_total",
			Help:      "Total schedule firings by outcome",
		},
		[]string{"outcome"}, // "started", "skipped_credits", "error"
	)

	// SchedulerQueueDepth tracks executions waiting on the worker pool.
	SchedulerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vixxxen",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of triggered executions waiting for a worker",
		},
	)
)
