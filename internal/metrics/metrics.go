package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksGenerated tracks notification tasks materialized by the evaluator
	TasksGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_tasks_generated_total",
			Help: "Total number of notification tasks generated",
		},
		[]string{"kind"}, // one_shot, recurring
	)

	// ChannelAttempts tracks per-channel delivery attempts by outcome
	ChannelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_channel_attempts_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "outcome"}, // success, failure, skipped
	)

	// TasksFinalized tracks tasks finalized as sent
	TasksFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_tasks_finalized_total",
			Help: "Total number of notification tasks finalized as sent",
		},
	)

	// DispatchDuration tracks per-task dispatch duration
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_service_dispatch_duration_seconds",
			Help:    "Per-task dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"}, // sent, unsent
	)

	// PendingTasks tracks the number of unsent tasks seen at dispatch time
	PendingTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_service_pending_tasks",
			Help: "Number of unsent notification tasks at the start of a dispatch phase",
		},
	)

	// DispatchQueueSize tracks the current dispatch queue size
	DispatchQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminder_service_dispatch_queue_size",
			Help: "Current number of tasks in the dispatch queue",
		},
	)

	// CycleFailures tracks dispatch cycles aborted by store errors
	CycleFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_cycle_failures_total",
			Help: "Total number of dispatch cycles aborted by store errors",
		},
	)

	// MalformedRules tracks rules skipped by the evaluator
	MalformedRules = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_service_malformed_rules_total",
			Help: "Total number of reminder rules skipped as malformed",
		},
	)

	// RateLimitExceeded tracks API rate limit violations
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"user_id"},
	)
)
