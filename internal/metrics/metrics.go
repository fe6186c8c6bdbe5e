package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lifelog"

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReadingsRegisteredCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vital_readings_registered_total",
			Help:      "Total number of vital readings registered",
		},
		[]string{"source"},
	)

	ChallengeCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_challenges_total",
			Help:      "One-time code challenges by outcome",
		},
		[]string{"outcome"},
	)

	AgentToolCallCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_tool_calls_total",
			Help:      "Agent tool invocations by operation and result",
		},
		[]string{"operation", "result"},
	)

	AggregationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of vital aggregation computations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

const (
	SourceAPI   = "api"
	SourceAgent = "agent"

	ChallengeIssued   = "issued"
	ChallengeVerified = "verified"
	ChallengeRejected = "rejected"
)

// TrackAggregation returns a function that records the duration of one aggregation.
//
//	defer metrics.TrackAggregation("cohort")(time.Now())
func TrackAggregation(kind string) func(time.Time) {
	return func(startTime time.Time) {
		AggregationHistogram.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}
}

func RecordReadingRegistered(source string) {
	ReadingsRegisteredCounter.WithLabelValues(source).Inc()
}

func RecordChallenge(outcome string) {
	ChallengeCounter.WithLabelValues(outcome).Inc()
}

func RecordToolCall(operation string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	AgentToolCallCounter.WithLabelValues(operation, result).Inc()
}
