package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluidmeter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fluidmeter_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Alert cycle metrics
	AlertCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluidmeter_alert_cycles_total",
			Help: "Alert cycle invocations by outcome",
		},
		[]string{"outcome"}, // completed, rate_limited, read_failed, dispatch_failed, marker_failed
	)

	AlertCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluidmeter_alert_cycle_duration_seconds",
			Help:    "Time taken by one alert cycle invocation",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	AlertFindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluidmeter_alert_findings_total",
			Help: "Findings produced by the rule evaluator",
		},
		[]string{"kind"},
	)

	AlertDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluidmeter_alert_dispatches_total",
			Help: "Owner notification batches handed to the notifier",
		},
		[]string{"status"}, // accepted, failed
	)

	// Measurement ingestion
	MeasurementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluidmeter_measurements_total",
			Help: "Measurements received",
		},
		[]string{"status"}, // stored, rejected
	)
)
