package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecognitionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watermeter_recognition_calls_total",
			Help: "Total recognition API calls by outcome",
		},
		[]string{"outcome"},
	)

	RecognitionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watermeter_recognition_latency_seconds",
			Help:    "Recognition API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watermeter_readings_ingested_total",
			Help: "Total readings stored, by source",
		},
		[]string{"source"},
	)

	CaptureCyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watermeter_capture_cycles_skipped_total",
			Help: "Capture ticks skipped because the previous cycle was still in flight",
		},
	)
)
