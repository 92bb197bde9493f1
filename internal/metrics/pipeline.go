package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and retrieval pipeline metrics.
var (
	DocumentsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intellidoc",
			Name:      "documents_ingested_total",
			Help:      "Ingestion attempts by final status",
		},
		[]string{"status"}, // "complete" / "failed"
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intellidoc",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source_type"},
	)

	SegmentsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "intellidoc",
			Name:      "segments_ingested_total",
			Help:      "Total segments written by completed ingestions",
		},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intellidoc",
			Name:      "answers_total",
			Help:      "Question answering attempts by outcome",
		},
		[]string{"outcome"}, // "answered" / "no_context" / "failed"
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intellidoc",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end question answering duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and retrieval metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsIngestedTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(SegmentsIngestedTotal)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(AnswerDuration)
	pipelineMetricsRegistered = true
}
