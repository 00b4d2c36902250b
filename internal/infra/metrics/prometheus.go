package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrab_jobs_processed_total",
		Help: "Total number of extraction jobs processed, by status",
	}, []string{"status"})

	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framegrab_job_stage_duration_seconds",
		Help:    "Duration of the extraction pipeline, by stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_frames_written_total",
		Help: "Total number of frames written across all jobs",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framegrab_frames_skipped_total",
		Help: "Total number of frames skipped due to per-frame errors",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framegrab_active_workers",
		Help: "Number of currently active workers running extractions",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framegrab_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
