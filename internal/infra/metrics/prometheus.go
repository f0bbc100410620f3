package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluta_video_runs_total",
		Help: "Total number of video runs finished, by final status",
	}, []string{"status"})

	RunStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pluta_video_run_stage_duration_seconds",
		Help:    "Duration of each stage of a video run",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluta_frames_extracted_total",
		Help: "Total number of still images sampled across all runs",
	})

	FrameRecordsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluta_frame_records_saved_total",
		Help: "Total number of per-table frame records persisted",
	})

	UnresolvedTablesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluta_unresolved_tables_total",
		Help: "Detection results whose table id could not be resolved",
	})

	EngineCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluta_engine_calls_total",
		Help: "Detection engine invocations, by outcome",
	}, []string{"outcome"})

	EngineCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pluta_engine_call_duration_seconds",
		Help:    "Wall time of a single detection engine invocation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pluta_active_runs",
		Help: "Number of video runs currently executing",
	})

	ReconciledRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pluta_reconciled_runs_total",
		Help: "Stale PROCESSING runs failed by the reconciler",
	})

	RedeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluta_redeliveries_total",
		Help: "Run messages requeued after an infrastructure failure",
	}, []string{"attempt"})

	ImageAnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pluta_image_analyses_total",
		Help: "On-demand image analyses by outcome",
	}, []string{"outcome"})
)
